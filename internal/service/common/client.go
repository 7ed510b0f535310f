//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/arkhalid89/leadgen-bundler/internal/domain/bundle"
	"github.com/arkhalid89/leadgen-bundler/internal/repository/release"
)

// FeedClient talks to an update feed: a plain HTTP directory holding
// a release manifest and the archives and files it describes.
type FeedClient struct {
	// baseURL is the feed root all artifact names are joined onto.
	baseURL *url.URL
	// httpClient performs the requests.
	httpClient *http.Client
	// token is sent as a bearer credential on uploads when set.
	token string

	// callTimeout is the default timeout for individual feed calls.
	callTimeout time.Duration
}

// FeedOption configures client behaviour.
type FeedOption func(*FeedClient)

// DefaultCallTimeout bounds feed calls when no timeout is configured.
// Downloads of whole bundle archives need more headroom than an RPC would.
const DefaultCallTimeout = 60 * time.Second

// WithCallTimeout sets a default timeout for feed calls.
func WithCallTimeout(timeout time.Duration) FeedOption {
	return func(c *FeedClient) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithToken sets the bearer token sent on uploads.
func WithToken(token string) FeedOption {
	return func(c *FeedClient) {
		c.token = token
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) FeedOption {
	return func(c *FeedClient) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

var (
	// errFeedURLRequired is returned when no feed URL is provided.
	errFeedURLRequired = errors.New("feed URL must be provided")
	// errBadHTTPStatus is returned when the feed answers with an unexpected status.
	errBadHTTPStatus = errors.New("unexpected HTTP status")
)

// NewFeedClient creates a client for the feed rooted at the provided URL.
func NewFeedClient(feedURL string, opts ...FeedOption) (*FeedClient, error) {
	if feedURL == "" {
		return nil, errFeedURLRequired
	}

	parsed, err := url.Parse(feedURL)
	if err != nil {
		return nil, fmt.Errorf("parse feed URL: %w", err)
	}

	client := &FeedClient{
		baseURL:     parsed,
		httpClient:  http.DefaultClient,
		callTimeout: DefaultCallTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// FetchRelease downloads and decodes the feed's release manifest.
func (c *FeedClient) FetchRelease(ctx context.Context) (*bundle.Release, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	response, err := c.get(callCtx, release.DefaultFilename)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	contents, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("read release manifest: %w", err)
	}

	return release.Decode(contents)
}

// DownloadFile fetches one artifact from the feed into the destination path.
func (c *FeedClient) DownloadFile(ctx context.Context, remoteName, destPath string) error {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	response, err := c.get(callCtx, remoteName)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	destFile, err := os.Create(filepath.Clean(destPath))
	if err != nil {
		return fmt.Errorf("create %s: %w", destPath, err)
	}

	if _, err = io.Copy(destFile, response.Body); err != nil {
		destFile.Close()

		return fmt.Errorf("download %s: %w", remoteName, err)
	}

	if err = destFile.Close(); err != nil {
		return fmt.Errorf("close %s: %w", destPath, err)
	}

	return nil
}

// UploadFile publishes one artifact on the feed under the given name.
// The bearer token is attached when configured.
func (c *FeedClient) UploadFile(ctx context.Context, remoteName string, contents io.Reader) error {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	request, err := http.NewRequestWithContext(callCtx, http.MethodPut, c.artifactURL(remoteName), contents)
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}

	request.Header.Set("Content-Type", "application/octet-stream")
	if c.token != "" {
		request.Header.Set("Authorization", "Bearer "+c.token)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("upload %s: %w", remoteName, err)
	}
	defer response.Body.Close()

	switch response.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return nil
	default:
		return fmt.Errorf("upload %s: %w: %s", remoteName, errBadHTTPStatus, response.Status)
	}
}

// get performs one GET against the feed and checks the status code.
func (c *FeedClient) get(ctx context.Context, remoteName string) (*http.Response, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, c.artifactURL(remoteName), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", remoteName, err)
	}

	if response.StatusCode != http.StatusOK {
		response.Body.Close()

		return nil, fmt.Errorf("fetch %s: %w: %s", remoteName, errBadHTTPStatus, response.Status)
	}

	return response, nil
}

// artifactURL joins an artifact name onto the feed root.
func (c *FeedClient) artifactURL(remoteName string) string {
	joined := *c.baseURL
	joined.Path = path.Join(joined.Path, remoteName)

	return joined.String()
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *FeedClient) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
