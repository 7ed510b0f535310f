//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arkhalid89/leadgen-bundler/internal/domain/bundle"
	"github.com/arkhalid89/leadgen-bundler/internal/repository/release"
)

// TestNewFeedClient_ValidatesURL verifies that an empty feed URL is rejected.
func TestNewFeedClient_ValidatesURL(t *testing.T) {
	t.Parallel()

	c, err := NewFeedClient("")
	require.Error(t, err)
	require.Nil(t, c)
}

// TestFeedClient_callContext checks timeout vs cancel-only behavior of callContext.
func TestFeedClient_callContext(t *testing.T) {
	t.Parallel()

	c := &FeedClient{
		callTimeout: 0,
	}

	ctx, cancel := c.callContext(context.Background())
	cancel()

	require.NotNil(t, ctx)

	c.callTimeout = 10 * time.Millisecond

	ctx, cancel = c.callContext(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(10*time.Millisecond), deadline, 30*time.Millisecond)
}

// TestFeedClient_FetchRelease covers manifest fetching and status handling.
func TestFeedClient_FetchRelease(t *testing.T) {
	t.Parallel()

	want := &bundle.Release{Name: "LeadGen", Version: "1.4.0"}

	data, err := release.Encode(want)
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/feed/"+release.DefaultFilename {
			_, _ = w.Write(data)

			return
		}

		http.NotFound(w, r)
	}))
	defer server.Close()

	client, err := NewFeedClient(server.URL + "/feed")
	require.NoError(t, err)

	got, err := client.FetchRelease(context.Background())
	require.NoError(t, err)
	require.Equal(t, want.Name, got.Name)
	require.Equal(t, want.Version, got.Version)

	// A feed without a manifest yields a status error.
	empty, err := NewFeedClient(server.URL + "/empty")
	require.NoError(t, err)

	_, err = empty.FetchRelease(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "unexpected HTTP status")
}

// TestFeedClient_DownloadFile verifies artifacts land on disk unchanged.
func TestFeedClient_DownloadFile(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/LeadGen-1.4.0-darwin.tar.gz") {
			_, _ = w.Write([]byte("archive-bytes"))

			return
		}

		http.NotFound(w, r)
	}))
	defer server.Close()

	client, err := NewFeedClient(server.URL)
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "archive.tar.gz")
	require.NoError(t, client.DownloadFile(context.Background(), "LeadGen-1.4.0-darwin.tar.gz", dest))

	contents, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, "archive-bytes", string(contents))

	require.Error(t, client.DownloadFile(context.Background(), "missing.tar.gz", dest))
}

// TestFeedClient_UploadFile verifies the bearer token and payload reach the feed.
func TestFeedClient_UploadFile(t *testing.T) {
	t.Parallel()

	var (
		gotAuth string
		gotBody string
		gotPath string
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path

		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)

		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client, err := NewFeedClient(server.URL, WithToken("secret-token"))
	require.NoError(t, err)

	err = client.UploadFile(context.Background(), release.DefaultFilename, strings.NewReader("manifest"))
	require.NoError(t, err)
	require.Equal(t, "Bearer secret-token", gotAuth)
	require.Equal(t, "/"+release.DefaultFilename, gotPath)
	require.Equal(t, "manifest", gotBody)

	// Rejecting feeds report their status.
	denied := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer denied.Close()

	client, err = NewFeedClient(denied.URL)
	require.NoError(t, err)

	err = client.UploadFile(context.Background(), "x.bin", strings.NewReader("x"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "unexpected HTTP status")
}
