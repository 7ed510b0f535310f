package releaser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/arkhalid89/leadgen-bundler/internal/logger"
	"github.com/arkhalid89/leadgen-bundler/internal/service/common"
)

// push uploads the release manifest and artifacts to the feed. The bearer
// token is read from FeedTokenEnvVar; entry points load .env files first.
func (r *releaser) push(ctx context.Context) error {
	var clientOpts []common.FeedOption
	if token := os.Getenv(FeedTokenEnvVar); token != "" {
		clientOpts = append(clientOpts, common.WithToken(token))
	}

	client, err := common.NewFeedClient(r.pushURL, clientOpts...)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Uploading release to feed", "feed", r.pushURL, "files", len(r.uploads))

	for _, name := range r.uploads {
		if err = r.uploadOne(ctx, client, name); err != nil {
			return fmt.Errorf("upload %s: %w", name, err)
		}

		logger.DebugKV(ctx, "Uploaded file", "name", name)
	}

	return nil
}

// uploadOne streams a single dist-relative file to the feed.
func (r *releaser) uploadOne(ctx context.Context, client *common.FeedClient, name string) error {
	localPath := filepath.Join(r.distDir, filepath.FromSlash(name))

	file, err := os.Open(filepath.Clean(localPath))
	if err != nil {
		return err
	}

	defer func() {
		_ = file.Close()
	}()

	return client.UploadFile(ctx, name, file)
}
