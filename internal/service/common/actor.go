//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"fmt"
	"os"
	"os/user"

	"github.com/arkhalid89/leadgen-bundler/internal/domain/bundle"
)

// DefaultExecutableMode is the file mode for staged and bundled executables.
const DefaultExecutableMode os.FileMode = 0o755

// DetectActor gathers host and user information for release provenance.
func DetectActor() (*bundle.Actor, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("hostname: %w", err)
	}

	currentUser, err := user.Current()
	if err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}

	return &bundle.Actor{
		Hostname: hostname,
		Username: currentUser.Username,
	}, nil
}
