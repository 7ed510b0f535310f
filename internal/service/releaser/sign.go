package releaser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ProtonMail/go-crypto/openpgp"

	"github.com/arkhalid89/leadgen-bundler/internal/logger"
)

var errNoSigningKey = errors.New("no usable private key in keyring")

// signRelease writes a detached armored signature next to the release
// manifest and returns the signature's dist-relative name.
func (r *releaser) signRelease(ctx context.Context, manifestPath string) (string, error) {
	keyFile, err := os.Open(filepath.Clean(r.signKeyPath))
	if err != nil {
		return "", fmt.Errorf("open signing key: %w", err)
	}

	defer func() {
		_ = keyFile.Close()
	}()

	keyring, err := openpgp.ReadArmoredKeyRing(keyFile)
	if err != nil {
		return "", fmt.Errorf("read signing key: %w", err)
	}

	signer, err := findSigner(keyring)
	if err != nil {
		return "", err
	}

	message, err := os.Open(filepath.Clean(manifestPath))
	if err != nil {
		return "", err
	}

	defer func() {
		_ = message.Close()
	}()

	signaturePath := manifestPath + ".asc"

	out, err := os.Create(signaturePath)
	if err != nil {
		return "", err
	}

	if err = openpgp.ArmoredDetachSign(out, signer, message, nil); err != nil {
		_ = out.Close()

		return "", fmt.Errorf("sign release manifest: %w", err)
	}

	if err = out.Close(); err != nil {
		return "", err
	}

	logger.InfoKV(ctx, "Signed release manifest", "signature", signaturePath)

	return filepath.Base(signaturePath), nil
}

// findSigner picks the first entity holding a usable private key.
func findSigner(keyring openpgp.EntityList) (*openpgp.Entity, error) {
	for _, entity := range keyring {
		if entity.PrivateKey == nil || entity.PrivateKey.Encrypted {
			continue
		}

		return entity, nil
	}

	return nil, errNoSigningKey
}
