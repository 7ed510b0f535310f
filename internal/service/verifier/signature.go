package verifier

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ProtonMail/go-crypto/openpgp"

	"github.com/arkhalid89/leadgen-bundler/internal/logger"
	releaserepo "github.com/arkhalid89/leadgen-bundler/internal/repository/release"
)

// checkSignature validates the manifest's detached armored signature
// against the configured public key.
func (v *verifier) checkSignature(ctx context.Context) error {
	keyFile, err := os.Open(filepath.Clean(v.keyPath))
	if err != nil {
		return fmt.Errorf("open public key: %w", err)
	}

	defer func() {
		_ = keyFile.Close()
	}()

	keyring, err := openpgp.ReadArmoredKeyRing(keyFile)
	if err != nil {
		return fmt.Errorf("read public key: %w", err)
	}

	manifestPath := filepath.Join(v.dir, releaserepo.DefaultFilename)

	manifestFile, err := os.Open(filepath.Clean(manifestPath))
	if err != nil {
		return fmt.Errorf("open release manifest: %w", err)
	}

	defer func() {
		_ = manifestFile.Close()
	}()

	signatureFile, err := os.Open(manifestPath + ".asc")
	if err != nil {
		return fmt.Errorf("open release signature: %w", err)
	}

	defer func() {
		_ = signatureFile.Close()
	}()

	signer, err := openpgp.CheckArmoredDetachedSignature(keyring, manifestFile, signatureFile, nil)
	if err != nil {
		return fmt.Errorf("release signature: %w", err)
	}

	var identity string
	for name := range signer.Identities {
		identity = name
		break
	}

	logger.InfoKV(ctx, "Release signature verified", "signed_by", identity)

	v.report.SignatureChecked = true

	return nil
}
