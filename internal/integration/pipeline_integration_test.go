package integration

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/stretchr/testify/require"

	"github.com/arkhalid89/leadgen-bundler/internal/domain/bundle"
	"github.com/arkhalid89/leadgen-bundler/internal/manifest"
	releaserepo "github.com/arkhalid89/leadgen-bundler/internal/repository/release"
	"github.com/arkhalid89/leadgen-bundler/internal/service/builder"
	"github.com/arkhalid89/leadgen-bundler/internal/service/releaser"
	"github.com/arkhalid89/leadgen-bundler/internal/service/verifier"
)

// scaffoldProject creates a complete project tree ready for bundling:
// entry executables for both platforms, templates referencing static
// assets, icons and a forced include. It returns the project directory
// and the manifest path.
func scaffoldProject(t *testing.T) (string, string) {
	t.Helper()

	dir := t.TempDir()

	files := map[string]string{
		"bin/leadgen":          "#!/bin/sh\necho leadgen\n",
		"bin/leadgen.exe":      "MZ fake windows binary",
		"templates/index.html": `<html><head><link href="../static/css/app.css" rel="stylesheet"></head></html>`,
		"static/css/app.css":   "body { margin: 0 }",
		"assets/leadgen.icns":  "icns bytes",
		"assets/leadgen.ico":   "ico bytes",
		"settings.yaml":        "scrape_depth: 2\n",
	}

	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o755))
	}

	manifestPath := filepath.Join(dir, manifest.DefaultManifestFilename)
	m := &manifest.Manifest{
		Name:       "LeadGen",
		Identifier: "com.example.leadgen",
		Version:    "3.0.1",
		Data: []manifest.Mapping{
			{Source: "templates"},
			{Source: "static"},
		},
		Include: []manifest.Mapping{{Source: "settings.yaml"}},
		Platforms: map[bundle.Platform]manifest.PlatformSpec{
			bundle.PlatformDarwin:  {Entry: "bin/leadgen", Icon: "assets/leadgen.icns"},
			bundle.PlatformWindows: {Entry: "bin/leadgen.exe", Icon: "assets/leadgen.ico"},
		},
	}
	require.NoError(t, manifest.Save(manifestPath, m))

	return dir, manifestPath
}

// copyDistTree mirrors the regular files below srcRoot into dstRoot,
// keeping paths relative to distDir the way an installed tree would.
func copyDistTree(t *testing.T, distDir, srcRoot, dstRoot string) {
	t.Helper()

	err := filepath.WalkDir(srcRoot, func(path string, entry fs.DirEntry, err error) error {
		require.NoError(t, err)

		if !entry.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(distDir, path)
		require.NoError(t, err)

		target := filepath.Join(dstRoot, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(target), 0o755))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(target, data, 0o755))

		return nil
	})
	require.NoError(t, err)
}

// TestBundler_BuildReleaseVerify_RoundTrip runs the full developer-side
// pipeline: build a macOS bundle, assemble a release, verify the dist
// tree, verify a simulated installed copy, then prove tampering fails.
//
//nolint:funlen // Integration test requires comprehensive setup and verification.
func TestBundler_BuildReleaseVerify_RoundTrip(t *testing.T) {
	ctx := context.Background()
	dir, manifestPath := scaffoldProject(t)

	require.NoError(t, builder.Run(ctx, &builder.Options{
		ManifestPath: manifestPath,
		Platform:     "darwin",
	}))

	require.NoError(t, releaser.Run(ctx, &releaser.Options{
		ManifestPath: manifestPath,
		Root:         dir,
	}))

	distDir := filepath.Join(dir, bundle.DistDirName)
	layout := bundle.Layout{Root: dir, Name: "LeadGen", Platform: bundle.PlatformDarwin}

	// The release manifest describes the built bundle.
	repo := releaserepo.NewFileRepository(filepath.Join(distDir, releaserepo.DefaultFilename))

	release, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "LeadGen", release.Name)
	require.Equal(t, "3.0.1", release.Version)

	section := release.Platforms[bundle.PlatformDarwin]
	require.NotNil(t, section)
	require.Equal(t, "LeadGen.app/Contents/MacOS/LeadGen", section.Executable)
	require.NotEmpty(t, section.Files)
	require.NotNil(t, section.Archive)
	require.Equal(t, "LeadGen-3.0.1-darwin.tar.gz", section.Archive.Name)
	require.FileExists(t, filepath.Join(distDir, section.Archive.Name))

	// The dist tree passes verification.
	require.NoError(t, verifier.Run(ctx, &verifier.Options{Dir: distDir}))

	// An installed copy carries the unpacked bundle and the manifest but
	// no archive; verification still passes.
	installDir := t.TempDir()
	copyDistTree(t, distDir, layout.BundlePath(), installDir)

	releaseBytes, err := os.ReadFile(filepath.Join(distDir, releaserepo.DefaultFilename))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(
		filepath.Join(installDir, releaserepo.DefaultFilename), releaseBytes, 0o644))

	require.NoError(t, verifier.Run(ctx, &verifier.Options{Dir: installDir}))

	// Tampering with a staged payload file breaks verification.
	tampered := filepath.Join(layout.ResourcesDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(tampered, []byte("scrape_depth: 99\n"), 0o644))

	err = verifier.Run(ctx, &verifier.Options{Dir: distDir})
	require.Error(t, err)
	require.ErrorContains(t, err, "verification failed")
}

// TestReleaser_SignedManifest_VerifiesAgainstPublicKey signs a release
// during assembly and checks the verifier accepts the signature with the
// public half, then rejects a modified manifest.
func TestReleaser_SignedManifest_VerifiesAgainstPublicKey(t *testing.T) {
	ctx := context.Background()
	dir, manifestPath := scaffoldProject(t)

	require.NoError(t, builder.Run(ctx, &builder.Options{
		ManifestPath: manifestPath,
		Platform:     "windows",
	}))

	entity, err := openpgp.NewEntity("LeadGen Release", "", "release@example.com", nil)
	require.NoError(t, err)

	privateKeyPath := filepath.Join(dir, "release-key.asc")
	writeArmoredKey(t, privateKeyPath, entity, true)

	require.NoError(t, releaser.Run(ctx, &releaser.Options{
		ManifestPath: manifestPath,
		Root:         dir,
		SignKeyPath:  privateKeyPath,
	}))

	distDir := filepath.Join(dir, bundle.DistDirName)
	releasePath := filepath.Join(distDir, releaserepo.DefaultFilename)
	require.FileExists(t, releasePath+".asc")

	publicKeyPath := filepath.Join(dir, "release-key.pub.asc")
	writeArmoredKey(t, publicKeyPath, entity, false)

	require.NoError(t, verifier.Run(ctx, &verifier.Options{
		Dir:     distDir,
		KeyPath: publicKeyPath,
	}))

	// Any change to the signed manifest invalidates the signature.
	manifestBytes, err := os.ReadFile(releasePath)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(releasePath, append(manifestBytes, '\n'), 0o644))

	err = verifier.Run(ctx, &verifier.Options{
		Dir:     distDir,
		KeyPath: publicKeyPath,
	})
	require.Error(t, err)
	require.ErrorContains(t, err, "release signature")
}

// writeArmoredKey serializes an entity as an armored key file, either the
// private key or only the public half.
func writeArmoredKey(t *testing.T, path string, entity *openpgp.Entity, private bool) {
	t.Helper()

	var buf bytes.Buffer

	keyType := openpgp.PublicKeyType
	if private {
		keyType = openpgp.PrivateKeyType
	}

	armorWriter, err := armor.Encode(&buf, keyType, nil)
	require.NoError(t, err)

	if private {
		require.NoError(t, entity.SerializePrivate(armorWriter, nil))
	} else {
		require.NoError(t, entity.Serialize(armorWriter))
	}

	require.NoError(t, armorWriter.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
}
