package builder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/arkhalid89/leadgen-bundler/internal/logger"
	"github.com/arkhalid89/leadgen-bundler/internal/service/common"
)

// plistSource is the Info.plist skeleton every macOS bundle receives.
// The icon entry is omitted when the manifest declares no icon.
const plistSource = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>CFBundleDevelopmentRegion</key>
	<string>en</string>
	<key>CFBundleExecutable</key>
	<string>{{.Executable}}</string>
{{- if .IconFile}}
	<key>CFBundleIconFile</key>
	<string>{{.IconFile}}</string>
{{- end}}
	<key>CFBundleIdentifier</key>
	<string>{{.Identifier}}</string>
	<key>CFBundleInfoDictionaryVersion</key>
	<string>6.0</string>
	<key>CFBundleName</key>
	<string>{{.Name}}</string>
	<key>CFBundlePackageType</key>
	<string>APPL</string>
	<key>CFBundleShortVersionString</key>
	<string>{{.Version}}</string>
	<key>CFBundleVersion</key>
	<string>{{.Version}}</string>
	<key>NSHighResolutionCapable</key>
	<true/>
</dict>
</plist>
`

//nolint:gochecknoglobals // Parsed once, read-only afterwards.
var plistTemplate = template.Must(template.New("info-plist").Parse(plistSource))

// plistData feeds the Info.plist template.
type plistData struct {
	Name       string
	Identifier string
	Version    string
	Executable string
	IconFile   string
}

// assembleDarwin lays out dist/<Name>.app: the executable under
// Contents/MacOS, the payload and icon under Contents/Resources,
// and a rendered Info.plist.
func (b *builder) assembleDarwin(ctx context.Context) error {
	var (
		macOSDir     = filepath.Dir(b.layout.ExecutablePath())
		resourcesDir = b.layout.ResourcesDir()
	)

	for _, dir := range []string{macOSDir, resourcesDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	stagedEntry := filepath.Join(b.layout.StageDir(), b.resolved.Name)
	if err := copyFile(stagedEntry, b.layout.ExecutablePath(), common.DefaultExecutableMode); err != nil {
		return fmt.Errorf("place executable: %w", err)
	}

	// Everything except the executable lands in Resources.
	if err := copyPayload(b.layout.StageDir(), resourcesDir, b.resolved.Name); err != nil {
		return fmt.Errorf("place payload: %w", err)
	}

	iconName, err := b.stageIcon(resourcesDir)
	if err != nil {
		return err
	}

	if err := b.writeInfoPlist(iconName); err != nil {
		return err
	}

	logger.DebugKV(ctx, "Assembled macOS bundle", "path", b.layout.BundlePath())

	return nil
}

// writeInfoPlist renders Contents/Info.plist from the resolved manifest.
func (b *builder) writeInfoPlist(iconName string) error {
	plistFile, err := os.Create(b.layout.InfoPlistPath())
	if err != nil {
		return fmt.Errorf("create Info.plist: %w", err)
	}

	data := plistData{
		Name:       b.resolved.Name,
		Identifier: b.resolved.Identifier,
		Version:    b.resolved.Version,
		Executable: b.resolved.Name,
		IconFile:   iconName,
	}

	if err = plistTemplate.Execute(plistFile, data); err != nil {
		plistFile.Close()

		return fmt.Errorf("render Info.plist: %w", err)
	}

	if err = plistFile.Close(); err != nil {
		return fmt.Errorf("close Info.plist: %w", err)
	}

	return nil
}
