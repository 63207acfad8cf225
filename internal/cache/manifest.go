package cache

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest enumerates the app-shell resource paths and the CDN hosts served
// with the network-first strategy.
type Manifest struct {
	AppShell   []string `yaml:"app_shell"`
	CDNOrigins []string `yaml:"cdn_origins"`
}

// DefaultManifest returns the built-in app shell and CDN allow-list.
func DefaultManifest() *Manifest {
	return &Manifest{
		AppShell: []string{
			"./index.html",
			"./css/styles.css",
			"./js/app.js",
			"./js/ui.js",
			"./js/conversation.js",
			"./js/speech.js",
			"./js/config.js",
			"./js/preferences.js",
			"./js/medicalScribePromptBuilder.js",
			"./js/scribeNoteManager.js",
			"./js/templates.js",
			"./js/webgpu-check.js",
			"./js/asyncStorage.js",
			"./images/logo.png",
			"./images/icon.png",
			"./images/favicon.ico",
			"./assets/icon-192.png",
			"./assets/icon-512.png",
		},
		CDNOrigins: []string{
			"cdn.jsdelivr.net",
			"cdnjs.cloudflare.com",
			"esm.run",
			"fonts.googleapis.com",
			"fonts.gstatic.com",
		},
	}
}

// LoadManifest reads the YAML manifest at path, or returns the built-in
// manifest when path is empty.
func LoadManifest(path string) (*Manifest, error) {
	if path == "" {
		return DefaultManifest(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read shell manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse shell manifest: %w", err)
	}
	if len(m.AppShell) == 0 {
		return nil, fmt.Errorf("shell manifest lists no app_shell resources")
	}
	if len(m.CDNOrigins) == 0 {
		m.CDNOrigins = DefaultManifest().CDNOrigins
	}
	return &m, nil
}
