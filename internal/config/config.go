package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config holds all application configuration
type Config struct {
	Port    string
	DataDir string // Root directory for the sqlite store, preference file and asset caches

	// Inference engine (OpenAI-compatible chat endpoint, Ollama-style pull endpoint)
	EngineBaseURL string // e.g. http://localhost:11434/v1
	EngineAPIKey  string
	EngineModel   string

	// Asset gateway
	AppOriginURL      string // Upstream origin the app shell is fetched from
	ShellManifestPath string // YAML manifest listing app-shell paths and CDN origins
	CacheRetentionDays int   // CDN cache entries older than this are swept

	// Optional YAML file extending the built-in note styles / specialty templates
	TemplatesPath string

	// Autosave interval for the conversation snapshot, in seconds
	AutosaveSeconds int
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	dataDir := getEnv("DATA_DIR", "./data")

	return &Config{
		Port:    getEnv("PORT", "3001"),
		DataDir: dataDir,

		EngineBaseURL: strings.TrimSuffix(getEnv("ENGINE_BASE_URL", "http://localhost:11434/v1"), "/"),
		EngineAPIKey:  getEnv("ENGINE_API_KEY", ""),
		EngineModel:   getEnv("ENGINE_MODEL", "Llama-3.2-3B-Instruct-q4f16_1-MLC"),

		AppOriginURL:       strings.TrimSuffix(getEnv("APP_ORIGIN_URL", "http://localhost:8080"), "/"),
		ShellManifestPath:  getEnv("SHELL_MANIFEST", "appshell.yaml"),
		CacheRetentionDays: getIntEnv("CACHE_RETENTION_DAYS", 14),

		TemplatesPath: getEnv("TEMPLATES_FILE", ""),

		AutosaveSeconds: getIntEnv("AUTOSAVE_SECONDS", 30),
	}
}

// DatabasePath returns the location of the sqlite store inside the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "aetherscribe.db")
}

// PreferencesPath returns the location of the synchronous preference file.
func (c *Config) PreferencesPath() string {
	return filepath.Join(c.DataDir, "preferences.json")
}

// CacheDir returns the root directory for the named asset cache namespaces.
func (c *Config) CacheDir() string {
	return filepath.Join(c.DataDir, "caches")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
