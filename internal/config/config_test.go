package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	config := DefaultConfig()
	config.BBB.Secret = "s3cret"
	return config
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

// FUNCTIONAL VALIDATION TEST: Default configuration provides production-ready settings
func TestConfig_DefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Database.Path == "" {
		t.Error("Default database path should not be empty")
	}
	if config.HTTP.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", config.HTTP.Port)
	}
	if config.HTTP.RateLimit != 100 {
		t.Errorf("Expected default rate limit 100, got %d", config.HTTP.RateLimit)
	}
	if config.WebSocket.StatusInterval != 5*time.Second {
		t.Errorf("Expected 5s status interval, got %v", config.WebSocket.StatusInterval)
	}
	if config.BBB.ChecksumAlgorithm != "sha1" {
		t.Errorf("Expected sha1 checksums by default, got %s", config.BBB.ChecksumAlgorithm)
	}
	if config.Cache.TTL != 0 {
		t.Errorf("Expected cache entries to live until invalidated, got TTL %v", config.Cache.TTL)
	}

	// The shared secret has no sensible default
	if err := config.Validate(); err == nil {
		t.Error("Default config without a shared secret should fail validation")
	}
}

// FUNCTIONAL VALIDATION TEST: Configuration validation prevents invalid settings
func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"negative port", func(c *Config) { c.HTTP.Port = -1 }},
		{"port out of range", func(c *Config) { c.HTTP.Port = 70000 }},
		{"empty database path", func(c *Config) { c.Database.Path = "" }},
		{"zero rate limit", func(c *Config) { c.HTTP.RateLimit = 0 }},
		{"zero status interval", func(c *Config) { c.WebSocket.StatusInterval = 0 }},
		{"relative bbb url", func(c *Config) { c.BBB.BaseURL = "/bigbluebutton" }},
		{"unknown checksum", func(c *Config) { c.BBB.ChecksumAlgorithm = "md5" }},
		{"zero bbb timeout", func(c *Config) { c.BBB.Timeout = 0 }},
		{"relative site url", func(c *Config) { c.Site.BaseURL = "example.org" }},
		{"bad locale", func(c *Config) { c.Site.Locale = "not a locale!" }},
		{"empty types file", func(c *Config) { c.Site.TypesFile = "" }},
		{"negative limit", func(c *Config) { c.Site.MaxParticipants = -1 }},
		{"negative ttl", func(c *Config) { c.Cache.TTL = -time.Second }},
		{"missing section", func(c *Config) { c.Cache = nil }},
	}

	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Valid config should pass validation: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.mutate(config)
			if err := config.Validate(); err == nil {
				t.Errorf("%s should fail validation", tt.name)
			}
		})
	}
}

func TestConfig_ValidateAcceptsSHA256(t *testing.T) {
	config := validConfig()
	config.BBB.ChecksumAlgorithm = "SHA256"
	config.Site.BaseURL = "https://cms.example.org"
	config.Site.Locale = "de-AT"
	if err := config.Validate(); err != nil {
		t.Errorf("Expected config to validate, got %v", err)
	}
}

// FUNCTIONAL VALIDATION TEST: Environment variable configuration loading
func TestConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("MEETINGBRIDGE_HTTP_PORT", "9090")
	t.Setenv("MEETINGBRIDGE_DATABASE_PATH", "/tmp/test.db")
	t.Setenv("MEETINGBRIDGE_BBB_SECRET", "from-env")
	t.Setenv("MEETINGBRIDGE_CACHE_TTL", "90s")
	t.Setenv("MEETINGBRIDGE_SITE_LOCALE", "de")

	config, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv failed: %v", err)
	}

	if config.HTTP.Port != 9090 {
		t.Errorf("Expected HTTP port 9090, got %d", config.HTTP.Port)
	}
	if config.Database.Path != "/tmp/test.db" {
		t.Errorf("Expected database path /tmp/test.db, got %s", config.Database.Path)
	}
	if config.BBB.Secret != "from-env" {
		t.Errorf("Expected secret from env, got %q", config.BBB.Secret)
	}
	if config.Cache.TTL != 90*time.Second {
		t.Errorf("Expected cache TTL 90s, got %v", config.Cache.TTL)
	}
	if config.Site.Locale != "de" {
		t.Errorf("Expected locale de, got %s", config.Site.Locale)
	}
	// Untouched settings keep their defaults
	if config.HTTP.Host != "0.0.0.0" {
		t.Errorf("Expected default host, got %s", config.HTTP.Host)
	}
}

func TestConfig_LoadFromEnvLegacyNames(t *testing.T) {
	t.Setenv("BBB_SECURITY_SALT", "salt")
	t.Setenv("BBB_SERVER_BASE_URL", "https://bbb.example.org/bigbluebutton")

	config, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv failed: %v", err)
	}
	if config.BBB.Secret != "salt" {
		t.Errorf("Expected BBB_SECURITY_SALT to provide the secret, got %q", config.BBB.Secret)
	}
	if config.BBB.BaseURL != "https://bbb.example.org/bigbluebutton" {
		t.Errorf("Expected legacy base URL, got %s", config.BBB.BaseURL)
	}

	// BBB_SECRET wins over BBB_SECURITY_SALT, and the prefixed name wins over both
	t.Setenv("BBB_SECRET", "secret")
	config, _ = LoadFromEnv()
	if config.BBB.Secret != "secret" {
		t.Errorf("Expected BBB_SECRET to win, got %q", config.BBB.Secret)
	}
	t.Setenv("MEETINGBRIDGE_BBB_SECRET", "prefixed")
	config, _ = LoadFromEnv()
	if config.BBB.Secret != "prefixed" {
		t.Errorf("Expected prefixed variable to win, got %q", config.BBB.Secret)
	}
}

func TestConfig_LoadFromEnvInvalidValue(t *testing.T) {
	t.Setenv("MEETINGBRIDGE_HTTP_PORT", "eighty")
	if _, err := LoadFromEnv(); err == nil {
		t.Error("Expected an error for a non-numeric port")
	}
}

// FUNCTIONAL VALIDATION TEST: File-based configuration with duration strings
func TestConfig_LoadFromFile(t *testing.T) {
	path := writeFile(t, `{
		"http": {"port": 8443, "read_timeout": "15s"},
		"websocket": {"status_interval": "2s"},
		"bbb": {"base_url": "https://bbb.example.org/bigbluebutton", "secret": "file-secret", "checksum_algorithm": "sha256"},
		"site": {"base_url": "https://cms.example.org", "meeting_salt": "pepper", "types_file": "/etc/meetingbridge/types.toml", "max_participants": 50},
		"cache": {"ttl": "1m"}
	}`)

	config, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if config.HTTP.Port != 8443 {
		t.Errorf("Expected port 8443, got %d", config.HTTP.Port)
	}
	if config.HTTP.ReadTimeout != 15*time.Second {
		t.Errorf("Expected read timeout 15s, got %v", config.HTTP.ReadTimeout)
	}
	if config.HTTP.WriteTimeout != 30*time.Second {
		t.Errorf("Expected default write timeout, got %v", config.HTTP.WriteTimeout)
	}
	if config.WebSocket.StatusInterval != 2*time.Second {
		t.Errorf("Expected status interval 2s, got %v", config.WebSocket.StatusInterval)
	}
	if config.BBB.Secret != "file-secret" || config.BBB.ChecksumAlgorithm != "sha256" {
		t.Errorf("Unexpected BBB section: %+v", config.BBB)
	}
	if config.Site.MeetingSalt != "pepper" || config.Site.MaxParticipants != 50 {
		t.Errorf("Unexpected site section: %+v", config.Site)
	}
	if config.Site.Locale != "en" {
		t.Errorf("Expected default locale, got %s", config.Site.Locale)
	}
	if config.Cache.TTL != time.Minute {
		t.Errorf("Expected cache TTL 1m, got %v", config.Cache.TTL)
	}
}

func TestConfig_LoadFromFileErrors(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("Expected an error for a missing file")
	}

	path := writeFile(t, `{"http": {`)
	if _, err := LoadFromFile(path); err == nil {
		t.Error("Expected an error for malformed JSON")
	}

	path = writeFile(t, `{"bbb": {"secret": "x", "timeout": "soon"}}`)
	_, err := LoadFromFile(path)
	if err == nil || !strings.Contains(err.Error(), "soon") {
		t.Errorf("Expected a duration error naming the bad value, got %v", err)
	}

	path = writeFile(t, `{"http": {"port": 8081}}`)
	if _, err := LoadFromFile(path); err == nil {
		t.Error("Expected validation to reject a file without a shared secret")
	}
}

// FUNCTIONAL VALIDATION TEST: Configuration precedence environment > file > defaults
func TestConfig_LoadPrecedence(t *testing.T) {
	path := writeFile(t, `{
		"http": {"port": 8081, "host": "127.0.0.1"},
		"bbb": {"secret": "file-secret"}
	}`)
	t.Setenv("MEETINGBRIDGE_HTTP_PORT", "9091")

	config, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if config.HTTP.Port != 9091 {
		t.Errorf("Expected env to override file port, got %d", config.HTTP.Port)
	}
	if config.HTTP.Host != "127.0.0.1" {
		t.Errorf("Expected file host, got %s", config.HTTP.Host)
	}
	if config.BBB.Secret != "file-secret" {
		t.Errorf("Expected file secret, got %q", config.BBB.Secret)
	}
}

func TestConfig_LoadWithoutFile(t *testing.T) {
	t.Setenv("MEETINGBRIDGE_BBB_SECRET", "env-only")
	config, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if config.BBB.Secret != "env-only" {
		t.Errorf("Expected env secret, got %q", config.BBB.Secret)
	}

	t.Setenv("MEETINGBRIDGE_BBB_SECRET", "")
	t.Setenv("MEETINGBRIDGE_WEBSOCKET_BUFFER_SIZE", "0")
	if _, err := Load(""); err == nil {
		t.Error("Expected Load to validate the merged configuration")
	}
}

func TestConfig_StoreConfig(t *testing.T) {
	config := validConfig()
	config.Database.Path = "/var/lib/meetingbridge/state.db"
	config.Database.MaxConnections = 3

	store := config.StoreConfig()
	if store.DatabasePath != config.Database.Path {
		t.Errorf("Expected path %s, got %s", config.Database.Path, store.DatabasePath)
	}
	if store.MaxConnections != 3 {
		t.Errorf("Expected 3 connections, got %d", store.MaxConnections)
	}
	if err := store.Validate(); err != nil {
		t.Errorf("Converted store config should validate: %v", err)
	}
}
