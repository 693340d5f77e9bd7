package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/text/language"
	dbconfig "meetingbridge/pkg/database"
)

// EnvPrefix prefixes every environment variable read by LoadFromEnv
const EnvPrefix = "MEETINGBRIDGE_"

// ARCHITECTURAL DISCOVERY: Configuration layer serves as system-wide settings coordinator
// Clean separation between configuration management and business logic
type Config struct {
	Database  *DatabaseConfig  `json:"database" envPrefix:"DATABASE_"`
	HTTP      *HTTPConfig      `json:"http" envPrefix:"HTTP_"`
	WebSocket *WebSocketConfig `json:"websocket" envPrefix:"WEBSOCKET_"`
	BBB       *BBBConfig       `json:"bbb" envPrefix:"BBB_"`
	Site      *SiteConfig      `json:"site" envPrefix:"SITE_"`
	Cache     *CacheConfig     `json:"cache" envPrefix:"CACHE_"`
}

// FUNCTIONAL DISCOVERY: Database configuration supports SQLite optimizations
type DatabaseConfig struct {
	Path           string        `json:"path" env:"PATH"`
	Timeout        time.Duration `json:"timeout" env:"TIMEOUT"`
	MaxConnections int           `json:"max_connections" env:"MAX_CONNECTIONS"`
}

type HTTPConfig struct {
	Port         int           `json:"port" env:"PORT"`
	ReadTimeout  time.Duration `json:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout time.Duration `json:"write_timeout" env:"WRITE_TIMEOUT"`
	Host         string        `json:"host" env:"HOST"`

	// RateLimit is the number of mutating requests one account may send per
	// minute
	RateLimit int `json:"rate_limit" env:"RATE_LIMIT"`
}

// FUNCTIONAL DISCOVERY: StatusInterval drives the server-side status poll that
// replaces per-browser polling of the meeting status
type WebSocketConfig struct {
	PingInterval   time.Duration `json:"ping_interval" env:"PING_INTERVAL"`
	ReadTimeout    time.Duration `json:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout   time.Duration `json:"write_timeout" env:"WRITE_TIMEOUT"`
	BufferSize     int           `json:"buffer_size" env:"BUFFER_SIZE"`
	StatusInterval time.Duration `json:"status_interval" env:"STATUS_INTERVAL"`
}

// BBBConfig points at the conferencing server
type BBBConfig struct {
	BaseURL           string        `json:"base_url" env:"BASE_URL"`
	Secret            string        `json:"secret" env:"SECRET"`
	ChecksumAlgorithm string        `json:"checksum_algorithm" env:"CHECKSUM_ALGORITHM"`
	Timeout           time.Duration `json:"timeout" env:"TIMEOUT"`
}

// SiteConfig describes the content-management site the meetings belong to
type SiteConfig struct {
	BaseURL         string `json:"base_url" env:"BASE_URL"`
	MeetingSalt     string `json:"meeting_salt" env:"MEETING_SALT"`
	Locale          string `json:"locale" env:"LOCALE"`
	TypesFile       string `json:"types_file" env:"TYPES_FILE"`
	MaxParticipants int    `json:"max_participants" env:"MAX_PARTICIPANTS"`
	MaxDuration     int    `json:"max_duration" env:"MAX_DURATION"`
}

// CacheConfig bounds the session resolution cache; a zero TTL keeps entries
// until they are invalidated
type CacheConfig struct {
	TTL time.Duration `json:"ttl" env:"TTL"`
}

// legacyEnv holds the variable names used by existing BigBlueButton
// deployments. Prefixed variables win over them.
type legacyEnv struct {
	Secret       string `env:"BBB_SECRET"`
	SecuritySalt string `env:"BBB_SECURITY_SALT"`
	BaseURL      string `env:"BBB_SERVER_BASE_URL"`
}

// FUNCTIONAL DISCOVERY: Defaults suit a single site next to a local
// conferencing server; only the shared secret must always be supplied
func DefaultConfig() *Config {
	return &Config{
		Database: &DatabaseConfig{
			Path:           "./data/meetingbridge.db",
			Timeout:        30 * time.Second,
			MaxConnections: 10,
		},
		HTTP: &HTTPConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			Host:         "0.0.0.0",
			RateLimit:    100,
		},
		WebSocket: &WebSocketConfig{
			PingInterval:   30 * time.Second,
			ReadTimeout:    60 * time.Second,
			WriteTimeout:   10 * time.Second,
			BufferSize:     100,
			StatusInterval: 5 * time.Second,
		},
		BBB: &BBBConfig{
			BaseURL:           "http://localhost/bigbluebutton",
			ChecksumAlgorithm: "sha1",
			Timeout:           10 * time.Second,
		},
		Site: &SiteConfig{
			Locale:    "en",
			TypesFile: "./types.toml",
		},
		Cache: &CacheConfig{},
	}
}

// FUNCTIONAL DISCOVERY: Comprehensive validation prevents invalid system configurations
// Critical for preventing runtime failures in production deployment
func (c *Config) Validate() error {
	if c.Database == nil {
		return fmt.Errorf("database configuration is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.Database.Timeout <= 0 {
		return fmt.Errorf("database timeout must be positive")
	}
	if c.Database.MaxConnections <= 0 {
		return fmt.Errorf("database max connections must be positive")
	}

	if c.HTTP == nil {
		return fmt.Errorf("HTTP configuration is required")
	}
	// Port 0 binds an ephemeral port
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP port must be between 0 and 65535")
	}
	if c.HTTP.ReadTimeout <= 0 {
		return fmt.Errorf("HTTP read timeout must be positive")
	}
	if c.HTTP.WriteTimeout <= 0 {
		return fmt.Errorf("HTTP write timeout must be positive")
	}
	if c.HTTP.Host == "" {
		return fmt.Errorf("HTTP host cannot be empty")
	}
	if c.HTTP.RateLimit <= 0 {
		return fmt.Errorf("HTTP rate limit must be positive")
	}

	if c.WebSocket == nil {
		return fmt.Errorf("WebSocket configuration is required")
	}
	if c.WebSocket.PingInterval <= 0 {
		return fmt.Errorf("WebSocket ping interval must be positive")
	}
	if c.WebSocket.ReadTimeout <= 0 {
		return fmt.Errorf("WebSocket read timeout must be positive")
	}
	if c.WebSocket.WriteTimeout <= 0 {
		return fmt.Errorf("WebSocket write timeout must be positive")
	}
	if c.WebSocket.BufferSize <= 0 {
		return fmt.Errorf("WebSocket buffer size must be positive")
	}
	if c.WebSocket.StatusInterval <= 0 {
		return fmt.Errorf("WebSocket status interval must be positive")
	}

	if c.BBB == nil {
		return fmt.Errorf("BBB configuration is required")
	}
	if err := requireAbsoluteURL("BBB base URL", c.BBB.BaseURL); err != nil {
		return err
	}
	if c.BBB.Secret == "" {
		return fmt.Errorf("BBB shared secret cannot be empty")
	}
	switch strings.ToLower(c.BBB.ChecksumAlgorithm) {
	case "", "sha1", "sha256":
	default:
		return fmt.Errorf("BBB checksum algorithm must be sha1 or sha256")
	}
	if c.BBB.Timeout <= 0 {
		return fmt.Errorf("BBB timeout must be positive")
	}

	if c.Site == nil {
		return fmt.Errorf("site configuration is required")
	}
	if c.Site.BaseURL != "" {
		if err := requireAbsoluteURL("site base URL", c.Site.BaseURL); err != nil {
			return err
		}
	}
	if _, err := language.Parse(c.Site.Locale); err != nil {
		return fmt.Errorf("site locale %q is not a language tag: %w", c.Site.Locale, err)
	}
	if c.Site.TypesFile == "" {
		return fmt.Errorf("site types file cannot be empty")
	}
	if c.Site.MaxParticipants < 0 || c.Site.MaxDuration < 0 {
		return fmt.Errorf("site limits cannot be negative")
	}

	if c.Cache == nil {
		return fmt.Errorf("cache configuration is required")
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache TTL cannot be negative")
	}

	return nil
}

func requireAbsoluteURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL, got %q", name, raw)
	}
	return nil
}

// StoreConfig converts the database section for the storage layer
func (c *Config) StoreConfig() *dbconfig.Config {
	store := dbconfig.DefaultConfig()
	store.DatabasePath = c.Database.Path
	store.MaxConnections = c.Database.MaxConnections
	store.ConnMaxLifetime = c.Database.Timeout
	store.ConnMaxIdleTime = c.Database.Timeout / 3
	return store
}

// FUNCTIONAL DISCOVERY: Environment variable configuration enables deployment flexibility
// Supports containerized deployments and configuration management systems
func LoadFromEnv() (*Config, error) {
	config := DefaultConfig()
	if err := applyEnv(config); err != nil {
		return nil, err
	}
	return config, nil
}

func applyEnv(config *Config) error {
	var legacy legacyEnv
	if err := env.Parse(&legacy); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if legacy.Secret != "" {
		config.BBB.Secret = legacy.Secret
	} else if legacy.SecuritySalt != "" {
		config.BBB.Secret = legacy.SecuritySalt
	}
	if legacy.BaseURL != "" {
		config.BBB.BaseURL = legacy.BaseURL
	}

	if err := env.ParseWithOptions(config, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// ConfigFile represents the JSON structure for file-based configuration
// FUNCTIONAL DISCOVERY: Separate struct for JSON parsing to handle duration strings
type ConfigFile struct {
	Database  *DatabaseConfigFile  `json:"database"`
	HTTP      *HTTPConfigFile      `json:"http"`
	WebSocket *WebSocketConfigFile `json:"websocket"`
	BBB       *BBBConfigFile       `json:"bbb"`
	Site      *SiteConfig          `json:"site"`
	Cache     *CacheConfigFile     `json:"cache"`
}

type DatabaseConfigFile struct {
	Path           string `json:"path"`
	Timeout        string `json:"timeout"`
	MaxConnections int    `json:"max_connections"`
}

type HTTPConfigFile struct {
	Port         int    `json:"port"`
	ReadTimeout  string `json:"read_timeout"`
	WriteTimeout string `json:"write_timeout"`
	Host         string `json:"host"`
	RateLimit    int    `json:"rate_limit"`
}

type WebSocketConfigFile struct {
	PingInterval   string `json:"ping_interval"`
	ReadTimeout    string `json:"read_timeout"`
	WriteTimeout   string `json:"write_timeout"`
	BufferSize     int    `json:"buffer_size"`
	StatusInterval string `json:"status_interval"`
}

type BBBConfigFile struct {
	BaseURL           string `json:"base_url"`
	Secret            string `json:"secret"`
	ChecksumAlgorithm string `json:"checksum_algorithm"`
	Timeout           string `json:"timeout"`
}

type CacheConfigFile struct {
	TTL string `json:"ttl"`
}

// FUNCTIONAL DISCOVERY: File-based configuration supports complex deployment scenarios
// JSON format chosen for readability and tooling support
func LoadFromFile(filepath string) (*Config, error) {
	config := DefaultConfig()
	if err := applyFile(config, filepath); err != nil {
		return nil, err
	}

	// ARCHITECTURAL DISCOVERY: Validate configuration after loading to catch errors early
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", filepath, err)
	}
	return config, nil
}

func applyFile(config *Config, filepath string) error {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filepath, err)
	}

	var configFile ConfigFile
	if err := json.Unmarshal(data, &configFile); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filepath, err)
	}

	durations := []struct {
		raw    string
		target *time.Duration
	}{}
	duration := func(raw string, target *time.Duration) {
		if raw != "" {
			durations = append(durations, struct {
				raw    string
				target *time.Duration
			}{raw, target})
		}
	}

	if f := configFile.Database; f != nil {
		if f.Path != "" {
			config.Database.Path = f.Path
		}
		if f.MaxConnections > 0 {
			config.Database.MaxConnections = f.MaxConnections
		}
		duration(f.Timeout, &config.Database.Timeout)
	}

	if f := configFile.HTTP; f != nil {
		if f.Port > 0 {
			config.HTTP.Port = f.Port
		}
		if f.Host != "" {
			config.HTTP.Host = f.Host
		}
		if f.RateLimit > 0 {
			config.HTTP.RateLimit = f.RateLimit
		}
		duration(f.ReadTimeout, &config.HTTP.ReadTimeout)
		duration(f.WriteTimeout, &config.HTTP.WriteTimeout)
	}

	if f := configFile.WebSocket; f != nil {
		if f.BufferSize > 0 {
			config.WebSocket.BufferSize = f.BufferSize
		}
		duration(f.PingInterval, &config.WebSocket.PingInterval)
		duration(f.ReadTimeout, &config.WebSocket.ReadTimeout)
		duration(f.WriteTimeout, &config.WebSocket.WriteTimeout)
		duration(f.StatusInterval, &config.WebSocket.StatusInterval)
	}

	if f := configFile.BBB; f != nil {
		if f.BaseURL != "" {
			config.BBB.BaseURL = f.BaseURL
		}
		if f.Secret != "" {
			config.BBB.Secret = f.Secret
		}
		if f.ChecksumAlgorithm != "" {
			config.BBB.ChecksumAlgorithm = f.ChecksumAlgorithm
		}
		duration(f.Timeout, &config.BBB.Timeout)
	}

	if f := configFile.Site; f != nil {
		if f.BaseURL != "" {
			config.Site.BaseURL = f.BaseURL
		}
		if f.MeetingSalt != "" {
			config.Site.MeetingSalt = f.MeetingSalt
		}
		if f.Locale != "" {
			config.Site.Locale = f.Locale
		}
		if f.TypesFile != "" {
			config.Site.TypesFile = f.TypesFile
		}
		if f.MaxParticipants > 0 {
			config.Site.MaxParticipants = f.MaxParticipants
		}
		if f.MaxDuration > 0 {
			config.Site.MaxDuration = f.MaxDuration
		}
	}

	if f := configFile.Cache; f != nil {
		duration(f.TTL, &config.Cache.TTL)
	}

	for _, d := range durations {
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("invalid duration %q in %s: %w", d.raw, filepath, err)
		}
		*d.target = parsed
	}
	return nil
}

// FUNCTIONAL DISCOVERY: Configuration precedence: environment > file > defaults
// A missing or broken file is an error once a path is given
func Load(filepath string) (*Config, error) {
	config := DefaultConfig()
	if filepath != "" {
		if err := applyFile(config, filepath); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}
