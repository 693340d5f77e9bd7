package typeconfig

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"meetingbridge/pkg/types"
)

// file is the on-disk layout:
//
//	[types.event]
//	label = "Event"
//	active = true
//	welcome = "Welcome!"
//	logout_url = "/node/{id}"
type file struct {
	Types map[string]types.TypeConfig `toml:"types"`
}

// Catalog holds the meeting settings of every content type
// ARCHITECTURAL DISCOVERY: A type missing from the catalog and a type present
// but inactive are both "not meeting-enabled"; Load only reports whether the
// type is listed
type Catalog struct {
	mu      sync.RWMutex
	path    string
	configs map[string]types.TypeConfig
}

// New creates a catalog from in-memory settings
func New(configs ...types.TypeConfig) (*Catalog, error) {
	c := &Catalog{configs: make(map[string]types.TypeConfig, len(configs))}
	for _, cfg := range configs {
		if err := validate(cfg); err != nil {
			return nil, err
		}
		c.configs[cfg.Type] = cfg
	}
	return c, nil
}

// LoadFile reads a catalog from a TOML file
func LoadFile(path string) (*Catalog, error) {
	var f file
	meta, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, fmt.Errorf("failed to read type configuration %s: %w", path, err)
	}
	c, err := fromFile(f, meta)
	if err != nil {
		return nil, fmt.Errorf("invalid type configuration %s: %w", path, err)
	}
	c.path = path
	log.Printf("Loaded %d content type configurations from %s", len(c.configs), path)
	return c, nil
}

// Parse reads a catalog from TOML text
func Parse(data string) (*Catalog, error) {
	var f file
	meta, err := toml.Decode(data, &f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse type configuration: %w", err)
	}
	return fromFile(f, meta)
}

func fromFile(f file, meta toml.MetaData) (*Catalog, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrUnknownKeys, strings.Join(keys, ", "))
	}

	configs := make([]types.TypeConfig, 0, len(f.Types))
	for name, cfg := range f.Types {
		cfg.Type = name
		configs = append(configs, cfg)
	}
	return New(configs...)
}

// Reload re-reads the file the catalog was loaded from. The old settings
// stay in place when the file is invalid.
func (c *Catalog) Reload() error {
	c.mu.RLock()
	path := c.path
	c.mu.RUnlock()
	if path == "" {
		return nil
	}

	fresh, err := LoadFile(path)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.configs = fresh.configs
	c.mu.Unlock()
	return nil
}

// Load returns the settings of a content type
func (c *Catalog) Load(contentType string) (types.TypeConfig, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cfg, ok := c.configs[contentType]
	return cfg, ok
}

// Types lists the configured content types in name order
func (c *Catalog) Types() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.configs))
	for name := range c.configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Active lists the meeting-enabled content types in name order
func (c *Catalog) Active() []string {
	var names []string
	for _, name := range c.Types() {
		if cfg, _ := c.Load(name); cfg.Active {
			names = append(names, name)
		}
	}
	return names
}

func validate(cfg types.TypeConfig) error {
	if !types.IsValidItemType(cfg.Type) {
		return fmt.Errorf("%w: %q", ErrInvalidTypeName, cfg.Type)
	}
	if cfg.ModeratorPassword != nil && cfg.AttendeePassword != nil && *cfg.ModeratorPassword == *cfg.AttendeePassword {
		return fmt.Errorf("type %s: %w", cfg.Type, ErrSamePasswords)
	}
	if (cfg.MaxParticipants != nil && *cfg.MaxParticipants < 0) || (cfg.Duration != nil && *cfg.Duration < 0) {
		return fmt.Errorf("type %s: %w", cfg.Type, ErrNegativeLimit)
	}
	return nil
}
