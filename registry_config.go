package metadata

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// RegistryConfig is the YAML representation of a key catalogue. Loading it
// is the explicit, once-at-startup initialisation step for the registry.
type RegistryConfig struct {
	Keys []KeyConfig `yaml:"keys"`
}

// KeyConfig declares a single key in configuration.
type KeyConfig struct {
	ID            int64         `yaml:"id"`
	Name          string        `yaml:"name"`
	Kind          string        `yaml:"kind"`
	AllowMultiple bool          `yaml:"allow_multiple"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`
}

// LoadRegistry reads a YAML key catalogue from r and builds a Registry.
// Malformed declarations fail the whole load; resolution never runs against
// a partially initialised catalogue.
func LoadRegistry(r io.Reader) (*Registry, error) {
	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("metadata: read registry config: %w", err)
	}
	return RegistryFromYAML(payload)
}

// LoadRegistryFile is LoadRegistry over a file path.
func LoadRegistryFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("metadata: open registry config: %w", err)
	}
	defer f.Close()
	return LoadRegistry(f)
}

// RegistryFromYAML parses a YAML key catalogue and builds a Registry.
func RegistryFromYAML(payload []byte) (*Registry, error) {
	var cfg RegistryConfig
	if err := yaml.Unmarshal(payload, &cfg); err != nil {
		return nil, fmt.Errorf("metadata: parse registry config: %w", err)
	}
	return cfg.Build()
}

// Build validates the configuration and constructs the registry.
func (c RegistryConfig) Build() (*Registry, error) {
	registry := NewRegistry()
	for _, entry := range c.Keys {
		kind, err := ParseValueKind(entry.Kind)
		if err != nil {
			return nil, fmt.Errorf("metadata: key %q: %w", entry.Name, err)
		}
		key := Key{
			ID:            entry.ID,
			Name:          entry.Name,
			Kind:          kind,
			AllowMultiple: entry.AllowMultiple,
			CacheTTL:      entry.CacheTTL,
		}
		if err := registry.Register(key); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
