// Package config loads the rolodex YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	logging "github.com/ipfs/go-log/v2"
	"gopkg.in/yaml.v3"

	"github.com/coolbeans/rolodex/pkg/contentline"
	"github.com/coolbeans/rolodex/pkg/store"
)

// ParserConfig controls how documents are read.
type ParserConfig struct {
	// Strict rejects properties that RFC 6350 does not define.
	Strict bool `yaml:"strict" json:"strict"`
}

// WriterConfig controls how cards are written.
type WriterConfig struct {
	// Version is the vCard version to emit ("4.0", "3.0" or "2.1").
	Version string `yaml:"version" json:"version"`
}

// StoreConfig locates the card database.
type StoreConfig struct {
	Path               string `yaml:"path" json:"path"`
	StatementCacheSize int    `yaml:"statement_cache_size,omitempty" json:"statement_cache_size,omitempty"`
}

// Config is the complete configuration file.
type Config struct {
	Parser   ParserConfig `yaml:"parser" json:"parser"`
	Writer   WriterConfig `yaml:"writer" json:"writer"`
	Store    StoreConfig  `yaml:"store" json:"store"`
	LogLevel string       `yaml:"log_level" json:"log_level"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Writer: WriterConfig{Version: contentline.Version40.String()},
		Store: StoreConfig{
			Path:               "rolodex.db",
			StatementCacheSize: store.DefaultStatementCacheSize,
		},
		LogLevel: "warn",
	}
}

// Load reads path over the defaults and validates the result. An empty
// path returns the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return config, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks every field.
func (c *Config) Validate() error {
	if _, err := c.WriterVersion(); err != nil {
		return err
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}
	if c.Store.StatementCacheSize < 0 {
		return fmt.Errorf("store.statement_cache_size must not be negative")
	}
	if _, err := logging.LevelFromString(strings.ToLower(c.LogLevel)); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

// WriterVersion parses writer.version. Only 2.1, 3.0 and 4.0 are accepted.
func (c *Config) WriterVersion() (contentline.Version, error) {
	version, err := contentline.ParseVersion(c.Writer.Version)
	if err != nil {
		return contentline.Version{}, fmt.Errorf("writer.version: %w", err)
	}
	switch version {
	case contentline.Version21, contentline.Version30, contentline.Version40:
		return version, nil
	}
	return contentline.Version{}, fmt.Errorf("writer.version: unsupported version %s", version)
}

// StoreOptions returns the store options the configuration selects.
func (c *Config) StoreOptions() store.Options {
	return store.Options{StatementCacheSize: c.Store.StatementCacheSize}
}

// ApplyLogLevel sets every rolodex logger to the configured level.
func (c *Config) ApplyLogLevel() error {
	level, err := logging.LevelFromString(strings.ToLower(c.LogLevel))
	if err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	logging.SetAllLoggers(level)
	return nil
}
