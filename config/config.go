// Package config loads goya settings from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Dictionary sources.
const (
	SourceArtifacts = "artifacts"
	SourceIPA       = "ipa"
	SourceUNI       = "uni"
)

// Config is the full goya configuration.
type Config struct {
	Dictionary DictionaryConfig `yaml:"dictionary"`
	Features   FeaturesConfig   `yaml:"features"`
	Cache      CacheConfig      `yaml:"cache"`
	Workers    WorkersConfig    `yaml:"workers"`
	Log        LogConfig        `yaml:"log"`
}

// DictionaryConfig selects the segmentation tables.
type DictionaryConfig struct {
	// Dir holds da.bin, dict.bin and features.bin when Source is "artifacts".
	Dir      string `yaml:"dir"`
	Source   string `yaml:"source"`
	Compress bool   `yaml:"compress"`
}

// FeaturesConfig selects where feature records come from. Path overrides the
// features.bin next to the dictionary; SQLite switches to per-id lookups in a
// database written by "goya build --sqlite".
type FeaturesConfig struct {
	Path   string `yaml:"path,omitempty"`
	SQLite string `yaml:"sqlite,omitempty"`
}

// CacheConfig sizes the tokenization result cache. Zero disables it.
type CacheConfig struct {
	Size int `yaml:"size"`
}

// WorkersConfig sizes the request pool.
type WorkersConfig struct {
	Count int `yaml:"count"`
	Queue int `yaml:"queue"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults returns the configuration used when no file is given.
func Defaults() *Config {
	return &Config{
		Dictionary: DictionaryConfig{Dir: "dict", Source: SourceIPA},
		Cache:      CacheConfig{Size: 1024},
		Workers:    WorkersConfig{Count: 4, Queue: 100},
		Log:        LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults and applies environment overrides. An
// empty path yields the defaults with overrides.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("GOYA_DICT_DIR"); v != "" {
		c.Dictionary.Dir = v
		// a directory only makes sense for compiled artifacts
		if os.Getenv("GOYA_SOURCE") == "" {
			c.Dictionary.Source = SourceArtifacts
		}
	}
	if v := os.Getenv("GOYA_SOURCE"); v != "" {
		c.Dictionary.Source = v
	}
	if v := os.Getenv("GOYA_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("GOYA_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("GOYA_WORKERS: %w", err)
		}
		c.Workers.Count = n
	}
	return nil
}

// Validate checks field ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error
	switch c.Dictionary.Source {
	case SourceArtifacts:
		if c.Dictionary.Dir == "" {
			errs = append(errs, errors.New("dictionary.dir is required for source artifacts"))
		}
	case SourceIPA, SourceUNI:
	default:
		errs = append(errs, fmt.Errorf("dictionary.source %q: want %s, %s or %s",
			c.Dictionary.Source, SourceArtifacts, SourceIPA, SourceUNI))
	}
	if c.Features.Path != "" && c.Features.SQLite != "" {
		errs = append(errs, errors.New("features.path and features.sqlite are exclusive"))
	}
	if c.Cache.Size < 0 {
		errs = append(errs, fmt.Errorf("cache.size %d is negative", c.Cache.Size))
	}
	if c.Workers.Count < 1 {
		errs = append(errs, fmt.Errorf("workers.count %d: need at least one", c.Workers.Count))
	}
	if c.Workers.Queue < 0 {
		errs = append(errs, fmt.Errorf("workers.queue %d is negative", c.Workers.Queue))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q: want text or json", c.Log.Format))
	}
	return errors.Join(errs...)
}
