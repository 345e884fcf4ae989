package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"

	"github.com/mcdonaldj/epubtidy/internal/cssrule"
)

type Config struct {
	BookDir          string        `yaml:"book_dir"`
	Exclude          []string      `yaml:"exclude"`
	Extensions       []string      `yaml:"extensions"`
	Include          []string      `yaml:"include"`
	Properties       []string      `yaml:"properties"`
	Declarations     []string      `yaml:"declarations"`
	CompressionLevel int           `yaml:"compression_level"`
	Journal          JournalConfig `yaml:"journal"`
	MetricsFile      string        `yaml:"metrics_file"`
	LogLevel         string        `yaml:"log_level"`
}

// JournalConfig controls the per-book history file.
type JournalConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Path     string `yaml:"path"`
	KeepLast int    `yaml:"keep_last"`
}

func DefaultConfig() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.Errorf("finding home directory: %w", err)
	}
	return &Config{
		BookDir:          filepath.Join(home, "Books"),
		Exclude:          []string{},
		Extensions:       []string{".css"},
		Include:          []string{},
		Properties:       append([]string(nil), cssrule.DefaultProperties...),
		Declarations:     append([]string(nil), cssrule.DefaultDeclarations...),
		CompressionLevel: -1,
		Journal: JournalConfig{
			Enabled:  true,
			Path:     filepath.Join(home, ".epubtidy", "journal.json"),
			KeepLast: 20,
		},
		LogLevel: "info",
	}, nil
}

func ConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".epubtidy", "config.yaml"), nil
}

// Load reads the config from ConfigPath, falling back to defaults when the
// file does not exist.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads the config at path over the defaults.
func LoadFrom(path string) (*Config, error) {
	cfg, err := DefaultConfig()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Use defaults
		}
		return nil, errors.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Errorf("parsing YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config as YAML to path.
func (c *Config) SaveTo(path string) error {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Errorf("encoding YAML: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

var logLevels = map[string]bool{"": true, "debug": true, "info": true, "warn": true, "error": true}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BookDir) == "" {
		return errors.New("book_dir is required")
	}
	if len(c.Extensions) == 0 {
		return errors.New("extensions must not be empty")
	}
	if len(c.Properties) == 0 && len(c.Declarations) == 0 {
		return errors.New("properties or declarations must name at least one rule")
	}
	// -2 is flate's Huffman-only mode
	if c.CompressionLevel < -2 || c.CompressionLevel > 9 {
		return errors.Errorf("compression_level %d out of range -2..9", c.CompressionLevel)
	}
	for _, p := range append(append([]string(nil), c.Include...), c.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return errors.Errorf("invalid glob pattern %q", p)
		}
	}
	if !logLevels[strings.ToLower(c.LogLevel)] {
		return errors.Errorf("unknown log_level %q", c.LogLevel)
	}
	if c.Journal.KeepLast < 0 {
		return errors.New("journal.keep_last must not be negative")
	}
	return nil
}

// ExpandPath expands ~ to home directory
func ExpandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Errorf("expanding %s: %w", path, err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}
