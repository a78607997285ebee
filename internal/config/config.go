// Package config loads chronolens settings from an optional file in the
// repository root and CHRONOLENS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/viper"

	"chronolens/internal/codec"
	"chronolens/internal/paths"
	"chronolens/internal/slogutil"
)

// FileName is the configuration file name without extension. viper accepts
// json, yaml and toml.
const FileName = "chronolens"

// EnvPrefix prefixes every environment override, e.g. CHRONOLENS_STORE_DIR.
const EnvPrefix = "CHRONOLENS"

// Verify modes for loading a persisted store.
const (
	VerifyQuick = "quick"
	VerifyFull  = "full"
)

// Config represents the complete chronolens configuration
type Config struct {
	Store    StoreConfig    `json:"store" yaml:"store" mapstructure:"store"`
	Persist  PersistConfig  `json:"persist" yaml:"persist" mapstructure:"persist"`
	VCS      VCSConfig      `json:"vcs" yaml:"vcs" mapstructure:"vcs"`
	Parsers  ParsersConfig  `json:"parsers" yaml:"parsers" mapstructure:"parsers"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging" mapstructure:"logging"`
	Coupling CouplingConfig `json:"coupling" yaml:"coupling" mapstructure:"coupling"`
}

// StoreConfig contains persisted store configuration
type StoreConfig struct {
	Dir         string `json:"dir" yaml:"dir" mapstructure:"dir"`
	Compression string `json:"compression" yaml:"compression" mapstructure:"compression"`
	Verify      string `json:"verify" yaml:"verify" mapstructure:"verify"`
}

// PersistConfig contains persist run configuration
type PersistConfig struct {
	Workers int      `json:"workers" yaml:"workers" mapstructure:"workers"`
	Include []string `json:"include" yaml:"include" mapstructure:"include"`
	Exclude []string `json:"exclude" yaml:"exclude" mapstructure:"exclude"`
}

// VCSConfig contains version control backend configuration
type VCSConfig struct {
	Backend   string `json:"backend" yaml:"backend" mapstructure:"backend"`
	TimeoutMs int    `json:"timeoutMs" yaml:"timeoutMs" mapstructure:"timeoutMs"`
}

// ParsersConfig lists the enabled parsers by language, in lookup order
type ParsersConfig struct {
	Enabled []string `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `json:"level" yaml:"level" mapstructure:"level"`
	Format     string `json:"format" yaml:"format" mapstructure:"format"`
	File       string `json:"file" yaml:"file" mapstructure:"file"`
	MaxSize    string `json:"maxSize" yaml:"maxSize" mapstructure:"maxSize"`
	MaxBackups int    `json:"maxBackups" yaml:"maxBackups" mapstructure:"maxBackups"`
}

// CouplingConfig contains co-change analysis defaults
type CouplingConfig struct {
	MinCorrelation float64 `json:"minCorrelation" yaml:"minCorrelation" mapstructure:"minCorrelation"`
	Limit          int     `json:"limit" yaml:"limit" mapstructure:"limit"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Dir:         paths.DefaultStoreDir,
			Compression: string(codec.CompressionZstd),
			Verify:      VerifyQuick,
		},
		Persist: PersistConfig{
			Workers: 4,
			Include: []string{"**/*"},
			Exclude: []string{},
		},
		VCS: VCSConfig{
			Backend:   "git",
			TimeoutMs: 30000,
		},
		Parsers: ParsersConfig{
			Enabled: []string{"java", "go"},
		},
		Logging: LoggingConfig{
			Level:      "warn",
			Format:     "human",
			MaxSize:    "10MB",
			MaxBackups: 3,
		},
		Coupling: CouplingConfig{
			MinCorrelation: 0.3,
			Limit:          20,
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("store.dir", d.Store.Dir)
	v.SetDefault("store.compression", d.Store.Compression)
	v.SetDefault("store.verify", d.Store.Verify)
	v.SetDefault("persist.workers", d.Persist.Workers)
	v.SetDefault("persist.include", d.Persist.Include)
	v.SetDefault("persist.exclude", d.Persist.Exclude)
	v.SetDefault("vcs.backend", d.VCS.Backend)
	v.SetDefault("vcs.timeoutMs", d.VCS.TimeoutMs)
	v.SetDefault("parsers.enabled", d.Parsers.Enabled)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.maxSize", d.Logging.MaxSize)
	v.SetDefault("logging.maxBackups", d.Logging.MaxBackups)
	v.SetDefault("coupling.minCorrelation", d.Coupling.MinCorrelation)
	v.SetDefault("coupling.limit", d.Coupling.Limit)
}

// LoadConfig loads configuration from chronolens.{json,yaml,toml} in
// repoRoot. A missing file yields the defaults, still subject to
// environment overrides.
func LoadConfig(repoRoot string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(FileName)
	v.AddConfigPath(repoRoot)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, &ConfigError{Field: "file", Message: err.Error()}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigError{Field: "file", Message: err.Error()}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Store.Dir == "" || filepath.Base(c.Store.Dir) != c.Store.Dir {
		return &ConfigError{Field: "store.dir", Message: fmt.Sprintf("must be a plain directory name, got %q", c.Store.Dir)}
	}
	if _, err := codec.ParseCompression(c.Store.Compression); err != nil {
		return &ConfigError{Field: "store.compression", Message: err.Error()}
	}
	if c.Store.Verify != VerifyQuick && c.Store.Verify != VerifyFull {
		return &ConfigError{Field: "store.verify", Message: fmt.Sprintf("must be %q or %q", VerifyQuick, VerifyFull)}
	}
	if c.Persist.Workers < 1 {
		return &ConfigError{Field: "persist.workers", Message: "must be at least 1"}
	}
	for _, p := range append(append([]string{}, c.Persist.Include...), c.Persist.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return &ConfigError{Field: "persist.include", Message: fmt.Sprintf("invalid pattern %q", p)}
		}
	}
	if c.VCS.Backend == "" {
		return &ConfigError{Field: "vcs.backend", Message: "must not be empty"}
	}
	if c.VCS.TimeoutMs < 0 {
		return &ConfigError{Field: "vcs.timeoutMs", Message: "must not be negative"}
	}
	if !slogutil.ValidLevel(c.Logging.Level) {
		return &ConfigError{Field: "logging.level", Message: fmt.Sprintf("unknown level %q", c.Logging.Level)}
	}
	if c.Logging.Format != "human" && c.Logging.Format != "json" {
		return &ConfigError{Field: "logging.format", Message: "must be \"human\" or \"json\""}
	}
	if _, err := slogutil.ParseSize(c.Logging.MaxSize); err != nil {
		return &ConfigError{Field: "logging.maxSize", Message: err.Error()}
	}
	if c.Coupling.MinCorrelation < 0 || c.Coupling.MinCorrelation > 1 {
		return &ConfigError{Field: "coupling.minCorrelation", Message: "must be between 0 and 1"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
