package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Store.Dir != ".chronolens" {
		t.Errorf("Store.Dir = %q, want %q", cfg.Store.Dir, ".chronolens")
	}
	if cfg.Store.Compression != "zstd" {
		t.Errorf("Store.Compression = %q, want zstd", cfg.Store.Compression)
	}
	if cfg.Store.Verify != VerifyQuick {
		t.Errorf("Store.Verify = %q, want %q", cfg.Store.Verify, VerifyQuick)
	}
	if cfg.Persist.Workers != 4 {
		t.Errorf("Persist.Workers = %d, want 4", cfg.Persist.Workers)
	}
	if cfg.VCS.Backend != "git" {
		t.Errorf("VCS.Backend = %q, want git", cfg.VCS.Backend)
	}
	if len(cfg.Parsers.Enabled) != 2 {
		t.Errorf("Parsers.Enabled = %v, want [java go]", cfg.Parsers.Enabled)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() error = %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"nested store dir", func(c *Config) { c.Store.Dir = "a/b" }, "store.dir"},
		{"empty store dir", func(c *Config) { c.Store.Dir = "" }, "store.dir"},
		{"unknown compression", func(c *Config) { c.Store.Compression = "gzip" }, "store.compression"},
		{"unknown verify", func(c *Config) { c.Store.Verify = "deep" }, "store.verify"},
		{"no workers", func(c *Config) { c.Persist.Workers = 0 }, "persist.workers"},
		{"bad pattern", func(c *Config) { c.Persist.Exclude = []string{"src/[a"} }, "persist.include"},
		{"negative timeout", func(c *Config) { c.VCS.TimeoutMs = -1 }, "vcs.timeoutMs"},
		{"unknown level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"unknown format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"bad size", func(c *Config) { c.Logging.MaxSize = "ten" }, "logging.maxSize"},
		{"correlation out of range", func(c *Config) { c.Coupling.MinCorrelation = 1.5 }, "coupling.minCorrelation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			cfgErr, ok := err.(*ConfigError)
			if !ok {
				t.Fatalf("Validate() error = %v, want *ConfigError", err)
			}
			if cfgErr.Field != tt.wantErr {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tt.wantErr)
			}
		})
	}
}

func TestLoadConfig_NoFile(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Store.Dir != ".chronolens" || cfg.Persist.Workers != 4 {
		t.Errorf("LoadConfig() = %+v, want defaults", cfg)
	}
}

func TestLoadConfig_Formats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name:    "json",
			file:    "chronolens.json",
			content: `{"store": {"compression": "none"}, "persist": {"workers": 2}}`,
		},
		{
			name:    "yaml",
			file:    "chronolens.yaml",
			content: "store:\n  compression: none\npersist:\n  workers: 2\n",
		},
		{
			name:    "toml",
			file:    "chronolens.toml",
			content: "[store]\ncompression = \"none\"\n\n[persist]\nworkers = 2\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			if err := os.WriteFile(filepath.Join(root, tt.file), []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}

			cfg, err := LoadConfig(root)
			if err != nil {
				t.Fatalf("LoadConfig() error = %v", err)
			}
			if cfg.Store.Compression != "none" {
				t.Errorf("Store.Compression = %q, want none", cfg.Store.Compression)
			}
			if cfg.Persist.Workers != 2 {
				t.Errorf("Persist.Workers = %d, want 2", cfg.Persist.Workers)
			}
			// keys absent from the file keep their defaults
			if cfg.Store.Verify != VerifyQuick {
				t.Errorf("Store.Verify = %q, want %q", cfg.Store.Verify, VerifyQuick)
			}
		})
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("CHRONOLENS_STORE_VERIFY", "full")
	t.Setenv("CHRONOLENS_LOGGING_LEVEL", "debug")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Store.Verify != VerifyFull {
		t.Errorf("Store.Verify = %q, want %q", cfg.Store.Verify, VerifyFull)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	root := t.TempDir()
	content := `{"store": {"verify": "sometimes"}}`
	if err := os.WriteFile(filepath.Join(root, "chronolens.json"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadConfig(root); err == nil {
		t.Fatal("LoadConfig() should reject an invalid verify mode")
	}
}
