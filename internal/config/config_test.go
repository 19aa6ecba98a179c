package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Port:               "8081",
		RateLimitPerMinute: 120,
		DBPath:             "./test.db",
		LogLevel:           "info",
		LogFormat:          "text",
		CacheTTL:           5 * time.Minute,
		CacheSize:          64,
		ExportPath:         "budget-export.xlsx",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		wantErr     bool
		errorString string
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "zero cache TTL disables expiry window",
			mutate:  func(c *Config) { c.CacheTTL = 0 },
			wantErr: false,
		},
		{
			name:    "trusted proxies",
			mutate:  func(c *Config) { c.TrustedProxies = []string{"10.0.0.0/8", "fd00::/8"} },
			wantErr: false,
		},
		{
			name:        "trusted proxy without prefix length",
			mutate:      func(c *Config) { c.TrustedProxies = []string{"10.0.0.1"} },
			wantErr:     true,
			errorString: "invalid trusted proxy '10.0.0.1'",
		},
		{
			name:        "invalid port - non-numeric",
			mutate:      func(c *Config) { c.Port = "abc" },
			wantErr:     true,
			errorString: "invalid port 'abc': must be a number",
		},
		{
			name:        "invalid port - out of range low",
			mutate:      func(c *Config) { c.Port = "0" },
			wantErr:     true,
			errorString: "invalid port 0: must be between 1 and 65535",
		},
		{
			name:        "invalid port - out of range high",
			mutate:      func(c *Config) { c.Port = "70000" },
			wantErr:     true,
			errorString: "invalid port 70000: must be between 1 and 65535",
		},
		{
			name:        "empty database path",
			mutate:      func(c *Config) { c.DBPath = " " },
			wantErr:     true,
			errorString: "database path cannot be empty",
		},
		{
			name:        "unknown log level",
			mutate:      func(c *Config) { c.LogLevel = "verbose" },
			wantErr:     true,
			errorString: "invalid log level 'verbose'",
		},
		{
			name:        "unknown log format",
			mutate:      func(c *Config) { c.LogFormat = "xml" },
			wantErr:     true,
			errorString: "invalid log format 'xml'",
		},
		{
			name:        "negative cache TTL",
			mutate:      func(c *Config) { c.CacheTTL = -time.Second },
			wantErr:     true,
			errorString: "invalid cache TTL -1s: must not be negative",
		},
		{
			name:        "cache TTL too long",
			mutate:      func(c *Config) { c.CacheTTL = 25 * time.Hour },
			wantErr:     true,
			errorString: "invalid cache TTL 25h0m0s: must be at most 24 hours",
		},
		{
			name:        "cache size too small",
			mutate:      func(c *Config) { c.CacheSize = 0 },
			wantErr:     true,
			errorString: "invalid cache size 0: must be at least 1",
		},
		{
			name:        "rate limit too small",
			mutate:      func(c *Config) { c.RateLimitPerMinute = 0 },
			wantErr:     true,
			errorString: "invalid rate limit 0",
		},
		{
			name:        "export path without xlsx extension",
			mutate:      func(c *Config) { c.ExportPath = "out.csv" },
			wantErr:     true,
			errorString: "must end in .xlsx",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				if err == nil {
					t.Errorf("Config.Validate() error = nil, wantErr %v", tt.wantErr)
					return
				}
				if tt.errorString != "" && !strings.Contains(err.Error(), tt.errorString) {
					t.Errorf("Config.Validate() error = %v, want error containing %v", err.Error(), tt.errorString)
				}
			} else if err != nil {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateCollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Port = "abc"
	cfg.DBPath = ""
	cfg.LogLevel = "loud"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"invalid port", "database path", "invalid log level"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestConfig_ValidateDirectoryAsDBPath(t *testing.T) {
	cfg := validConfig()
	cfg.DBPath = t.TempDir()
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "is a directory") {
		t.Fatalf("expected directory error, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	keys := []string{
		"PORT", "BUDGETIT_DB_PATH", "BUDGETIT_LOG_LEVEL", "BUDGETIT_LOG_FORMAT",
		"CACHE_TTL", "CACHE_SIZE", "RATE_LIMIT_PER_MINUTE", "EXPORT_PATH",
		"TRUSTED_PROXIES",
	}
	for _, k := range keys {
		t.Setenv(k, "")
	}

	t.Run("default values", func(t *testing.T) {
		cfg := Load()

		if cfg.Port != "8081" {
			t.Errorf("Load() Port = %v, want 8081", cfg.Port)
		}
		if cfg.DBPath != DefaultDBPath() {
			t.Errorf("Load() DBPath = %v, want %v", cfg.DBPath, DefaultDBPath())
		}
		if filepath.Base(cfg.DBPath) != "budget.db" || filepath.Base(filepath.Dir(cfg.DBPath)) != ".budget_it" {
			t.Errorf("Load() DBPath = %v, want .../.budget_it/budget.db", cfg.DBPath)
		}
		if cfg.LogLevel != "info" || cfg.LogFormat != "text" {
			t.Errorf("Load() log = %v/%v, want info/text", cfg.LogLevel, cfg.LogFormat)
		}
		if cfg.CacheTTL != 5*time.Minute || cfg.CacheSize != 64 {
			t.Errorf("Load() cache = %v/%v, want 5m/64", cfg.CacheTTL, cfg.CacheSize)
		}
		if cfg.RateLimitPerMinute != 120 {
			t.Errorf("Load() RateLimitPerMinute = %v, want 120", cfg.RateLimitPerMinute)
		}
		if cfg.ExportPath != "budget-export.xlsx" {
			t.Errorf("Load() ExportPath = %v", cfg.ExportPath)
		}
		if len(cfg.TrustedProxies) != 0 {
			t.Errorf("Load() TrustedProxies = %v, want none", cfg.TrustedProxies)
		}
	})

	t.Run("environment variables", func(t *testing.T) {
		t.Setenv("PORT", "9090")
		t.Setenv("BUDGETIT_DB_PATH", "/tmp/ledger.db")
		t.Setenv("BUDGETIT_LOG_LEVEL", "debug")
		t.Setenv("CACHE_TTL", "30s")
		t.Setenv("CACHE_SIZE", "8")
		t.Setenv("RATE_LIMIT_PER_MINUTE", "10")
		t.Setenv("TRUSTED_PROXIES", " 10.0.0.0/8, ,172.16.0.0/12 ")

		cfg := Load()

		if cfg.Port != "9090" {
			t.Errorf("Load() Port = %v, want 9090", cfg.Port)
		}
		if cfg.DBPath != "/tmp/ledger.db" {
			t.Errorf("Load() DBPath = %v, want /tmp/ledger.db", cfg.DBPath)
		}
		if cfg.LogLevel != "debug" {
			t.Errorf("Load() LogLevel = %v, want debug", cfg.LogLevel)
		}
		if cfg.CacheTTL != 30*time.Second || cfg.CacheSize != 8 {
			t.Errorf("Load() cache = %v/%v, want 30s/8", cfg.CacheTTL, cfg.CacheSize)
		}
		if cfg.RateLimitPerMinute != 10 {
			t.Errorf("Load() RateLimitPerMinute = %v, want 10", cfg.RateLimitPerMinute)
		}
		if len(cfg.TrustedProxies) != 2 || cfg.TrustedProxies[0] != "10.0.0.0/8" || cfg.TrustedProxies[1] != "172.16.0.0/12" {
			t.Errorf("Load() TrustedProxies = %q", cfg.TrustedProxies)
		}
	})

	t.Run("malformed values fall back to defaults", func(t *testing.T) {
		t.Setenv("CACHE_SIZE", "lots")
		t.Setenv("CACHE_TTL", "soon")

		cfg := Load()
		if cfg.CacheSize != 64 || cfg.CacheTTL != 5*time.Minute {
			t.Errorf("Load() cache = %v/%v, want defaults", cfg.CacheTTL, cfg.CacheSize)
		}
	})
}

func TestDefaultDBPathUsesHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if got, want := DefaultDBPath(), filepath.Join(home, ".budget_it", "budget.db"); got != want {
		t.Fatalf("DefaultDBPath() = %v, want %v", got, want)
	}
	if _, err := os.Stat(filepath.Join(home, ".budget_it")); !os.IsNotExist(err) {
		t.Fatalf("DefaultDBPath must not create the directory")
	}
}
