package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	nav := cfg.Navigation

	if nav.TargetingThreshold != 1 {
		t.Errorf("expected targeting threshold 1, got %d", nav.TargetingThreshold)
	}
	if nav.CollisionThreshold != 1 {
		t.Errorf("expected collision threshold 1, got %d", nav.CollisionThreshold)
	}
	if nav.DashEnabled {
		t.Error("expected dash to be disabled by default")
	}
	if nav.CacheCapacity != 256 {
		t.Errorf("expected cache capacity 256, got %d", nav.CacheCapacity)
	}
	if nav.CacheTTL != 30*time.Second {
		t.Errorf("expected cache ttl 30s, got %v", nav.CacheTTL)
	}
	if nav.ExpansionBudgetDivisor != 10 {
		t.Errorf("expected budget divisor 10, got %d", nav.ExpansionBudgetDivisor)
	}
	if !nav.CompressFields {
		t.Error("expected field compression by default")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Metrics.Enabled {
		t.Error("expected metrics to be disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "navigation.yaml")

	yamlContent := `
navigation:
  collision_threshold: 2
  dash_enabled: true
  dash_cost: 25
  cache_capacity: 64
  cache_ttl: 5s
  compress_fields: false
  stats_interval: 1m

logging:
  level: "debug"
  log_file: "nav.log"

metrics:
  enabled: true
  listen_addr: ":9000"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	nav := cfg.Navigation
	if nav.CollisionThreshold != 2 {
		t.Errorf("expected collision threshold 2, got %d", nav.CollisionThreshold)
	}
	if !nav.DashEnabled {
		t.Error("expected dash to be enabled")
	}
	if nav.DashCost != 25 {
		t.Errorf("expected dash cost 25, got %v", nav.DashCost)
	}
	if nav.CacheCapacity != 64 {
		t.Errorf("expected cache capacity 64, got %d", nav.CacheCapacity)
	}
	if nav.CacheTTL != 5*time.Second {
		t.Errorf("expected cache ttl 5s, got %v", nav.CacheTTL)
	}
	if nav.CompressFields {
		t.Error("expected compression to be disabled")
	}
	if nav.StatsInterval != time.Minute {
		t.Errorf("expected stats interval 1m, got %v", nav.StatsInterval)
	}
	// Untouched keys keep their defaults.
	if nav.TargetingThreshold != 1 {
		t.Errorf("expected default targeting threshold, got %d", nav.TargetingThreshold)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "nav.log" {
		t.Errorf("expected log file 'nav.log', got %s", cfg.Logging.LogFile)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.ListenAddr != ":9000" {
		t.Errorf("unexpected metrics config: %+v", cfg.Metrics)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
navigation:
  cache_capacity: not a number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFromFile(cfg, "/nonexistent/path/navigation.yaml"); err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*NavigationConfig)
		err    error
	}{
		{"zero dash cost", func(n *NavigationConfig) { n.DashCost = 0 }, ErrInvalidDash},
		{"inverted dash range", func(n *NavigationConfig) { n.DashMinDistance, n.DashMaxDistance = 5, 2 }, ErrInvalidDash},
		{"zero capacity", func(n *NavigationConfig) { n.CacheCapacity = 0 }, ErrInvalidCache},
		{"zero ttl", func(n *NavigationConfig) { n.CacheTTL = 0 }, ErrInvalidCache},
		{"zero divisor", func(n *NavigationConfig) { n.ExpansionBudgetDivisor = 0 }, ErrInvalidBudget},
		{"negative min nodes", func(n *NavigationConfig) { n.MinExpansionNodes = -1 }, ErrInvalidBudget},
		{"zero stats interval", func(n *NavigationConfig) { n.StatsInterval = 0 }, ErrInvalidInterval},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg.Navigation)
			err := cfg.Validate()
			if !errors.Is(err, tt.err) {
				t.Errorf("expected %v, got %v", tt.err, err)
			}
		})
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))
	os.Chdir(tmpDir)

	if path := findConfigFile(); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	configPath := filepath.Join(tmpDir, "navigation.yaml")
	if err := os.WriteFile(configPath, []byte("navigation:\n  dash_enabled: true\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	if path := findConfigFile(); path == "" {
		t.Error("expected to find navigation.yaml in current directory")
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*Config)
		teardown func()
	}{
		{
			name:  "debug flag",
			setup: func() { *flagDebug = true },
			verify: func(cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() { *flagDebug = false },
		},
		{
			name:  "dash flag",
			setup: func() { *flagDash = true },
			verify: func(cfg *Config) {
				if !cfg.Navigation.DashEnabled {
					t.Error("expected dash to be enabled")
				}
			},
			teardown: func() { *flagDash = false },
		},
		{
			name:  "threshold flag",
			setup: func() { *flagThreshold = 3 },
			verify: func(cfg *Config) {
				if cfg.Navigation.CollisionThreshold != 3 {
					t.Errorf("expected collision threshold 3, got %d", cfg.Navigation.CollisionThreshold)
				}
			},
			teardown: func() { *flagThreshold = -1 },
		},
		{
			name:  "no-compress flag",
			setup: func() { *flagNoCompress = true },
			verify: func(cfg *Config) {
				if cfg.Navigation.CompressFields {
					t.Error("expected compression to be disabled")
				}
			},
			teardown: func() { *flagNoCompress = false },
		},
		{
			name:  "metrics flag",
			setup: func() { *flagMetrics = ":9100" },
			verify: func(cfg *Config) {
				if !cfg.Metrics.Enabled || cfg.Metrics.ListenAddr != ":9100" {
					t.Errorf("unexpected metrics config: %+v", cfg.Metrics)
				}
			},
			teardown: func() { *flagMetrics = "" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.teardown()

			cfg := Default()
			applyFlags(cfg)
			tt.verify(cfg)
		})
	}
}

func TestFindConfigFile_Env(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	os.Chdir(tmpDir)
	if err := os.WriteFile(filepath.Join(tmpDir, "navigation.yaml"), []byte("{}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	envPath := filepath.Join(tmpDir, "replay.yaml")
	if err := os.WriteFile(envPath, []byte("navigation:\n  dash_enabled: true\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvConfig, envPath)

	if path := findConfigFile(); path != envPath {
		t.Errorf("findConfigFile() = %q, want %q", path, envPath)
	}

	t.Setenv(EnvConfig, filepath.Join(tmpDir, "missing.yaml"))
	if path := findConfigFile(); path != "navigation.yaml" {
		t.Errorf("findConfigFile() = %q, want the working directory file", path)
	}
}

func TestLoadFromFile_UnknownKey(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "navigation.yaml")
	if err := os.WriteFile(configPath, []byte("navigation:\n  dash_enable: true\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := loadFromFile(Default(), configPath); err == nil {
		t.Error("expected an error for a misspelt key")
	}
}

func TestLoadFromFile_Empty(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "navigation.yaml")
	if err := os.WriteFile(configPath, nil, 0644); err != nil {
		t.Fatal(err)
	}
	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("empty file should load, got %v", err)
	}
	if cfg.Navigation != DefaultNavigation() {
		t.Errorf("empty file changed navigation settings: %+v", cfg.Navigation)
	}
}

func TestLoadPriority(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "navigation.yaml")

	yamlContent := `
navigation:
  collision_threshold: 4
  cache_capacity: 32
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	*flagThreshold = 2
	defer func() {
		*flagConfig = ""
		*flagThreshold = -1
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Navigation.CollisionThreshold != 2 {
		t.Errorf("expected threshold 2 from flag, got %d", cfg.Navigation.CollisionThreshold)
	}
	if cfg.Navigation.CacheCapacity != 32 {
		t.Errorf("expected capacity 32 from file, got %d", cfg.Navigation.CacheCapacity)
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "navigation.yaml")
	if err := os.WriteFile(configPath, []byte("navigation:\n  cache_capacity: 0\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	defer func() { *flagConfig = "" }()

	_, err := Load()
	if !errors.Is(err, ErrInvalidCache) {
		t.Errorf("expected ErrInvalidCache, got %v", err)
	}
	if err != nil && !strings.Contains(err.Error(), configPath) {
		t.Errorf("expected the error to name %s, got %v", configPath, err)
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "navigation.yaml")

	cfg := Default()
	cfg.Navigation.DashEnabled = true
	cfg.Navigation.CacheTTL = 90 * time.Second
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("failed to reload: %v", err)
	}
	if !loaded.Navigation.DashEnabled {
		t.Error("expected dash to survive round trip")
	}
	if loaded.Navigation.CacheTTL != 90*time.Second {
		t.Errorf("expected ttl 90s, got %v", loaded.Navigation.CacheTTL)
	}
}
