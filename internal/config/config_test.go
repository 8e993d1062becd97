package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Router.VigilanceThreshold != 0.7 {
		t.Errorf("expected vigilance 0.7, got %v", cfg.Router.VigilanceThreshold)
	}
	if cfg.Router.MaxSpecialists != 10 {
		t.Errorf("expected max specialists 10, got %d", cfg.Router.MaxSpecialists)
	}
	if cfg.Router.LearningRate != 0.3 {
		t.Errorf("expected learning rate 0.3, got %v", cfg.Router.LearningRate)
	}
	if cfg.Router.HistoryCap != 20 {
		t.Errorf("expected history cap 20, got %d", cfg.Router.HistoryCap)
	}
	if cfg.Board.DecayRate != time.Hour {
		t.Errorf("expected decay rate 1h, got %v", cfg.Board.DecayRate)
	}
	if cfg.Board.AmplificationFactor != 1.5 {
		t.Errorf("expected amplification 1.5, got %v", cfg.Board.AmplificationFactor)
	}
	if cfg.Board.AttenuationFactor != 0.7 {
		t.Errorf("expected attenuation 0.7, got %v", cfg.Board.AttenuationFactor)
	}
	if cfg.Board.SweepInterval != 10*time.Minute {
		t.Errorf("expected sweep interval 10m, got %v", cfg.Board.SweepInterval)
	}
	if len(cfg.Coordination.Exploration) != 3 {
		t.Errorf("expected 3 exploration approaches, got %v", cfg.Coordination.Exploration)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("expected sqlite driver, got %q", cfg.Storage.Driver)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFromPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
router:
  vigilance_threshold: 0.85
  max_specialists: 4
board:
  decay_rate: 30m
  amplification_factor: 2
  sweep_interval: 1m
coordination:
  exploration: [fast, careful]
storage:
  driver: yaml
  path: ${SWARM_TEST_DIR}/state.yaml
logging:
  level: debug
  development: true
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv("SWARM_TEST_DIR", "/var/lib/swarm")

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Router.VigilanceThreshold != 0.85 {
		t.Errorf("expected vigilance 0.85, got %v", cfg.Router.VigilanceThreshold)
	}
	if cfg.Router.MaxSpecialists != 4 {
		t.Errorf("expected max specialists 4, got %d", cfg.Router.MaxSpecialists)
	}
	if cfg.Router.LearningRate != 0.3 {
		t.Errorf("unset key should keep default, got %v", cfg.Router.LearningRate)
	}
	if cfg.Board.DecayRate != 30*time.Minute {
		t.Errorf("expected decay rate 30m, got %v", cfg.Board.DecayRate)
	}
	if cfg.Board.AmplificationFactor != 2 {
		t.Errorf("expected amplification 2, got %v", cfg.Board.AmplificationFactor)
	}
	if !reflect.DeepEqual(cfg.Coordination.Exploration, []string{"fast", "careful"}) {
		t.Errorf("unexpected exploration %v", cfg.Coordination.Exploration)
	}
	if cfg.Storage.Driver != "yaml" {
		t.Errorf("expected yaml driver, got %q", cfg.Storage.Driver)
	}
	if cfg.Storage.Path != "/var/lib/swarm/state.yaml" {
		t.Errorf("expected expanded path, got %q", cfg.Storage.Path)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.Development {
		t.Errorf("unexpected logging config %+v", cfg.Logging)
	}
}

func TestLoadFromPath_Missing(t *testing.T) {
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoadFromPath_EnvOverrides(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("router:\n  vigilance_threshold: 0.5\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv("SWARM_ROUTER_VIGILANCE_THRESHOLD", "0.9")
	t.Setenv("SWARM_BOARD_SHARDS", "8")

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Router.VigilanceThreshold != 0.9 {
		t.Errorf("env should override file, got %v", cfg.Router.VigilanceThreshold)
	}
	if cfg.Board.Shards != 8 {
		t.Errorf("env should override default, got %d", cfg.Board.Shards)
	}
}

func TestLoad_Precedence(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	userDir := filepath.Join(xdg, "swarm")
	if err := os.MkdirAll(userDir, 0755); err != nil {
		t.Fatal(err)
	}
	userConfig := "router:\n  max_specialists: 6\n  history_cap: 7\n"
	if err := os.WriteFile(filepath.Join(userDir, "config.yaml"), []byte(userConfig), 0644); err != nil {
		t.Fatal(err)
	}

	project := t.TempDir()
	nested := filepath.Join(project, "sub", "dir")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	projectConfig := "router:\n  max_specialists: 3\n"
	if err := os.WriteFile(filepath.Join(project, ProjectConfigName), []byte(projectConfig), 0644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(nested)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Router.MaxSpecialists != 3 {
		t.Errorf("project config should win over user config, got %d", cfg.Router.MaxSpecialists)
	}
	if cfg.Router.HistoryCap != 7 {
		t.Errorf("user config should apply where project is silent, got %d", cfg.Router.HistoryCap)
	}
	if got := GetProjectConfigPath(); !strings.HasSuffix(got, ProjectConfigName) {
		t.Errorf("GetProjectConfigPath() = %q", got)
	}
}

func TestSaveAndLoad(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	t.Chdir(t.TempDir())

	cfg := Default()
	cfg.Router.VigilanceThreshold = 0.55
	cfg.Board.DecayRate = 2 * time.Hour
	cfg.Coordination.Exploration = []string{"x", "y"}
	cfg.Storage.Driver = "yaml"
	cfg.Inbox.Dir = "/tmp/inbox"

	if err := Save(cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if GetUserConfigPath() != filepath.Join(xdg, "swarm", "config.yaml") {
		t.Errorf("unexpected user config path %q", GetUserConfigPath())
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(loaded, cfg) {
		t.Errorf("Load() = %+v, want %+v", loaded, cfg)
	}
}

func TestGetUserConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")

	if dir := getUserConfigDir(); dir != "/custom/config/swarm" {
		t.Errorf("expected /custom/config/swarm, got %q", dir)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"negative vigilance", func(c *Config) { c.Router.VigilanceThreshold = -1 }, "vigilance_threshold"},
		{"zero learning rate", func(c *Config) { c.Router.LearningRate = 0 }, "learning_rate"},
		{"learning rate above one", func(c *Config) { c.Router.LearningRate = 1.5 }, "learning_rate"},
		{"zero history", func(c *Config) { c.Router.HistoryCap = 0 }, "history_cap"},
		{"zero decay", func(c *Config) { c.Board.DecayRate = 0 }, "decay_rate"},
		{"attenuation above one", func(c *Config) { c.Board.AttenuationFactor = 1.2 }, "attenuation_factor"},
		{"no shards", func(c *Config) { c.Board.Shards = 0 }, "shards"},
		{"empty exploration", func(c *Config) { c.Coordination.Exploration = nil }, "exploration"},
		{"bad driver", func(c *Config) { c.Storage.Driver = "postgres" }, "storage.driver"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("Validate() error = %v, want ErrInvalidConfig", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.Router.HistoryCap = 0
	cfg.Board.Shards = -1

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "history_cap") || !strings.Contains(err.Error(), "shards") {
		t.Errorf("expected both problems reported, got %q", err)
	}
}
