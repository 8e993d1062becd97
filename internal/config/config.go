// Package config handles configuration loading and management for swarm.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// EnvPrefix prefixes every environment override, e.g. SWARM_ROUTER_VIGILANCE_THRESHOLD.
const EnvPrefix = "SWARM"

// ProjectConfigName is the project-level override file searched upward from cwd.
const ProjectConfigName = ".swarm.yaml"

// Config holds all configuration for swarm.
type Config struct {
	Router       RouterConfig       `mapstructure:"router"`
	Board        BoardConfig        `mapstructure:"board"`
	Coordination CoordinationConfig `mapstructure:"coordination"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Inbox        InboxConfig        `mapstructure:"inbox"`
}

// RouterConfig holds specialist routing settings.
type RouterConfig struct {
	// VigilanceThreshold is the minimum resonance for reusing a specialist.
	VigilanceThreshold float64 `mapstructure:"vigilance_threshold"`
	// MaxSpecialists bounds the registry; 0 disables pruning.
	MaxSpecialists int `mapstructure:"max_specialists"`
	// LearningRate is the EMA rate for average quality.
	LearningRate float64 `mapstructure:"learning_rate"`
	// HistoryCap bounds each specialist's signature window.
	HistoryCap int `mapstructure:"history_cap"`
}

// BoardConfig holds signal board settings.
type BoardConfig struct {
	DecayRate           time.Duration `mapstructure:"decay_rate"`
	AmplificationFactor float64       `mapstructure:"amplification_factor"`
	AttenuationFactor   float64       `mapstructure:"attenuation_factor"`
	SignalFloor         float64       `mapstructure:"signal_floor"`
	Shards              int           `mapstructure:"shards"`
	SweepInterval       time.Duration `mapstructure:"sweep_interval"`
}

// CoordinationConfig holds worker settings.
type CoordinationConfig struct {
	// Exploration is the approach set tried when a task has no signals.
	Exploration []string `mapstructure:"exploration"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	// Driver is sqlite, sqlite3, or yaml.
	Driver string `mapstructure:"driver"`
	// Path is the database or snapshot file; empty means the default data path.
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// InboxConfig holds the outcome inbox settings.
type InboxConfig struct {
	Dir string `mapstructure:"dir"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (SWARM_<SECTION>_<KEY>)
// 2. Project config (.swarm.yaml in current directory or parent)
// 3. User config (~/.config/swarm/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	return unmarshal(v)
}

// LoadFromPath loads configuration from a specific path. Environment
// overrides still apply.
func LoadFromPath(path string) (*Config, error) {
	v := newViper()

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	return unmarshal(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Storage.Path = os.ExpandEnv(cfg.Storage.Path)
	cfg.Inbox.Dir = os.ExpandEnv(cfg.Inbox.Dir)
	return cfg, nil
}

// Save writes the configuration to the user config file.
func Save(cfg *Config) error {
	return SaveTo(cfg, GetUserConfigPath())
}

// SaveTo writes the configuration to path.
func SaveTo(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)

	v.Set("router.vigilance_threshold", cfg.Router.VigilanceThreshold)
	v.Set("router.max_specialists", cfg.Router.MaxSpecialists)
	v.Set("router.learning_rate", cfg.Router.LearningRate)
	v.Set("router.history_cap", cfg.Router.HistoryCap)
	v.Set("board.decay_rate", cfg.Board.DecayRate.String())
	v.Set("board.amplification_factor", cfg.Board.AmplificationFactor)
	v.Set("board.attenuation_factor", cfg.Board.AttenuationFactor)
	v.Set("board.signal_floor", cfg.Board.SignalFloor)
	v.Set("board.shards", cfg.Board.Shards)
	v.Set("board.sweep_interval", cfg.Board.SweepInterval.String())
	v.Set("coordination.exploration", cfg.Coordination.Exploration)
	v.Set("storage.driver", cfg.Storage.Driver)
	v.Set("storage.path", cfg.Storage.Path)
	v.Set("logging.level", cfg.Logging.Level)
	v.Set("logging.development", cfg.Logging.Development)
	v.Set("inbox.dir", cfg.Inbox.Dir)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("router.vigilance_threshold", d.Router.VigilanceThreshold)
	v.SetDefault("router.max_specialists", d.Router.MaxSpecialists)
	v.SetDefault("router.learning_rate", d.Router.LearningRate)
	v.SetDefault("router.history_cap", d.Router.HistoryCap)

	v.SetDefault("board.decay_rate", d.Board.DecayRate.String())
	v.SetDefault("board.amplification_factor", d.Board.AmplificationFactor)
	v.SetDefault("board.attenuation_factor", d.Board.AttenuationFactor)
	v.SetDefault("board.signal_floor", d.Board.SignalFloor)
	v.SetDefault("board.shards", d.Board.Shards)
	v.SetDefault("board.sweep_interval", d.Board.SweepInterval.String())

	v.SetDefault("coordination.exploration", d.Coordination.Exploration)

	v.SetDefault("storage.driver", d.Storage.Driver)
	v.SetDefault("storage.path", d.Storage.Path)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.development", d.Logging.Development)

	v.SetDefault("inbox.dir", d.Inbox.Dir)
}

// getUserConfigDir returns the XDG config directory for swarm.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "swarm")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "swarm")
	}
	return filepath.Join(home, ".config", "swarm")
}

// findProjectConfig searches for .swarm.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ProjectConfigName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Router: RouterConfig{
			VigilanceThreshold: 0.7,
			MaxSpecialists:     10,
			LearningRate:       0.3,
			HistoryCap:         20,
		},
		Board: BoardConfig{
			DecayRate:           time.Hour,
			AmplificationFactor: 1.5,
			AttenuationFactor:   0.7,
			SignalFloor:         1.0,
			Shards:              32,
			SweepInterval:       10 * time.Minute,
		},
		Coordination: CoordinationConfig{
			Exploration: []string{"approach_A", "approach_B", "approach_C"},
		},
		Storage: StorageConfig{
			Driver: "sqlite",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate checks every knob and reports all problems at once.
func (c *Config) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	check(c.Router.VigilanceThreshold >= 0, "router.vigilance_threshold must be >= 0, got %v", c.Router.VigilanceThreshold)
	check(c.Router.MaxSpecialists >= 0, "router.max_specialists must be >= 0, got %d", c.Router.MaxSpecialists)
	check(c.Router.LearningRate > 0 && c.Router.LearningRate <= 1, "router.learning_rate must be in (0,1], got %v", c.Router.LearningRate)
	check(c.Router.HistoryCap > 0, "router.history_cap must be > 0, got %d", c.Router.HistoryCap)

	check(c.Board.DecayRate > 0, "board.decay_rate must be > 0, got %s", c.Board.DecayRate)
	check(c.Board.AmplificationFactor >= 0, "board.amplification_factor must be >= 0, got %v", c.Board.AmplificationFactor)
	check(c.Board.AttenuationFactor >= 0 && c.Board.AttenuationFactor <= 1, "board.attenuation_factor must be in [0,1], got %v", c.Board.AttenuationFactor)
	check(c.Board.SignalFloor >= 0, "board.signal_floor must be >= 0, got %v", c.Board.SignalFloor)
	check(c.Board.Shards > 0, "board.shards must be > 0, got %d", c.Board.Shards)
	check(c.Board.SweepInterval > 0, "board.sweep_interval must be > 0, got %s", c.Board.SweepInterval)

	check(len(c.Coordination.Exploration) > 0, "coordination.exploration must not be empty")

	switch c.Storage.Driver {
	case "sqlite", "sqlite3", "yaml":
	default:
		problems = append(problems, fmt.Sprintf("storage.driver must be sqlite, sqlite3 or yaml, got %q", c.Storage.Driver))
	}

	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		problems = append(problems, fmt.Sprintf("logging.level: %v", err))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
