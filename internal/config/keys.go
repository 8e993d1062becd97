package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrUnknownKey is returned for a dot-notation key that does not exist.
var ErrUnknownKey = errors.New("unknown configuration key")

// Keys lists every dot-notation configuration key in display order.
func Keys() []string {
	return []string{
		"router.vigilance_threshold",
		"router.max_specialists",
		"router.learning_rate",
		"router.history_cap",
		"board.decay_rate",
		"board.amplification_factor",
		"board.attenuation_factor",
		"board.signal_floor",
		"board.shards",
		"board.sweep_interval",
		"coordination.exploration",
		"storage.driver",
		"storage.path",
		"logging.level",
		"logging.development",
		"inbox.dir",
	}
}

// EnvVar returns the environment variable that overrides key.
func EnvVar(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Get returns a configuration value by dot-notation key.
func (c *Config) Get(key string) (string, error) {
	switch strings.ToLower(key) {
	case "router.vigilance_threshold":
		return formatFloat(c.Router.VigilanceThreshold), nil
	case "router.max_specialists":
		return strconv.Itoa(c.Router.MaxSpecialists), nil
	case "router.learning_rate":
		return formatFloat(c.Router.LearningRate), nil
	case "router.history_cap":
		return strconv.Itoa(c.Router.HistoryCap), nil
	case "board.decay_rate":
		return c.Board.DecayRate.String(), nil
	case "board.amplification_factor":
		return formatFloat(c.Board.AmplificationFactor), nil
	case "board.attenuation_factor":
		return formatFloat(c.Board.AttenuationFactor), nil
	case "board.signal_floor":
		return formatFloat(c.Board.SignalFloor), nil
	case "board.shards":
		return strconv.Itoa(c.Board.Shards), nil
	case "board.sweep_interval":
		return c.Board.SweepInterval.String(), nil
	case "coordination.exploration":
		return strings.Join(c.Coordination.Exploration, ","), nil
	case "storage.driver":
		return c.Storage.Driver, nil
	case "storage.path":
		return c.Storage.Path, nil
	case "logging.level":
		return c.Logging.Level, nil
	case "logging.development":
		return strconv.FormatBool(c.Logging.Development), nil
	case "inbox.dir":
		return c.Inbox.Dir, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
}

// Set parses value and assigns it to the dot-notation key. On error c is
// left unchanged.
func (c *Config) Set(key, value string) error {
	n := *c
	var err error
	switch strings.ToLower(key) {
	case "router.vigilance_threshold":
		n.Router.VigilanceThreshold, err = parseFloat(key, value)
	case "router.max_specialists":
		n.Router.MaxSpecialists, err = parseInt(key, value)
	case "router.learning_rate":
		n.Router.LearningRate, err = parseFloat(key, value)
	case "router.history_cap":
		n.Router.HistoryCap, err = parseInt(key, value)
	case "board.decay_rate":
		n.Board.DecayRate, err = parseDuration(key, value)
	case "board.amplification_factor":
		n.Board.AmplificationFactor, err = parseFloat(key, value)
	case "board.attenuation_factor":
		n.Board.AttenuationFactor, err = parseFloat(key, value)
	case "board.signal_floor":
		n.Board.SignalFloor, err = parseFloat(key, value)
	case "board.shards":
		n.Board.Shards, err = parseInt(key, value)
	case "board.sweep_interval":
		n.Board.SweepInterval, err = parseDuration(key, value)
	case "coordination.exploration":
		n.Coordination.Exploration = splitList(value)
	case "storage.driver":
		n.Storage.Driver = value
	case "storage.path":
		n.Storage.Path = value
	case "logging.level":
		n.Logging.Level = value
	case "logging.development":
		n.Logging.Development, err = strconv.ParseBool(value)
		if err != nil {
			err = fmt.Errorf("invalid boolean for %s: %w", key, err)
		}
	case "inbox.dir":
		n.Inbox.Dir = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if err != nil {
		return err
	}
	*c = n
	return nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func parseFloat(key, value string) (float64, error) {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number for %s: %w", key, err)
	}
	return f, nil
}

func parseInt(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
	}
	return n, nil
}

func parseDuration(key, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
