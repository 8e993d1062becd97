package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/swarm/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify swarm configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/swarm/config.yaml
Project-specific overrides can be placed in .swarm.yaml
Any key can be overridden with an environment variable, e.g.
SWARM_ROUTER_VIGILANCE_THRESHOLD=0.8`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch len(args) {
		case 0:
			return displayAllConfig(cmd, cfg)
		case 1:
			return displayConfigKey(cmd, cfg, args[0])
		default:
			return setConfigKey(cmd, cfg, args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cmd *cobra.Command, c *config.Config) error {
	out := cmd.OutOrStdout()
	for _, key := range config.Keys() {
		value, err := c.Get(key)
		if err != nil {
			return err
		}
		if value == "" {
			value = "(not set)"
		}
		fmt.Fprintf(out, "%s: %s\n", key, value)
	}
	return nil
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cmd *cobra.Command, c *config.Config, key string) error {
	value, err := c.Get(key)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), value)
	return nil
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cmd *cobra.Command, c *config.Config, key, value string) error {
	if err := c.Set(key, value); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}
	if err := config.Save(c); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	printStatus(cmd.OutOrStdout(), "✓", fmt.Sprintf("Set %s = %s", key, value), color.FgGreen)
	return nil
}
