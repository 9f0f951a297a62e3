package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipson/internal/config"
	"go.klb.dev/clipson/internal/logging"
)

// configNames are tried in order; "config" keeps the config.json of earlier
// releases working from the current directory.
var configNames = []string{"clipson", "config"}

// bindViper wires a command's flags into a viper instance with the standard
// config file search order and CLIPSON_* env vars.
//
// Precedence (lowest → highest): defaults → config file → CLIPSON_* env vars → flags
func bindViper(cmd *cobra.Command, v *viper.Viper) error {
	config.SetDefaults(v)
	v.SetDefault("app.hostname", defaultHostname())

	configFlag, _ := cmd.Flags().GetString("config")
	if configFlag != "" {
		v.SetConfigFile(configFlag)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	} else if err := readDiscoveredConfig(v); err != nil {
		return err
	}

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	// Flags that override nested config keys.
	for flag, key := range map[string]string{
		"debug":    "app.debug_enabled",
		"backend":  "app.backend",
		"hostname": "app.hostname",
	} {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("binding --%s: %w", flag, err)
			}
		}
	}
	return nil
}

func readDiscoveredConfig(v *viper.Viper) error {
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "clipson"))
	}
	v.AddConfigPath("/etc/clipson/")

	for _, name := range configNames {
		v.SetConfigName(name)
		err := v.ReadInConfig()
		if err == nil {
			return nil
		}
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("config: %w", err)
		}
	}
	return nil
}

// addLoggingFlags adds the standard logging flags to a command.
func addLoggingFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("debug", false, "debug logging (same as app.debug_enabled)")
	cmd.Flags().String("log-format", "auto", "log format: auto|text|json")
	cmd.Flags().String("log-level", "info", "log level: debug|info|warn|error")
}

// addConfigFlag adds the --config flag to a command.
func addConfigFlag(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "path to config file (overrides auto-discovery)")
}

// addClipboardFlags adds the flags selecting the local clipboard backend.
func addClipboardFlags(cmd *cobra.Command) {
	cmd.Flags().String("backend", "", "clipboard backend: copyq|xclip|native (default from app.use_copyq)")
}

// addHostFlag adds --hostname, the name this host syncs under.
func addHostFlag(cmd *cobra.Command) {
	cmd.Flags().String("hostname", "", "name of this host's file in the shared folder (default: machine hostname)")
}

// setupLogging reads logging flags from viper and configures slog.
func setupLogging(v *viper.Viper) {
	logging.Setup(logging.Options{
		Format: logging.ParseFormat(v.GetString("log-format")),
		Level:  logging.ParseLevel(v.GetString("log-level")),
		Debug:  v.GetBool("app.debug_enabled"),
	})
}

// loadConfig sets up logging and returns the validated configuration.
func loadConfig(v *viper.Viper) (*config.Config, error) {
	setupLogging(v)
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
