// Package cli holds helpers shared by the novelhub subcommands
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"novelhub/pkg/config"
	"novelhub/pkg/logger"
)

// ConfigFlag is the persistent flag naming the YAML config file
const ConfigFlag = "config"

// DefaultConfigPath is used when --config is not given
const DefaultConfigPath = "./configs/development.yaml"

// LoadConfig reads the config selected by --config and initializes the
// logger from it. A missing default file falls back to defaults and env.
func LoadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString(ConfigFlag)
	if path == "" {
		path = DefaultConfigPath
	}
	if !cmd.Flags().Changed(ConfigFlag) {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if err := logger.Init(cfg.Logging); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, nil
}
