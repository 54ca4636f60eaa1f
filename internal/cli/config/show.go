package config

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"novelhub/internal/cli"
	appconfig "novelhub/pkg/config"
)

const redacted = "********"

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	Long:  "Print the configuration after defaults, the YAML file and NOVELHUB_* overrides are applied",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadConfig(cmd)
		if err != nil {
			return err
		}
		reveal, _ := cmd.Flags().GetBool("reveal")
		return writeYAML(cmd.OutOrStdout(), cfg, reveal)
	},
}

// writeYAML renders cfg, masking secrets unless reveal is set
func writeYAML(w io.Writer, cfg *appconfig.Config, reveal bool) error {
	out := *cfg
	if !reveal {
		if out.Database.Password != "" {
			out.Database.Password = redacted
		}
		if out.Redis.Password != "" {
			out.Redis.Password = redacted
		}
		if out.JWT.Secret != "" {
			out.JWT.Secret = redacted
		}
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}

func init() {
	showCmd.Flags().Bool("reveal", false, "Print secrets instead of masking them")
	ConfigCmd.AddCommand(showCmd)
}
