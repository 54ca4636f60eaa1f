package main

import (
	"os"

	"github.com/spf13/cobra"

	"novelhub/internal/cli"
	configcmd "novelhub/internal/cli/config"
	eventscmd "novelhub/internal/cli/events"
	migratecmd "novelhub/internal/cli/migrate"
	"novelhub/internal/cli/serve"
	"novelhub/internal/cli/thread"
	"novelhub/internal/cli/token"
)

var rootCmd = &cobra.Command{
	Use:   "novelhub",
	Short: "Threaded discussions for novels, chapters and news",
	Long: `novelhub runs the comment service: nested replies, votes,
reports and moderation for every novel, chapter and news post.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String(cli.ConfigFlag, cli.DefaultConfigPath, "Path to the YAML config file")

	rootCmd.AddCommand(
		serve.ServeCmd,
		migratecmd.MigrateCmd,
		configcmd.ConfigCmd,
		token.TokenCmd,
		eventscmd.EventsCmd,
		thread.ThreadCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
