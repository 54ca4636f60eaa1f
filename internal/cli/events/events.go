package events

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"novelhub/internal/cli"
	domainevents "novelhub/internal/events"
	"novelhub/internal/protocols/tcp"
	"novelhub/pkg/logger"
)

var EventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Event delivery commands",
	Long:  "Tools for the comment event stream",
}

// listenCmd is the receiving end of events.driver=tcp
var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Receive events over TCP and log them",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := cli.LoadConfig(cmd); err != nil {
			return err
		}
		defer logger.Sync()

		addr, _ := cmd.Flags().GetString("addr")
		printEvents, _ := cmd.Flags().GetBool("print")

		out := cmd.OutOrStdout()
		sink := domainevents.LogSink{}
		server := tcp.NewServer(addr, func(ctx context.Context, e domainevents.Event) error {
			if printEvents {
				fmt.Fprintf(out, "%s comment=%d target=%s/%s actor=%s\n",
					e.Name, e.CommentID, e.TargetType, e.TargetID, e.ActorID)
			}
			return sink.Publish(ctx, e)
		})
		if err := server.Start(); err != nil {
			return err
		}
		defer server.Stop()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		<-ctx.Done()

		logger.Info("Event listener shutting down")
		return nil
	},
}

func init() {
	listenCmd.Flags().String("addr", "127.0.0.1:9090", "TCP listen address")
	listenCmd.Flags().Bool("print", false, "Also print each event to stdout")
	EventsCmd.AddCommand(listenCmd)
}
