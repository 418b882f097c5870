package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/goatplatform/edge-chat/admin"
	"github.com/goatplatform/edge-chat/app"
	"github.com/goatplatform/edge-chat/chat"
	"github.com/goatplatform/edge-chat/internal/configuration"
	"github.com/goatplatform/edge-chat/webserver"
)

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "edgechat",
		Short:        "A local-first chat with pluggable model backends",
		Version:      "1.0",
		SilenceUsage: true,
	}
}

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes the command line and returns the exit code of the process, once the app is closed.
func run(args []string) int {
	config, err := configuration.Parse(configuration.Path())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.NewApp(ctx, config)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer func() {
		if err := a.Close(); err != nil {
			a.Logger.Error("closing app", "error", err)
		}
	}()

	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.AddCommand(webserver.NewServeCmd(a.Orchestrator, config, a.Logger))
	rootCmd.AddCommand(chat.NewCmd(a.Orchestrator, config))
	rootCmd.AddCommand(chat.NewListChatsCmd(a.Orchestrator, config))
	rootCmd.AddCommand(chat.NewSelectCmd(a.Orchestrator, config))
	rootCmd.AddCommand(admin.NewListModelsCmd(a.Backends, config))
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// cobra already printed the error.
		return 1
	}
	return 0
}
