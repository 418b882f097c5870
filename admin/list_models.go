package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/goatplatform/edge-chat/internal/cli"
	"github.com/goatplatform/edge-chat/internal/configuration"
	"github.com/goatplatform/edge-chat/internal/llm"
)

const checkTimeout = 30 * time.Second

// NewListModelsCmd instantiates and returns the models command.
func NewListModelsCmd(backends *llm.Registry, config *configuration.Config) *cobra.Command {
	var opts struct {
		Check bool
	}

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the configured model backends",
		Long:  "List the configured model backends, optionally checking that each one is ready",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli.Title("Model Backends (%d)", len(config.Backends))
			for _, backendConfig := range config.Backends {
				line := fmt.Sprintf("%-16s %-8s", backendConfig.Name, backendConfig.Kind)
				if backendConfig.Model != "" {
					line += fmt.Sprintf(" %s", backendConfig.Model)
				}
				if backendConfig.Name == config.Chat.DefaultModel {
					line += " (default)"
				}
				fmt.Println(line)
				if !opts.Check {
					continue
				}

				backend, err := backends.Get(backendConfig.Name)
				if err != nil {
					return err
				}
				initializer, ok := backend.(llm.Initializer)
				if !ok {
					fmt.Println("  ready")
					continue
				}
				ctx, cancel := context.WithTimeout(cmd.Context(), checkTimeout)
				err = initializer.EnsureReady(ctx)
				cancel()
				if err != nil {
					cli.Error("  not ready: %v", err)
					continue
				}
				fmt.Println("  ready")
			}
			cli.Separator()
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.Check, "check", false, "Check that every backend is ready")
	return cmd
}
