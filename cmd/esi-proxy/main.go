// Command esi-proxy serves ESI through the request cache and fetches single
// requests from the command line.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/esi-request-cache/internal/config"
	"github.com/Sternrassler/esi-request-cache/pkg/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130) // Standard shell convention for SIGINT
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// options are the flags shared by all subcommands.
type options struct {
	configPath string
	cfg        config.Config
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "esi-proxy",
		Short:        "Caching, retrying proxy for the EVE Swagger Interface",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if cfg.Log.Output == nil {
				cfg.Log.Output = cmd.ErrOrStderr()
			}
			logging.Setup(cfg.Log)
			opts.cfg = cfg
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a TOML config file")

	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newFetchCmd(opts))

	return root
}
