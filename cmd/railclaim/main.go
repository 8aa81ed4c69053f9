// Command railclaim evaluates claims offline, inspects the catalog and
// manages the database schema.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"railclaim/internal/platform/config"
	"railclaim/internal/platform/logger"
)

type app struct {
	cfgFile string
	output  string
	cfg     *config.Config
	log     *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "railclaim",
		Short:         "EU rail passenger-rights claim engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.cfgFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Log)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.cfgFile, "config", os.Getenv("RAILCLAIM_CONFIG"), "config file (YAML)")
	root.PersistentFlags().StringVarP(&a.output, "output", "o", "yaml", "output format (yaml, json)")

	root.AddCommand(a.evaluateCmd())
	root.AddCommand(a.catalogCmd())
	root.AddCommand(a.migrateCmd())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
