package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"railclaim/internal/platform/postgres"
)

func (a *app) migrateCmd() *cobra.Command {
	var dsn string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the database schema",
	}
	cmd.PersistentFlags().StringVar(&dsn, "dsn", "", "postgres DSN (defaults to postgres.dsn)")

	step := func(dir postgres.Direction) *cobra.Command {
		return &cobra.Command{
			Use:   string(dir),
			Short: fmt.Sprintf("Migrate the schema %s", dir),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg := a.cfg.Postgres
				if dsn != "" {
					cfg.DSN = dsn
				}
				if cfg.DSN == "" {
					return fmt.Errorf("postgres DSN is required: set --dsn or postgres.dsn")
				}
				db, err := postgres.Open(cmd.Context(), cfg)
				if err != nil {
					return err
				}
				defer db.Close()

				if err := postgres.Migrate(db, dir); err != nil {
					return err
				}
				version, dirty, err := postgres.Version(db)
				if err != nil {
					return err
				}
				a.log.Info("schema migrated", "direction", dir, "version", version, "dirty", dirty)
				return nil
			},
		}
	}
	cmd.AddCommand(step(postgres.Up), step(postgres.Down))

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg.Postgres
			if dsn != "" {
				cfg.DSN = dsn
			}
			db, err := postgres.Open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			version, dirty, err := postgres.Version(db)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty=%t)\n", version, dirty)
			return err
		},
	})
	return cmd
}
