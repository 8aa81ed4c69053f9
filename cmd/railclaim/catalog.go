package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"railclaim/internal/catalog"
	"railclaim/pkg/domain"
)

func (a *app) catalogCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the reference catalog",
	}
	cmd.PersistentFlags().StringVar(&path, "catalog", "", "catalog document (defaults to catalog.path)")

	load := func() (*catalog.Snapshot, error) {
		if path == "" {
			path = a.cfg.Catalog.Path
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open catalog: %w", err)
		}
		defer f.Close()
		return catalog.Parse(f)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Report skipped records and overrides without matching catalog rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := load()
			if err != nil {
				return err
			}
			report := catalog.Check(snap)
			if err := render(cmd.OutOrStdout(), a.output, report); err != nil {
				return err
			}
			if !report.OK() {
				return errors.New("catalog has findings")
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "lookup <country> [operator] [product]",
		Short: "Resolve the catalog entry and override for a journey leg",
		Args:  cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := load()
			if err != nil {
				return err
			}
			country, err := domain.ParseCountryCode(args[0])
			if err != nil {
				return err
			}
			key := catalog.Key{Country: country}
			if len(args) > 1 {
				key.Operator = args[1]
			}
			if len(args) > 2 {
				key.Product = args[2]
			}

			type result struct {
				Version  string            `json:"version"`
				Entry    *catalog.Entry    `json:"entry"`
				Override *catalog.Override `json:"override,omitempty"`
			}
			res := result{Version: snap.Version()}
			if e, ok := snap.Lookup(key); ok {
				res.Entry = &e
			}
			if o, ok := snap.FindOverride(key); ok {
				res.Override = &o
			}
			if res.Entry == nil && res.Override == nil {
				return fmt.Errorf("no catalog entry for %s", key)
			}
			return render(cmd.OutOrStdout(), a.output, res)
		},
	})
	return cmd
}
