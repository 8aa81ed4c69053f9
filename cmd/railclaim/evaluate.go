package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"railclaim/internal/catalog"
	"railclaim/internal/claim"
	"railclaim/internal/decision"
	decisionhandler "railclaim/internal/decision/handler"
)

func (a *app) evaluateCmd() *cobra.Command {
	var catalogPath string
	cmd := &cobra.Command{
		Use:   "evaluate <request.json|->",
		Short: "Evaluate one claim request without storing it",
		Long: `Evaluate reads a request in the same JSON shape POST /v1/evaluations
accepts and prints the outcome. Use - to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open request: %w", err)
				}
				defer f.Close()
				in = f
			}
			var wire decisionhandler.EvaluateRequest
			dec := json.NewDecoder(in)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&wire); err != nil {
				return fmt.Errorf("decode request: %w", err)
			}
			if err := wire.Validate(); err != nil {
				return err
			}

			if catalogPath == "" {
				catalogPath = a.cfg.Catalog.Path
			}
			store, err := catalog.Open(cmd.Context(), catalog.FileSource{Path: catalogPath}, catalog.WithLogger(a.log))
			if err != nil {
				return err
			}
			snap := store.Current()
			policy, err := decision.NewPolicy(a.cfg.Claim.FeePercent, a.cfg.Compensation.MinPayout, a.cfg.Compensation.RefundPolicy)
			if err != nil {
				return err
			}
			req := wire.ToDomain()
			fingerprint, err := decision.Fingerprint(req, snap.Version(), policy)
			if err != nil {
				return err
			}
			outcome := decision.Run(req, snap, claim.DefaultRates().Merge(a.cfg.FX.Rates), policy)
			return render(cmd.OutOrStdout(), a.output, struct {
				Fingerprint    string `json:"fingerprint"`
				CatalogVersion string `json:"catalogVersion"`
				decision.Outcome
			}{fingerprint, snap.Version(), outcome})
		},
	}
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "catalog document (defaults to catalog.path)")
	return cmd
}
