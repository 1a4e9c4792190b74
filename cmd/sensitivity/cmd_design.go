package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/banshee-data/sensitivity.report/internal/monitoring"
	"github.com/banshee-data/sensitivity.report/internal/sensitivity"
)

// designPoint is one generated point as written by the design command.
type designPoint struct {
	ID     sensitivity.PointID   `json:"id"`
	Inputs sensitivity.ValuesMap `json:"input"`
}

func (a *app) designCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "design",
		Short: "Generate the design points of the configured method without running them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			cfg, err := a.loadConfig(cmd.InOrStdin())
			if err != nil {
				return err
			}
			params, err := cfg.ParameterSet()
			if err != nil {
				return err
			}
			settings := cfg.EngineSettings()

			points, err := a.newEngine(cfg.GetEngineCommand()).GenerateInputs(ctx, params, settings)
			if err != nil {
				return fmt.Errorf("generate inputs: %w", err)
			}
			if want := settings.ExpectedPoints(params.Len()); want != len(points) {
				monitoring.Logf("Engine generated %d points, expected %d for %d parameters", len(points), want, params.Len())
			}

			design := make([]designPoint, len(points))
			for i, p := range points {
				m, err := params.ValuesMap(p)
				if err != nil {
					return err
				}
				design[i] = designPoint{ID: p.ID, Inputs: m}
			}

			var out io.Writer = cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("create %s: %w", outPath, err)
				}
				defer f.Close()
				out = f
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(design); err != nil {
				return fmt.Errorf("write design: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Write the design JSON to this file instead of stdout")
	return cmd
}
