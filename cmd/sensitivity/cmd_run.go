package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/sensitivity.report/internal/config"
	"github.com/banshee-data/sensitivity.report/internal/db"
	"github.com/banshee-data/sensitivity.report/internal/experiment"
	"github.com/banshee-data/sensitivity.report/internal/monitoring"
	"github.com/banshee-data/sensitivity.report/internal/sensitivity"
	"github.com/banshee-data/sensitivity.report/internal/workflow"
)

func (a *app) runCmd() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a sensitivity analysis end to end",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			cfg, err := a.loadConfig(cmd.InOrStdin())
			if err != nil {
				return err
			}
			report, err := a.run(ctx, cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			fmt.Fprintf(out, "Experiment: %s\n", report.ExperimentID)
			fmt.Fprintf(out, "Method:     %s\n", report.Method)
			fmt.Fprintf(out, "Points:     %d (%d matched, %d unmatched)\n", report.Points, report.Matched, len(report.Unmatched))
			fmt.Fprintf(out, "Outputs:    %v\n", report.OutputIDs)
			fmt.Fprintf(out, "Duration:   %s\n", report.Duration)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the full run report as JSON")
	return cmd
}

// run executes one configured analysis and writes the metrics textfile,
// also when the run fails.
func (a *app) run(ctx context.Context, cfg *config.RunConfig) (*workflow.Report, error) {
	params, err := cfg.ParameterSet()
	if err != nil {
		return nil, err
	}

	storePath := cfg.GetStorePath()
	if cfg.GetFakeExperiment() {
		storePath = db.MemoryPath
	}
	database, err := openDatabase(storePath)
	if err != nil {
		return nil, err
	}
	defer database.Close()
	store := experiment.NewStore(database)

	exp, err := openExperiment(ctx, store, cfg, params)
	if err != nil {
		return nil, err
	}
	defer exp.Close()
	monitoring.Logf("Using experiment %s", exp.ID())

	runner := workflow.NewRunner(a.newEngine(cfg.GetEngineCommand()))
	report, runErr := runner.Run(ctx, exp, params, workflow.Options{
		Settings:         cfg.EngineSettings(),
		PollInterval:     cfg.GetPollInterval(),
		WaitTimeout:      cfg.GetWaitTimeout(),
		StrictStatistics: cfg.GetStrictStatistics(),
		RequireComplete:  cfg.GetRequireComplete(),
		CorrelateWorkers: cfg.GetCorrelateWorkers(),
		OutputPath:       cfg.GetOutputPath(),
	})

	if keys, values, err := runner.Metrics.Summary(); err == nil {
		for _, k := range keys {
			monitoring.Debugf("metric %s = %g", k, values[k])
		}
	}
	if a.flags.metricsTextfile != "" {
		if err := runner.Metrics.WriteTextfile(a.flags.metricsTextfile); err != nil {
			monitoring.Logf("Failed to write metrics: %v", err)
		}
	}
	if runErr != nil {
		return nil, runErr
	}
	return report, nil
}

// openExperiment creates a new experiment for simulation_id when it is set
// or no experiment_id is given, otherwise reopens experiment_id.
func openExperiment(ctx context.Context, store *experiment.Store, cfg *config.RunConfig, params sensitivity.ParameterSet) (*experiment.Local, error) {
	method := cfg.GetMethod()
	opts := experiment.LocalOptions{Workers: cfg.GetWorkers()}

	if id := cfg.GetExperimentID(); id != "" && !cfg.HasSimulationID() {
		rec, err := store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if rec.Method != method {
			return nil, fmt.Errorf("experiment %s uses method %s, config asks for %s", id, rec.Method, method)
		}
		sim, err := experiment.ResolveSimulation(experiment.DefaultModelRegistry(), rec.SimulationID, cfg.GetSimulationCommand())
		if err != nil {
			return nil, err
		}
		return experiment.OpenLocal(ctx, store, id, sim, opts)
	}

	simID := cfg.GetSimulationID()
	sim, err := experiment.ResolveSimulation(experiment.DefaultModelRegistry(), simID, cfg.GetSimulationCommand())
	if err != nil {
		return nil, err
	}
	return experiment.CreateLocal(ctx, store, &experiment.Record{
		Name:         experiment.NameForMethod(method),
		Method:       method,
		SimulationID: simID,
		Parameters:   params.Parameters(),
	}, sim, opts)
}
