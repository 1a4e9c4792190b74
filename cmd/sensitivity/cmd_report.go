package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/banshee-data/sensitivity.report/internal/config"
	"github.com/banshee-data/sensitivity.report/internal/experiment"
	"github.com/banshee-data/sensitivity.report/internal/report"
	"github.com/banshee-data/sensitivity.report/internal/sensitivity"
)

func (a *app) reportCmd() *cobra.Command {
	var flags struct {
		experimentID string
		resultsPath  string
		storePath    string
		outDir       string
		assetsHost   string
	}
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render charts of a completed analysis",
		Long: "report renders one PNG bar chart per output and an index.html page\n" +
			"from a stored experiment or from a results JSON file.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				result sensitivity.AnalysisResult
				title  string
			)
			switch {
			case flags.resultsPath != "":
				data, err := os.ReadFile(flags.resultsPath)
				if err != nil {
					return fmt.Errorf("read results: %w", err)
				}
				if err := json.Unmarshal(data, &result); err != nil {
					return fmt.Errorf("decode results %s: %w", flags.resultsPath, err)
				}
				title = flags.resultsPath
			case flags.experimentID != "":
				database, err := openDatabase(flags.storePath)
				if err != nil {
					return err
				}
				defer database.Close()
				rec, err := experiment.NewStore(database).Get(cmd.Context(), flags.experimentID)
				if err != nil {
					return err
				}
				if rec.Status != experiment.StatusComplete || len(rec.ResultsJSON) == 0 {
					return fmt.Errorf("experiment %s has no results (status %s)", rec.ExperimentID, rec.Status)
				}
				if err := json.Unmarshal(rec.ResultsJSON, &result); err != nil {
					return fmt.Errorf("decode results of %s: %w", rec.ExperimentID, err)
				}
				title = rec.Name + " " + rec.ExperimentID
			default:
				return fmt.Errorf("one of --experiment or --results is required")
			}

			files, err := report.Write(flags.outDir, result, report.HTMLOptions{Title: title, AssetsHost: flags.assetsHost})
			if err != nil {
				return err
			}
			for _, f := range files {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&flags.experimentID, "experiment", "", "Stored experiment id")
	f.StringVar(&flags.resultsPath, "results", "", "Results JSON file written by run (output_path)")
	f.StringVar(&flags.storePath, "store", config.DefaultStorePath, "Experiment store database")
	f.StringVarP(&flags.outDir, "output", "o", "report", "Output directory")
	f.StringVar(&flags.assetsHost, "assets-host", "", "Base URL for the echarts JavaScript assets")
	cmd.MarkFlagsMutuallyExclusive("experiment", "results")
	return cmd
}
