package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/sensitivity.report/internal/config"
	"github.com/banshee-data/sensitivity.report/internal/experiment"
)

func (a *app) experimentsCmd() *cobra.Command {
	var storePath string
	cmd := &cobra.Command{
		Use:   "experiments",
		Short: "Inspect stored experiments",
	}
	cmd.PersistentFlags().StringVar(&storePath, "store", config.DefaultStorePath, "Experiment store database")

	list := &cobra.Command{
		Use:   "list",
		Short: "List experiments, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			database, err := openDatabase(storePath)
			if err != nil {
				return err
			}
			defer database.Close()
			store := experiment.NewStore(database)

			recs, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSIMULATION\tSTATUS\tPOINTS\tCREATED")
			for _, rec := range recs {
				counts, err := store.Counts(cmd.Context(), rec.ExperimentID)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\t%s\n",
					rec.ExperimentID, rec.Name, rec.SimulationID, rec.Status,
					counts.Done, counts.Total(), formatNanos(rec.CreatedAt))
			}
			return w.Flush()
		},
	}

	var showPoints bool
	show := &cobra.Command{
		Use:   "show <experiment-id>",
		Short: "Show an experiment, its point counts and results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := openDatabase(storePath)
			if err != nil {
				return err
			}
			defer database.Close()
			store := experiment.NewStore(database)

			rec, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			counts, err := store.Counts(cmd.Context(), rec.ExperimentID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Experiment: %s\n", rec.ExperimentID)
			fmt.Fprintf(out, "Name:       %s\n", rec.Name)
			fmt.Fprintf(out, "Method:     %s\n", rec.Method)
			fmt.Fprintf(out, "Simulation: %s\n", rec.SimulationID)
			fmt.Fprintf(out, "Status:     %s\n", rec.Status)
			fmt.Fprintf(out, "Created:    %s\n", formatNanos(rec.CreatedAt))
			if rec.CompletedAt != 0 {
				fmt.Fprintf(out, "Completed:  %s\n", formatNanos(rec.CompletedAt))
			}
			fmt.Fprintf(out, "Parameters:\n")
			for _, p := range rec.Parameters {
				fmt.Fprintf(out, "  %s [%g, %g]\n", p.ID, p.Min, p.Max)
			}
			fmt.Fprintf(out, "Points:     %d pending, %d running, %d done, %d failed\n",
				counts.Pending, counts.Running, counts.Done, counts.Failed)

			if showPoints {
				points, err := store.Points(cmd.Context(), rec.ExperimentID)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "SEQ\tSTATUS\tINPUT\tOUTPUT")
				for _, p := range points {
					in, _ := p.Inputs.MarshalJSON()
					outputs := p.Error
					if p.Status == experiment.PointDone {
						b, _ := p.Outputs.MarshalJSON()
						outputs = string(b)
					}
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", p.Seq, p.Status, in, outputs)
				}
				if err := w.Flush(); err != nil {
					return err
				}
			}
			if len(rec.ResultsJSON) > 0 {
				fmt.Fprintf(out, "Results:    %s\n", rec.ResultsJSON)
			}
			return nil
		},
	}
	show.Flags().BoolVar(&showPoints, "points", false, "List every scheduled point")

	cmd.AddCommand(list, show)
	return cmd
}

func formatNanos(ns int64) string {
	if ns == 0 {
		return "-"
	}
	return time.Unix(0, ns).UTC().Format(time.RFC3339)
}
