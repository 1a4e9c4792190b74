package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/sensitivity.report/internal/version"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Version:    %s\n", version.Version)
			fmt.Fprintf(out, "Git SHA:    %s\n", version.GitSHA)
			fmt.Fprintf(out, "Build time: %s\n", version.BuildTime)
		},
	}
}
