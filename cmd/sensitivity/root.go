package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/banshee-data/sensitivity.report/internal/config"
	"github.com/banshee-data/sensitivity.report/internal/db"
	"github.com/banshee-data/sensitivity.report/internal/engine"
	"github.com/banshee-data/sensitivity.report/internal/monitoring"
	"github.com/banshee-data/sensitivity.report/internal/version"
)

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	configPath      string
	stdin           bool
	verbose         bool
	metricsTextfile string
}

// app holds the state of one command tree. Tests build their own.
type app struct {
	flags globalFlags

	// newEngine builds the design/analysis engine for a command string.
	newEngine func(command string) engine.Engine
}

func newApp() *app {
	return &app{
		newEngine: func(command string) engine.Engine { return engine.NewCommand(command) },
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sensitivity",
		Short: "Global sensitivity analysis of simulation models",
		Long: "sensitivity generates a Sobol or Morris design, runs it on an experiment,\n" +
			"correlates the executed points and stores per-output sensitivity statistics.",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if a.flags.verbose {
				monitoring.SetDebugLogger(log.Printf)
			}
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&a.flags.configPath, "config", "", fmt.Sprintf("Path to a .json/.yaml run config (default %s)", config.DefaultConfigPath))
	f.BoolVar(&a.flags.stdin, "stdin", false, "Read the JSON run config from stdin")
	f.BoolVar(&a.flags.verbose, "verbose", false, "Log per-point and worker activity")
	f.StringVar(&a.flags.metricsTextfile, "metrics-textfile", "", "Write run metrics in Prometheus text format to this file")

	root.AddCommand(a.runCmd())
	root.AddCommand(a.designCmd())
	root.AddCommand(a.reportCmd())
	root.AddCommand(a.experimentsCmd())
	root.AddCommand(a.migrateCmd())
	root.AddCommand(versionCmd())
	return root
}

// loadConfig reads the run config from stdin, --config or the default path.
func (a *app) loadConfig(stdin io.Reader) (*config.RunConfig, error) {
	if a.flags.stdin {
		if a.flags.configPath != "" {
			return nil, fmt.Errorf("--stdin and --config are mutually exclusive")
		}
		return config.ReadRunConfig(stdin)
	}
	path := a.flags.configPath
	if path == "" {
		path = config.DefaultConfigPath
	}
	cfg, err := config.LoadRunConfig(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// openDatabase opens and migrates the store database.
func openDatabase(path string) (*db.DB, error) {
	database, err := db.NewDB(path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	return database, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
