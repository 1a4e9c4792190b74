// Package config loads the settings of a sensitivity-analysis run.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/sensitivity.report/internal/engine"
	"github.com/banshee-data/sensitivity.report/internal/monitoring"
	"github.com/banshee-data/sensitivity.report/internal/sensitivity"
)

// DefaultConfigPath is read when neither --config nor --stdin is given.
const DefaultConfigPath = "config.json"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Defaults for optional fields.
const (
	DefaultSimulationID     = "ishigami"
	DefaultStorePath        = "sensitivity.db"
	DefaultWorkers          = 4
	DefaultPollInterval     = sensitivity.DefaultPollInterval
	DefaultCorrelateWorkers = 1
)

// ParameterConfig is one entry of the parameters list. Only parameters of
// type "float" (the default) take part in the analysis.
type ParameterConfig struct {
	ID   string   `json:"id" yaml:"id"`
	Type string   `json:"type,omitempty" yaml:"type,omitempty"`
	Min  *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max  *float64 `json:"max,omitempty" yaml:"max,omitempty"`
}

// IsFloat reports whether the parameter is sampled.
func (p ParameterConfig) IsFloat() bool {
	return p.Type == "" || strings.EqualFold(p.Type, "float")
}

// RunConfig is the root configuration of a run. Optional fields are
// pointers; the Get* methods return their defaults when unset.
type RunConfig struct {
	MethodType string            `json:"method_type" yaml:"method_type"`
	Parameters []ParameterConfig `json:"parameters" yaml:"parameters"`

	SobolBaseInputsCount *int   `json:"sobol_base_inputs_count,omitempty" yaml:"sobol_base_inputs_count,omitempty"`
	MorrisSamplesCount   *int   `json:"morris_samples_count,omitempty" yaml:"morris_samples_count,omitempty"`
	MorrisLevelsCount    *int   `json:"morris_levels_count,omitempty" yaml:"morris_levels_count,omitempty"`
	Seed                 *int64 `json:"seed,omitempty" yaml:"seed,omitempty"`

	// Experiment
	ExperimentID      *string `json:"experiment_id,omitempty" yaml:"experiment_id,omitempty"`
	SimulationID      *string `json:"simulation_id,omitempty" yaml:"simulation_id,omitempty"`
	SimulationCommand *string `json:"simulation_command,omitempty" yaml:"simulation_command,omitempty"`
	FakeExperiment    *bool   `json:"fake_experiment,omitempty" yaml:"fake_experiment,omitempty"`
	StorePath         *string `json:"store_path,omitempty" yaml:"store_path,omitempty"`
	Workers           *int    `json:"workers,omitempty" yaml:"workers,omitempty"`

	EngineCommand *string `json:"engine_command,omitempty" yaml:"engine_command,omitempty"`

	// Waiting
	PollInterval *string `json:"poll_interval,omitempty" yaml:"poll_interval,omitempty"` // duration string like "5s"
	WaitTimeout  *string `json:"wait_timeout,omitempty" yaml:"wait_timeout,omitempty"`   // "0" or unset waits forever

	// Analysis
	StrictStatistics *bool `json:"strict_statistics,omitempty" yaml:"strict_statistics,omitempty"`
	RequireComplete  *bool `json:"require_complete,omitempty" yaml:"require_complete,omitempty"`
	CorrelateWorkers *int  `json:"correlate_workers,omitempty" yaml:"correlate_workers,omitempty"`

	OutputPath *string `json:"output_path,omitempty" yaml:"output_path,omitempty"`
}

// LoadRunConfig loads a RunConfig from a .json, .yaml or .yml file.
// The file must be under the max file size.
func LoadRunConfig(path string) (*RunConfig, error) {
	cleanPath := filepath.Clean(path)
	format := strings.TrimPrefix(filepath.Ext(cleanPath), ".")
	switch format {
	case "json", "yaml", "yml":
	default:
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", filepath.Ext(cleanPath))
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseRunConfig(data, format)
}

// ReadRunConfig reads a JSON RunConfig from r, typically stdin.
func ReadRunConfig(r io.Reader) (*RunConfig, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if len(data) > maxFileSize {
		return nil, fmt.Errorf("config too large (max %d bytes)", maxFileSize)
	}
	return ParseRunConfig(data, "json")
}

// ParseRunConfig decodes data in format ("json", "yaml" or "yml") and
// validates the result.
func ParseRunConfig(data []byte, format string) (*RunConfig, error) {
	cfg := &RunConfig{}
	switch format {
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	case "yaml", "yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *RunConfig) Validate() error {
	if _, err := sensitivity.ParseMethod(c.MethodType); err != nil {
		return fmt.Errorf("method_type: %w", err)
	}

	floats := 0
	for i, p := range c.Parameters {
		if p.ID == "" {
			return fmt.Errorf("parameter %d: id is required", i)
		}
		if !p.IsFloat() {
			continue
		}
		floats++
		if p.Min == nil || p.Max == nil {
			return fmt.Errorf("parameter %q: min and max are required", p.ID)
		}
		if *p.Min > *p.Max {
			return fmt.Errorf("parameter %q: min %g exceeds max %g", p.ID, *p.Min, *p.Max)
		}
	}
	if floats == 0 {
		return fmt.Errorf("at least one float parameter is required")
	}

	if err := c.EngineSettings().Validate(); err != nil {
		return err
	}

	durations := []struct {
		name  string
		value *string
	}{
		{"poll_interval", c.PollInterval},
		{"wait_timeout", c.WaitTimeout},
	}
	for _, f := range durations {
		if f.value == nil || *f.value == "" {
			continue
		}
		d, err := time.ParseDuration(*f.value)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", f.name, *f.value, err)
		}
		if d < 0 {
			return fmt.Errorf("%s must be non-negative, got %s", f.name, d)
		}
	}

	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	if c.CorrelateWorkers != nil && *c.CorrelateWorkers < 0 {
		return fmt.Errorf("correlate_workers must be non-negative, got %d", *c.CorrelateWorkers)
	}
	return nil
}

// GetMethod returns the parsed method_type.
func (c *RunConfig) GetMethod() sensitivity.Method {
	m, _ := sensitivity.ParseMethod(c.MethodType)
	return m
}

// ParameterSet returns the float parameters in configuration order. Other
// parameter types are skipped with a log line.
func (c *RunConfig) ParameterSet() (sensitivity.ParameterSet, error) {
	params := make([]sensitivity.Parameter, 0, len(c.Parameters))
	for _, p := range c.Parameters {
		if !p.IsFloat() {
			monitoring.Logf("Ignoring parameter %s of type %s", p.ID, p.Type)
			continue
		}
		var lo, hi float64
		if p.Min != nil {
			lo = *p.Min
		}
		if p.Max != nil {
			hi = *p.Max
		}
		params = append(params, sensitivity.Parameter{ID: p.ID, Min: lo, Max: hi})
	}
	return sensitivity.NewParameterSet(params)
}

// EngineSettings returns the method settings for the engine.
func (c *RunConfig) EngineSettings() engine.Settings {
	s := engine.Settings{Method: c.GetMethod()}
	if c.SobolBaseInputsCount != nil {
		s.SobolBaseInputsCount = *c.SobolBaseInputsCount
	}
	if c.MorrisSamplesCount != nil {
		s.MorrisSamplesCount = *c.MorrisSamplesCount
	}
	if c.MorrisLevelsCount != nil {
		s.MorrisLevelsCount = *c.MorrisLevelsCount
	}
	if c.Seed != nil {
		s.Seed = *c.Seed
	}
	return s
}

// GetExperimentID returns the experiment to reuse, or "" to create one.
func (c *RunConfig) GetExperimentID() string {
	if c.ExperimentID == nil {
		return ""
	}
	return *c.ExperimentID
}

// GetSimulationID returns the simulation_id value or the default.
func (c *RunConfig) GetSimulationID() string {
	if c.SimulationID == nil || *c.SimulationID == "" {
		return DefaultSimulationID
	}
	return *c.SimulationID
}

// HasSimulationID reports whether simulation_id is set explicitly. A run
// with simulation_id creates a new experiment even when experiment_id is set.
func (c *RunConfig) HasSimulationID() bool {
	return c.SimulationID != nil && *c.SimulationID != ""
}

// GetSimulationCommand returns the external simulation command, if any.
func (c *RunConfig) GetSimulationCommand() string {
	if c.SimulationCommand == nil {
		return ""
	}
	return *c.SimulationCommand
}

// GetFakeExperiment reports whether the run uses an in-memory store.
func (c *RunConfig) GetFakeExperiment() bool {
	return c.FakeExperiment != nil && *c.FakeExperiment
}

// GetStorePath returns the store_path value or the default.
func (c *RunConfig) GetStorePath() string {
	if c.StorePath == nil || *c.StorePath == "" {
		return DefaultStorePath
	}
	return *c.StorePath
}

// GetWorkers returns the workers value or the default.
func (c *RunConfig) GetWorkers() int {
	if c.Workers == nil {
		return DefaultWorkers
	}
	return *c.Workers
}

// GetEngineCommand returns the engine_command value or the default.
func (c *RunConfig) GetEngineCommand() string {
	if c.EngineCommand == nil || *c.EngineCommand == "" {
		return engine.DefaultCommand
	}
	return *c.EngineCommand
}

// GetPollInterval parses and returns the PollInterval as a time.Duration.
func (c *RunConfig) GetPollInterval() time.Duration {
	if c.PollInterval == nil || *c.PollInterval == "" {
		return DefaultPollInterval
	}
	d, err := time.ParseDuration(*c.PollInterval)
	if err != nil || d <= 0 {
		return DefaultPollInterval
	}
	return d
}

// GetWaitTimeout returns the bound on waiting for the experiment; 0 means
// no bound.
func (c *RunConfig) GetWaitTimeout() time.Duration {
	if c.WaitTimeout == nil || *c.WaitTimeout == "" {
		return 0
	}
	d, err := time.ParseDuration(*c.WaitTimeout)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// GetStrictStatistics returns the strict_statistics value or false.
func (c *RunConfig) GetStrictStatistics() bool {
	return c.StrictStatistics != nil && *c.StrictStatistics
}

// GetRequireComplete returns the require_complete value or false.
func (c *RunConfig) GetRequireComplete() bool {
	return c.RequireComplete != nil && *c.RequireComplete
}

// GetCorrelateWorkers returns the correlate_workers value or the default.
func (c *RunConfig) GetCorrelateWorkers() int {
	if c.CorrelateWorkers == nil || *c.CorrelateWorkers == 0 {
		return DefaultCorrelateWorkers
	}
	return *c.CorrelateWorkers
}

// GetOutputPath returns the output_path value, or "" when unset.
func (c *RunConfig) GetOutputPath() string {
	if c.OutputPath == nil {
		return ""
	}
	return *c.OutputPath
}
