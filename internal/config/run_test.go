package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/sensitivity.report/internal/engine"
	"github.com/banshee-data/sensitivity.report/internal/sensitivity"
)

const sobolJSON = `{
  "method_type": "sobol",
  "sobol_base_inputs_count": 64,
  "parameters": [
    {"id": "a", "type": "float", "min": 0, "max": 1},
    {"id": "label", "type": "string"},
    {"id": "b", "min": -1, "max": 1}
  ]
}`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestLoadRunConfig_JSON(t *testing.T) {
	cfg, err := LoadRunConfig(writeConfig(t, "run.json", sobolJSON))
	if err != nil {
		t.Fatalf("LoadRunConfig failed: %v", err)
	}

	if cfg.GetMethod() != sensitivity.MethodSobol {
		t.Errorf("GetMethod() = %q, want sobol", cfg.GetMethod())
	}

	params, err := cfg.ParameterSet()
	if err != nil {
		t.Fatalf("ParameterSet: %v", err)
	}
	ids := params.IDs()
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("ParameterSet ids = %v, want [a b]", ids)
	}

	want := engine.Settings{Method: sensitivity.MethodSobol, SobolBaseInputsCount: 64}
	if got := cfg.EngineSettings(); got != want {
		t.Errorf("EngineSettings() = %+v, want %+v", got, want)
	}
}

func TestLoadRunConfig_YAML(t *testing.T) {
	content := `
method_type: morris
morris_samples_count: 10
morris_levels_count: 4
seed: 7
parameters:
  - id: x1
    min: -3.14159
    max: 3.14159
  - id: x2
    min: -3.14159
    max: 3.14159
simulation_id: linear
workers: 0
poll_interval: 250ms
wait_timeout: 2m
strict_statistics: true
require_complete: true
correlate_workers: 8
fake_experiment: true
output_path: out/results.json
`
	for _, name := range []string{"run.yaml", "run.yml"} {
		cfg, err := LoadRunConfig(writeConfig(t, name, content))
		if err != nil {
			t.Fatalf("LoadRunConfig(%s) failed: %v", name, err)
		}
		s := cfg.EngineSettings()
		if s.Method != sensitivity.MethodMorris || s.MorrisSamplesCount != 10 || s.MorrisLevelsCount != 4 || s.Seed != 7 {
			t.Errorf("EngineSettings() = %+v", s)
		}
		if cfg.GetSimulationID() != "linear" {
			t.Errorf("GetSimulationID() = %q", cfg.GetSimulationID())
		}
		if !cfg.HasSimulationID() {
			t.Error("HasSimulationID() = false, want true")
		}
		if cfg.GetWorkers() != 0 {
			t.Errorf("GetWorkers() = %d, want explicit 0", cfg.GetWorkers())
		}
		if cfg.GetPollInterval() != 250*time.Millisecond {
			t.Errorf("GetPollInterval() = %v", cfg.GetPollInterval())
		}
		if cfg.GetWaitTimeout() != 2*time.Minute {
			t.Errorf("GetWaitTimeout() = %v", cfg.GetWaitTimeout())
		}
		if !cfg.GetStrictStatistics() || !cfg.GetRequireComplete() || !cfg.GetFakeExperiment() {
			t.Error("boolean options not loaded")
		}
		if cfg.GetCorrelateWorkers() != 8 {
			t.Errorf("GetCorrelateWorkers() = %d", cfg.GetCorrelateWorkers())
		}
		if cfg.GetOutputPath() != "out/results.json" {
			t.Errorf("GetOutputPath() = %q", cfg.GetOutputPath())
		}
	}
}

func TestRunConfig_Defaults(t *testing.T) {
	cfg, err := ParseRunConfig([]byte(sobolJSON), "json")
	if err != nil {
		t.Fatalf("ParseRunConfig: %v", err)
	}

	if cfg.GetExperimentID() != "" {
		t.Errorf("GetExperimentID() = %q, want empty", cfg.GetExperimentID())
	}
	if cfg.GetSimulationID() != DefaultSimulationID {
		t.Errorf("GetSimulationID() = %q", cfg.GetSimulationID())
	}
	if cfg.HasSimulationID() {
		t.Error("HasSimulationID() = true for an unset simulation_id")
	}
	if cfg.GetSimulationCommand() != "" {
		t.Errorf("GetSimulationCommand() = %q", cfg.GetSimulationCommand())
	}
	if cfg.GetStorePath() != DefaultStorePath {
		t.Errorf("GetStorePath() = %q", cfg.GetStorePath())
	}
	if cfg.GetWorkers() != DefaultWorkers {
		t.Errorf("GetWorkers() = %d", cfg.GetWorkers())
	}
	if cfg.GetEngineCommand() != engine.DefaultCommand {
		t.Errorf("GetEngineCommand() = %q", cfg.GetEngineCommand())
	}
	if cfg.GetPollInterval() != 5*time.Second {
		t.Errorf("GetPollInterval() = %v, want 5s", cfg.GetPollInterval())
	}
	if cfg.GetWaitTimeout() != 0 {
		t.Errorf("GetWaitTimeout() = %v, want 0", cfg.GetWaitTimeout())
	}
	if cfg.GetStrictStatistics() || cfg.GetRequireComplete() || cfg.GetFakeExperiment() {
		t.Error("boolean options should default to false")
	}
	if cfg.GetCorrelateWorkers() != 1 {
		t.Errorf("GetCorrelateWorkers() = %d", cfg.GetCorrelateWorkers())
	}
	if cfg.GetOutputPath() != "" {
		t.Errorf("GetOutputPath() = %q", cfg.GetOutputPath())
	}
}

func TestRunConfig_ValidateErrors(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		wantErr string
	}{
		{"unknown method", `{"method_type":"fast","parameters":[{"id":"a","min":0,"max":1}]}`, "method type unknown"},
		{"no parameters", `{"method_type":"sobol","sobol_base_inputs_count":8,"parameters":[]}`, "at least one float parameter"},
		{"only non-float", `{"method_type":"sobol","sobol_base_inputs_count":8,"parameters":[{"id":"s","type":"int"}]}`, "at least one float parameter"},
		{"missing range", `{"method_type":"sobol","sobol_base_inputs_count":8,"parameters":[{"id":"a","min":0}]}`, "min and max are required"},
		{"inverted range", `{"method_type":"sobol","sobol_base_inputs_count":8,"parameters":[{"id":"a","min":2,"max":1}]}`, "exceeds max"},
		{"missing id", `{"method_type":"sobol","sobol_base_inputs_count":8,"parameters":[{"min":0,"max":1}]}`, "id is required"},
		{"missing sobol count", `{"method_type":"sobol","parameters":[{"id":"a","min":0,"max":1}]}`, "sobol_base_inputs_count"},
		{"missing morris levels", `{"method_type":"morris","morris_samples_count":4,"parameters":[{"id":"a","min":0,"max":1}]}`, "morris_levels_count"},
		{"bad poll interval", `{"method_type":"sobol","sobol_base_inputs_count":8,"parameters":[{"id":"a","min":0,"max":1}],"poll_interval":"soon"}`, "invalid poll_interval"},
		{"negative timeout", `{"method_type":"sobol","sobol_base_inputs_count":8,"parameters":[{"id":"a","min":0,"max":1}],"wait_timeout":"-1s"}`, "wait_timeout must be non-negative"},
		{"negative workers", `{"method_type":"sobol","sobol_base_inputs_count":8,"parameters":[{"id":"a","min":0,"max":1}],"workers":-1}`, "workers must be non-negative"},
		{"unknown field", `{"method_type":"sobol","sobol_base_inputs_count":8,"parameters":[{"id":"a","min":0,"max":1}],"colour":"red"}`, "unknown field"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRunConfig([]byte(tt.json), "json")
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadRunConfig_FileChecks(t *testing.T) {
	if _, err := LoadRunConfig(writeConfig(t, "run.toml", sobolJSON)); err == nil {
		t.Error("expected error for .toml extension")
	}
	if _, err := LoadRunConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}

	big := writeConfig(t, "big.json", `{"method_type":"sobol","pad":"`+strings.Repeat("x", maxFileSize)+`"}`)
	if _, err := LoadRunConfig(big); err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected size error, got %v", err)
	}
}

func TestReadRunConfig(t *testing.T) {
	cfg, err := ReadRunConfig(strings.NewReader(sobolJSON))
	if err != nil {
		t.Fatalf("ReadRunConfig: %v", err)
	}
	if cfg.GetMethod() != sensitivity.MethodSobol {
		t.Errorf("GetMethod() = %q", cfg.GetMethod())
	}

	if _, err := ReadRunConfig(strings.NewReader(strings.Repeat(" ", maxFileSize+1))); err == nil {
		t.Error("expected error for oversized stdin config")
	}
	if _, err := ParseRunConfig([]byte(sobolJSON), "toml"); err == nil {
		t.Error("expected error for unsupported format")
	}
}
