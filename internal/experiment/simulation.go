package experiment

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/banshee-data/sensitivity.report/internal/monitoring"
	"github.com/banshee-data/sensitivity.report/internal/sensitivity"
	"github.com/banshee-data/sensitivity.report/internal/shell"
)

// Simulation computes the outputs of one point. Inputs are keyed by
// parameter id in parameter order.
type Simulation interface {
	Run(ctx context.Context, inputs sensitivity.ValuesMap) (sensitivity.ValuesMap, error)
}

// SimulationFunc adapts a function to Simulation.
type SimulationFunc func(ctx context.Context, inputs sensitivity.ValuesMap) (sensitivity.ValuesMap, error)

// Run calls f.
func (f SimulationFunc) Run(ctx context.Context, inputs sensitivity.ValuesMap) (sensitivity.ValuesMap, error) {
	return f(ctx, inputs)
}

// ModelDefinition describes a registered builtin model.
type ModelDefinition struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Outputs     []string `json:"outputs"`
	// MinInputs is the number of parameters the model needs.
	MinInputs int `json:"min_inputs"`
	// Eval maps input values, in parameter order, to Outputs values.
	Eval func(x []float64) []float64 `json:"-"`
}

// Run evaluates the model for one point.
func (d *ModelDefinition) Run(ctx context.Context, inputs sensitivity.ValuesMap) (sensitivity.ValuesMap, error) {
	if err := ctx.Err(); err != nil {
		return sensitivity.ValuesMap{}, err
	}
	keys := inputs.Keys()
	if len(keys) < d.MinInputs {
		return sensitivity.ValuesMap{}, fmt.Errorf("model %s needs %d inputs, got %d", d.Name, d.MinInputs, len(keys))
	}
	x, _, _ := inputs.Project(keys)
	return sensitivity.NewValuesMap(d.Outputs, d.Eval(x))
}

// ModelRegistry holds the builtin simulation models.
type ModelRegistry struct {
	mu     sync.RWMutex
	models map[string]*ModelDefinition
}

// NewModelRegistry creates a new empty model registry.
func NewModelRegistry() *ModelRegistry {
	return &ModelRegistry{models: make(map[string]*ModelDefinition)}
}

// Register adds a model to the registry, replacing one of the same name.
func (r *ModelRegistry) Register(def *ModelDefinition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[def.Name] = def
}

// Get retrieves a model by name.
func (r *ModelRegistry) Get(name string) (*ModelDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.models[name]
	return def, ok
}

// List returns the registered models sorted by name.
func (r *ModelRegistry) List() []*ModelDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]*ModelDefinition, 0, len(r.models))
	for _, def := range r.models {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// DefaultModelRegistry returns a registry pre-loaded with the builtin models.
func DefaultModelRegistry() *ModelRegistry {
	reg := NewModelRegistry()

	reg.Register(&ModelDefinition{
		Name: "ishigami",
		Description: "Ishigami function sin(x1) + 7 sin²(x2) + 0.1 x3⁴ sin(x1) " +
			"over the first three parameters, usually sampled on [-π, π].",
		Outputs:   []string{"y"},
		MinInputs: 3,
		Eval: func(x []float64) []float64 {
			const a, b = 7.0, 0.1
			s2 := math.Sin(x[1])
			return []float64{math.Sin(x[0]) + a*s2*s2 + b*math.Pow(x[2], 4)*math.Sin(x[0])}
		},
	})

	reg.Register(&ModelDefinition{
		Name:        "linear",
		Description: "Weighted sum y = Σ (i+1)·xᵢ; each parameter's share grows with its position.",
		Outputs:     []string{"y"},
		MinInputs:   1,
		Eval: func(x []float64) []float64 {
			var y float64
			for i, v := range x {
				y += float64(i+1) * v
			}
			return []float64{y}
		},
	})

	reg.Register(&ModelDefinition{
		Name:        "sum_of_squares",
		Description: "Two outputs: sum_sq = Σ xᵢ² and sum = Σ xᵢ.",
		Outputs:     []string{"sum_sq", "sum"},
		MinInputs:   1,
		Eval: func(x []float64) []float64 {
			var sq, sum float64
			for _, v := range x {
				sq += v * v
				sum += v
			}
			return []float64{sq, sum}
		},
	})

	return reg
}

// CommandSimulation runs an external command per point. The command reads
// the inputs as a JSON object on stdin and writes a JSON object of outputs
// on stdout.
type CommandSimulation struct {
	exec *shell.Executor
}

// NewCommandSimulation returns a simulation running command through sh -c.
func NewCommandSimulation(command string) *CommandSimulation {
	e := shell.NewExecutor(command)
	e.SetLogger(monitoring.DebugLogger{})
	return &CommandSimulation{exec: e}
}

// Run executes the command for one point.
func (c *CommandSimulation) Run(ctx context.Context, inputs sensitivity.ValuesMap) (sensitivity.ValuesMap, error) {
	stdin, err := json.Marshal(inputs)
	if err != nil {
		return sensitivity.ValuesMap{}, fmt.Errorf("encode inputs: %w", err)
	}
	stdout, err := c.exec.Run(ctx, stdin)
	if err != nil {
		return sensitivity.ValuesMap{}, err
	}
	var outputs sensitivity.ValuesMap
	if err := json.Unmarshal(stdout, &outputs); err != nil {
		return sensitivity.ValuesMap{}, fmt.Errorf("decode simulation output: %w", err)
	}
	if outputs.Len() == 0 {
		return sensitivity.ValuesMap{}, fmt.Errorf("simulation produced no outputs")
	}
	return outputs, nil
}

// ResolveSimulation returns the simulation for a run: the external command
// when one is configured, otherwise the named builtin model.
func ResolveSimulation(reg *ModelRegistry, simulationID, command string) (Simulation, error) {
	if command != "" {
		return NewCommandSimulation(command), nil
	}
	def, ok := reg.Get(simulationID)
	if !ok {
		return nil, fmt.Errorf("unknown simulation %q", simulationID)
	}
	return def, nil
}
