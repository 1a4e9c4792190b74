package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/banshee-data/sensitivity.report/internal/monitoring"
	"github.com/banshee-data/sensitivity.report/internal/sensitivity"
	"github.com/banshee-data/sensitivity.report/internal/shell"
)

// DefaultCommand runs the bundled SALib bridge.
const DefaultCommand = "python3 scripts/salib_bridge.py"

const (
	actionGenerate = "generate"
	actionAnalyze  = "analyze"
)

type request struct {
	Action     string                    `json:"action"`
	Method     sensitivity.Method        `json:"method"`
	Parameters []sensitivity.Parameter   `json:"parameters"`
	Settings   Settings                  `json:"settings"`
	Inputs     []sensitivity.InputPoint  `json:"inputs,omitempty"`
	Outputs    []sensitivity.OutputPoint `json:"outputs,omitempty"`
	OutputIDs  []string                  `json:"output_ids,omitempty"`
}

type generateResponse struct {
	Points []sensitivity.InputPoint `json:"points"`
}

type analyzeResponse struct {
	Method  sensitivity.Method `json:"method"`
	Results json.RawMessage    `json:"results"`
}

// Command is an Engine backed by an external command. Each call runs the
// command once with a JSON request on stdin and reads a JSON response from
// stdout.
type Command struct {
	run func(ctx context.Context, stdin []byte) ([]byte, error)
}

var _ Engine = (*Command)(nil)

// NewCommand returns an engine that runs command through sh -c.
func NewCommand(command string) *Command {
	e := shell.NewExecutor(command)
	e.SetLogger(monitoring.DebugLogger{})
	return &Command{run: e.Run}
}

func (c *Command) call(ctx context.Context, req request, resp interface{}) error {
	stdin, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", req.Action, err)
	}
	stdout, err := c.run(ctx, stdin)
	if err != nil {
		return fmt.Errorf("engine %s: %w", req.Action, err)
	}
	if err := json.Unmarshal(stdout, resp); err != nil {
		return fmt.Errorf("decode %s response: %w", req.Action, err)
	}
	return nil
}

// GenerateInputs asks the engine for the design points of settings.Method.
func (c *Command) GenerateInputs(ctx context.Context, params sensitivity.ParameterSet, settings Settings) ([]sensitivity.InputPoint, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	var resp generateResponse
	err := c.call(ctx, request{
		Action:     actionGenerate,
		Method:     settings.Method,
		Parameters: params.Parameters(),
		Settings:   settings,
	}, &resp)
	if err != nil {
		return nil, err
	}

	seen := make(map[sensitivity.PointID]struct{}, len(resp.Points))
	for _, p := range resp.Points {
		if len(p.Values) != params.Len() {
			return nil, fmt.Errorf("engine point %d has %d values for %d parameters", p.ID, len(p.Values), params.Len())
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("engine returned point id %d twice", p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return resp.Points, nil
}

// CalculateSensitivity asks the engine for one result per output id. The
// response is decoded into the Results type of the method it names, which
// must be settings.Method.
func (c *Command) CalculateSensitivity(
	ctx context.Context,
	params sensitivity.ParameterSet,
	settings Settings,
	inputs []sensitivity.InputPoint,
	outputs []sensitivity.OutputPoint,
	outputIDs []string,
) (sensitivity.Results, error) {
	if len(inputs) != len(outputs) {
		return nil, fmt.Errorf("%d inputs but %d outputs", len(inputs), len(outputs))
	}
	var resp analyzeResponse
	err := c.call(ctx, request{
		Action:     actionAnalyze,
		Method:     settings.Method,
		Parameters: params.Parameters(),
		Settings:   settings,
		Inputs:     inputs,
		Outputs:    outputs,
		OutputIDs:  outputIDs,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Method != settings.Method {
		return nil, &sensitivity.UnsupportedMethodError{Method: string(resp.Method)}
	}
	return DecodeResults(resp.Method, resp.Results)
}

// DecodeResults decodes a JSON array of raw results into the Results type
// of m.
func DecodeResults(m sensitivity.Method, data json.RawMessage) (sensitivity.Results, error) {
	switch m {
	case sensitivity.MethodSobol:
		var r sensitivity.SobolResults
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("decode sobol results: %w", err)
		}
		return r, nil
	case sensitivity.MethodMorris:
		var r sensitivity.MorrisResults
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("decode morris results: %w", err)
		}
		return r, nil
	default:
		return nil, &sensitivity.UnsupportedMethodError{Method: string(m)}
	}
}
