package engine

import (
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sensitivity.report/internal/sensitivity"
)

// fakeRun returns a runner that records the decoded request and replies
// with response.
func fakeRun(t *testing.T, got *request, response string) func(context.Context, []byte) ([]byte, error) {
	t.Helper()
	return func(_ context.Context, stdin []byte) ([]byte, error) {
		require.NoError(t, json.Unmarshal(stdin, got))
		return []byte(response), nil
	}
}

func testParams(t *testing.T) sensitivity.ParameterSet {
	t.Helper()
	set, err := sensitivity.NewParameterSet([]sensitivity.Parameter{
		{ID: "a", Min: 0, Max: 1},
		{ID: "b", Min: -1, Max: 1},
	})
	require.NoError(t, err)
	return set
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name    string
		s       Settings
		wantErr bool
	}{
		{"sobol", Settings{Method: sensitivity.MethodSobol, SobolBaseInputsCount: 64}, false},
		{"sobol without count", Settings{Method: sensitivity.MethodSobol}, true},
		{"morris", Settings{Method: sensitivity.MethodMorris, MorrisSamplesCount: 10, MorrisLevelsCount: 4}, false},
		{"morris one level", Settings{Method: sensitivity.MethodMorris, MorrisSamplesCount: 10, MorrisLevelsCount: 1}, true},
		{"morris without samples", Settings{Method: sensitivity.MethodMorris, MorrisLevelsCount: 4}, true},
		{"unknown method", Settings{Method: "fast"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	err := Settings{Method: "fast"}.Validate()
	assert.ErrorIs(t, err, sensitivity.ErrUnsupportedMethod)
}

func TestSettings_ExpectedPoints(t *testing.T) {
	assert.Equal(t, 64*4, Settings{Method: sensitivity.MethodSobol, SobolBaseInputsCount: 64}.ExpectedPoints(2))
	assert.Equal(t, 10*3, Settings{Method: sensitivity.MethodMorris, MorrisSamplesCount: 10}.ExpectedPoints(2))
	assert.Equal(t, 0, Settings{}.ExpectedPoints(2))
}

func TestCommand_GenerateInputs(t *testing.T) {
	var req request
	c := &Command{run: fakeRun(t, &req, `{"points":[{"id":0,"values":[0.1,0.2]},{"id":1,"values":[0.3,-0.4]}]}`)}
	settings := Settings{Method: sensitivity.MethodSobol, SobolBaseInputsCount: 8, Seed: 3}

	points, err := c.GenerateInputs(context.Background(), testParams(t), settings)
	require.NoError(t, err)

	want := []sensitivity.InputPoint{
		{ID: 0, Values: []float64{0.1, 0.2}},
		{ID: 1, Values: []float64{0.3, -0.4}},
	}
	if diff := cmp.Diff(want, points); diff != "" {
		t.Errorf("GenerateInputs mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, actionGenerate, req.Action)
	assert.Equal(t, sensitivity.MethodSobol, req.Method)
	assert.Equal(t, 8, req.Settings.SobolBaseInputsCount)
	assert.Equal(t, int64(3), req.Settings.Seed)
	assert.Equal(t, []string{"a", "b"}, []string{req.Parameters[0].ID, req.Parameters[1].ID})
}

func TestCommand_GenerateInputsRejectsBadDesign(t *testing.T) {
	settings := Settings{Method: sensitivity.MethodSobol, SobolBaseInputsCount: 8}
	for name, resp := range map[string]string{
		"short point":  `{"points":[{"id":0,"values":[0.1]}]}`,
		"duplicate id": `{"points":[{"id":0,"values":[0.1,0.2]},{"id":0,"values":[0.3,0.4]}]}`,
		"not json":     `Traceback (most recent call last)`,
	} {
		var req request
		c := &Command{run: fakeRun(t, &req, resp)}
		_, err := c.GenerateInputs(context.Background(), testParams(t), settings)
		assert.Error(t, err, name)
	}

	c := &Command{run: func(context.Context, []byte) ([]byte, error) { return nil, errors.New("exit status 1") }}
	_, err := c.GenerateInputs(context.Background(), testParams(t), settings)
	assert.ErrorContains(t, err, "engine generate")

	_, err = c.GenerateInputs(context.Background(), testParams(t), Settings{Method: sensitivity.MethodSobol})
	assert.ErrorContains(t, err, "sobol_base_inputs_count")
}

func TestCommand_CalculateSensitivitySobol(t *testing.T) {
	var req request
	c := &Command{run: fakeRun(t, &req, `{"method":"sobol","results":[
		{"sensitivity_indices":[{"parameter":0,"value":0.1},{"parameter":1,"value":0.4}],
		 "total_effect_indices":[{"parameter":0,"value":0.3},{"parameter":1,"value":0.6}]}]}`)}
	settings := Settings{Method: sensitivity.MethodSobol, SobolBaseInputsCount: 8}

	inputs := []sensitivity.InputPoint{{ID: 0, Values: []float64{0.1, 0.2}}}
	outputs := []sensitivity.OutputPoint{{ID: 0, Values: []float64{3.7}}}
	results, err := c.CalculateSensitivity(context.Background(), testParams(t), settings, inputs, outputs, []string{"y"})
	require.NoError(t, err)

	sobol, ok := results.(sensitivity.SobolResults)
	require.True(t, ok, "got %T", results)
	require.Equal(t, 1, sobol.Len())
	assert.Equal(t, sensitivity.Series{{ParameterID: 0, Value: 0.3}, {ParameterID: 1, Value: 0.6}}, sobol[0].TotalEffectIndices)

	assert.Equal(t, actionAnalyze, req.Action)
	assert.Equal(t, []string{"y"}, req.OutputIDs)
	assert.Equal(t, outputs, req.Outputs)
	assert.Equal(t, inputs, req.Inputs)
}

func TestCommand_CalculateSensitivityMorris(t *testing.T) {
	var req request
	c := &Command{run: fakeRun(t, &req, `{"method":"morris","results":[{"normalized_absolute_means":[{"parameter":0,"value":1}]},{}]}`)}
	settings := Settings{Method: sensitivity.MethodMorris, MorrisSamplesCount: 2, MorrisLevelsCount: 4}

	results, err := c.CalculateSensitivity(context.Background(), testParams(t), settings, nil, nil, []string{"y1", "y2"})
	require.NoError(t, err)
	assert.Equal(t, sensitivity.MethodMorris, results.Method())
	assert.Equal(t, 2, results.Len())
}

func TestCommand_CalculateSensitivityErrors(t *testing.T) {
	settings := Settings{Method: sensitivity.MethodSobol, SobolBaseInputsCount: 8}

	var req request
	c := &Command{run: fakeRun(t, &req, `{"method":"morris","results":[]}`)}
	_, err := c.CalculateSensitivity(context.Background(), testParams(t), settings, nil, nil, nil)
	assert.ErrorIs(t, err, sensitivity.ErrUnsupportedMethod)

	_, err = c.CalculateSensitivity(context.Background(), testParams(t), settings,
		[]sensitivity.InputPoint{{ID: 0}}, nil, nil)
	assert.Error(t, err)
}

func TestDecodeResults(t *testing.T) {
	_, err := DecodeResults("fast", json.RawMessage(`[]`))
	assert.ErrorIs(t, err, sensitivity.ErrUnsupportedMethod)

	_, err = DecodeResults(sensitivity.MethodSobol, json.RawMessage(`{"not":"an array"}`))
	assert.Error(t, err)
}

func TestNewCommand_RunsThroughShell(t *testing.T) {
	c := NewCommand(`cat >/dev/null; echo '{"points":[{"id":4,"values":[1,2]}]}'`)
	points, err := c.GenerateInputs(context.Background(), testParams(t),
		Settings{Method: sensitivity.MethodSobol, SobolBaseInputsCount: 1})
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, sensitivity.PointID(4), points[0].ID)
}

// bridgeCommand returns the command running the bundled bridge script, or
// skips when python3 with SALib is not installed.
func bridgeCommand(t *testing.T) string {
	t.Helper()
	if err := exec.Command("python3", "-c", "import numpy, SALib").Run(); err != nil {
		t.Skipf("python3 with SALib not available: %v", err)
	}
	script, err := filepath.Abs(filepath.Join("..", "..", "scripts", "salib_bridge.py"))
	require.NoError(t, err)
	return "python3 " + script
}

func TestBridge_ConstantOutputGivesFiniteIndices(t *testing.T) {
	c := NewCommand(bridgeCommand(t))
	ctx := context.Background()
	params := testParams(t)
	settings := Settings{Method: sensitivity.MethodSobol, SobolBaseInputsCount: 8, Seed: 1}

	inputs, err := c.GenerateInputs(ctx, params, settings)
	require.NoError(t, err)
	require.Len(t, inputs, settings.ExpectedPoints(params.Len()))

	outputs := make([]sensitivity.OutputPoint, len(inputs))
	for i, p := range inputs {
		outputs[i] = sensitivity.OutputPoint{ID: p.ID, Values: []float64{1}}
	}
	results, err := c.CalculateSensitivity(ctx, params, settings, inputs, outputs, []string{"y"})
	require.NoError(t, err)
	require.Equal(t, 1, results.Len())

	sobol := results.At(0).(sensitivity.SobolResult)
	for _, s := range []sensitivity.Series{sobol.SensitivityIndices, sobol.TotalEffectIndices} {
		require.Len(t, s, params.Len())
		for _, iv := range s {
			assert.Equal(t, 0.0, iv.Value)
		}
	}
}
