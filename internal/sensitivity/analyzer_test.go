package sensitivity

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSobolAnalyzer_MoeResult(t *testing.T) {
	raw := SobolResult{
		SensitivityIndices: Series{{ParameterID: 0, Value: 0.1}, {ParameterID: 1, Value: 0.4}},
		TotalEffectIndices: Series{{ParameterID: 1, Value: 0.6}, {ParameterID: 0, Value: 0.3}},
	}

	got, err := NewSobolAnalyzer().MoeResult(raw, []string{"a", "b"})
	if err != nil {
		t.Fatalf("MoeResult: %v", err)
	}

	want := ParameterStats{
		{ParameterID: "a", Statistics: []Statistic{{StatSensitivityIndices, 0.1}, {StatTotalEffectIndices, 0.3}}},
		{ParameterID: "b", Statistics: []Statistic{{StatSensitivityIndices, 0.4}, {StatTotalEffectIndices, 0.6}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("MoeResult mismatch (-want +got):\n%s", diff)
	}
}

func TestMorrisAnalyzer_MoeResult(t *testing.T) {
	raw := &MorrisResult{
		NormalizedAbsoluteMeans:              Series{{0, 0.9}, {1, 0.1}},
		NormalizedMeans:                      Series{{0, -0.8}, {1, 0.05}},
		NormalizedAbsoluteStandardDeviations: Series{{0, 0.2}, {1, 0.02}},
		NormalizedStandardDeviations:         Series{{0, 0.3}, {1, 0.03}},
	}

	got, err := NewMorrisAnalyzer().MoeResult(raw, []string{"x1", "x2"})
	if err != nil {
		t.Fatalf("MoeResult: %v", err)
	}

	checks := []struct {
		param, stat string
		want        float64
	}{
		{"x1", StatAbsoluteMean, 0.9},
		{"x1", StatMean, -0.8},
		{"x1", StatAbsoluteStandardDeviation, 0.2},
		{"x1", StatStandardDeviation, 0.3},
		{"x2", StatAbsoluteMean, 0.1},
		{"x2", StatStandardDeviation, 0.03},
	}
	for _, c := range checks {
		v, ok := got.Get(c.param, c.stat)
		if !ok || v != c.want {
			t.Errorf("Get(%s, %s) = %v, %v; want %v", c.param, c.stat, v, ok, c.want)
		}
	}
}

func TestAnalyzer_MissingEntryPolicy(t *testing.T) {
	raw := SobolResult{
		SensitivityIndices: Series{{ParameterID: 0, Value: 0.5}},
		TotalEffectIndices: Series{{ParameterID: 0, Value: 0.7}, {ParameterID: 1, Value: 0.2}},
	}

	got, err := NewSobolAnalyzer().MoeResult(raw, []string{"a", "b"})
	if err != nil {
		t.Fatalf("MissingZero: %v", err)
	}
	if v, ok := got.Get("b", StatSensitivityIndices); !ok || v != 0 {
		t.Errorf("MissingZero: b sensitivity = %v, %v; want 0, true", v, ok)
	}

	_, err = NewSobolAnalyzer(WithMissingPolicy(MissingFail)).MoeResult(raw, []string{"a", "b"})
	if !errors.Is(err, ErrMissingStatistic) {
		t.Fatalf("MissingFail error = %v, want ErrMissingStatistic", err)
	}
	var mse *MissingStatisticError
	if !errors.As(err, &mse) || mse.Parameter != "b" || mse.Statistic != StatSensitivityIndices || mse.Index != 1 {
		t.Errorf("unexpected MissingStatisticError: %+v", mse)
	}
}

func TestAnalyzer_DuplicateIndexFirstWins(t *testing.T) {
	raw := SobolResult{
		SensitivityIndices: Series{{0, 0.1}, {0, 0.9}},
		TotalEffectIndices: Series{{0, 0.2}},
	}
	got, err := NewSobolAnalyzer().MoeResult(raw, []string{"a"})
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := got.Get("a", StatSensitivityIndices); v != 0.1 {
		t.Errorf("duplicate index: got %v, want 0.1", v)
	}
}

func TestAnalyzer_WrongResultKind(t *testing.T) {
	_, err := NewSobolAnalyzer().MoeResult(MorrisResult{}, []string{"a"})
	if !errors.Is(err, ErrUnsupportedMethod) {
		t.Errorf("error = %v, want ErrUnsupportedMethod", err)
	}
	if _, err := NewMorrisAnalyzer().MoeResult(nil, []string{"a"}); err == nil {
		t.Error("expected error for nil result")
	}
}

func TestSelectAnalyzer(t *testing.T) {
	wantStats := map[Method][]string{
		MethodSobol:  {StatSensitivityIndices, StatTotalEffectIndices},
		MethodMorris: {StatAbsoluteMean, StatMean, StatAbsoluteStandardDeviation, StatStandardDeviation},
	}
	for m, stats := range wantStats {
		a, err := SelectAnalyzer(m)
		if err != nil {
			t.Fatalf("SelectAnalyzer(%s): %v", m, err)
		}
		if a.Method() != m {
			t.Errorf("SelectAnalyzer(%s).Method() = %s", m, a.Method())
		}
		if diff := cmp.Diff(stats, a.Statistics()); diff != "" {
			t.Errorf("%s statistics (-want +got):\n%s", m, diff)
		}
	}

	for _, m := range []Method{"", "fast", "SOBOL"} {
		if _, err := SelectAnalyzer(m); !errors.Is(err, ErrUnsupportedMethod) {
			t.Errorf("SelectAnalyzer(%q) error = %v, want ErrUnsupportedMethod", m, err)
		}
	}
}
