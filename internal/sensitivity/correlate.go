package sensitivity

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/sensitivity.report/internal/monitoring"
)

// Correlation is the outcome of joining design points with output records.
// Matched and Unmatched both follow the original point order.
type Correlation struct {
	Matched   []OutputPoint
	Unmatched []PointID
}

// MatchedInputs returns the input points that were matched, in order, so
// inputs and outputs can be handed to the sensitivity computation together.
func (c Correlation) MatchedInputs(points []InputPoint) []InputPoint {
	byID := make(map[PointID]InputPoint, len(points))
	for _, p := range points {
		byID[p.ID] = p
	}
	out := make([]InputPoint, 0, len(c.Matched))
	for _, m := range c.Matched {
		out = append(out, byID[m.ID])
	}
	return out
}

type correlateConfig struct {
	workers int
	logf    func(format string, v ...interface{})
}

// CorrelateOption configures Correlate.
type CorrelateOption func(*correlateConfig)

// WithWorkers matches points on n goroutines. The record index is built
// once and only read while matching, and results are merged by point
// order, so the outcome is identical to the sequential path.
func WithWorkers(n int) CorrelateOption {
	return func(c *correlateConfig) { c.workers = n }
}

// WithCorrelateLogger sets the logger used for per-point miss lines.
func WithCorrelateLogger(logf func(format string, v ...interface{})) CorrelateOption {
	return func(c *correlateConfig) { c.logf = logf }
}

// OutputIDs returns the output variable ids of a run: the key order of the
// first record's outputs. It is computed once and reused for every record.
func OutputIDs(records []OutputRecord) []string {
	if len(records) == 0 {
		return nil
	}
	return records[0].Outputs.Keys()
}

// Correlate matches every point to the first record, in records order, whose
// inputs projected over the parameter ids equal the point's values exactly.
// A point with no such record, or whose record lacks one of outputIDs, is
// reported in Unmatched. Unmatched points never cause an error; an error is
// returned only for points whose value count disagrees with params.
func Correlate(params ParameterSet, points []InputPoint, records []OutputRecord, outputIDs []string, opts ...CorrelateOption) (Correlation, error) {
	cfg := correlateConfig{workers: 1, logf: monitoring.Logf}
	for _, opt := range opts {
		opt(&cfg)
	}

	paramIDs := params.IDs()
	for _, p := range points {
		if len(p.Values) != len(paramIDs) {
			return Correlation{}, fmt.Errorf("point %d: %d values for %d parameters", p.ID, len(p.Values), len(paramIDs))
		}
	}

	idx := buildRecordIndex(paramIDs, records)
	matches := make([]pointMatch, len(points))
	matchRange := func(lo, hi int) {
		for i := lo; i < hi; i++ {
			matches[i] = idx.match(points[i], records, outputIDs)
		}
	}

	if cfg.workers > 1 && len(points) > cfg.workers {
		var g errgroup.Group
		chunk := (len(points) + cfg.workers - 1) / cfg.workers
		for lo := 0; lo < len(points); lo += chunk {
			lo, hi := lo, min(lo+chunk, len(points))
			g.Go(func() error {
				matchRange(lo, hi)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		matchRange(0, len(points))
	}

	var c Correlation
	for i, m := range matches {
		if m.reason != "" {
			cfg.logf("Result not found for %d: %s", points[i].ID, m.reason)
			c.Unmatched = append(c.Unmatched, points[i].ID)
			continue
		}
		c.Matched = append(c.Matched, m.output)
	}
	return c, nil
}

type pointMatch struct {
	output OutputPoint
	reason string
}

// recordIndex is a content-addressed index over record input vectors.
// Buckets hold record positions in scan order so the first equal record
// found in a bucket is the first in the records slice.
type recordIndex struct {
	buckets map[uint64][]int
	inputs  [][]float64
}

func buildRecordIndex(paramIDs []string, records []OutputRecord) *recordIndex {
	idx := &recordIndex{
		buckets: make(map[uint64][]int, len(records)),
		inputs:  make([][]float64, len(records)),
	}
	for i, r := range records {
		values, missing, ok := r.Inputs.Project(paramIDs)
		if !ok {
			monitoring.Debugf("record %d lacks input %q, excluded from correlation", i, missing)
			continue
		}
		key, ok := vectorKey(values)
		if !ok {
			continue
		}
		idx.inputs[i] = values
		idx.buckets[key] = append(idx.buckets[key], i)
	}
	return idx
}

// lookup returns the position of the first record equal to values, or -1.
func (idx *recordIndex) lookup(values []float64) int {
	key, ok := vectorKey(values)
	if !ok {
		return -1
	}
	for _, ri := range idx.buckets[key] {
		if floats.Equal(idx.inputs[ri], values) {
			return ri
		}
	}
	return -1
}

func (idx *recordIndex) match(p InputPoint, records []OutputRecord, outputIDs []string) pointMatch {
	ri := idx.lookup(p.Values)
	if ri < 0 {
		return pointMatch{reason: "no record with equal inputs"}
	}
	values, missing, ok := records[ri].Outputs.Project(outputIDs)
	if !ok {
		return pointMatch{reason: fmt.Sprintf("record has no value for output %q", missing)}
	}
	return pointMatch{output: OutputPoint{ID: p.ID, Values: values}}
}

// vectorKey hashes the bit patterns of values. Negative zero is folded into
// positive zero so the key agrees with == comparison. Vectors containing
// NaN equal nothing and get no key.
func vectorKey(values []float64) (uint64, bool) {
	buf := make([]byte, 8*len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			return 0, false
		}
		if v == 0 {
			v = 0
		}
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return xxhash.Sum64(buf), true
}
