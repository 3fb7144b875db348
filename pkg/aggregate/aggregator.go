// Package aggregate implements aggregators and the Aggregate algorithm,
// including the tuple list optimizer used for distinct-count measures.
package aggregate

import (
	"math"
	"sort"
	"strings"

	"github.com/sandrolain/gomdx/pkg/calc"
)

// Aggregator is a named strategy for combining many cell values into one.
// Its rollup re-aggregates values that are already aggregated; a nil
// rollup means values cannot be combined tuple by tuple.
type Aggregator struct {
	name     string
	rollup   *Aggregator
	distinct bool
	combine  func(values []float64) (float64, bool)
}

var (
	Sum           = &Aggregator{name: "sum", combine: sum}
	Count         = &Aggregator{name: "count", combine: count}
	Min           = &Aggregator{name: "min", combine: minimum}
	Max           = &Aggregator{name: "max", combine: maximum}
	Avg           = &Aggregator{name: "avg", combine: avg}
	DistinctCount = &Aggregator{name: "distinct-count", combine: distinctCount, distinct: true}
)

func init() {
	Sum.rollup = Sum
	Count.rollup = Sum
	Min.rollup = Min
	Max.rollup = Max
}

// New defines a custom aggregator. rollup may be nil.
func New(name string, rollup *Aggregator, combine func(values []float64) (float64, bool)) *Aggregator {
	return &Aggregator{name: name, rollup: rollup, combine: combine}
}

// Lookup returns a built-in aggregator by name.
func Lookup(name string) (*Aggregator, bool) {
	switch strings.ToLower(name) {
	case "sum":
		return Sum, true
	case "count":
		return Count, true
	case "min":
		return Min, true
	case "max":
		return Max, true
	case "avg":
		return Avg, true
	case "distinct-count", "distinct count", "distinctcount":
		return DistinctCount, true
	}
	return nil, false
}

// Name returns the aggregator name.
func (a *Aggregator) Name() string { return a.name }

// Rollup returns the aggregator that re-aggregates results of a, or nil.
func (a *Aggregator) Rollup() *Aggregator { return a.rollup }

// IsDistinct reports whether a counts distinct values.
func (a *Aggregator) IsDistinct() bool { return a.distinct }

func (a *Aggregator) String() string { return a.name }

// Combine aggregates values. Nulls do not contribute; the result is nil
// when the aggregator yields no value.
func (a *Aggregator) Combine(values []any) (any, error) {
	nums := make([]float64, 0, len(values))
	for _, v := range values {
		f, ok, err := calc.Number(v)
		if err != nil {
			return nil, err
		}
		if ok {
			nums = append(nums, f)
		}
	}
	r, ok := a.combine(nums)
	if !ok {
		return nil, nil
	}
	return r, nil
}

func sum(vs []float64) (float64, bool) {
	if len(vs) == 0 {
		return 0, false
	}
	s := 0.0
	for _, v := range vs {
		s += v
	}
	return s, true
}

func count(vs []float64) (float64, bool) {
	return float64(len(vs)), true
}

func minimum(vs []float64) (float64, bool) {
	if len(vs) == 0 {
		return 0, false
	}
	m := math.Inf(1)
	for _, v := range vs {
		m = math.Min(m, v)
	}
	return m, true
}

func maximum(vs []float64) (float64, bool) {
	if len(vs) == 0 {
		return 0, false
	}
	m := math.Inf(-1)
	for _, v := range vs {
		m = math.Max(m, v)
	}
	return m, true
}

func avg(vs []float64) (float64, bool) {
	s, ok := sum(vs)
	if !ok {
		return 0, false
	}
	return s / float64(len(vs)), true
}

func distinctCount(vs []float64) (float64, bool) {
	sorted := append([]float64(nil), vs...)
	sort.Float64s(sorted)
	n := 0
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			n++
		}
	}
	return float64(n), true
}
