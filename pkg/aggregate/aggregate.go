package aggregate

import (
	"github.com/sandrolain/gomdx/pkg/calc"
	"github.com/sandrolain/gomdx/pkg/evaluator"
	"github.com/sandrolain/gomdx/pkg/metrics"
	"github.com/sandrolain/gomdx/pkg/olap"
	"github.com/sandrolain/gomdx/pkg/types"
)

// MaxConstraintsKey is the configuration key bounding the predicate entries
// of one aggregation.
const MaxConstraintsKey = "max_constraints"

// Current returns the aggregator of the current measure.
func Current(ev *evaluator.Evaluator) (*Aggregator, error) {
	v, ok := ev.Property(olap.PropertyAggregationType)
	agg, isAgg := v.(*Aggregator)
	if !ok || !isAgg || agg == nil {
		return nil, types.NewError(types.ErrNoAggregator,
			"could not find an aggregator in the current evaluation context")
	}
	return agg, nil
}

// Aggregate combines valueCalc evaluated at each tuple of list using the
// aggregator of the current measure.
//
// Distinct-count and average measures cannot be rolled up tuple by tuple:
// the list (optimized for distinct count unless the dialect accepts
// unlimited value lists) is pushed as a deferred aggregation. The deferred
// is returned as is when the evaluator defers aggregations, and resolved
// otherwise.
func Aggregate(ev *evaluator.Evaluator, list *olap.TupleList, valueCalc calc.Calc) (any, error) {
	agg, err := Current(ev)
	if err != nil {
		return nil, err
	}
	if agg.IsDistinct() || agg == Avg {
		return aggregateDeferred(ev, agg, list)
	}
	rollup := agg.Rollup()
	if rollup == nil {
		return nil, types.Errorf(types.ErrNoRollup, "don't know how to rollup aggregator '%s'", agg)
	}
	tok := ev.Savepoint()
	defer ev.Restore(tok)
	ev.SetNonEmpty(false)
	return Over(ev, list, valueCalc, rollup)
}

func aggregateDeferred(ev *evaluator.Evaluator, agg *Aggregator, list *olap.TupleList) (any, error) {
	if list.Len() == 0 {
		return nil, nil
	}
	if agg.IsDistinct() {
		if !ev.SupportsUnlimitedValueList() {
			var err error
			if list, err = OptimizeTupleList(ev, list); err != nil {
				return nil, err
			}
		}
		if err := CheckSize(ev, list); err != nil {
			return nil, err
		}
	}
	tok := ev.Savepoint()
	defer ev.Restore(tok)
	ev.SetNonEmpty(false)
	d := ev.PushAggregation(list)
	metrics.DeferredAggregationsTotal.WithLabelValues(agg.Name()).Inc()
	if ev.DeferAggregations() {
		return d, nil
	}
	return d.Resolve(ev.Context())
}

// CheckSize fails when list holds more predicate entries than the
// configured limit.
func CheckSize(ev *evaluator.Evaluator, list *olap.TupleList) error {
	limit := ev.MaxConstraints()
	if limit > 0 && list.Len() > limit {
		return types.Errorf(types.ErrAggregationTooLarge,
			"aggregation is not supported over a list with more than %d predicates (see property %s)",
			limit, MaxConstraintsKey)
	}
	return nil
}

// Over evaluates c at every tuple of it and combines the values with agg.
// Each tuple is evaluated in its own scope.
func Over(ev *evaluator.Evaluator, it olap.TupleIterable, c calc.Calc, agg *Aggregator) (any, error) {
	values := evaluator.AcquireValues()
	defer evaluator.ReleaseValues(values)
	if err := Each(ev, it, func(olap.Tuple) error {
		v, err := c.Evaluate(ev)
		if err == nil {
			v, err = Value(ev.Context(), v)
		}
		if err != nil {
			return err
		}
		*values = append(*values, v)
		return nil
	}); err != nil {
		return nil, err
	}
	return agg.Combine(*values)
}

// CountOf counts the tuples of it. With includeEmpty false, tuples whose
// value under c is null are skipped.
func CountOf(ev *evaluator.Evaluator, it olap.TupleIterable, c calc.Calc, includeEmpty bool) (int, error) {
	n := 0
	err := Each(ev, it, func(olap.Tuple) error {
		if includeEmpty || c == nil {
			n++
			return nil
		}
		v, err := c.Evaluate(ev)
		if err != nil {
			return err
		}
		if v != nil {
			n++
		}
		return nil
	})
	return n, err
}

// Each calls fn once per tuple of it with the tuple set as context. The
// context is restored after every call, and cancellation is checked before
// each one.
func Each(ev *evaluator.Evaluator, it olap.TupleIterable, fn func(t olap.Tuple) error) error {
	cur := it.Cursor()
	for cur.Next() {
		if err := ev.Err(); err != nil {
			return err
		}
		t := cur.Current()
		tok := ev.Savepoint()
		ev.SetContextTuple(t)
		err := fn(t)
		ev.Restore(tok)
		if err != nil {
			return err
		}
	}
	return cur.Err()
}
