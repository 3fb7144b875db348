package evaluator

import (
	"context"
	"sync"

	"github.com/sandrolain/gomdx/pkg/olap"
	"github.com/sandrolain/gomdx/pkg/types"
)

// Deferred is an aggregation captured by PushAggregation and not yet
// computed. It is resolved either on demand, by Resolve, or by a batching
// layer that calls Fill with a value it obtained elsewhere.
type Deferred struct {
	cells olap.CellReader
	req   olap.AggregationRequest

	mu       sync.Mutex
	resolved bool
	value    any
	err      error
}

// Request returns the aggregation request the deferred stands for.
func (d *Deferred) Request() olap.AggregationRequest { return d.req }

// Resolved reports whether a value is available.
func (d *Deferred) Resolved() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.resolved
}

// Resolve computes the aggregation through the cell reader, once. The
// deferred may outlive the evaluation that pushed it, so ctx is the
// caller's.
func (d *Deferred) Resolve(ctx context.Context) (any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.resolved {
		return d.value, d.err
	}
	if d.cells == nil {
		return nil, types.NewError(types.ErrInternal, "deferred aggregation without a cell reader")
	}
	d.value, d.err = d.cells.Aggregate(ctx, d.req)
	d.resolved = true
	return d.value, d.err
}

// Fill sets the result of the deferred.
func (d *Deferred) Fill(v any, err error) {
	d.mu.Lock()
	d.value, d.err, d.resolved = v, err, true
	d.mu.Unlock()
}

func (d *Deferred) String() string {
	n := 0
	if d.req.Tuples != nil {
		n = d.req.Tuples.Len()
	}
	return "Deferred{" + d.req.Measure.String() + ", tuples=" + itoa(n) + "}"
}
