package evaluator

import (
	"strconv"
	"sync"
)

// valuesPool holds scratch slices for per-tuple value collection. A calc
// node may be evaluated recursively, so scratch space cannot live on the
// node itself; each caller takes its own slice from the pool.
var valuesPool = sync.Pool{
	New: func() any {
		s := make([]any, 0, 64)
		return &s
	},
}

// AcquireValues returns an empty scratch slice.
func AcquireValues() *[]any {
	s := valuesPool.Get().(*[]any)
	*s = (*s)[:0]
	return s
}

// ReleaseValues returns s to the pool. Very large slices are dropped to
// avoid unbounded retention.
func ReleaseValues(s *[]any) {
	if cap(*s) > 64*1024 {
		return
	}
	clear(*s)
	*s = (*s)[:0]
	valuesPool.Put(s)
}

func itoa(n int) string { return strconv.Itoa(n) }
