package evaluator

import (
	"github.com/sandrolain/gomdx/pkg/olap"
	"github.com/sandrolain/gomdx/pkg/types"
)

// NativeEvaluator computes a set function in the backing store.
type NativeEvaluator interface {
	Execute(ev *Evaluator) (*olap.TupleList, error)
}

// NativeSetHook is implemented by schema readers that can push set
// operations down. A nil result means the call is not supported and the
// engine evaluates it itself.
type NativeSetHook interface {
	NativeSetEvaluator(function string, args []types.Exp, ev *Evaluator) NativeEvaluator
}

// NativeSet asks the schema reader for a push-down evaluator of function.
func (e *Evaluator) NativeSet(function string, args []types.Exp) NativeEvaluator {
	hook, ok := e.reader.(NativeSetHook)
	if !ok {
		return nil
	}
	return hook.NativeSetEvaluator(function, args, e)
}
