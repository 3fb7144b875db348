package compiler

import (
	"errors"

	"github.com/sandrolain/gomdx/pkg/functions"
	"github.com/sandrolain/gomdx/pkg/metrics"
	"github.com/sandrolain/gomdx/pkg/types"
)

// Validate resolves every call of exp bottom-up, replacing each
// *types.Call with a *functions.ResolvedCall bound to one definition and
// carrying its result type. exp itself is not modified.
func (c *Compiler) Validate(exp types.Exp) (types.Exp, error) {
	switch e := exp.(type) {
	case *types.Call:
		args := make([]types.Exp, len(e.Args))
		for i, a := range e.Args {
			v, err := c.Validate(a)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		def, err := c.catalog.Resolve(e.Name, e.Syntax, args)
		if err != nil {
			metrics.ResolutionFailuresTotal.WithLabelValues(string(types.CodeOf(err))).Inc()
			return nil, atPosition(err, e.Position)
		}
		typ, err := def.ResultType(args)
		if err != nil {
			return nil, atPosition(withFunction(err, def.Name()), e.Position)
		}
		rc := functions.NewResolvedCall(def, args, typ)
		rc.Position = e.Position
		if c.opts.Debug {
			c.logger.Debug("resolved call",
				"call", e.String(),
				"signature", def.Signature().Format(def.Name()),
				"type", typ.String())
		}
		return rc, nil
	case nil:
		return nil, types.NewError(types.ErrInternal, "nil expression")
	}
	return exp, nil
}

// atPosition records pos on an engine error that does not have one yet.
func atPosition(err error, pos int) error {
	var e *types.Error
	if errors.As(err, &e) && e.Position < 0 {
		e.Position = pos
	}
	return err
}

func withFunction(err error, name string) error {
	var e *types.Error
	if errors.As(err, &e) && e.Function == "" {
		e.Function = name
	}
	return err
}
