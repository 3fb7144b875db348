package calc

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sandrolain/gomdx/pkg/evaluator"
	"github.com/sandrolain/gomdx/pkg/olap"
	"github.com/sandrolain/gomdx/pkg/types"
)

// ToDouble converts a boxed value to a number. ok is false for null. A
// deferred aggregation is resolved first.
func ToDouble(ctx context.Context, v any) (float64, bool, error) {
	v, err := resolve(ctx, v)
	if err != nil {
		return 0, false, err
	}
	return Number(v)
}

// Number converts a boxed scalar to a number without resolving deferred
// aggregations. ok is false for null.
func Number(v any) (float64, bool, error) {
	switch x := v.(type) {
	case nil:
		return 0, false, nil
	case float64:
		return x, true, nil
	case int:
		return float64(x), true, nil
	case int64:
		return float64(x), true, nil
	case bool:
		if x {
			return 1, true, nil
		}
		return 0, true, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false, types.Errorf(types.ErrConversion, "cannot convert %q to a number", x).WithCause(err)
		}
		return f, true, nil
	}
	return 0, false, types.Errorf(types.ErrConversion, "cannot convert %T to a number", v)
}

// ToString converts a boxed value to a string; null becomes "".
func ToString(ctx context.Context, v any) (string, error) {
	v, err := resolve(ctx, v)
	if err != nil {
		return "", err
	}
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(x), nil
	case bool:
		return strconv.FormatBool(x), nil
	case *olap.Member:
		return x.UniqueName, nil
	case fmt.Stringer:
		return x.String(), nil
	}
	return fmt.Sprint(v), nil
}

// ToBoolean converts a boxed value to a logical value; null is false.
func ToBoolean(ctx context.Context, v any) (bool, error) {
	v, err := resolve(ctx, v)
	if err != nil {
		return false, err
	}
	switch x := v.(type) {
	case nil:
		return false, nil
	case bool:
		return x, nil
	case string:
		b, err := strconv.ParseBool(x)
		if err != nil {
			return false, types.Errorf(types.ErrConversion, "cannot convert %q to a logical value", x)
		}
		return b, nil
	}
	f, ok, err := Number(v)
	if err != nil {
		return false, err
	}
	return ok && f != 0, nil
}

func resolve(ctx context.Context, v any) (any, error) {
	if d, ok := v.(*evaluator.Deferred); ok {
		return d.Resolve(ctx)
	}
	return v, nil
}

// Compare orders two scalar values: null first, then numbers, then
// strings.
func Compare(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		}
		return 1
	}
	as, aStr := a.(string)
	bs, bStr := b.(string)
	if aStr && bStr {
		return strings.Compare(as, bs)
	}
	af, aok, aerr := Number(a)
	bf, bok, berr := Number(b)
	if aerr != nil || berr != nil || !aok || !bok {
		if aStr {
			return 1
		}
		if bStr {
			return -1
		}
		return 0
	}
	switch {
	case af < bf:
		return -1
	case af > bf:
		return 1
	}
	return 0
}
