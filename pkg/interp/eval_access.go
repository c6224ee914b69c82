package interp

import (
	"context"
	"fmt"

	"github.com/kaspervalen/goq/pkg/types"
	"github.com/kaspervalen/goq/pkg/value"
)

// evalKey implements Key(k) (spec.md §4.3 "Access"). Missing keys and
// non-object/non-null access would, in a strict design, raise
// EvalError::KeyMissing; this core follows jq's own convention (spec.md
// §9 "Open question — missing keys") and the explicit §4.3 wording
// ("yields the value at k or null if absent") by folding a missing key
// straight to null rather than raising ErrKeyMissing at all. The code
// stays in the error taxonomy for `?` to suppress, should a future
// strict mode want to raise it.
func (e *Evaluator) evalKey(ctx context.Context, node *types.ASTNode, input value.Value) (Stream, error) {
	switch v := input.(type) {
	case *value.Object:
		if val, ok := v.Get(node.Key); ok {
			return single(val), nil
		}
		return single(value.NullValue), nil
	case value.Null:
		return single(value.NullValue), nil
	default:
		return nil, types.NewError(types.ErrType,
			fmt.Sprintf("cannot index %s with %q", value.TypeName(input), node.Key), node.Position)
	}
}

// evalIndex implements Index([]) (the iterator `.[]`) and Index([i,
// ...]) (spec.md §4.3).
func (e *Evaluator) evalIndex(ctx context.Context, env *Env, node *types.ASTNode, input value.Value) (Stream, error) {
	if len(node.Indices) == 0 {
		return e.evalIterate(node, input)
	}

	var out []value.Value
	for _, idxNode := range node.Indices {
		idxStream, err := e.eval(ctx, env, idxNode, input)
		if err != nil {
			return nil, err
		}
		for idxStream.Next(ctx) {
			n, ok := idxStream.Value().(float64)
			if !ok {
				return nil, types.NewError(types.ErrType, "array index must be a number", node.Position)
			}
			v, err := indexArrayOrNull(input, int(n), node.Position)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		if err := idxStream.Err(); err != nil {
			return nil, err
		}
	}
	return fromSlice(out), nil
}

func indexArrayOrNull(input value.Value, i int, pos int) (value.Value, error) {
	switch v := input.(type) {
	case []value.Value:
		idx := i
		if idx < 0 {
			idx += len(v)
		}
		if idx < 0 || idx >= len(v) {
			return value.NullValue, nil
		}
		return v[idx], nil
	case value.Null:
		return value.NullValue, nil
	default:
		return nil, types.NewError(types.ErrType, fmt.Sprintf("cannot index %s with number", value.TypeName(input)), pos)
	}
}

func (e *Evaluator) evalIterate(node *types.ASTNode, input value.Value) (Stream, error) {
	switch v := input.(type) {
	case []value.Value:
		return fromSlice(v), nil
	case *value.Object:
		out := make([]value.Value, 0, v.Len())
		v.Each(func(_ string, val value.Value) { out = append(out, val) })
		return fromSlice(out), nil
	case value.Null:
		return empty(), nil
	default:
		return nil, types.NewError(types.ErrType,
			fmt.Sprintf("cannot iterate over %s", value.TypeName(input)), node.Position)
	}
}

// evalSlice implements Slice(lo?, hi?) (spec.md §4.3). Only the first
// value of each endpoint's stream is used — endpoints are ordinarily
// literals, and a single sliced result is what the spec asks for.
func (e *Evaluator) evalSlice(ctx context.Context, env *Env, node *types.ASTNode, input value.Value) (Stream, error) {
	switch v := input.(type) {
	case value.Null:
		return single(value.NullValue), nil
	case []value.Value:
		lo, hi, err := e.sliceBounds(ctx, env, node, input, len(v))
		if err != nil {
			return nil, err
		}
		sliced := make([]value.Value, hi-lo)
		copy(sliced, v[lo:hi])
		return single(value.Value(sliced)), nil
	case string:
		runes := []rune(v)
		lo, hi, err := e.sliceBounds(ctx, env, node, input, len(runes))
		if err != nil {
			return nil, err
		}
		return single(value.Value(string(runes[lo:hi]))), nil
	default:
		return nil, types.NewError(types.ErrType,
			fmt.Sprintf("cannot slice %s", value.TypeName(input)), node.Position)
	}
}

func (e *Evaluator) sliceBounds(ctx context.Context, env *Env, node *types.ASTNode, input value.Value, length int) (int, int, error) {
	lo := 0
	hi := length
	if node.Lo != nil {
		n, err := e.sliceEndpoint(ctx, env, node.Lo, input)
		if err != nil {
			return 0, 0, err
		}
		lo = n
	}
	if node.Hi != nil {
		n, err := e.sliceEndpoint(ctx, env, node.Hi, input)
		if err != nil {
			return 0, 0, err
		}
		hi = n
	}
	lo = clampIndex(lo, length)
	hi = clampIndex(hi, length)
	if lo > hi {
		lo = hi
	}
	return lo, hi, nil
}

func (e *Evaluator) sliceEndpoint(ctx context.Context, env *Env, node *types.ASTNode, input value.Value) (int, error) {
	s, err := e.eval(ctx, env, node, input)
	if err != nil {
		return 0, err
	}
	if !s.Next(ctx) {
		if err := s.Err(); err != nil {
			return 0, err
		}
		return 0, types.NewError(types.ErrType, "slice bound produced no value", node.Position)
	}
	n, ok := s.Value().(float64)
	if !ok {
		return 0, types.NewError(types.ErrType, "slice bound must be a number", node.Position)
	}
	return int(n), nil
}

func clampIndex(i, length int) int {
	if i < 0 {
		i += length
	}
	if i < 0 {
		return 0
	}
	if i > length {
		return length
	}
	return i
}

// evalOptional implements Optional(E) (spec.md §4.3): every value E
// produces, with Type/KeyMissing/IndexOutOfRange errors converted to
// quiet stream termination instead of propagating.
func (e *Evaluator) evalOptional(ctx context.Context, env *Env, node *types.ASTNode, input value.Value) (Stream, error) {
	inner, err := e.eval(ctx, env, node.LHS, input)
	if err != nil {
		if types.IsAccessOrType(err) {
			return empty(), nil
		}
		return nil, err
	}
	return &optionalStream{inner: inner}, nil
}

type optionalStream struct {
	inner Stream
	done  bool
}

func (s *optionalStream) Next(ctx context.Context) bool {
	if s.done {
		return false
	}
	if s.inner.Next(ctx) {
		return true
	}
	s.done = true
	return false
}

func (s *optionalStream) Value() value.Value { return s.inner.Value() }

func (s *optionalStream) Err() error {
	if err := s.inner.Err(); err != nil && !types.IsAccessOrType(err) {
		return err
	}
	return nil
}

// evalRecurse implements Recurse (`..`): a pre-order traversal yielding
// input and every sub-value reachable through array elements and
// object values, in order (spec.md §4.3, §5 "Ordering guarantees").
// JSON values form finite trees, so this can be computed eagerly.
func (e *Evaluator) evalRecurse(input value.Value) Stream {
	var out []value.Value
	var walk func(value.Value)
	walk = func(v value.Value) {
		out = append(out, v)
		switch x := v.(type) {
		case []value.Value:
			for _, el := range x {
				walk(el)
			}
		case *value.Object:
			x.Each(func(_ string, val value.Value) { walk(val) })
		}
	}
	walk(input)
	return fromSlice(out)
}
