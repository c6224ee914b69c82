package interp

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/kaspervalen/goq/pkg/types"
	"github.com/kaspervalen/goq/pkg/value"
)

// evalBinary dispatches a binary Operation node (spec.md §4.3
// "Operations (binary)"). "and", "or", and "//" short-circuit and so
// are handled before either side is evaluated; every other operator
// broadcasts over the Cartesian product of the left and right streams,
// following the fast-path-then-generic-switch shape of the teacher's
// evalBinary (pkg/evaluator/eval_operators.go).
func (e *Evaluator) evalBinary(ctx context.Context, env *Env, node *types.ASTNode, input value.Value) (Stream, error) {
	switch node.Op {
	case "and":
		return e.evalAnd(ctx, env, node, input)
	case "or":
		return e.evalOr(ctx, env, node, input)
	case "//":
		return e.evalAlt(ctx, env, node, input)
	}

	left, err := e.eval(ctx, env, node.LHS, input)
	if err != nil {
		return nil, err
	}
	return flatMap(left, func(ctx context.Context, lv value.Value) (Stream, error) {
		right, err := e.eval(ctx, env, node.RHS, input)
		if err != nil {
			return nil, err
		}
		return mapErr(right, func(rv value.Value) (value.Value, error) {
			return applyOp(node.Op, lv, rv, node.Position)
		}), nil
	}), nil
}

// mapErrStream is mapValues for transformations that can themselves
// fail (arithmetic/comparison type errors), surfacing the error
// through Err() the same way every other stream in this package does.
type mapErrStream struct {
	inner Stream
	fn    func(value.Value) (value.Value, error)
	cur   value.Value
	err   error
}

func mapErr(inner Stream, fn func(value.Value) (value.Value, error)) Stream {
	return &mapErrStream{inner: inner, fn: fn}
}

func (s *mapErrStream) Next(ctx context.Context) bool {
	if s.err != nil {
		return false
	}
	if !s.inner.Next(ctx) {
		s.err = s.inner.Err()
		return false
	}
	v, err := s.fn(s.inner.Value())
	if err != nil {
		s.err = err
		return false
	}
	s.cur = v
	return true
}

func (s *mapErrStream) Value() value.Value { return s.cur }
func (s *mapErrStream) Err() error         { return s.err }

func applyOp(op string, l, r value.Value, pos int) (value.Value, error) {
	switch op {
	case "+":
		return opAdd(l, r, pos)
	case "-":
		return opSub(l, r, pos)
	case "*":
		return opMul(l, r, pos)
	case "/":
		return opDiv(l, r, pos)
	case "%":
		return opMod(l, r, pos)
	case "==":
		return value.Equal(l, r), nil
	case "!=":
		return !value.Equal(l, r), nil
	case "<":
		return value.Compare(l, r) < 0, nil
	case "<=":
		return value.Compare(l, r) <= 0, nil
	case ">":
		return value.Compare(l, r) > 0, nil
	case ">=":
		return value.Compare(l, r) >= 0, nil
	default:
		return nil, fmt.Errorf("interp: unknown operator %q", op)
	}
}

func typeErr(op string, l, r value.Value, pos int) error {
	return types.NewError(types.ErrType,
		fmt.Sprintf("%s is not defined for %s and %s", op, value.TypeName(l), value.TypeName(r)), pos)
}

func opAdd(l, r value.Value, pos int) (value.Value, error) {
	if _, ok := l.(value.Null); ok {
		return r, nil
	}
	if _, ok := r.(value.Null); ok {
		return l, nil
	}
	switch lv := l.(type) {
	case float64:
		if rv, ok := r.(float64); ok {
			return lv + rv, nil
		}
	case string:
		if rv, ok := r.(string); ok {
			return lv + rv, nil
		}
	case []value.Value:
		if rv, ok := r.([]value.Value); ok {
			out := make([]value.Value, 0, len(lv)+len(rv))
			out = append(out, lv...)
			out = append(out, rv...)
			return out, nil
		}
	case *value.Object:
		if rv, ok := r.(*value.Object); ok {
			out := lv.Clone()
			rv.Each(func(k string, v value.Value) { out.Set(k, v) })
			return out, nil
		}
	}
	return nil, typeErr("+", l, r, pos)
}

func opSub(l, r value.Value, pos int) (value.Value, error) {
	switch lv := l.(type) {
	case float64:
		if rv, ok := r.(float64); ok {
			return lv - rv, nil
		}
	case []value.Value:
		if rv, ok := r.([]value.Value); ok {
			out := make([]value.Value, 0, len(lv))
			for _, item := range lv {
				excluded := false
				for _, x := range rv {
					if value.Equal(item, x) {
						excluded = true
						break
					}
				}
				if !excluded {
					out = append(out, item)
				}
			}
			return out, nil
		}
	}
	return nil, typeErr("-", l, r, pos)
}

func opMul(l, r value.Value, pos int) (value.Value, error) {
	switch lv := l.(type) {
	case float64:
		switch rv := r.(type) {
		case float64:
			return lv * rv, nil
		case string:
			return repeatString(rv, lv), nil
		}
	case string:
		if rv, ok := r.(float64); ok {
			return repeatString(lv, rv), nil
		}
	case *value.Object:
		if rv, ok := r.(*value.Object); ok {
			return deepMerge(lv, rv), nil
		}
	}
	return nil, typeErr("*", l, r, pos)
}

func repeatString(s string, n float64) value.Value {
	if n <= 0 {
		return value.NullValue
	}
	return strings.Repeat(s, int(n))
}

func deepMerge(l, r *value.Object) *value.Object {
	out := l.Clone()
	r.Each(func(k string, rv value.Value) {
		if lv, ok := out.Get(k); ok {
			lo, lok := lv.(*value.Object)
			ro, rok := rv.(*value.Object)
			if lok && rok {
				out.Set(k, deepMerge(lo, ro))
				return
			}
		}
		out.Set(k, rv)
	})
	return out
}

func opDiv(l, r value.Value, pos int) (value.Value, error) {
	lv, ok := l.(float64)
	if !ok {
		return nil, typeErr("/", l, r, pos)
	}
	rv, ok := r.(float64)
	if !ok {
		return nil, typeErr("/", l, r, pos)
	}
	if rv == 0 {
		return nil, types.NewError(types.ErrDivByZero, "division by zero", pos)
	}
	return lv / rv, nil
}

func opMod(l, r value.Value, pos int) (value.Value, error) {
	lv, ok := l.(float64)
	if !ok {
		return nil, typeErr("%", l, r, pos)
	}
	rv, ok := r.(float64)
	if !ok {
		return nil, typeErr("%", l, r, pos)
	}
	if rv == 0 {
		return nil, types.NewError(types.ErrDivByZero, "division by zero", pos)
	}
	return math.Mod(lv, rv), nil
}

// evalAnd implements short-circuiting logical "and" (spec.md §4.3):
// for each value the left side produces, false/null short-circuits to
// `false` without evaluating the right side at all; a truthy value
// evaluates the right side and yields its truthiness.
func (e *Evaluator) evalAnd(ctx context.Context, env *Env, node *types.ASTNode, input value.Value) (Stream, error) {
	left, err := e.eval(ctx, env, node.LHS, input)
	if err != nil {
		return nil, err
	}
	return flatMap(left, func(ctx context.Context, lv value.Value) (Stream, error) {
		if !value.Truthy(lv) {
			return single(false), nil
		}
		right, err := e.eval(ctx, env, node.RHS, input)
		if err != nil {
			return nil, err
		}
		return mapValues(right, func(rv value.Value) value.Value { return value.Truthy(rv) }), nil
	}), nil
}

func (e *Evaluator) evalOr(ctx context.Context, env *Env, node *types.ASTNode, input value.Value) (Stream, error) {
	left, err := e.eval(ctx, env, node.LHS, input)
	if err != nil {
		return nil, err
	}
	return flatMap(left, func(ctx context.Context, lv value.Value) (Stream, error) {
		if value.Truthy(lv) {
			return single(true), nil
		}
		right, err := e.eval(ctx, env, node.RHS, input)
		if err != nil {
			return nil, err
		}
		return mapValues(right, func(rv value.Value) value.Value { return value.Truthy(rv) }), nil
	}), nil
}

// evalAlt implements `//` (spec.md §4.3, GLOSSARY "Alternative"): every
// non-null, non-false value of the left stream; if the left produced
// none of those — whether because it was empty, produced only null/
// false values, or raised an error — the right stream instead. This
// core folds a left-side error into "produced nothing" rather than
// propagating it, matching real jq's own tolerant `//` (an explicit
// Open Question resolution recorded in DESIGN.md, since spec.md itself
// only specifies the no-error case).
func (e *Evaluator) evalAlt(ctx context.Context, env *Env, node *types.ASTNode, input value.Value) (Stream, error) {
	left, err := e.eval(ctx, env, node.LHS, input)
	if err != nil {
		left = fail(err)
	}
	return &altStream{
		left: left,
		genRight: func(ctx context.Context) (Stream, error) {
			return e.eval(ctx, env, node.RHS, input)
		},
	}, nil
}

type altStream struct {
	left     Stream
	right    Stream
	genRight func(ctx context.Context) (Stream, error)
	state    int // 0 = draining left, 1 = draining right, 2 = done
	produced bool
	cur      value.Value
	err      error
}

func (s *altStream) Next(ctx context.Context) bool {
	if s.state == 2 {
		return false
	}
	if s.state == 0 {
		for s.left.Next(ctx) {
			v := s.left.Value()
			if value.Truthy(v) {
				s.produced = true
				s.cur = v
				return true
			}
		}
		s.state = 1
		if s.produced {
			s.state = 2
			return false
		}
		right, err := s.genRight(ctx)
		if err != nil {
			s.err = err
			s.state = 2
			return false
		}
		s.right = right
	}
	if s.right.Next(ctx) {
		s.cur = s.right.Value()
		return true
	}
	s.err = s.right.Err()
	s.state = 2
	return false
}

func (s *altStream) Value() value.Value { return s.cur }
func (s *altStream) Err() error         { return s.err }
