package interp

import (
	"context"
	"fmt"
	"math"
	"sort"
	"unicode/utf8"

	"github.com/kaspervalen/goq/pkg/types"
	"github.com/kaspervalen/goq/pkg/value"
)

// evalCall dispatches the fixed built-in function table (spec.md §4.3
// "Recursion and built-ins"). There is no user-registrable function
// table: `def` is an explicit Non-goal, so this switch is the complete
// surface, adapted in shape (not content) from the teacher's built-in
// dispatch (pkg/evaluator/fn_array.go, fn_aggregates.go, fn_objects.go,
// fn_hof.go).
func (e *Evaluator) evalCall(ctx context.Context, env *Env, node *types.ASTNode, input value.Value) (Stream, error) {
	switch node.Callee {
	case "length":
		return e.builtinLength(node, input)
	case "keys":
		return e.builtinKeys(node, input)
	case "values":
		return e.builtinValues(node, input)
	case "type":
		return single(value.TypeName(input)), nil
	case "empty":
		return empty(), nil
	case "not":
		return single(!value.Truthy(input)), nil
	case "map":
		return e.builtinMap(ctx, env, node, input)
	case "select":
		return e.builtinSelect(ctx, env, node, input)
	case "sort":
		return e.builtinSort(node, input)
	case "reverse":
		return e.builtinReverse(node, input)
	case "flatten":
		return e.builtinFlatten(ctx, env, node, input)
	case "unique":
		return e.builtinUnique(node, input)
	case "add":
		return e.builtinAdd(node, input)
	case "min":
		return e.builtinMinMax(node, input, true)
	case "max":
		return e.builtinMinMax(node, input, false)
	case "floor":
		return e.builtinFloor(node, input)
	case "sqrt":
		return e.builtinSqrt(node, input)
	default:
		// node.Callee names a call, not a $variable, so this is a
		// distinct failure mode from an unbound $name lookup
		// (ErrUnboundVariable) even though parser_impl.go accepts any
		// identifier as a NodeCall and defers validation here.
		return nil, types.NewError(types.ErrUnknownCall, "unknown built-in "+node.Callee, node.Position)
	}
}

func (e *Evaluator) builtinLength(node *types.ASTNode, input value.Value) (Stream, error) {
	switch v := input.(type) {
	case value.Null:
		return single(0.0), nil
	case string:
		return single(float64(utf8.RuneCountInString(v))), nil
	case []value.Value:
		return single(float64(len(v))), nil
	case *value.Object:
		return single(float64(v.Len())), nil
	case float64:
		return single(math.Abs(v)), nil
	default:
		return nil, types.NewError(types.ErrType, fmt.Sprintf("%s has no length", value.TypeName(input)), node.Position)
	}
}

func (e *Evaluator) builtinKeys(node *types.ASTNode, input value.Value) (Stream, error) {
	switch v := input.(type) {
	case *value.Object:
		keys := v.SortedKeys()
		out := make([]value.Value, len(keys))
		for i, k := range keys {
			out[i] = k
		}
		return single(value.Value(out)), nil
	case []value.Value:
		out := make([]value.Value, len(v))
		for i := range v {
			out[i] = float64(i)
		}
		return single(value.Value(out)), nil
	default:
		return nil, types.NewError(types.ErrType, fmt.Sprintf("%s has no keys", value.TypeName(input)), node.Position)
	}
}

func (e *Evaluator) builtinValues(node *types.ASTNode, input value.Value) (Stream, error) {
	switch v := input.(type) {
	case *value.Object:
		keys := v.SortedKeys()
		out := make([]value.Value, len(keys))
		for i, k := range keys {
			out[i], _ = v.Get(k)
		}
		return single(value.Value(out)), nil
	case []value.Value:
		return single(input), nil
	default:
		return nil, types.NewError(types.ErrType, fmt.Sprintf("%s has no values", value.TypeName(input)), node.Position)
	}
}

// builtinMap implements map(E) (spec.md §4.3): on an array it is
// `[ .[] | E ]`; null yields `[]`; any other input, objects included,
// is a type error.
func (e *Evaluator) builtinMap(ctx context.Context, env *Env, node *types.ASTNode, input value.Value) (Stream, error) {
	arr, ok := input.([]value.Value)
	if !ok {
		if _, isNull := input.(value.Null); isNull {
			return single(value.Value([]value.Value{})), nil
		}
		return nil, types.NewError(types.ErrType, fmt.Sprintf("cannot map over %s", value.TypeName(input)), node.Position)
	}
	if len(node.Args) != 1 {
		return nil, types.NewError(types.ErrType, "map requires exactly one argument", node.Position)
	}
	body := node.Args[0]

	out := make([]value.Value, 0, len(arr))
	for _, item := range arr {
		s, err := e.eval(ctx, env, body, item)
		if err != nil {
			return nil, err
		}
		vs, err := Collect(ctx, s)
		if err != nil {
			return nil, err
		}
		out = append(out, vs...)
	}
	return single(value.Value(out)), nil
}

// builtinSelect implements select(E) (spec.md §4.3): for each value E
// produces against the current input, pass input through if truthy,
// otherwise yield nothing.
func (e *Evaluator) builtinSelect(ctx context.Context, env *Env, node *types.ASTNode, input value.Value) (Stream, error) {
	if len(node.Args) != 1 {
		return nil, types.NewError(types.ErrType, "select requires exactly one argument", node.Position)
	}
	s, err := e.eval(ctx, env, node.Args[0], input)
	if err != nil {
		return nil, err
	}
	return mapFilter(s, input), nil
}

type filterStream struct {
	inner Stream
	pass  value.Value
	cur   value.Value
}

func mapFilter(inner Stream, pass value.Value) Stream {
	return &filterStream{inner: inner, pass: pass}
}

func (s *filterStream) Next(ctx context.Context) bool {
	for s.inner.Next(ctx) {
		if value.Truthy(s.inner.Value()) {
			s.cur = s.pass
			return true
		}
	}
	return false
}

func (s *filterStream) Value() value.Value { return s.cur }
func (s *filterStream) Err() error         { return s.inner.Err() }

func (e *Evaluator) builtinSort(node *types.ASTNode, input value.Value) (Stream, error) {
	arr, ok := input.([]value.Value)
	if !ok {
		return nil, types.NewError(types.ErrType, fmt.Sprintf("cannot sort %s", value.TypeName(input)), node.Position)
	}
	out := make([]value.Value, len(arr))
	copy(out, arr)
	sort.SliceStable(out, func(i, j int) bool { return value.Compare(out[i], out[j]) < 0 })
	return single(value.Value(out)), nil
}

func (e *Evaluator) builtinReverse(node *types.ASTNode, input value.Value) (Stream, error) {
	switch v := input.(type) {
	case []value.Value:
		out := make([]value.Value, len(v))
		for i, x := range v {
			out[len(v)-1-i] = x
		}
		return single(value.Value(out)), nil
	case string:
		runes := []rune(v)
		for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
			runes[i], runes[j] = runes[j], runes[i]
		}
		return single(value.Value(string(runes))), nil
	default:
		return nil, types.NewError(types.ErrType, fmt.Sprintf("cannot reverse %s", value.TypeName(input)), node.Position)
	}
}

// builtinFlatten implements flatten/flatten(n) (spec.md §4.3): depth
// defaults to 1 when no argument is given.
func (e *Evaluator) builtinFlatten(ctx context.Context, env *Env, node *types.ASTNode, input value.Value) (Stream, error) {
	arr, ok := input.([]value.Value)
	if !ok {
		return nil, types.NewError(types.ErrType, fmt.Sprintf("cannot flatten %s", value.TypeName(input)), node.Position)
	}
	depth := 1
	if len(node.Args) == 1 {
		s, err := e.eval(ctx, env, node.Args[0], input)
		if err != nil {
			return nil, err
		}
		if !s.Next(ctx) {
			if err := s.Err(); err != nil {
				return nil, err
			}
			return nil, types.NewError(types.ErrType, "flatten depth produced no value", node.Position)
		}
		n, ok := s.Value().(float64)
		if !ok || n < 0 {
			return nil, types.NewError(types.ErrType, "flatten depth must be a non-negative number", node.Position)
		}
		depth = int(n)
	}
	return single(value.Value(flattenArray(arr, depth))), nil
}

func flattenArray(arr []value.Value, depth int) []value.Value {
	out := make([]value.Value, 0, len(arr))
	for _, v := range arr {
		if sub, ok := v.([]value.Value); ok && depth > 0 {
			out = append(out, flattenArray(sub, depth-1)...)
		} else {
			out = append(out, v)
		}
	}
	return out
}

func (e *Evaluator) builtinUnique(node *types.ASTNode, input value.Value) (Stream, error) {
	arr, ok := input.([]value.Value)
	if !ok {
		return nil, types.NewError(types.ErrType, fmt.Sprintf("cannot dedupe %s", value.TypeName(input)), node.Position)
	}
	sorted := make([]value.Value, len(arr))
	copy(sorted, arr)
	sort.SliceStable(sorted, func(i, j int) bool { return value.Compare(sorted[i], sorted[j]) < 0 })
	out := make([]value.Value, 0, len(sorted))
	for i, v := range sorted {
		if i == 0 || !value.Equal(v, sorted[i-1]) {
			out = append(out, v)
		}
	}
	return single(value.Value(out)), nil
}

func (e *Evaluator) builtinAdd(node *types.ASTNode, input value.Value) (Stream, error) {
	var elems []value.Value
	switch v := input.(type) {
	case []value.Value:
		elems = v
	case *value.Object:
		elems = make([]value.Value, 0, v.Len())
		v.Each(func(_ string, val value.Value) { elems = append(elems, val) })
	default:
		return nil, types.NewError(types.ErrType, fmt.Sprintf("cannot add over %s", value.TypeName(input)), node.Position)
	}
	if len(elems) == 0 {
		return single(value.NullValue), nil
	}
	acc := value.Value(value.NullValue)
	for _, v := range elems {
		sum, err := opAdd(acc, v, node.Position)
		if err != nil {
			return nil, err
		}
		acc = sum
	}
	return single(acc), nil
}

func (e *Evaluator) builtinMinMax(node *types.ASTNode, input value.Value, wantMin bool) (Stream, error) {
	arr, ok := input.([]value.Value)
	if !ok {
		return nil, types.NewError(types.ErrType, fmt.Sprintf("cannot take min/max of %s", value.TypeName(input)), node.Position)
	}
	if len(arr) == 0 {
		return single(value.NullValue), nil
	}
	best := arr[0]
	for _, v := range arr[1:] {
		c := value.Compare(v, best)
		if (wantMin && c < 0) || (!wantMin && c > 0) {
			best = v
		}
	}
	return single(best), nil
}

func (e *Evaluator) builtinFloor(node *types.ASTNode, input value.Value) (Stream, error) {
	n, ok := input.(float64)
	if !ok {
		return nil, types.NewError(types.ErrType, fmt.Sprintf("cannot floor %s", value.TypeName(input)), node.Position)
	}
	return single(math.Floor(n)), nil
}

func (e *Evaluator) builtinSqrt(node *types.ASTNode, input value.Value) (Stream, error) {
	n, ok := input.(float64)
	if !ok {
		return nil, types.NewError(types.ErrType, fmt.Sprintf("cannot take square root of %s", value.TypeName(input)), node.Position)
	}
	return single(math.Sqrt(n)), nil
}
