package interp

import (
	"context"
	"fmt"

	"github.com/kaspervalen/goq/pkg/types"
	"github.com/kaspervalen/goq/pkg/value"
)

// evalArrayConstruct implements ArrayConstruct(E?) (spec.md §4.3):
// evaluate E against input, collect every value of its stream into one
// array. An absent E (literal `[]`) yields the empty array.
func (e *Evaluator) evalArrayConstruct(ctx context.Context, env *Env, node *types.ASTNode, input value.Value) (Stream, error) {
	if node.Elem == nil {
		return single(value.Value([]value.Value{})), nil
	}
	s, err := e.eval(ctx, env, node.Elem, input)
	if err != nil {
		return nil, err
	}
	vs, err := Collect(ctx, s)
	if err != nil {
		return nil, err
	}
	if vs == nil {
		vs = []value.Value{}
	}
	return single(value.Value(vs)), nil
}

// evalObjectConstruct implements ObjectConstruct(entries) (spec.md
// §4.3): the Cartesian product of every entry's key and value streams,
// in left-to-right entry order, one object per combination.
func (e *Evaluator) evalObjectConstruct(ctx context.Context, env *Env, node *types.ASTNode, input value.Value) (Stream, error) {
	return e.buildObjectEntries(ctx, env, node.Entries, input, value.NewObjectCapacity(len(node.Entries)))
}

func (e *Evaluator) buildObjectEntries(ctx context.Context, env *Env, entries []types.ObjectEntry, input value.Value, partial *value.Object) (Stream, error) {
	if len(entries) == 0 {
		return single(value.Value(partial)), nil
	}
	entry := entries[0]
	rest := entries[1:]

	keyStream, err := e.eval(ctx, env, entry.Key, input)
	if err != nil {
		return nil, err
	}
	return flatMap(keyStream, func(ctx context.Context, kv value.Value) (Stream, error) {
		key, ok := kv.(string)
		if !ok {
			return nil, types.NewError(types.ErrType,
				fmt.Sprintf("object key must be a string, got %s", value.TypeName(kv)), entry.Key.Position)
		}
		valStream, err := e.eval(ctx, env, entry.Value, input)
		if err != nil {
			return nil, err
		}
		return flatMap(valStream, func(ctx context.Context, vv value.Value) (Stream, error) {
			next := partial.Clone()
			next.Set(key, vv)
			return e.buildObjectEntries(ctx, env, rest, input, next)
		}), nil
	}), nil
}
