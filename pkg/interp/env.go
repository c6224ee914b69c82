package interp

import "github.com/kaspervalen/goq/pkg/value"

// Env is an immutable, parent-chained variable environment, adapted
// from the teacher's EvalContext (pkg/evaluator/context.go in
// sandrolain/gosonata). spec.md §9 asks for a persistent mapping "so
// lexical scoping and future recursion are trivial to add" — this core
// has no binding forms of its own (`as` is a Non-goal), so the only
// Env built today is the root one, made by NewEnv from the
// host-supplied variable map passed in through WithVariables; Child
// has no caller yet, but the parent-chain shape is already here for
// that future work.
type Env struct {
	parent   *Env
	bindings map[string]value.Value
}

// NewEnv creates a root environment from a set of host-supplied
// variable bindings. A nil or empty map is fine.
func NewEnv(vars map[string]value.Value) *Env {
	return &Env{bindings: vars}
}

// Child returns a new environment that shadows e with additional
// bindings, without mutating e.
func (e *Env) Child(vars map[string]value.Value) *Env {
	return &Env{parent: e, bindings: vars}
}

// Lookup searches this environment and its ancestors for name.
func (e *Env) Lookup(name string) (value.Value, bool) {
	for cur := e; cur != nil; cur = cur.parent {
		if v, ok := cur.bindings[name]; ok {
			return v, true
		}
	}
	return nil, false
}
