// Package interp implements the tree-walking interpreter at the heart
// of this module: it maps (expression, input value, environment) to a
// lazy stream of output values, the way spec.md §4.3 describes. It is
// adapted from the teacher's pkg/evaluator (sandrolain/gosonata), kept
// to the same shape — a context-threaded Evaluator, an EvalContext-like
// Env, a functional-options configuration surface — while replacing
// JSONata's evaluation rules with jq's.
package interp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kaspervalen/goq/pkg/cache"
	"github.com/kaspervalen/goq/pkg/parser"
	"github.com/kaspervalen/goq/pkg/types"
	"github.com/kaspervalen/goq/pkg/value"
)

// EvalOptions holds Evaluator configuration. Use the With* functions
// to set individual fields; the zero value is ready to use via New().
type EvalOptions struct {
	Variables     map[string]value.Value
	Logger        *slog.Logger
	Timeout       time.Duration
	MaxDepth      int
	ParseMaxDepth int
	cache         *cache.Cache
}

// EvalOption configures an Evaluator, following the functional-options
// pattern the teacher uses for evaluator.New (pkg/evaluator/evaluator.go).
type EvalOption func(*EvalOptions)

// WithVariables binds host-supplied variables, reachable from program
// text as $name (spec.md §9 "presence ... always an error unless the
// variable was supplied by the host").
func WithVariables(vars map[string]value.Value) EvalOption {
	return func(o *EvalOptions) { o.Variables = vars }
}

// WithLogger sets the diagnostic logger. The interpreter logs nothing
// by default; a logger only receives optional debug-level tracing.
func WithLogger(l *slog.Logger) EvalOption {
	return func(o *EvalOptions) { o.Logger = l }
}

// WithTimeout bounds the wall-clock duration of one Eval call via
// context.WithTimeout, mirroring the teacher's Evaluator.Eval.
func WithTimeout(d time.Duration) EvalOption {
	return func(o *EvalOptions) { o.Timeout = d }
}

// WithMaxDepth sets EvalOptions.MaxDepth (distinct from the parser's
// own WithMaxDepth, which bounds AST nesting at parse time). The
// evaluator does not read MaxDepth: evaluation depth is not bounded.
func WithMaxDepth(n int) EvalOption {
	return func(o *EvalOptions) { o.MaxDepth = n }
}

// WithCaching attaches an LRU cache of compiled expressions with the
// given capacity, used by EvalQuery to avoid re-parsing a repeated
// query string (spec.md "Lifecycle": "parsed once, then evaluated any
// number of times").
func WithCaching(capacity int) EvalOption {
	return func(o *EvalOptions) { o.cache = cache.New(capacity) }
}

// WithParseMaxDepth bounds AST nesting at parse time, forwarded to
// parser.Compile's own WithMaxDepth by EvalQuery. Kept distinct from
// WithMaxDepth, which sets the evaluation-time MaxDepth field instead.
func WithParseMaxDepth(depth int) EvalOption {
	return func(o *EvalOptions) { o.ParseMaxDepth = depth }
}

func defaultEvalOptions() EvalOptions {
	return EvalOptions{Logger: slog.Default(), MaxDepth: 1000, ParseMaxDepth: 250}
}

// Evaluator evaluates compiled Expressions against input values,
// adapted from the teacher's Evaluator (pkg/evaluator/evaluator.go).
type Evaluator struct {
	opts EvalOptions
}

// New creates an Evaluator with the given options applied over the
// defaults.
func New(opts ...EvalOption) *Evaluator {
	o := defaultEvalOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Evaluator{opts: o}
}

// Eval evaluates expr against input and returns the resulting lazy
// Stream. The stream must be drained (or abandoned) by the caller;
// abandoning it mid-pull cancels remaining work, per spec.md §5.
func (e *Evaluator) Eval(ctx context.Context, expr *types.Expression, input value.Value) (Stream, error) {
	var cancel context.CancelFunc
	if e.opts.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
	}
	env := NewEnv(e.opts.Variables)
	e.opts.Logger.Debug("eval start", "query", expr.Source())
	s, err := e.eval(ctx, env, expr.AST(), input)
	if err != nil {
		if cancel != nil {
			cancel()
		}
		return nil, err
	}
	if cancel != nil {
		s = withCancel(s, cancel)
	}
	return s, nil
}

// EvalQuery parses query (using the Evaluator's cache if WithCaching
// was set) and evaluates it against input in one call.
func (e *Evaluator) EvalQuery(ctx context.Context, query string, input value.Value) (Stream, error) {
	var expr *types.Expression
	var err error
	compile := func() (*types.Expression, error) {
		return parser.Compile(query, parser.WithMaxDepth(e.opts.ParseMaxDepth))
	}
	if e.opts.cache != nil {
		// Pass ParseMaxDepth alongside query rather than pre-joining them:
		// an Evaluator configured with a looser or stricter parse-time
		// depth limit than the one that originally filled the cache slot
		// must recompile rather than reuse an AST checked against a
		// different bound.
		expr, err = e.opts.cache.GetOrCompile(query, e.opts.ParseMaxDepth, compile)
	} else {
		expr, err = compile()
	}
	if err != nil {
		return nil, err
	}
	return e.Eval(ctx, expr, input)
}

// eval is the recursive dispatch at the center of the interpreter: a
// type switch over the closed AST sum type (spec.md §9 "Polymorphism
// over the AST ... pattern matching is the natural dispatch").
func (e *Evaluator) eval(ctx context.Context, env *Env, node *types.ASTNode, input value.Value) (Stream, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}

	switch node.Type {
	case types.NodeIdentity:
		return single(input), nil

	case types.NodeLiteral:
		return single(node.Literal), nil

	case types.NodePipe:
		return e.evalPipe(ctx, env, node, input)

	case types.NodeComma:
		return e.evalComma(ctx, env, node, input)

	case types.NodeKey:
		return e.evalKey(ctx, node, input)

	case types.NodeIndex:
		return e.evalIndex(ctx, env, node, input)

	case types.NodeSlice:
		return e.evalSlice(ctx, env, node, input)

	case types.NodeOptional:
		return e.evalOptional(ctx, env, node, input)

	case types.NodeArrayConstruct:
		return e.evalArrayConstruct(ctx, env, node, input)

	case types.NodeObjectConstruct:
		return e.evalObjectConstruct(ctx, env, node, input)

	case types.NodeBinary:
		return e.evalBinary(ctx, env, node, input)

	case types.NodeIf:
		return e.evalIf(ctx, env, node, input)

	case types.NodeTryCatch:
		return e.evalTryCatch(ctx, env, node, input)

	case types.NodeVariable:
		return e.evalVariable(env, node)

	case types.NodeRecurse:
		return e.evalRecurse(input), nil

	case types.NodeCall:
		return e.evalCall(ctx, env, node, input)

	default:
		return nil, fmt.Errorf("interp: unhandled node type %s", node.Type)
	}
}

func (e *Evaluator) evalPipe(ctx context.Context, env *Env, node *types.ASTNode, input value.Value) (Stream, error) {
	left, err := e.eval(ctx, env, node.LHS, input)
	if err != nil {
		return nil, err
	}
	return flatMap(left, func(ctx context.Context, v value.Value) (Stream, error) {
		return e.eval(ctx, env, node.RHS, v)
	}), nil
}

// evalComma yields every value of the left operand, then every value
// of the right (spec.md §4.3 "Comma(E1, E2)"). The right side is not
// built until the left stream is actually exhausted, matching
// evalPipe's deferred RHS: a consumer that abandons the stream after
// the left side's values never triggers whatever the right side would
// have done.
func (e *Evaluator) evalComma(ctx context.Context, env *Env, node *types.ASTNode, input value.Value) (Stream, error) {
	left, err := e.eval(ctx, env, node.LHS, input)
	if err != nil {
		return nil, err
	}
	return concatLazy(left, func(ctx context.Context) (Stream, error) {
		return e.eval(ctx, env, node.RHS, input)
	}), nil
}

func (e *Evaluator) evalVariable(env *Env, node *types.ASTNode) (Stream, error) {
	v, ok := env.Lookup(node.Name)
	if !ok {
		return nil, types.NewError(types.ErrUnboundVariable, "unbound variable $"+node.Name, node.Position)
	}
	return single(v), nil
}
