package interp

import (
	"context"

	"github.com/kaspervalen/goq/pkg/types"
	"github.com/kaspervalen/goq/pkg/value"
)

// evalIf implements IfThenElse(cond, then, else) (spec.md §4.3): for
// each value the condition stream produces, emit the then-branch if
// truthy, the else-branch otherwise. Parser desugaring guarantees
// node.Else is never nil — a missing `else` becomes NodeIdentity.
func (e *Evaluator) evalIf(ctx context.Context, env *Env, node *types.ASTNode, input value.Value) (Stream, error) {
	cond, err := e.eval(ctx, env, node.LHS, input)
	if err != nil {
		return nil, err
	}
	return flatMap(cond, func(ctx context.Context, cv value.Value) (Stream, error) {
		if value.Truthy(cv) {
			return e.eval(ctx, env, node.RHS, input)
		}
		return e.eval(ctx, env, node.Else, input)
	}), nil
}

// evalTryCatch implements TryCatch(body, handler?) (spec.md §4.3):
// every value the body produces is emitted; a raised EvalError is
// caught, and if a handler is present it is evaluated with the error's
// message as input, otherwise the stream simply ends.
func (e *Evaluator) evalTryCatch(ctx context.Context, env *Env, node *types.ASTNode, input value.Value) (Stream, error) {
	body, err := e.eval(ctx, env, node.LHS, input)
	if err != nil {
		body = fail(err)
	}
	return &catchStream{ev: e, env: env, handler: node.Handler, inner: body}, nil
}

type catchStream struct {
	ev      *Evaluator
	env     *Env
	inner   Stream
	handler *types.ASTNode
	handled Stream
	state   int // 0 = draining body, 1 = draining handler, 2 = done
	cur     value.Value
	err     error
}

func (s *catchStream) Next(ctx context.Context) bool {
	if s.state == 2 {
		return false
	}
	if s.state == 0 {
		if s.inner.Next(ctx) {
			s.cur = s.inner.Value()
			return true
		}
		bodyErr := s.inner.Err()
		if bodyErr == nil {
			s.state = 2
			return false
		}
		evalErr, ok := bodyErr.(*types.Error)
		if !ok {
			// Not a user-visible EvalError — a programming error or a
			// context cancellation/timeout surfaced through the same
			// Err() path (spec.md §4.3: try/catch "does NOT catch
			// internal programming errors"). Propagate it instead of
			// handing it to the catch handler.
			s.err = bodyErr
			s.state = 2
			return false
		}
		if s.handler == nil {
			s.state = 2
			return false
		}
		handled, err := s.ev.eval(ctx, s.env, s.handler, evalErr.Message)
		if err != nil {
			s.err = err
			s.state = 2
			return false
		}
		s.handled = handled
		s.state = 1
	}
	if s.handled.Next(ctx) {
		s.cur = s.handled.Value()
		return true
	}
	s.err = s.handled.Err()
	s.state = 2
	return false
}

func (s *catchStream) Value() value.Value { return s.cur }
func (s *catchStream) Err() error         { return s.err }
