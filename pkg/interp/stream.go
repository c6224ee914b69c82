package interp

import (
	"context"

	"github.com/kaspervalen/goq/pkg/value"
)

// Stream is a lazy, finite, single-pass sequence of JSON values
// (spec.md §3 "Value stream"). It follows the pull idiom the teacher
// already uses for its own Lexer.Next, and the shape of
// bufio.Scanner/database/sql.Rows from the standard library: repeated
// calls to Next advance the cursor one value at a time, Value reads
// the current element, and Err reports why the stream ended early.
// Nothing in this package uses goroutines or channels — spec.md §5
// rules out a coroutine scheduler, and a single mutable cursor is
// enough to make every combinator lazy.
type Stream interface {
	// Next advances to the next value and reports whether one is
	// available. It returns false both at normal end of stream and on
	// error; callers must check Err to distinguish them.
	Next(ctx context.Context) bool
	// Value returns the element most recently made current by Next.
	// Its result is undefined before the first successful Next call.
	Value() value.Value
	// Err returns the first error that terminated the stream, or nil
	// if it ended normally.
	Err() error
}

func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// sliceStream yields the elements of a pre-computed slice in order.
// Used wherever a construct's result is naturally eager (array/object
// construction, Recurse, built-ins that buffer a whole array).
type sliceStream struct {
	values []value.Value
	pos    int
	err    error
	cur    value.Value
}

func fromSlice(vs []value.Value) Stream { return &sliceStream{values: vs, pos: -1} }

func single(v value.Value) Stream { return &sliceStream{values: []value.Value{v}, pos: -1} }

func empty() Stream { return &sliceStream{pos: -1} }

func fail(err error) Stream { return &sliceStream{err: err, pos: -1} }

func (s *sliceStream) Next(ctx context.Context) bool {
	if s.err != nil {
		return false
	}
	if err := ctxErr(ctx); err != nil {
		s.err = err
		return false
	}
	s.pos++
	if s.pos >= len(s.values) {
		return false
	}
	s.cur = s.values[s.pos]
	return true
}

func (s *sliceStream) Value() value.Value { return s.cur }
func (s *sliceStream) Err() error         { return s.err }

// generator produces the downstream stream for one upstream value.
type generator func(ctx context.Context, v value.Value) (Stream, error)

// flatMapStream implements Pipe semantics (spec.md §4.3 "Pipe(E1, E2)"
// and Testable Property 3): for every value the outer stream produces,
// it drives an inner stream to completion before pulling the outer
// stream again, exactly the "outer-then-inner" ordering the spec
// requires, without ever buffering the outer stream.
type flatMapStream struct {
	outer Stream
	gen   generator
	inner Stream
	cur   value.Value
	err   error
	done  bool
}

func flatMap(outer Stream, gen generator) Stream {
	return &flatMapStream{outer: outer, gen: gen}
}

func (s *flatMapStream) Next(ctx context.Context) bool {
	if s.done || s.err != nil {
		return false
	}
	if err := ctxErr(ctx); err != nil {
		s.err = err
		s.done = true
		return false
	}
	for {
		if s.inner != nil {
			if s.inner.Next(ctx) {
				s.cur = s.inner.Value()
				return true
			}
			if err := s.inner.Err(); err != nil {
				s.err = err
				s.done = true
				return false
			}
			s.inner = nil
		}
		if !s.outer.Next(ctx) {
			if err := s.outer.Err(); err != nil {
				s.err = err
			}
			s.done = true
			return false
		}
		next, err := s.gen(ctx, s.outer.Value())
		if err != nil {
			s.err = err
			s.done = true
			return false
		}
		s.inner = next
	}
}

func (s *flatMapStream) Value() value.Value { return s.cur }
func (s *flatMapStream) Err() error         { return s.err }

// lazyConcatStream implements Comma semantics (spec.md §4.3 "Comma(E1,
// E2)" and Testable Property 4): every value of the first stream, then
// every value of the second. genSecond runs only once first is
// exhausted, so a second operand that would error or block if
// evaluated eagerly never runs at all when the consumer abandons the
// stream after the first value (spec.md §5's suspension-point
// contract). Modeled on altStream's genRight field in eval_ops.go.
type lazyConcatStream struct {
	first     Stream
	genSecond func(ctx context.Context) (Stream, error)
	second    Stream
	onSecond  bool
	err       error
}

func concatLazy(first Stream, genSecond func(ctx context.Context) (Stream, error)) Stream {
	return &lazyConcatStream{first: first, genSecond: genSecond}
}

func (s *lazyConcatStream) Next(ctx context.Context) bool {
	if s.err != nil {
		return false
	}
	if err := ctxErr(ctx); err != nil {
		s.err = err
		return false
	}
	if !s.onSecond {
		if s.first.Next(ctx) {
			return true
		}
		if err := s.first.Err(); err != nil {
			s.err = err
			return false
		}
		s.onSecond = true
		second, err := s.genSecond(ctx)
		if err != nil {
			s.err = err
			return false
		}
		s.second = second
	}
	if s.second.Next(ctx) {
		return true
	}
	if err := s.second.Err(); err != nil {
		s.err = err
	}
	return false
}

func (s *lazyConcatStream) Value() value.Value {
	if s.onSecond {
		return s.second.Value()
	}
	return s.first.Value()
}

func (s *lazyConcatStream) Err() error { return s.err }

// mapValues transforms every element of inner with fn, preserving
// laziness. Used by "and"/"or" to turn a truthiness-tested stream back
// into the boolean result stream.
type mapStream struct {
	inner Stream
	fn    func(value.Value) value.Value
	cur   value.Value
}

func mapValues(inner Stream, fn func(value.Value) value.Value) Stream {
	return &mapStream{inner: inner, fn: fn}
}

func (s *mapStream) Next(ctx context.Context) bool {
	if !s.inner.Next(ctx) {
		return false
	}
	s.cur = s.fn(s.inner.Value())
	return true
}

func (s *mapStream) Value() value.Value { return s.cur }
func (s *mapStream) Err() error         { return s.inner.Err() }

// cancelStream calls a context.CancelFunc once its inner stream is
// exhausted or abandoned-then-drained-to-end, so a per-Eval timeout
// context (WithTimeout) is released promptly rather than leaking until
// its deadline fires on its own.
type cancelStream struct {
	inner     Stream
	cancel    context.CancelFunc
	cancelled bool
}

func withCancel(inner Stream, cancel context.CancelFunc) Stream {
	return &cancelStream{inner: inner, cancel: cancel}
}

func (s *cancelStream) Next(ctx context.Context) bool {
	ok := s.inner.Next(ctx)
	if !ok && !s.cancelled {
		s.cancelled = true
		s.cancel()
	}
	return ok
}

func (s *cancelStream) Value() value.Value { return s.inner.Value() }
func (s *cancelStream) Err() error         { return s.inner.Err() }

// Collect drains s into a slice. Used by constructs whose result is
// inherently eager (ArrayConstruct, the convenience Run API).
func Collect(ctx context.Context, s Stream) ([]value.Value, error) {
	var out []value.Value
	for s.Next(ctx) {
		out = append(out, s.Value())
	}
	return out, s.Err()
}
