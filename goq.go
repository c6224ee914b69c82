// Package goq provides a jq-compatible JSON query interpreter: a
// program is a concise expression that, applied to an input JSON
// value, produces a lazy stream of output values.
//
// # Quick Start
//
//	// Simple evaluation
//	results, err := goq.Eval(".items[] | select(.price > 100)", data)
//
//	// Compile once, evaluate many times
//	expr, err := goq.Compile(".items[] | .name")
//	vals1, _ := goq.New().Eval(ctx, expr, data1)
//	vals2, _ := goq.New().Eval(ctx, expr, data2)
//
//	// Text in, text out
//	out, err := goq.Run(".foo", `{"foo":42,"bar":43}`)
//
// # More Information
//
// For detailed documentation, see:
//   - Lexer/Parser: github.com/kaspervalen/goq/pkg/parser
//   - Interpreter:  github.com/kaspervalen/goq/pkg/interp
//   - Value model:  github.com/kaspervalen/goq/pkg/value
//   - AST/Errors:   github.com/kaspervalen/goq/pkg/types
package goq

import (
	"context"
	"strings"
	"time"

	"github.com/kaspervalen/goq/pkg/interp"
	"github.com/kaspervalen/goq/pkg/parser"
	"github.com/kaspervalen/goq/pkg/types"
	"github.com/kaspervalen/goq/pkg/value"
)

// New creates an Evaluator with the given options. It is a thin
// re-export of interp.New so callers need only import this package
// for the common case.
func New(opts ...interp.EvalOption) *interp.Evaluator {
	return interp.New(opts...)
}

// Compile parses a jq program for repeated evaluation against
// different inputs (spec.md §3 "Lifecycle").
func Compile(query string, opts ...parser.CompileOption) (*types.Expression, error) {
	return parser.Compile(query, opts...)
}

// MustCompile is like Compile but panics if the program cannot be
// parsed. It simplifies safe initialization of package-level
// variables holding a fixed query.
func MustCompile(query string, opts ...parser.CompileOption) *types.Expression {
	return parser.MustCompile(query, opts...)
}

// Eval compiles and evaluates query against input in a single call,
// collecting every value of the resulting stream. For repeated
// evaluation of the same program, compile it once with Compile and
// reuse the returned Expression across calls to an Evaluator's Eval.
func Eval(query string, input value.Value, opts ...interp.EvalOption) ([]value.Value, error) {
	expr, err := Compile(query)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	ev := interp.New(opts...)
	s, err := ev.Eval(ctx, expr, input)
	if err != nil {
		return nil, err
	}
	return interp.Collect(ctx, s)
}

// Run parses and evaluates query against the JSON text in inputJSON,
// and renders every output value as its own line of JSON, joined by
// "\n" — the convenience driver described in spec.md §6. JSON decoding
// and encoding are handled by pkg/value's order-preserving codec.
func Run(query, inputJSON string) (string, error) {
	input, err := value.DecodeString(inputJSON)
	if err != nil {
		return "", err
	}
	results, err := Eval(query, input)
	if err != nil {
		return "", err
	}
	lines := make([]string, len(results))
	for i, v := range results {
		s, err := value.EncodeToString(v)
		if err != nil {
			return "", err
		}
		lines[i] = s
	}
	return strings.Join(lines, "\n"), nil
}
