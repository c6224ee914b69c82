// Package parser implements a lexer and recursive-descent parser for
// the jq-compatible query language described by this module. The
// parser consumes the token stream produced by Lexer and builds the
// closed-sum-type AST defined in pkg/types, following the structure of
// the teacher's JSONata parser (pkg/parser in sandrolain/gosonata)
// while implementing jq's own, considerably smaller, grammar.
//
// # Architecture
//
//   - Lexer: tokenizes program text into a stream of Tokens.
//   - Parser: a hand-written recursive-descent parser with one
//     function per precedence level, from loosest (pipe) to tightest
//     (postfix access).
//
// # Example
//
//	expr, err := parser.Parse(".items[] | select(.price > 100)")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ast := expr.AST()
package parser

import (
	"fmt"

	"github.com/kaspervalen/goq/pkg/types"
)

// Parse parses a jq program and returns the compiled Expression.
func Parse(query string) (*types.Expression, error) {
	p := NewParser(query)
	return p.Parse()
}

// Compile parses a jq program with the given options. It is an alias
// for Parse retained for API symmetry with pkg/interp's Eval options.
func Compile(query string, opts ...CompileOption) (*types.Expression, error) {
	p := NewParser(query, opts...)
	return p.Parse()
}

// MustCompile is like Compile but panics on error; intended for
// package-level variable initialization with literal query strings.
func MustCompile(query string, opts ...CompileOption) *types.Expression {
	expr, err := Compile(query, opts...)
	if err != nil {
		panic(fmt.Sprintf("parser: MustCompile(%q): %v", query, err))
	}
	return expr
}

// CompileOption configures parsing behavior.
type CompileOption func(*CompileOptions)

// CompileOptions holds parser configuration.
type CompileOptions struct {
	// MaxDepth limits recursion depth of the parsed expression, to
	// bound stack usage on pathological input (spec.md §4.2 "Parser
	// resource limits").
	MaxDepth int
}

// WithMaxDepth sets the maximum parsing depth. The default is 250.
func WithMaxDepth(depth int) CompileOption {
	return func(opts *CompileOptions) {
		opts.MaxDepth = depth
	}
}

func defaultCompileOptions() CompileOptions {
	return CompileOptions{MaxDepth: 250}
}
