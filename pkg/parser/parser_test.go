package parser_test

import (
	"testing"

	"github.com/kaspervalen/goq/pkg/parser"
	"github.com/kaspervalen/goq/pkg/types"
)

func mustParse(t *testing.T, query string) *types.Expression {
	t.Helper()
	expr, err := parser.Parse(query)
	if err != nil {
		t.Fatalf("Parse(%q): unexpected error: %v", query, err)
	}
	return expr
}

func TestParseIdentityAndKey(t *testing.T) {
	expr := mustParse(t, ".foo")
	ast := expr.AST()
	if ast.Type != types.NodeKey || ast.Key != "foo" {
		t.Fatalf("got %+v", ast)
	}

	ast = mustParse(t, ".").AST()
	if ast.Type != types.NodeIdentity {
		t.Fatalf("got %+v", ast)
	}
}

func TestParseFieldChain(t *testing.T) {
	ast := mustParse(t, ".a.b").AST()
	if ast.Type != types.NodePipe {
		t.Fatalf("expected a pipe chain, got %s", ast.Type)
	}
	if ast.LHS.Type != types.NodeKey || ast.LHS.Key != "a" {
		t.Fatalf("got LHS %+v", ast.LHS)
	}
	if ast.RHS.Type != types.NodeKey || ast.RHS.Key != "b" {
		t.Fatalf("got RHS %+v", ast.RHS)
	}
}

func TestParsePipePrecedence(t *testing.T) {
	// "a, b | c" should parse as "(a, b) | c": pipe binds loosest.
	ast := mustParse(t, ".a, .b | .c").AST()
	if ast.Type != types.NodePipe {
		t.Fatalf("expected top-level pipe, got %s", ast.Type)
	}
	if ast.LHS.Type != types.NodeComma {
		t.Fatalf("expected comma on the left of pipe, got %s", ast.LHS.Type)
	}
}

func TestParseCommaAltPrecedence(t *testing.T) {
	// "1, null // 3" should parse as "(1, null) // 3": alt binds looser
	// than comma here, the reverse of real jq's grammar (spec.md §4.2
	// rules 1-3). "//" must filter the whole comma-stream at once, not
	// each comma branch independently.
	ast := mustParse(t, "1, null // 3").AST()
	if ast.Type != types.NodeBinary || ast.Op != "//" {
		t.Fatalf("expected top-level '//', got %+v", ast)
	}
	if ast.LHS.Type != types.NodeComma {
		t.Fatalf("expected comma on the left of '//', got %s", ast.LHS.Type)
	}
	if ast.LHS.LHS.Type != types.NodeLiteral {
		t.Fatalf("expected literal 1 as comma's left operand, got %+v", ast.LHS.LHS)
	}
	if ast.LHS.RHS.Type != types.NodeLiteral {
		t.Fatalf("expected literal null as comma's right operand, got %+v", ast.LHS.RHS)
	}
	if ast.RHS.Type != types.NodeLiteral {
		t.Fatalf("expected literal 3 as '//' right operand, got %+v", ast.RHS)
	}
}

func TestParseArithmeticPrecedence(t *testing.T) {
	// "1 + 2 * 3" should parse as "1 + (2 * 3)".
	ast := mustParse(t, "1 + 2 * 3").AST()
	if ast.Type != types.NodeBinary || ast.Op != "+" {
		t.Fatalf("expected top-level '+', got %+v", ast)
	}
	if ast.RHS.Type != types.NodeBinary || ast.RHS.Op != "*" {
		t.Fatalf("expected '*' nested on the right, got %+v", ast.RHS)
	}
}

func TestParseUnaryMinusDesugars(t *testing.T) {
	ast := mustParse(t, "-1").AST()
	if ast.Type != types.NodeBinary || ast.Op != "-" {
		t.Fatalf("expected desugared subtraction, got %+v", ast)
	}
	if lit, ok := ast.LHS.Literal.(float64); !ok || lit != 0 {
		t.Fatalf("expected literal 0 on the left, got %+v", ast.LHS)
	}
}

func TestParseArrayAndObjectConstructors(t *testing.T) {
	ast := mustParse(t, "[.a, .b]").AST()
	if ast.Type != types.NodeArrayConstruct {
		t.Fatalf("got %+v", ast)
	}

	ast = mustParse(t, "{foo, bar: .baz}").AST()
	if ast.Type != types.NodeObjectConstruct || len(ast.Entries) != 2 {
		t.Fatalf("got %+v", ast)
	}
	if ast.Entries[0].Value.Type != types.NodeKey || ast.Entries[0].Value.Key != "foo" {
		t.Fatalf("shorthand entry not desugared correctly: %+v", ast.Entries[0])
	}
}

func TestParseIndexAndSlice(t *testing.T) {
	ast := mustParse(t, ".[0,2]").AST()
	if ast.Type != types.NodeIndex || len(ast.Indices) != 2 {
		t.Fatalf("got %+v", ast)
	}

	ast = mustParse(t, ".[1:3]").AST()
	if ast.Type != types.NodeSlice || ast.Lo == nil || ast.Hi == nil {
		t.Fatalf("got %+v", ast)
	}

	ast = mustParse(t, ".[]").AST()
	if ast.Type != types.NodeIndex || len(ast.Indices) != 0 {
		t.Fatalf("got %+v", ast)
	}
}

func TestParseOptionalPostfix(t *testing.T) {
	ast := mustParse(t, ".foo?").AST()
	if ast.Type != types.NodeOptional {
		t.Fatalf("got %+v", ast)
	}
}

func TestParseIfElifElseDesugars(t *testing.T) {
	ast := mustParse(t, "if .a then 1 elif .b then 2 else 3 end").AST()
	if ast.Type != types.NodeIf {
		t.Fatalf("got %+v", ast)
	}
	if ast.Else.Type != types.NodeIf {
		t.Fatalf("expected elif to desugar to nested if, got %+v", ast.Else)
	}
}

func TestParseIfWithoutElseYieldsIdentity(t *testing.T) {
	ast := mustParse(t, "if .a then 1 end").AST()
	if ast.Else.Type != types.NodeIdentity {
		t.Fatalf("expected identity for missing else, got %+v", ast.Else)
	}
}

func TestParseTryCatch(t *testing.T) {
	ast := mustParse(t, "try .a catch .").AST()
	if ast.Type != types.NodeTryCatch || ast.Handler == nil {
		t.Fatalf("got %+v", ast)
	}

	ast = mustParse(t, "try .a").AST()
	if ast.Handler != nil {
		t.Fatalf("expected no handler, got %+v", ast.Handler)
	}
}

func TestParseBuiltinCalls(t *testing.T) {
	ast := mustParse(t, "map(.x)").AST()
	if ast.Type != types.NodeCall || ast.Callee != "map" || len(ast.Args) != 1 {
		t.Fatalf("got %+v", ast)
	}

	ast = mustParse(t, "length").AST()
	if ast.Type != types.NodeCall || ast.Callee != "length" || len(ast.Args) != 0 {
		t.Fatalf("got %+v", ast)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []string{"", "(", ".foo bar", "{"}
	for _, q := range cases {
		if _, err := parser.Parse(q); err == nil {
			t.Errorf("Parse(%q): expected an error, got none", q)
		}
	}
}

func TestParseTrailingInput(t *testing.T) {
	if _, err := parser.Parse(".a )"); err == nil {
		t.Fatalf("expected a trailing-input error")
	}
}
