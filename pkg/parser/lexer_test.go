package parser_test

import (
	"testing"

	"github.com/kaspervalen/goq/pkg/parser"
)

type lexerTestCase struct {
	name      string
	input     string
	expected  []parser.Token
	expectErr bool
}

func runLexerTests(t *testing.T, tests []lexerTestCase) {
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			lx := parser.NewLexer(tc.input)
			var got []parser.Token
			for {
				tok := lx.Next()
				if tok.Type == parser.TokenEOF {
					break
				}
				got = append(got, tok)
			}
			if tc.expectErr {
				if lx.Err() == nil {
					t.Fatalf("expected a lex error, got none")
				}
				return
			}
			if lx.Err() != nil {
				t.Fatalf("unexpected lex error: %v", lx.Err())
			}
			if len(got) != len(tc.expected) {
				t.Fatalf("token count mismatch: got %d %v, want %d %v", len(got), got, len(tc.expected), tc.expected)
			}
			for i, want := range tc.expected {
				if got[i].Type != want.Type || got[i].Value != want.Value {
					t.Errorf("token %d: got %+v, want %+v", i, got[i], want)
				}
			}
		})
	}
}

func TestLexerWhitespace(t *testing.T) {
	runLexerTests(t, []lexerTestCase{
		{name: "no whitespace", input: ".foo", expected: []parser.Token{
			{Type: parser.TokenDot, Value: "."},
			{Type: parser.TokenIdent, Value: "foo"},
		}},
		{name: "surrounding whitespace", input: "  .foo  ", expected: []parser.Token{
			{Type: parser.TokenDot, Value: "."},
			{Type: parser.TokenIdent, Value: "foo"},
		}},
	})
}

func TestLexerPunctuation(t *testing.T) {
	runLexerTests(t, []lexerTestCase{
		{name: "multi-char before single-char", input: "a == b", expected: []parser.Token{
			{Type: parser.TokenIdent, Value: "a"},
			{Type: parser.TokenEq, Value: "=="},
			{Type: parser.TokenIdent, Value: "b"},
		}},
		{name: "recurse dots", input: "..", expected: []parser.Token{
			{Type: parser.TokenDotDot, Value: ".."},
		}},
		{name: "alternative operator", input: "a // b", expected: []parser.Token{
			{Type: parser.TokenIdent, Value: "a"},
			{Type: parser.TokenAlt, Value: "//"},
			{Type: parser.TokenIdent, Value: "b"},
		}},
		{name: "update-assign vs pipe", input: "a |= b", expected: []parser.Token{
			{Type: parser.TokenIdent, Value: "a"},
			{Type: parser.TokenUpdateAssign, Value: "|="},
			{Type: parser.TokenIdent, Value: "b"},
		}},
		{name: "bare pipe", input: "a | b", expected: []parser.Token{
			{Type: parser.TokenIdent, Value: "a"},
			{Type: parser.TokenPipe, Value: "|"},
			{Type: parser.TokenIdent, Value: "b"},
		}},
	})
}

func TestLexerStrings(t *testing.T) {
	runLexerTests(t, []lexerTestCase{
		{name: "plain string", input: `"hello"`, expected: []parser.Token{
			{Type: parser.TokenString, Value: "hello"},
		}},
		{name: "escapes", input: `"a\tb\n\"c\""`, expected: []parser.Token{
			{Type: parser.TokenString, Value: "a\tb\n\"c\""},
		}},
		{name: "unicode escape", input: `"\` + `u00E9"`, expected: []parser.Token{
			{Type: parser.TokenString, Value: "é"},
		}},
		{name: "unterminated", input: `"abc`, expectErr: true},
		{name: "bad escape", input: `"\q"`, expectErr: true},
	})
}

func TestLexerNumbers(t *testing.T) {
	runLexerTests(t, []lexerTestCase{
		{name: "integer", input: "42", expected: []parser.Token{
			{Type: parser.TokenNumber, Value: "42"},
		}},
		{name: "fraction", input: "4.2", expected: []parser.Token{
			{Type: parser.TokenNumber, Value: "4.2"},
		}},
		{name: "exponent", input: "1e10", expected: []parser.Token{
			{Type: parser.TokenNumber, Value: "1e10"},
		}},
		{name: "signed exponent", input: "1.5e-3", expected: []parser.Token{
			{Type: parser.TokenNumber, Value: "1.5e-3"},
		}},
		{name: "minus not absorbed", input: "-1", expected: []parser.Token{
			{Type: parser.TokenMinus, Value: "-"},
			{Type: parser.TokenNumber, Value: "1"},
		}},
	})
}

func TestLexerIdentifiersAndKeywords(t *testing.T) {
	runLexerTests(t, []lexerTestCase{
		{name: "identifier", input: "foo_bar2", expected: []parser.Token{
			{Type: parser.TokenIdent, Value: "foo_bar2"},
		}},
		{name: "keyword if", input: "if", expected: []parser.Token{
			{Type: parser.TokenIf, Value: "if"},
		}},
		{name: "literal true", input: "true", expected: []parser.Token{
			{Type: parser.TokenBoolean, Value: "true"},
		}},
		{name: "literal null", input: "null", expected: []parser.Token{
			{Type: parser.TokenNull, Value: "null"},
		}},
		{name: "variable", input: "$name", expected: []parser.Token{
			{Type: parser.TokenVariable, Value: "name"},
		}},
	})
}

func TestLexerUnexpectedChar(t *testing.T) {
	runLexerTests(t, []lexerTestCase{
		{name: "backtick", input: "`", expectErr: true},
		{name: "at sign", input: "@", expectErr: true},
	})
}
