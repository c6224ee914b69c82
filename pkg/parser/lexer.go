package parser

import (
	"strings"
	"unicode/utf8"

	"github.com/kaspervalen/goq/pkg/types"
)

const eof = -1

// Lexer converts jq program text into a sequence of tokens. The
// implementation follows Rob Pike's "Lexical Scanning in Go" pull
// design, adapted from the teacher's Lexer (pkg/parser/lexer.go in
// sandrolain/gosonata): a single mutable cursor advanced rune by rune,
// with Next returning one token per call.
type Lexer struct {
	input   string
	length  int
	start   int
	current int
	width   int
	err     error
}

// NewLexer creates a lexer over input. Tokens are produced one at a
// time by successive calls to Next.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input, length: len(input)}
}

// Err returns the first error encountered during lexing, if any.
func (l *Lexer) Err() error { return l.err }

// Next returns the next token from the input. Once the end of input is
// reached, Next returns TokenEOF for every subsequent call.
func (l *Lexer) Next() Token {
	l.skipWhitespace()

	ch := l.nextRune()
	if ch == eof {
		return l.eofToken()
	}

	if rts, ok := symbols2[ch]; ok {
		for _, rt := range rts {
			if l.acceptRune(rt.r) {
				return l.newToken(rt.tt)
			}
		}
	}

	if tt, ok := symbols1[ch]; ok {
		return l.newToken(tt)
	}

	if ch == '"' {
		l.ignore()
		return l.scanString()
	}

	if ch >= '0' && ch <= '9' {
		l.backup()
		return l.scanNumber()
	}

	if ch == '$' {
		l.ignore()
		return l.scanVariable()
	}

	if isNameStart(ch) {
		l.backup()
		return l.scanName()
	}

	return l.errorToken(types.ErrUnexpectedChar, "unexpected character "+string(ch))
}

// scanString reads a double-quoted string literal. The opening quote
// has already been consumed. Escapes are processed here rather than
// deferred to the parser, matching spec.md §4.1 "Strings: ... escape
// processing ...".
func (l *Lexer) scanString() Token {
	var buf strings.Builder
	for {
		ch := l.nextRune()
		switch ch {
		case '"':
			t := l.newToken(TokenString)
			t.Value = buf.String()
			return t
		case eof, '\n':
			return l.errorToken(types.ErrUnterminatedStr, "unterminated string literal")
		case '\\':
			esc := l.nextRune()
			switch esc {
			case '"':
				buf.WriteByte('"')
			case '\\':
				buf.WriteByte('\\')
			case '/':
				buf.WriteByte('/')
			case 'b':
				buf.WriteByte('\b')
			case 'f':
				buf.WriteByte('\f')
			case 'n':
				buf.WriteByte('\n')
			case 'r':
				buf.WriteByte('\r')
			case 't':
				buf.WriteByte('\t')
			case 'u':
				r, ok := l.scanUnicodeEscape()
				if !ok {
					return l.errorToken(types.ErrBadEscape, "invalid \\u escape")
				}
				buf.WriteRune(r)
			case eof:
				return l.errorToken(types.ErrUnterminatedStr, "unterminated string literal")
			default:
				return l.errorToken(types.ErrBadEscape, "invalid escape sequence \\"+string(esc))
			}
		default:
			buf.WriteRune(ch)
		}
	}
}

// scanUnicodeEscape reads the 4 hex digits of a \uXXXX escape. It does
// not attempt UTF-16 surrogate-pair recombination: spec.md §4.1 lists
// \uXXXX as a single escape form without mentioning surrogate pairs,
// so each \uXXXX decodes to exactly one rune.
func (l *Lexer) scanUnicodeEscape() (rune, bool) {
	var v rune
	for i := 0; i < 4; i++ {
		ch := l.nextRune()
		var d rune
		switch {
		case ch >= '0' && ch <= '9':
			d = ch - '0'
		case ch >= 'a' && ch <= 'f':
			d = ch - 'a' + 10
		case ch >= 'A' && ch <= 'F':
			d = ch - 'A' + 10
		default:
			return 0, false
		}
		v = v*16 + d
	}
	return v, true
}

// scanNumber reads a number literal: digits, optional fractional part,
// optional exponent (spec.md §4.1 "Numbers"). A leading minus is never
// part of the token — unary negation is a parser-level concern.
func (l *Lexer) scanNumber() Token {
	l.acceptAll(isDigit)

	if l.acceptRune('.') {
		if !l.acceptAll(isDigit) {
			// No digits after '.': back up so the dot can be its own
			// token (e.g. the range/path dot in "1.foo", unlikely in
			// practice but keeps the grammar total).
			l.current-- // the '.' is one byte
			return l.newToken(TokenNumber)
		}
	}

	if l.acceptRunes('e', 'E') {
		l.acceptRunes('+', '-')
		l.acceptAll(isDigit)
	}

	return l.newToken(TokenNumber)
}

// scanVariable reads a variable name. The leading '$' has already been
// consumed.
func (l *Lexer) scanVariable() Token {
	for {
		ch := l.nextRune()
		if ch == eof || !isNameCont(ch) {
			if ch != eof {
				l.backup()
			}
			break
		}
	}
	return l.newToken(TokenVariable)
}

// scanName reads an identifier or keyword.
func (l *Lexer) scanName() Token {
	for {
		ch := l.nextRune()
		if ch == eof || !isNameCont(ch) {
			if ch != eof {
				l.backup()
			}
			break
		}
	}
	t := l.newToken(TokenIdent)
	if tt, ok := lookupKeyword(t.Value); ok {
		t.Type = tt
	}
	return t
}

// --- cursor primitives ---

func (l *Lexer) eofToken() Token {
	return Token{Type: TokenEOF, Position: l.current}
}

func (l *Lexer) errorToken(code types.ErrorCode, message string) Token {
	t := l.newToken(TokenError)
	l.err = types.NewError(code, message, t.Position)
	return t
}

func (l *Lexer) newToken(tt TokenType) Token {
	t := Token{Type: tt, Value: l.input[l.start:l.current], Position: l.start}
	l.width = 0
	l.start = l.current
	return t
}

func (l *Lexer) nextRune() rune {
	if l.current >= l.length {
		l.width = 0
		return eof
	}
	r, w := utf8.DecodeRuneInString(l.input[l.current:])
	l.width = w
	l.current += w
	return r
}

func (l *Lexer) backup() {
	l.current -= l.width
}

func (l *Lexer) ignore() {
	l.start = l.current
}

func (l *Lexer) acceptRune(r rune) bool {
	if l.nextRune() == r {
		return true
	}
	l.backup()
	return false
}

func (l *Lexer) acceptRunes(rs ...rune) bool {
	ch := l.nextRune()
	for _, r := range rs {
		if ch == r {
			return true
		}
	}
	l.backup()
	return false
}

func (l *Lexer) accept(isValid func(rune) bool) bool {
	if isValid(l.nextRune()) {
		return true
	}
	l.backup()
	return false
}

func (l *Lexer) acceptAll(isValid func(rune) bool) bool {
	var matched bool
	for l.accept(isValid) {
		matched = true
	}
	return matched
}

func (l *Lexer) skipWhitespace() {
	l.acceptAll(isWhitespace)
	l.ignore()
}

func isWhitespace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r':
		return true
	default:
		return false
	}
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isNameStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isNameCont(r rune) bool {
	return isNameStart(r) || isDigit(r)
}
