package parser

import (
	"fmt"
	"strconv"

	"github.com/kaspervalen/goq/pkg/types"
	"github.com/kaspervalen/goq/pkg/value"
)

// Parser implements a hand-written recursive-descent parser for jq
// programs. Each precedence level gets its own method, from loosest
// (pipe) to tightest (postfix access), following the teacher's
// separation of concerns (pkg/parser/parser_impl.go in
// sandrolain/gosonata) while replacing JSONata's Pratt-table approach
// with jq's much smaller, fixed grammar.
type Parser struct {
	lexer   *Lexer
	current Token
	opts    CompileOptions
	depth   int
}

// NewParser creates a parser over input, primed with its first token.
func NewParser(input string, opts ...CompileOption) *Parser {
	options := defaultCompileOptions()
	for _, opt := range opts {
		opt(&options)
	}
	p := &Parser{lexer: NewLexer(input), opts: options}
	p.advance()
	return p
}

// Parse parses the entire program and returns the compiled Expression.
// A trailing token after a complete expression is a parse error
// (spec.md §4.2 "whole-input parse").
func (p *Parser) Parse() (*types.Expression, error) {
	if p.current.Type == TokenError {
		return nil, p.lexer.Err()
	}
	if p.current.Type == TokenEOF {
		return nil, p.errorf(types.ErrUnexpectedToken, "empty program")
	}

	node, err := p.parsePipe()
	if err != nil {
		return nil, err
	}

	if p.current.Type == TokenError {
		return nil, p.lexer.Err()
	}
	if p.current.Type != TokenEOF {
		return nil, p.errorf(types.ErrTrailingInput, "unexpected trailing token %q", p.current.Value)
	}

	return types.NewExpression(node, p.lexer.input), nil
}

func (p *Parser) advance() {
	p.current = p.lexer.Next()
}

func (p *Parser) expect(tt TokenType) error {
	if p.current.Type != tt {
		return p.errorf(types.ErrUnexpectedToken, "expected %s but got %s", tt, p.current.Type)
	}
	p.advance()
	return nil
}

func (p *Parser) errorf(code types.ErrorCode, format string, args ...interface{}) error {
	return types.NewError(code, fmt.Sprintf(format, args...), p.current.Position)
}

// --- precedence chain, loosest to tightest ---
// pipe < alt(//) < comma < or < and < comparison < sum < mul < unary < postfix
//
// alt binds looser than comma here (spec.md §4.2 rules 1-3: `pipe :
// alt ("|" alt)*`, `alt : comma ("//" comma)*`, `comma : or_e ("," or_e)*`),
// the reverse of real jq's own grammar. That means `//` filters an
// entire comma-separated stream at once rather than each comma branch
// independently: `1, null // 3` parses as Alt(Comma(1, null), 3), not
// Comma(1, Alt(null, 3)).

func (p *Parser) parsePipe() (*types.ASTNode, error) {
	left, err := p.parseAlt()
	if err != nil {
		return nil, err
	}
	if p.current.Type == TokenPipe {
		pos := p.current.Position
		p.advance()
		right, err := p.parsePipe()
		if err != nil {
			return nil, err
		}
		return &types.ASTNode{Type: types.NodePipe, LHS: left, RHS: right, Position: pos}, nil
	}
	return left, nil
}

func (p *Parser) parseAlt() (*types.ASTNode, error) {
	left, err := p.parseComma()
	if err != nil {
		return nil, err
	}
	for p.current.Type == TokenAlt {
		pos := p.current.Position
		p.advance()
		right, err := p.parseComma()
		if err != nil {
			return nil, err
		}
		left = &types.ASTNode{Type: types.NodeBinary, Op: "//", LHS: left, RHS: right, Position: pos}
	}
	return left, nil
}

func (p *Parser) parseComma() (*types.ASTNode, error) {
	left, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	for p.current.Type == TokenComma {
		pos := p.current.Position
		p.advance()
		right, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		left = &types.ASTNode{Type: types.NodeComma, LHS: left, RHS: right, Position: pos}
	}
	return left, nil
}

func (p *Parser) parseOr() (*types.ASTNode, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.current.Type == TokenOr {
		pos := p.current.Position
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &types.ASTNode{Type: types.NodeBinary, Op: "or", LHS: left, RHS: right, Position: pos}
	}
	return left, nil
}

func (p *Parser) parseAnd() (*types.ASTNode, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.current.Type == TokenAnd {
		pos := p.current.Position
		p.advance()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &types.ASTNode{Type: types.NodeBinary, Op: "and", LHS: left, RHS: right, Position: pos}
	}
	return left, nil
}

func (p *Parser) parseComparison() (*types.ASTNode, error) {
	left, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	for isComparisonToken(p.current.Type) {
		op := p.current.Value
		pos := p.current.Position
		p.advance()
		right, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		left = &types.ASTNode{Type: types.NodeBinary, Op: op, LHS: left, RHS: right, Position: pos}
	}
	return left, nil
}

func isComparisonToken(tt TokenType) bool {
	switch tt {
	case TokenEq, TokenNe, TokenLt, TokenLe, TokenGt, TokenGe:
		return true
	default:
		return false
	}
}

func (p *Parser) parseSum() (*types.ASTNode, error) {
	left, err := p.parseMul()
	if err != nil {
		return nil, err
	}
	for p.current.Type == TokenPlus || p.current.Type == TokenMinus {
		op := p.current.Value
		pos := p.current.Position
		p.advance()
		right, err := p.parseMul()
		if err != nil {
			return nil, err
		}
		left = &types.ASTNode{Type: types.NodeBinary, Op: op, LHS: left, RHS: right, Position: pos}
	}
	return left, nil
}

func (p *Parser) parseMul() (*types.ASTNode, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.current.Type == TokenStar || p.current.Type == TokenSlash || p.current.Type == TokenPercent {
		op := p.current.Value
		pos := p.current.Position
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &types.ASTNode{Type: types.NodeBinary, Op: op, LHS: left, RHS: right, Position: pos}
	}
	return left, nil
}

// parseUnary desugars unary minus into Operation(Literal(0), "-", E)
// at parse time (spec.md §4.1 "unary minus ... left to the parser"),
// so the evaluator has no notion of a unary operator at all.
func (p *Parser) parseUnary() (*types.ASTNode, error) {
	if p.current.Type == TokenMinus {
		pos := p.current.Position
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		zero := &types.ASTNode{Type: types.NodeLiteral, Literal: 0.0, Position: pos}
		return &types.ASTNode{Type: types.NodeBinary, Op: "-", LHS: zero, RHS: operand, Position: pos}, nil
	}
	return p.parsePostfix()
}

// parsePostfix parses a primary term followed by any chain of field
// accesses, index/slice suffixes, and optional markers.
func (p *Parser) parsePostfix() (*types.ASTNode, error) {
	node, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for {
		switch p.current.Type {
		case TokenDot:
			pos := p.current.Position
			p.advance()
			switch p.current.Type {
			case TokenIdent:
				key := p.current.Value
				p.advance()
				keyNode := &types.ASTNode{Type: types.NodeKey, Key: key, Position: pos}
				node = &types.ASTNode{Type: types.NodePipe, LHS: node, RHS: keyNode, Position: pos}
			case TokenString:
				key := p.current.Value
				p.advance()
				keyNode := &types.ASTNode{Type: types.NodeKey, Key: key, Position: pos}
				node = &types.ASTNode{Type: types.NodePipe, LHS: node, RHS: keyNode, Position: pos}
			case TokenBracketOpen:
				suffix, err := p.parseBracketSuffix(pos)
				if err != nil {
					return nil, err
				}
				node = &types.ASTNode{Type: types.NodePipe, LHS: node, RHS: suffix, Position: pos}
			default:
				return nil, p.errorf(types.ErrUnexpectedToken, "expected field name or '[' after '.', got %s", p.current.Type)
			}
		case TokenBracketOpen:
			pos := p.current.Position
			suffix, err := p.parseBracketSuffix(pos)
			if err != nil {
				return nil, err
			}
			node = &types.ASTNode{Type: types.NodePipe, LHS: node, RHS: suffix, Position: pos}
		case TokenQuestion:
			p.advance()
			node = &types.ASTNode{Type: types.NodeOptional, LHS: node, Position: node.Position}
		default:
			return node, nil
		}
	}
}

// parseBracketSuffix parses a '[' ... ']' access suffix: the empty
// iterator .[], a multi-index list .[e1, e2, ...], or a slice
// .[lo?:hi?]. The current token is TokenBracketOpen on entry.
func (p *Parser) parseBracketSuffix(pos int) (*types.ASTNode, error) {
	p.advance() // consume '['

	if p.current.Type == TokenBracketClose {
		p.advance()
		return &types.ASTNode{Type: types.NodeIndex, Position: pos}, nil
	}

	if p.current.Type == TokenColon {
		p.advance()
		hi, err := p.parsePipe()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenBracketClose); err != nil {
			return nil, err
		}
		return &types.ASTNode{Type: types.NodeSlice, Hi: hi, Position: pos}, nil
	}

	first, err := p.parseOr()
	if err != nil {
		return nil, err
	}

	if p.current.Type == TokenColon {
		p.advance()
		if p.current.Type == TokenBracketClose {
			p.advance()
			return &types.ASTNode{Type: types.NodeSlice, Lo: first, Position: pos}, nil
		}
		hi, err := p.parsePipe()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenBracketClose); err != nil {
			return nil, err
		}
		return &types.ASTNode{Type: types.NodeSlice, Lo: first, Hi: hi, Position: pos}, nil
	}

	indices := []*types.ASTNode{first}
	for p.current.Type == TokenComma {
		p.advance()
		idx, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		indices = append(indices, idx)
	}
	if err := p.expect(TokenBracketClose); err != nil {
		return nil, err
	}
	return &types.ASTNode{Type: types.NodeIndex, Indices: indices, Position: pos}, nil
}

// parsePrimary parses a single term: identity, recursion, literals,
// variables, parenthesized expressions, constructors, control forms,
// and built-in calls.
func (p *Parser) parsePrimary() (*types.ASTNode, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > p.opts.MaxDepth {
		return nil, p.errorf(types.ErrUnexpectedToken, "expression nested too deeply")
	}

	tok := p.current
	switch tok.Type {
	case TokenDot:
		p.advance()
		switch p.current.Type {
		case TokenIdent:
			key := p.current.Value
			p.advance()
			return &types.ASTNode{Type: types.NodeKey, Key: key, Position: tok.Position}, nil
		case TokenString:
			key := p.current.Value
			p.advance()
			return &types.ASTNode{Type: types.NodeKey, Key: key, Position: tok.Position}, nil
		case TokenBracketOpen:
			return p.parseBracketSuffix(tok.Position)
		default:
			return &types.ASTNode{Type: types.NodeIdentity, Position: tok.Position}, nil
		}

	case TokenDotDot:
		p.advance()
		return &types.ASTNode{Type: types.NodeRecurse, Position: tok.Position}, nil

	case TokenNumber:
		p.advance()
		f, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, types.NewError(types.ErrUnexpectedToken, "invalid number literal "+tok.Value, tok.Position)
		}
		return &types.ASTNode{Type: types.NodeLiteral, Literal: f, Position: tok.Position}, nil

	case TokenString:
		p.advance()
		return &types.ASTNode{Type: types.NodeLiteral, Literal: tok.Value, Position: tok.Position}, nil

	case TokenBoolean:
		p.advance()
		return &types.ASTNode{Type: types.NodeLiteral, Literal: tok.Value == "true", Position: tok.Position}, nil

	case TokenNull:
		p.advance()
		return &types.ASTNode{Type: types.NodeLiteral, Literal: value.NullValue, Position: tok.Position}, nil

	case TokenVariable:
		p.advance()
		return &types.ASTNode{Type: types.NodeVariable, Name: tok.Value, Position: tok.Position}, nil

	case TokenParenOpen:
		p.advance()
		inner, err := p.parsePipe()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenParenClose); err != nil {
			return nil, err
		}
		return inner, nil

	case TokenBracketOpen:
		p.advance()
		if p.current.Type == TokenBracketClose {
			p.advance()
			return &types.ASTNode{Type: types.NodeArrayConstruct, Position: tok.Position}, nil
		}
		elem, err := p.parsePipe()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenBracketClose); err != nil {
			return nil, err
		}
		return &types.ASTNode{Type: types.NodeArrayConstruct, Elem: elem, Position: tok.Position}, nil

	case TokenBraceOpen:
		return p.parseObjectConstruct()

	case TokenIf:
		return p.parseIf()

	case TokenTry:
		return p.parseTryCatch()

	case TokenNot:
		p.advance()
		return &types.ASTNode{Type: types.NodeCall, Callee: "not", Position: tok.Position}, nil

	case TokenIdent:
		p.advance()
		return p.parseCall(tok.Value, tok.Position)

	case TokenError:
		return nil, p.lexer.Err()

	default:
		return nil, p.errorf(types.ErrUnexpectedToken, "unexpected token %s", tok.Type)
	}
}

// parseCall parses a built-in function call. Most of the fixed
// built-ins (spec.md §4.3 "Built-in calls") take no arguments; map and
// select take exactly one filter argument, and flatten takes zero or
// one argument expression that must evaluate to a number. The parser
// accepts any identifier and any number of ';'-separated arguments;
// the interpreter, where the fixed built-in table lives, rejects
// unknown names and checks the argument count of map and select only.
func (p *Parser) parseCall(name string, pos int) (*types.ASTNode, error) {
	node := &types.ASTNode{Type: types.NodeCall, Callee: name, Position: pos}
	if p.current.Type != TokenParenOpen {
		return node, nil
	}
	p.advance()
	if p.current.Type != TokenParenClose {
		arg, err := p.parsePipe()
		if err != nil {
			return nil, err
		}
		node.Args = append(node.Args, arg)
		for p.current.Type == TokenSemicolon {
			p.advance()
			arg, err := p.parsePipe()
			if err != nil {
				return nil, err
			}
			node.Args = append(node.Args, arg)
		}
	}
	if err := p.expect(TokenParenClose); err != nil {
		return nil, err
	}
	return node, nil
}

// parseIf parses `if COND then THEN (elif COND then THEN)* (else
// ELSE)? end`. A missing else branch desugars to the identity filter,
// matching jq's "unmatched input passes through unchanged" semantics.
func (p *Parser) parseIf() (*types.ASTNode, error) {
	pos := p.current.Position
	p.advance() // 'if'
	cond, err := p.parsePipe()
	if err != nil {
		return nil, err
	}
	if err := p.expect(TokenThen); err != nil {
		return nil, err
	}
	then, err := p.parsePipe()
	if err != nil {
		return nil, err
	}
	elseBranch, err := p.parseElseChain()
	if err != nil {
		return nil, err
	}
	if err := p.expect(TokenEnd); err != nil {
		return nil, err
	}
	return &types.ASTNode{Type: types.NodeIf, LHS: cond, RHS: then, Else: elseBranch, Position: pos}, nil
}

func (p *Parser) parseElseChain() (*types.ASTNode, error) {
	switch p.current.Type {
	case TokenElif:
		pos := p.current.Position
		p.advance()
		cond, err := p.parsePipe()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenThen); err != nil {
			return nil, err
		}
		then, err := p.parsePipe()
		if err != nil {
			return nil, err
		}
		elseBranch, err := p.parseElseChain()
		if err != nil {
			return nil, err
		}
		return &types.ASTNode{Type: types.NodeIf, LHS: cond, RHS: then, Else: elseBranch, Position: pos}, nil
	case TokenElse:
		p.advance()
		return p.parsePipe()
	default:
		return &types.ASTNode{Type: types.NodeIdentity, Position: p.current.Position}, nil
	}
}

// parseTryCatch parses `try BODY (catch HANDLER)?`. Both BODY and
// HANDLER bind at postfix tightness, matching jq's own grammar where
// try/catch operate on a single term rather than swallowing a
// trailing pipe.
func (p *Parser) parseTryCatch() (*types.ASTNode, error) {
	pos := p.current.Position
	p.advance() // 'try'
	body, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	node := &types.ASTNode{Type: types.NodeTryCatch, LHS: body, Position: pos}
	if p.current.Type == TokenCatch {
		p.advance()
		handler, err := p.parsePostfix()
		if err != nil {
			return nil, err
		}
		node.Handler = handler
	}
	return node, nil
}

// parseObjectConstruct parses `{ entry (, entry)* }`.
func (p *Parser) parseObjectConstruct() (*types.ASTNode, error) {
	pos := p.current.Position
	p.advance() // '{'
	node := &types.ASTNode{Type: types.NodeObjectConstruct, Position: pos}
	if p.current.Type == TokenBraceClose {
		p.advance()
		return node, nil
	}
	for {
		entry, err := p.parseObjectEntry()
		if err != nil {
			return nil, err
		}
		node.Entries = append(node.Entries, entry)
		if p.current.Type != TokenComma {
			break
		}
		p.advance()
	}
	if err := p.expect(TokenBraceClose); err != nil {
		return nil, err
	}
	return node, nil
}

// parseObjectEntry parses one `key: value` pair, or one of the
// shorthand forms `foo` (== `foo: .foo`) and `$name` (== `name:
// $name`), desugared here so the evaluator never sees an absent value
// expression (spec.md §3 "Data Model").
func (p *Parser) parseObjectEntry() (types.ObjectEntry, error) {
	tok := p.current
	switch tok.Type {
	case TokenIdent, TokenString:
		p.advance()
		keyLit := &types.ASTNode{Type: types.NodeLiteral, Literal: tok.Value, Position: tok.Position}
		if p.current.Type == TokenColon {
			p.advance()
			val, err := p.parseOr()
			if err != nil {
				return types.ObjectEntry{}, err
			}
			return types.ObjectEntry{Key: keyLit, Value: val}, nil
		}
		valNode := &types.ASTNode{Type: types.NodeKey, Key: tok.Value, Position: tok.Position}
		return types.ObjectEntry{Key: keyLit, Value: valNode}, nil

	case TokenVariable:
		p.advance()
		keyLit := &types.ASTNode{Type: types.NodeLiteral, Literal: tok.Value, Position: tok.Position}
		if p.current.Type == TokenColon {
			p.advance()
			val, err := p.parseOr()
			if err != nil {
				return types.ObjectEntry{}, err
			}
			return types.ObjectEntry{Key: keyLit, Value: val}, nil
		}
		valNode := &types.ASTNode{Type: types.NodeVariable, Name: tok.Value, Position: tok.Position}
		return types.ObjectEntry{Key: keyLit, Value: valNode}, nil

	case TokenParenOpen:
		p.advance()
		keyExpr, err := p.parsePipe()
		if err != nil {
			return types.ObjectEntry{}, err
		}
		if err := p.expect(TokenParenClose); err != nil {
			return types.ObjectEntry{}, err
		}
		if err := p.expect(TokenColon); err != nil {
			return types.ObjectEntry{}, err
		}
		val, err := p.parseOr()
		if err != nil {
			return types.ObjectEntry{}, err
		}
		return types.ObjectEntry{Key: keyExpr, Value: val}, nil

	default:
		return types.ObjectEntry{}, p.errorf(types.ErrBadObjectKey, "expected object key, got %s", tok.Type)
	}
}
