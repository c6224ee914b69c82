package types

import "github.com/kaspervalen/goq/pkg/value"

// NodeType identifies the shape of an ASTNode, one per Expression
// variant in spec.md §3. The AST is a closed sum type dispatched by
// pattern matching (a type switch on Type), never virtual dispatch —
// spec.md §9 "Polymorphism over the AST".
type NodeType uint8

const (
	NodeIdentity NodeType = iota
	NodeLiteral
	NodePipe
	NodeComma
	NodeKey
	NodeIndex
	NodeSlice
	NodeOptional
	NodeArrayConstruct
	NodeObjectConstruct
	NodeBinary
	NodeIf
	NodeTryCatch
	NodeVariable
	NodeRecurse
	NodeCall
)

// String returns a short label for the node type, used in error
// messages and debug output.
func (t NodeType) String() string {
	switch t {
	case NodeIdentity:
		return "identity"
	case NodeLiteral:
		return "literal"
	case NodePipe:
		return "pipe"
	case NodeComma:
		return "comma"
	case NodeKey:
		return "key"
	case NodeIndex:
		return "index"
	case NodeSlice:
		return "slice"
	case NodeOptional:
		return "optional"
	case NodeArrayConstruct:
		return "array"
	case NodeObjectConstruct:
		return "object"
	case NodeBinary:
		return "binary"
	case NodeIf:
		return "if"
	case NodeTryCatch:
		return "try"
	case NodeVariable:
		return "variable"
	case NodeRecurse:
		return "recurse"
	case NodeCall:
		return "call"
	default:
		return "unknown"
	}
}

// ObjectEntry is one key/value pair of an ObjectConstruct node. Value
// is never nil: `{foo}` and `{$name}` shorthand are desugared by the
// parser into full key/value pairs (see parser.parseObjectEntry), so
// the evaluator never special-cases an absent value expression.
type ObjectEntry struct {
	Key   *ASTNode
	Value *ASTNode
}

// ASTNode is a single node of the compiled expression tree (spec.md
// §3 "Expression (AST)"). Every node is immutable once parsing
// returns it (spec.md §3 Invariants). Fields are grouped by which
// NodeType variants use them; an unused field is left at its zero
// value.
type ASTNode struct {
	Type     NodeType
	Position int

	// NodeLiteral
	Literal value.Value

	// NodeKey
	Key string

	// NodeIndex: each element must evaluate to a number. Empty means
	// the iterator form `.[]`.
	Indices []*ASTNode

	// NodeSlice: either may be nil, meaning the corresponding endpoint
	// is absent (spec.md §3 "Slice(lo?, hi?)").
	Lo, Hi *ASTNode

	// NodePipe, NodeComma, NodeBinary, NodeOptional (LHS only),
	// NodeIf (LHS=condition, RHS=then, Else=else)
	LHS, RHS, Else *ASTNode

	// NodeBinary: one of + - * / % == != < <= > >= and or //
	Op string

	// NodeVariable: name without the leading '$'.
	Name string

	// NodeArrayConstruct: nil means the empty array literal `[]`.
	Elem *ASTNode

	// NodeObjectConstruct
	Entries []ObjectEntry

	// NodeTryCatch: Handler nil means bare `try E` with no catch.
	Handler *ASTNode

	// NodeCall: Callee is the identifier as written; the parser does
	// not check it against the fixed built-in names (spec.md §4.3
	// "Built-in calls"), the interpreter does. Args holds zero or more
	// argument expressions (map/select take exactly one, flatten takes
	// zero or one that evaluates to a number, the rest take none).
	Callee string
	Args   []*ASTNode
}

// NewNode creates a bare ASTNode of the given type and position. The
// caller fills in whichever fields the NodeType requires.
func NewNode(t NodeType, pos int) *ASTNode {
	return &ASTNode{Type: t, Position: pos}
}

// Expression is a compiled jq program: a parsed AST paired with its
// source text, ready to be evaluated any number of times against
// different inputs (spec.md §3 "Lifecycle"). Adapted from gosonata's
// types.Expression (pkg/types/expression.go).
type Expression struct {
	ast    *ASTNode
	source string
}

// NewExpression wraps ast with its originating source text.
func NewExpression(ast *ASTNode, source string) *Expression {
	return &Expression{ast: ast, source: source}
}

// AST returns the root node of the compiled expression.
func (e *Expression) AST() *ASTNode { return e.ast }

// Source returns the original program text.
func (e *Expression) Source() string { return e.source }

// String implements fmt.Stringer.
func (e *Expression) String() string { return e.source }
