// Package ast defines the AST node contract consumed by the compiler
// (spec.md §4.1, §6). Lexing/parsing that produces these nodes is out of
// scope for the core (spec.md §1); this package only fixes the shape the
// compiler is specified against, grounded on the teacher's frontend/nodes.go
// node hierarchy (Node/Stmt/Expr split, embedded source.Span positions) but
// generalized to spec.md §6's fuller construct list: destructuring, match
// with guards, try/catch/throw, generate/yield, signal-aware assignment.
package ast

import "github.com/achronyme/achronyme/source"

// Node is any AST node; every node can report its source Span for
// diagnostics.
type Node interface {
	Pos() source.Pos
	End() source.Pos
}

// Stmt is a Node compiled for effect; its value (if any) is discarded unless
// it appears in tail position of a block, matching the teacher's
// expression-oriented `do { ... }` block semantics.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is a Node compiled for its value.
type Expr interface {
	Node
	exprNode()
}

type Span struct{ start, end source.Pos }

func (s Span) Pos() source.Pos { return s.start }
func (s Span) End() source.Pos { return s.end }

func NewSpan(start, end source.Pos) Span { return Span{start, end} }

// Program is the root node: an ordered sequence of top-level statements.
type Program struct {
	Span
	Statements []Stmt
}

// ---- literals ----

type NumberLit struct {
	Span
	Value float64
}

func (*NumberLit) exprNode() {}

type BoolLit struct {
	Span
	Value bool
}

func (*BoolLit) exprNode() {}

type NullLit struct{ Span }

func (*NullLit) exprNode() {}

type StringLit struct {
	Span
	Value string
}

func (*StringLit) exprNode() {}

// VectorLit is a vector literal, optionally containing spread elements
// (`...expr`) interleaved with ordinary elements.
type VectorLit struct {
	Span
	Elements []VectorElement
}

type VectorElement struct {
	Value  Expr
	Spread bool
}

func (*VectorLit) exprNode() {}

// RecordLit is a record literal; fields may be declared `mut` (observable
// via SET_FIELD at runtime) and may include spread-record entries.
type RecordLit struct {
	Span
	Fields []RecordLitField
}

type RecordLitField struct {
	Key     string
	Value   Expr // nil for a RECORD_SPREAD entry
	Mutable bool
	Spread  bool
}

func (*RecordLit) exprNode() {}

// ---- identifiers, operators ----

type Ident struct {
	Span
	Name string
}

func (*Ident) exprNode() {}

// Rec is the `rec` self-reference keyword, resolved by the compiler to
// register 255 (spec.md §4.1/§4.3).
type Rec struct{ Span }

func (*Rec) exprNode() {}

type UnaryExpr struct {
	Span
	Operator string
	Operand  Expr
}

func (*UnaryExpr) exprNode() {}

type BinaryExpr struct {
	Span
	Operator string
	Left     Expr
	Right    Expr
}

func (*BinaryExpr) exprNode() {}

// ---- functions, calls ----

type Param struct {
	Name     string
	Default  Expr // nil if none
	Optional bool // `?`-marked
}

// FuncExpr is a function literal; Body is an expression-oriented block
// whose final statement's value (if an expression-statement) is the
// function's implicit return value when no explicit `return` is hit.
type FuncExpr struct {
	Span
	Name       string // empty for anonymous lambdas
	Params     []Param
	Body       []Stmt
	IsGenerator bool // compiled from a `generate { ... }` literal
}

func (*FuncExpr) exprNode() {}

type CallExpr struct {
	Span
	Callee Expr
	Args   []Expr
}

func (*CallExpr) exprNode() {}

type FieldAccessExpr struct {
	Span
	Root  Expr
	Field string
}

func (*FieldAccessExpr) exprNode() {}

type IndexExpr struct {
	Span
	Root  Expr
	Index Expr
}

func (*IndexExpr) exprNode() {}

type SliceExpr struct {
	Span
	Root       Expr
	From, To   Expr // either may be nil (open-ended range)
}

func (*SliceExpr) exprNode() {}

// DoBlock is an expression-oriented block: `do { stmt; stmt; expr }`. Its
// value is the value of its final statement if that statement is an
// expression-statement, else Null.
type DoBlock struct {
	Span
	Statements []Stmt
}

func (*DoBlock) exprNode() {}

// IfExpr is `if (cond) { then } else { otherwise }`; `else` may be nil only
// when the result is discarded as a statement.
type IfExpr struct {
	Span
	Cond      Expr
	Then      []Stmt
	Else      []Stmt // nil if no else clause
}

func (*IfExpr) exprNode() {}

// ---- destructuring patterns ----

// Pattern is a left-hand-side destructuring target for `let`/`mut` bindings
// and function parameters.
type Pattern interface {
	Node
	patternNode()
}

type IdentPattern struct {
	Span
	Name string
}

func (*IdentPattern) patternNode() {}

type WildcardPattern struct{ Span }

func (*WildcardPattern) patternNode() {}

type VectorPattern struct {
	Span
	Elements []Pattern
}

func (*VectorPattern) patternNode() {}

type RecordPatternField struct {
	Key        string
	Binding    Pattern // nil means bind to Key itself
	Default    Expr    // lazily evaluated only if the field is absent
	TypeAssert string  // non-empty: runtime type check, e.g. "Number"
}

type RecordPattern struct {
	Span
	Fields []RecordPatternField
}

func (*RecordPattern) patternNode() {}

// ---- statements ----

type LetStmt struct {
	Span
	Target     Pattern
	Mutable    bool
	Assignment Expr
}

func (*LetStmt) stmtNode() {}

type AssignStmt struct {
	Span
	Target     Expr // Ident, FieldAccessExpr, or IndexExpr
	Operator   string // "=", "+=", "-=", "*=", "/="
	Assignment Expr
}

func (*AssignStmt) stmtNode() {}

type ExprStmt struct {
	Span
	X Expr
}

func (*ExprStmt) stmtNode() {}

type ReturnStmt struct {
	Span
	Argument Expr // nil for bare `return`
}

func (*ReturnStmt) stmtNode() {}

type BreakStmt struct{ Span }

func (*BreakStmt) stmtNode() {}

type ContinueStmt struct{ Span }

func (*ContinueStmt) stmtNode() {}

type WhileStmt struct {
	Span
	Cond Expr
	Body []Stmt
}

func (*WhileStmt) stmtNode() {}

type ForInStmt struct {
	Span
	Binding    string
	Collection Expr
	Body       []Stmt
}

func (*ForInStmt) stmtNode() {}

// MatchArm is one arm of a `match` expression/statement.
type MatchArm struct {
	Pattern Pattern
	Guard   Expr // nil if no `if (...)` guard
	Body    []Stmt
}

type MatchStmt struct {
	Span
	Scrutinee Expr
	Arms      []MatchArm
	// HasCatchAll is set by the parser when any arm's pattern is a
	// wildcard; if false, the compiler emits a MatchError throw for the
	// fallthrough case.
	HasCatchAll bool
}

func (*MatchStmt) stmtNode() {}

// TryExpr is `try { body } catch (name) { catch }` (spec.md:313): an
// expression whose value is that of whichever branch ran, the same way
// IfExpr's value is that of its Then or Else branch.
type TryExpr struct {
	Span
	Body      []Stmt
	CatchName string // binding name for the caught Error
	Catch     []Stmt
}

func (*TryExpr) exprNode() {}

type ThrowStmt struct {
	Span
	Argument Expr
}

func (*ThrowStmt) stmtNode() {}

// YieldExpr suspends the enclosing generator (spec.md §4.4). The compiler
// rejects it outside a `generate { ... }` body (YieldOutsideGenerator).
type YieldExpr struct {
	Span
	Argument Expr
}

func (*YieldExpr) exprNode() {}

// GenerateExpr compiles to a child generator prototype (spec.md §4.4).
type GenerateExpr struct {
	Span
	Body []Stmt
}

func (*GenerateExpr) exprNode() {}
