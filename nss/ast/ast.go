// Package ast defines the NSS abstract syntax tree: one Go struct per
// node kind behind a common Node interface, rather than one generic
// tagged struct.
//
// The node set is closed: a sealed interface implemented by one
// struct per construct, so a switch over node types is exhaustive.
package ast

// Node is implemented by every AST node. Pos returns the 1-based
// source line the node started on, for diagnostics.
type Node interface {
	Pos() int
	node()
}

type pos struct{ Line int }

func (p pos) Pos() int { return p.Line }
func (pos) node()      {}

// Type is the closed set of NSS scalar and compound types.
type Type int

const (
	TypeVoid Type = iota
	TypeInt
	TypeFloat
	TypeString
	TypeObject
	TypeVector
	TypeAction
	TypeStruct
	TypeEvent
	TypeEffect
	TypeItemProperty
	TypeLocation
	TypeTalent
)

func (t Type) String() string {
	switch t {
	case TypeVoid:
		return "void"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	case TypeObject:
		return "object"
	case TypeVector:
		return "vector"
	case TypeAction:
		return "action"
	case TypeStruct:
		return "struct"
	case TypeEvent:
		return "event"
	case TypeEffect:
		return "effect"
	case TypeItemProperty:
		return "itemproperty"
	case TypeLocation:
		return "location"
	case TypeTalent:
		return "talent"
	default:
		return "?"
	}
}

// File is the root of one parsed translation unit: its includes,
// global declarations, and function definitions, in source order.
type File struct {
	pos
	Includes  []*Include
	Globals   []*VarDecl
	Structs   []*StructDef
	Functions []*FuncDecl
}

// Include is one #include directive, resolved to an absolute or
// library-relative resref by the caller (the parser only records the
// literal text between quotes; angle-bracket includes are not accepted).
type Include struct {
	pos
	Path string
}

// StructField is one member of a StructDef, with its stack-slot width
// precomputed at parse time rather than deferred to a later
// type-checking pass.
type StructField struct {
	Name       string
	Type       Type
	StructName string // set when Type == TypeStruct
	SlotWidth  int    // stack slots this field occupies (vector == 3, struct == its TotalWidth, else 1)
}

// StructDef declares a named aggregate type and the total stack-slot
// width of one instance (the sum of its fields' widths), so the
// lowering stage never needs to recompute a struct's layout.
type StructDef struct {
	pos
	Name       string
	Fields     []StructField
	TotalWidth int
}

// Param is one function parameter, optionally carrying a default
// value expression (NSS allows trailing parameters to default,
// materialized at call sites that omit them).
type Param struct {
	Name       string
	Type       Type
	StructName string
	Default    Expr // nil when the parameter is required
}

// FuncDecl is a function prototype (Body == nil, used for forward
// declarations of engine actions and predeclared script functions) or
// definition (Body != nil).
type FuncDecl struct {
	pos
	Name       string
	ReturnType Type
	StructName string
	Params     []Param
	Body       *Block
}

// VarDecl declares one local or global variable, optionally with an
// initializer.
type VarDecl struct {
	pos
	Name       string
	Type       Type
	StructName string
	Const      bool
	Init       Expr // nil when uninitialized
}

// Stmt is implemented by every statement node.
type Stmt interface {
	Node
	stmt()
}

type stmtBase struct{ pos }

func (stmtBase) stmt() {}

// Block is a brace-delimited statement sequence introducing its own
// lexical scope.
type Block struct {
	stmtBase
	Stmts []Stmt
}

// ExprStmt wraps a bare expression used as a statement (a call, an
// assignment, an increment/decrement).
type ExprStmt struct {
	stmtBase
	X Expr
}

// DeclStmt wraps a local VarDecl appearing inside a Block.
type DeclStmt struct {
	stmtBase
	Decl *VarDecl
}

// IfStmt is `if (Cond) Then [else Else]`. Either arm may be a Block or
// a single statement; Else may additionally be another IfStmt (for
// else-if chains) or nil.
type IfStmt struct {
	stmtBase
	Cond Expr
	Then Stmt
	Else Stmt
}

// WhileStmt is `while (Cond) Body`.
type WhileStmt struct {
	stmtBase
	Cond Expr
	Body *Block
}

// DoWhileStmt is `do Body while (Cond);`.
type DoWhileStmt struct {
	stmtBase
	Body *Block
	Cond Expr
}

// ForStmt is a C-style `for (Init; Cond; Post) Body`; any of Init,
// Cond, Post may be nil.
type ForStmt struct {
	stmtBase
	Init Stmt
	Cond Expr
	Post Stmt
	Body *Block
}

// SwitchStmt supports fall-through between cases exactly as NSS's
// underlying C-style switch does: a CaseClause with no explicit break
// falls into the next clause's statements at lowering time.
type SwitchStmt struct {
	stmtBase
	Tag   Expr
	Cases []*CaseClause
}

// CaseClause is one `case Value:` (Value == nil for `default:`)
// followed by its statements, which may fall through to the next
// clause if they don't end in a break.
type CaseClause struct {
	pos
	Value Expr // nil for default
	Stmts []Stmt
}

// ReturnStmt is `return [Value];`; Value is nil for a void function.
type ReturnStmt struct {
	stmtBase
	Value Expr
}

// BreakStmt is `break;`.
type BreakStmt struct{ stmtBase }

// ContinueStmt is `continue;`.
type ContinueStmt struct{ stmtBase }

// Expr is implemented by every expression node.
type Expr interface {
	Node
	expr()
}

type exprBase struct{ pos }

func (exprBase) expr() {}

// IntLit is an integer literal.
type IntLit struct {
	exprBase
	Value int32
}

// FloatLit is a floating-point literal.
type FloatLit struct {
	exprBase
	Value float32
}

// StringLit is a double-quoted string literal.
type StringLit struct {
	exprBase
	Value string
}

// VectorLit is NSS's `[x, y, z]` vector literal.
type VectorLit struct {
	exprBase
	X, Y, Z Expr
}

// Ident is a bare identifier reference: a variable, a constant, or an
// engine constant resolved later from token.EngineConstants.
type Ident struct {
	exprBase
	Name string
}

// AssignExpr is `Target = Value` or a compound assignment such as
// `Target += Value`; Op names the compound operator's base token
// ("+", "-", "*", "/", "%") or "" for plain assignment.
type AssignExpr struct {
	exprBase
	Target Expr
	Op     string
	Value  Expr
}

// BinaryExpr is a two-operand expression (arithmetic, comparison,
// logical, bitwise); Op is the literal operator text.
type BinaryExpr struct {
	exprBase
	Op    string
	X, Y  Expr
}

// UnaryExpr is a prefix operator applied to one operand: "-", "!",
// "~", "++", "--".
type UnaryExpr struct {
	exprBase
	Op string
	X  Expr
}

// PostfixExpr is a postfix "++"/"--" applied to an lvalue.
type PostfixExpr struct {
	exprBase
	Op string
	X  Expr
}

// CallExpr is a function call with its argument list as written at the
// call site; omitted trailing defaults are filled in during lowering.
type CallExpr struct {
	exprBase
	Callee string
	Args   []Expr
}

// FieldExpr is `X.Field`, a struct member access.
type FieldExpr struct {
	exprBase
	X     Expr
	Field string
}

// ParenExpr preserves an explicit parenthesisation the lowering stage
// may need to respect for operator precedence in diagnostics.
type ParenExpr struct {
	exprBase
	X Expr
}
