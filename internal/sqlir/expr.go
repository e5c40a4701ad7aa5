package sqlir

import (
	"github.com/baltrad/baltrad-db-sub003/internal/oh5"
)

// Node is any element a compiler can render.
type Node interface {
	sqlNode() // Sealed - only types in this package implement it
}

// Expr is a value expression.
type Expr interface {
	Node
	exprNode()
}

// Literal is a constant. Compilers always bind it as a parameter.
type Literal struct {
	Value oh5.Value
}

func (Literal) sqlNode()  {}
func (Literal) exprNode() {}

// Bind is a named parameter whose value is supplied at compile time.
type Bind struct {
	Name string
}

func (Bind) sqlNode()  {}
func (Bind) exprNode() {}

// BinaryOp is a SQL binary operator.
type BinaryOp int

const (
	OpEq BinaryOp = iota
	OpNe
	OpGt
	OpLt
	OpLe
	OpGe
	OpLike
	OpIn
	OpNotIn
	OpAnd
	OpOr
	OpAdd
	OpSub
	OpMul
	OpDiv
)

// Token returns the SQL spelling of the operator.
func (o BinaryOp) Token() string {
	switch o {
	case OpEq:
		return "="
	case OpNe:
		return "<>"
	case OpGt:
		return ">"
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGe:
		return ">="
	case OpLike:
		return "LIKE"
	case OpIn:
		return "IN"
	case OpNotIn:
		return "NOT IN"
	case OpAnd:
		return "AND"
	case OpOr:
		return "OR"
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	}
	panic("sqlir: invalid operator")
}

// Binary applies a binary operator.
type Binary struct {
	Op  BinaryOp
	LHS Expr
	RHS Expr
}

func (*Binary) sqlNode()  {}
func (*Binary) exprNode() {}

// List is a parenthesized expression list, the right operand of IN.
type List struct {
	Items []Expr
}

func (*List) sqlNode()  {}
func (*List) exprNode() {}

// Func calls a SQL function such as COUNT or MAX.
type Func struct {
	Name     string
	Args     []Expr
	Distinct bool
}

func (*Func) sqlNode()  {}
func (*Func) exprNode() {}

// Label names an expression in a select list.
type Label struct {
	Expr Expr
	Name string
}

func (*Label) sqlNode()  {}
func (*Label) exprNode() {}

func Lit(v oh5.Value) Expr   { return Literal{Value: v} }
func Param(name string) Expr { return Bind{Name: name} }

func NewBinary(op BinaryOp, lhs, rhs Expr) Expr {
	return &Binary{Op: op, LHS: lhs, RHS: rhs}
}

func Eq(lhs, rhs Expr) Expr    { return NewBinary(OpEq, lhs, rhs) }
func Ne(lhs, rhs Expr) Expr    { return NewBinary(OpNe, lhs, rhs) }
func Gt(lhs, rhs Expr) Expr    { return NewBinary(OpGt, lhs, rhs) }
func Lt(lhs, rhs Expr) Expr    { return NewBinary(OpLt, lhs, rhs) }
func Le(lhs, rhs Expr) Expr    { return NewBinary(OpLe, lhs, rhs) }
func Ge(lhs, rhs Expr) Expr    { return NewBinary(OpGe, lhs, rhs) }
func Like(lhs, rhs Expr) Expr  { return NewBinary(OpLike, lhs, rhs) }
func In(lhs, rhs Expr) Expr    { return NewBinary(OpIn, lhs, rhs) }
func NotIn(lhs, rhs Expr) Expr { return NewBinary(OpNotIn, lhs, rhs) }

// And joins its non-nil arguments with AND. It returns nil when there are
// none.
func And(exprs ...Expr) Expr { return fold(OpAnd, exprs) }

// Or joins its non-nil arguments with OR.
func Or(exprs ...Expr) Expr { return fold(OpOr, exprs) }

func fold(op BinaryOp, exprs []Expr) Expr {
	var out Expr
	for _, e := range exprs {
		if e == nil {
			continue
		}
		if out == nil {
			out = e
			continue
		}
		out = NewBinary(op, out, e)
	}
	return out
}

// NewList builds an expression list.
func NewList(items ...Expr) *List {
	return &List{Items: append([]Expr(nil), items...)}
}

// Call builds a function call.
func Call(name string, args ...Expr) *Func {
	return &Func{Name: name, Args: append([]Expr(nil), args...)}
}

// As labels e.
func As(e Expr, name string) *Label {
	return &Label{Expr: e, Name: name}
}
