package expr

import (
	"slices"

	"github.com/baltrad/baltrad-db-sub003/internal/oh5"
)

// Expr is an expression node.
type Expr interface {
	// String returns the canonical form.
	String() string

	exprNode() // Sealed - only types in this package implement it
}

// LiteralExpr is a constant scalar.
type LiteralExpr struct {
	Value oh5.Value
}

func (LiteralExpr) exprNode() {}

// AttrExpr references a logical attribute ("what/object") whose value is
// read as Type.
type AttrExpr struct {
	Name string
	Type oh5.Type
}

func (AttrExpr) exprNode() {}

// FuncExpr applies an aggregate function to its arguments.
type FuncExpr struct {
	Func Func
	Args []Expr
}

func (FuncExpr) exprNode() {}

// BinaryExpr applies a binary operator.
type BinaryExpr struct {
	Op  Op
	LHS Expr
	RHS Expr
}

func (BinaryExpr) exprNode() {}

// ListExpr is an ordered sequence of expressions.
type ListExpr struct {
	Items []Expr
}

func (ListExpr) exprNode() {}

// Equal reports whether a and b have the same canonical form.
func Equal(a, b Expr) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.String() == b.String()
}

// Attributes returns the distinct attribute references in e, in first
// occurrence order (depth-first, left to right).
func Attributes(e Expr) []AttrExpr {
	var out []AttrExpr
	seen := map[string]bool{}
	var visit func(Expr)
	visit = func(e Expr) {
		switch x := e.(type) {
		case AttrExpr:
			if !seen[x.Name] {
				seen[x.Name] = true
				out = append(out, x)
			}
		case BinaryExpr:
			visit(x.LHS)
			visit(x.RHS)
		case FuncExpr:
			for _, a := range x.Args {
				visit(a)
			}
		case ListExpr:
			for _, a := range x.Items {
				visit(a)
			}
		}
	}
	if e != nil {
		visit(e)
	}
	return out
}

func cloneExprs(in []Expr) []Expr {
	return slices.Clone(in)
}
