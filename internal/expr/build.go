package expr

import (
	"golang.org/x/text/unicode/norm"

	"github.com/baltrad/baltrad-db-sub003/internal/oh5"
)

// Literal wraps a scalar. Strings are NFC normalized so that canonically
// equivalent spellings compare equal.
func Literal(v oh5.Value) Expr {
	switch val := v.(type) {
	case nil:
		return LiteralExpr{Value: oh5.Null{}}
	case oh5.String:
		return LiteralExpr{Value: oh5.String(norm.NFC.String(string(val)))}
	default:
		return LiteralExpr{Value: v}
	}
}

func Null() Expr                    { return Literal(oh5.Null{}) }
func Str(s string) Expr             { return Literal(oh5.String(s)) }
func Int(i int64) Expr              { return Literal(oh5.Int(i)) }
func Float(f float64) Expr          { return Literal(oh5.Double(f)) }
func Bool(b bool) Expr              { return Literal(oh5.Bool(b)) }
func Date(y, m, d int) Expr         { return Literal(oh5.Date{Year: y, Month: m, Day: d}) }
func Time(h, m, s int) Expr         { return Literal(oh5.Time{Hour: h, Minute: m, Second: s}) }
func DateTime(dt oh5.DateTime) Expr { return Literal(dt) }

// Attr references a logical attribute read as type t.
func Attr(name string, t oh5.Type) Expr {
	return AttrExpr{Name: name, Type: t}
}

// List builds a list expression.
func List(items ...Expr) Expr {
	return ListExpr{Items: cloneExprs(items)}
}

// Values builds a list of literals.
func Values(values ...oh5.Value) Expr {
	items := make([]Expr, len(values))
	for i, v := range values {
		items[i] = Literal(v)
	}
	return ListExpr{Items: items}
}

// Binary applies op to lhs and rhs.
func Binary(op Op, lhs, rhs Expr) Expr {
	return BinaryExpr{Op: op, LHS: lhs, RHS: rhs}
}

func Eq(lhs, rhs Expr) Expr   { return Binary(OpEq, lhs, rhs) }
func Ne(lhs, rhs Expr) Expr   { return Binary(OpNe, lhs, rhs) }
func Gt(lhs, rhs Expr) Expr   { return Binary(OpGt, lhs, rhs) }
func Lt(lhs, rhs Expr) Expr   { return Binary(OpLt, lhs, rhs) }
func Le(lhs, rhs Expr) Expr   { return Binary(OpLe, lhs, rhs) }
func Ge(lhs, rhs Expr) Expr   { return Binary(OpGe, lhs, rhs) }
func Like(lhs, rhs Expr) Expr { return Binary(OpLike, lhs, rhs) }
func Add(lhs, rhs Expr) Expr  { return Binary(OpAdd, lhs, rhs) }
func Sub(lhs, rhs Expr) Expr  { return Binary(OpSub, lhs, rhs) }
func Mul(lhs, rhs Expr) Expr  { return Binary(OpMul, lhs, rhs) }
func Div(lhs, rhs Expr) Expr  { return Binary(OpDiv, lhs, rhs) }

// In tests lhs for membership in rhs, which must be a list.
func In(lhs, rhs Expr) Expr { return Binary(OpIn, lhs, rhs) }

// NotIn is the negation of In.
func NotIn(lhs, rhs Expr) Expr { return Binary(OpNotIn, lhs, rhs) }

// And combines expressions left to right with logical and. A nil operand
// is skipped, so And(nil, x) is x; And() is nil.
func And(exprs ...Expr) Expr { return fold(OpAnd, exprs) }

// Or combines expressions left to right with logical or, skipping nils.
func Or(exprs ...Expr) Expr { return fold(OpOr, exprs) }

func fold(op Op, exprs []Expr) Expr {
	var out Expr
	for _, e := range exprs {
		if e == nil {
			continue
		}
		if out == nil {
			out = e
			continue
		}
		out = Binary(op, out, e)
	}
	return out
}

// Call applies fn to args.
func Call(fn Func, args ...Expr) Expr {
	return FuncExpr{Func: fn, Args: cloneExprs(args)}
}

func Count(args ...Expr) Expr { return Call(FuncCount, args...) }
func Max(args ...Expr) Expr   { return Call(FuncMax, args...) }
func Min(args ...Expr) Expr   { return Call(FuncMin, args...) }
func Sum(args ...Expr) Expr   { return Call(FuncSum, args...) }
