package expr

import (
	"fmt"

	"github.com/baltrad/baltrad-db-sub003/internal/errs"
)

// Op is a binary operator.
type Op int

const (
	OpEq Op = iota
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

// Ops lists every operator in declaration order.
var Ops = []Op{OpEq, OpNe, OpGt, OpLt, OpLe, OpGe, OpLike, OpIn, OpNotIn, OpAnd, OpOr, OpAdd, OpSub, OpMul, OpDiv}

// Symbol returns the canonical token of the operator.
func (o Op) Symbol() string {
	switch o {
	case OpEq:
		return "eq"
	case OpNe:
		return "ne"
	case OpGt:
		return "gt"
	case OpLt:
		return "lt"
	case OpLe:
		return "le"
	case OpGe:
		return "ge"
	case OpLike:
		return "like"
	case OpIn:
		return "in"
	case OpNotIn:
		return "not_in"
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	case OpAdd:
		return "add"
	case OpSub:
		return "sub"
	case OpMul:
		return "mul"
	case OpDiv:
		return "div"
	default:
		panic(fmt.Sprintf("expr: invalid operator %d", int(o)))
	}
}

func (o Op) String() string { return o.Symbol() }

// IsComparison reports whether o is one of eq, ne, gt, lt, le, ge.
func (o Op) IsComparison() bool {
	return o >= OpEq && o <= OpGe
}

// IsLogical reports whether o is and/or.
func (o Op) IsLogical() bool {
	return o == OpAnd || o == OpOr
}

// IsArithmetic reports whether o is add, sub, mul or div.
func (o Op) IsArithmetic() bool {
	return o >= OpAdd && o <= OpDiv
}

// ParseOp maps a canonical token back to its operator.
func ParseOp(symbol string) (Op, error) {
	for _, o := range Ops {
		if o.Symbol() == symbol {
			return o, nil
		}
	}
	return 0, errs.UnknownOperator(symbol)
}

// Func is an aggregate function.
type Func int

const (
	FuncCount Func = iota
	FuncMax
	FuncMin
	FuncSum
)

// Funcs lists every function in declaration order.
var Funcs = []Func{FuncCount, FuncMax, FuncMin, FuncSum}

// Symbol returns the canonical token of the function.
func (f Func) Symbol() string {
	switch f {
	case FuncCount:
		return "count"
	case FuncMax:
		return "max"
	case FuncMin:
		return "min"
	case FuncSum:
		return "sum"
	default:
		panic(fmt.Sprintf("expr: invalid function %d", int(f)))
	}
}

func (f Func) String() string { return f.Symbol() }

// ParseFunc maps a canonical token back to its function.
func ParseFunc(symbol string) (Func, error) {
	for _, f := range Funcs {
		if f.Symbol() == symbol {
			return f, nil
		}
	}
	return 0, errs.UnknownOperator(symbol)
}
