package eval

import (
	"github.com/baltrad/baltrad-db-sub003/internal/errs"
	"github.com/baltrad/baltrad-db-sub003/internal/expr"
	"github.com/baltrad/baltrad-db-sub003/internal/oh5"
)

func binaryProcedure(op expr.Op) Procedure {
	return func(args []expr.Expr) (expr.Expr, error) {
		if len(args) != 2 {
			return nil, errs.Value("%s takes 2 arguments, got %d", op.Symbol(), len(args))
		}
		lhs, rhs := args[0], args[1]
		switch {
		case op == expr.OpLike:
			ok, err := expr.EvalLike(lhs, rhs)
			if err != nil {
				return nil, err
			}
			return expr.Bool(ok), nil
		case op == expr.OpIn || op == expr.OpNotIn:
			ok, err := expr.Member(lhs, rhs)
			if err != nil {
				return nil, err
			}
			return expr.Bool(ok == (op == expr.OpIn)), nil
		case op.IsLogical():
			l, err := truth(op, lhs)
			if err != nil {
				return nil, err
			}
			r, err := truth(op, rhs)
			if err != nil {
				return nil, err
			}
			if op == expr.OpAnd {
				return expr.Bool(l && r), nil
			}
			return expr.Bool(l || r), nil
		case op.IsComparison():
			return compare(op, lhs, rhs)
		case op.IsArithmetic():
			return arithmetic(op, lhs, rhs)
		}
		return nil, errs.UnknownOperator(op.Symbol())
	}
}

func scalar(op string, e expr.Expr) (oh5.Value, error) {
	lit, ok := e.(expr.LiteralExpr)
	if !ok {
		return nil, errs.TypeMismatch("%s: operand %s is not a scalar", op, e)
	}
	return lit.Value, nil
}

// truth reads a logical operand. Null counts as false.
func truth(op expr.Op, e expr.Expr) (bool, error) {
	v, err := scalar(op.Symbol(), e)
	if err != nil {
		return false, err
	}
	switch v := v.(type) {
	case oh5.Null:
		return false, nil
	case oh5.Bool:
		return bool(v), nil
	default:
		return false, errs.TypeMismatch("%s: operand %s is not a bool", op.Symbol(), e)
	}
}

// compare applies a comparison. A null operand never matches. Values of
// incomparable types are unequal, and cannot be ordered.
func compare(op expr.Op, lhs, rhs expr.Expr) (expr.Expr, error) {
	l, err := scalar(op.Symbol(), lhs)
	if err != nil {
		return nil, err
	}
	r, err := scalar(op.Symbol(), rhs)
	if err != nil {
		return nil, err
	}
	if oh5.IsNull(l) || oh5.IsNull(r) {
		return expr.Bool(false), nil
	}
	c, err := oh5.Compare(l, r)
	if err != nil {
		switch op {
		case expr.OpEq:
			return expr.Bool(false), nil
		case expr.OpNe:
			return expr.Bool(true), nil
		}
		return nil, err
	}
	var result bool
	switch op {
	case expr.OpEq:
		result = c == 0
	case expr.OpNe:
		result = c != 0
	case expr.OpGt:
		result = c > 0
	case expr.OpLt:
		result = c < 0
	case expr.OpLe:
		result = c <= 0
	case expr.OpGe:
		result = c >= 0
	}
	return expr.Bool(result), nil
}

// arithmetic applies add/sub/mul/div. Null operands give null, as does
// division by zero. Two ints stay integral except under div.
func arithmetic(op expr.Op, lhs, rhs expr.Expr) (expr.Expr, error) {
	l, err := scalar(op.Symbol(), lhs)
	if err != nil {
		return nil, err
	}
	r, err := scalar(op.Symbol(), rhs)
	if err != nil {
		return nil, err
	}
	if oh5.IsNull(l) || oh5.IsNull(r) {
		return expr.Null(), nil
	}
	li, lInt := l.(oh5.Int)
	ri, rInt := r.(oh5.Int)
	if lInt && rInt && op != expr.OpDiv {
		switch op {
		case expr.OpAdd:
			return expr.Int(int64(li + ri)), nil
		case expr.OpSub:
			return expr.Int(int64(li - ri)), nil
		case expr.OpMul:
			return expr.Int(int64(li * ri)), nil
		}
	}
	lf, lok := asFloat(l)
	rf, rok := asFloat(r)
	if !lok || !rok {
		return nil, errs.TypeMismatch("%s: cannot apply to %s and %s", op.Symbol(), l.Type(), r.Type())
	}
	switch op {
	case expr.OpAdd:
		return expr.Float(lf + rf), nil
	case expr.OpSub:
		return expr.Float(lf - rf), nil
	case expr.OpMul:
		return expr.Float(lf * rf), nil
	default:
		if rf == 0 {
			return expr.Null(), nil
		}
		return expr.Float(lf / rf), nil
	}
}

func asFloat(v oh5.Value) (float64, bool) {
	switch v := v.(type) {
	case oh5.Int:
		return float64(v), true
	case oh5.Double:
		return float64(v), true
	default:
		return 0, false
	}
}

// flatten collects the non-null scalars of args, expanding lists.
func flatten(fn string, args []expr.Expr) ([]oh5.Value, error) {
	var out []oh5.Value
	for _, arg := range args {
		switch a := arg.(type) {
		case expr.LiteralExpr:
			if !oh5.IsNull(a.Value) {
				out = append(out, a.Value)
			}
		case expr.ListExpr:
			vs, err := flatten(fn, a.Items)
			if err != nil {
				return nil, err
			}
			out = append(out, vs...)
		default:
			return nil, errs.TypeMismatch("%s: unexpected argument %s", fn, arg)
		}
	}
	return out, nil
}

func aggCount(args []expr.Expr) (expr.Expr, error) {
	vs, err := flatten("count", args)
	if err != nil {
		return nil, err
	}
	return expr.Int(int64(len(vs))), nil
}

func aggSum(args []expr.Expr) (expr.Expr, error) {
	vs, err := flatten("sum", args)
	if err != nil {
		return nil, err
	}
	if len(vs) == 0 {
		return expr.Null(), nil
	}
	var (
		isum   int64
		fsum   float64
		floats bool
	)
	for _, v := range vs {
		switch v := v.(type) {
		case oh5.Int:
			isum += int64(v)
			fsum += float64(v)
		case oh5.Double:
			fsum += float64(v)
			floats = true
		default:
			return nil, errs.TypeMismatch("sum: cannot add %s", v.Type())
		}
	}
	if floats {
		return expr.Float(fsum), nil
	}
	return expr.Int(isum), nil
}

// aggExtreme returns max (sign 1) or min (sign -1) of the non-null values.
func aggExtreme(sign int) Procedure {
	name := "max"
	if sign < 0 {
		name = "min"
	}
	return func(args []expr.Expr) (expr.Expr, error) {
		vs, err := flatten(name, args)
		if err != nil {
			return nil, err
		}
		if len(vs) == 0 {
			return expr.Null(), nil
		}
		best := vs[0]
		for _, v := range vs[1:] {
			c, err := oh5.Compare(v, best)
			if err != nil {
				return nil, err
			}
			if c*sign > 0 {
				best = v
			}
		}
		return expr.Literal(best), nil
	}
}
