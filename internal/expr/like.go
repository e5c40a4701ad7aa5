package expr

import (
	"strings"

	"github.com/baltrad/baltrad-db-sub003/internal/errs"
	"github.com/baltrad/baltrad-db-sub003/internal/oh5"
)

// MatchLike reports whether s matches pattern in full. '*' matches any run
// of characters (including none) and '?' exactly one character.
func MatchLike(pattern, s string) bool {
	p := []rune(pattern)
	r := []rune(s)
	pi, si := 0, 0
	star, mark := -1, 0
	for si < len(r) {
		switch {
		case pi < len(p) && (p[pi] == '?' || p[pi] == r[si]) && p[pi] != '*':
			pi++
			si++
		case pi < len(p) && p[pi] == '*':
			star = pi
			mark = si
			pi++
		case star >= 0:
			pi = star + 1
			mark++
			si = mark
		default:
			return false
		}
	}
	for pi < len(p) && p[pi] == '*' {
		pi++
	}
	return pi == len(p)
}

// LikeEscape is the escape character used by SQLLikePattern.
const LikeEscape = `\`

// SQLLikePattern translates a '*'/'?' pattern into a SQL LIKE pattern,
// escaping literal '%', '_' and the escape character itself.
func SQLLikePattern(pattern string) string {
	var b strings.Builder
	for _, c := range pattern {
		switch c {
		case '*':
			b.WriteByte('%')
		case '?':
			b.WriteByte('_')
		case '%', '_', '\\':
			b.WriteString(LikeEscape)
			b.WriteRune(c)
		default:
			b.WriteRune(c)
		}
	}
	return b.String()
}

// EvalLike applies the like operator to evaluated operands. Both must be
// non-null strings.
func EvalLike(lhs, rhs Expr) (bool, error) {
	l, err := stringOperand("like", lhs)
	if err != nil {
		return false, err
	}
	r, err := stringOperand("like", rhs)
	if err != nil {
		return false, err
	}
	return MatchLike(r, l), nil
}

func stringOperand(op string, e Expr) (string, error) {
	lit, ok := e.(LiteralExpr)
	if !ok {
		return "", errs.TypeMismatch("%s: operand %s is not a scalar", op, e)
	}
	if oh5.IsNull(lit.Value) {
		return "", errs.TypeMismatch("%s: null operand", op)
	}
	s, ok := lit.Value.(oh5.String)
	if !ok {
		return "", errs.TypeMismatch("%s: operand %s is not a string", op, e)
	}
	return string(s), nil
}

// Member tests lhs for membership in rhs by element-wise equality.
// rhs must be a list and lhs a non-null scalar.
func Member(lhs, rhs Expr) (bool, error) {
	list, ok := rhs.(ListExpr)
	if !ok {
		return false, errs.TypeMismatch("in: right operand %s is not a list", rhs)
	}
	lit, ok := lhs.(LiteralExpr)
	if !ok {
		return false, errs.TypeMismatch("in: left operand %s is not a scalar", lhs)
	}
	if oh5.IsNull(lit.Value) {
		return false, errs.TypeMismatch("in: null left operand")
	}
	for _, item := range list.Items {
		il, ok := item.(LiteralExpr)
		if !ok {
			continue
		}
		if oh5.Equal(lit.Value, il.Value) {
			return true, nil
		}
	}
	return false, nil
}
