package expr

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/baltrad/baltrad-db-sub003/internal/oh5"
)

// String renders the literal: null, true/false, integers, doubles (always
// with a fraction or exponent), quoted strings, or (date Y M D),
// (time h m s), (datetime Y M D h m s).
func (e LiteralExpr) String() string {
	var b strings.Builder
	writeLiteral(&b, e.Value)
	return b.String()
}

func (e AttrExpr) String() string {
	var b strings.Builder
	b.WriteString("(attr ")
	writeQuoted(&b, e.Name)
	b.WriteByte(' ')
	writeQuoted(&b, e.Type.String())
	b.WriteByte(')')
	return b.String()
}

func (e FuncExpr) String() string {
	return writeCall(e.Func.Symbol(), e.Args)
}

func (e BinaryExpr) String() string {
	return writeCall(e.Op.Symbol(), []Expr{e.LHS, e.RHS})
}

func (e ListExpr) String() string {
	return writeCall("list", e.Items)
}

func writeCall(symbol string, args []Expr) string {
	var b strings.Builder
	b.WriteByte('(')
	b.WriteString(symbol)
	for _, a := range args {
		b.WriteByte(' ')
		if a == nil {
			b.WriteString("null")
			continue
		}
		b.WriteString(a.String())
	}
	b.WriteByte(')')
	return b.String()
}

func writeLiteral(b *strings.Builder, v oh5.Value) {
	switch val := v.(type) {
	case nil, oh5.Null:
		b.WriteString("null")
	case oh5.String:
		writeQuoted(b, string(val))
	case oh5.Int:
		b.WriteString(strconv.FormatInt(int64(val), 10))
	case oh5.Double:
		b.WriteString(formatDouble(float64(val)))
	case oh5.Bool:
		b.WriteString(strconv.FormatBool(bool(val)))
	case oh5.Date:
		writeInts(b, "date", val.Year, val.Month, val.Day)
	case oh5.Time:
		writeInts(b, "time", val.Hour, val.Minute, val.Second)
	case oh5.DateTime:
		writeInts(b, "datetime", val.Date.Year, val.Date.Month, val.Date.Day,
			val.Time.Hour, val.Time.Minute, val.Time.Second)
	}
}

func writeInts(b *strings.Builder, symbol string, ints ...int) {
	b.WriteByte('(')
	b.WriteString(symbol)
	for _, i := range ints {
		b.WriteByte(' ')
		b.WriteString(strconv.Itoa(i))
	}
	b.WriteByte(')')
}

// formatDouble keeps doubles distinguishable from integers: 3 renders as 3.0.
func formatDouble(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "+Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// writeQuoted quotes s, escaping backslash, double quote and control
// characters.
func writeQuoted(b *strings.Builder, s string) {
	b.WriteByte('"')
	for _, r := range norm.NFC.String(s) {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
}
