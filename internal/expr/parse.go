package expr

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/baltrad/baltrad-db-sub003/internal/errs"
	"github.com/baltrad/baltrad-db-sub003/internal/oh5"
)

type tokenKind int

const (
	tokOpen tokenKind = iota
	tokClose
	tokString
	tokAtom
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// Parse reads the canonical form of an expression. Unknown symbols are a
// CodeUnknownOperator error, anything else malformed a CodeValue error.
func Parse(text string) (Expr, error) {
	toks, err := tokenize(text)
	if err != nil {
		return nil, err
	}
	if len(toks) == 0 {
		return nil, errs.Value("empty expression")
	}
	p := &parser{toks: toks}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.toks) {
		return nil, errs.Value("unexpected %q at offset %d", p.toks[p.pos].text, p.toks[p.pos].pos)
	}
	return e, nil
}

// MustParse is like Parse but panics on error. For tests and constants.
func MustParse(text string) Expr {
	e, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return e
}

func tokenize(s string) ([]token, error) {
	var toks []token
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '(':
			toks = append(toks, token{tokOpen, "(", i})
			i++
		case c == ')':
			toks = append(toks, token{tokClose, ")", i})
			i++
		case c == '"':
			str, n, err := readString(s[i:])
			if err != nil {
				return nil, errs.Value("offset %d: %v", i, err)
			}
			toks = append(toks, token{tokString, str, i})
			i += n
		case unicode.IsSpace(rune(c)):
			i++
		default:
			start := i
			for i < len(s) && !strings.ContainsRune("()\" \t\r\n", rune(s[i])) {
				i++
			}
			toks = append(toks, token{tokAtom, s[start:i], start})
		}
	}
	return toks, nil
}

// readString reads a quoted string at the start of s, returning the
// unescaped text and the number of bytes consumed.
func readString(s string) (string, int, error) {
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '"':
			return b.String(), i + 1, nil
		case '\\':
			i++
			if i >= len(s) {
				return "", 0, errs.Value("unterminated escape")
			}
			switch s[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '\\', '"':
				b.WriteByte(s[i])
			default:
				return "", 0, errs.Value("invalid escape \\%c", s[i])
			}
		default:
			b.WriteByte(s[i])
		}
	}
	return "", 0, errs.Value("unterminated string")
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) next() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}
	t := p.toks[p.pos]
	p.pos++
	return t, true
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}
	return p.toks[p.pos], true
}

func (p *parser) parseExpr() (Expr, error) {
	t, ok := p.next()
	if !ok {
		return nil, errs.Value("unexpected end of expression")
	}
	switch t.kind {
	case tokString:
		return Str(t.text), nil
	case tokAtom:
		return parseAtom(t)
	case tokClose:
		return nil, errs.Value("unexpected ')' at offset %d", t.pos)
	}

	head, ok := p.next()
	if !ok || head.kind != tokAtom {
		return nil, errs.Value("expected symbol after '(' at offset %d", t.pos)
	}
	var args []Expr
	var raw []token
	for {
		nt, ok := p.peek()
		if !ok {
			return nil, errs.Value("unterminated list starting at offset %d", t.pos)
		}
		if nt.kind == tokClose {
			p.pos++
			break
		}
		raw = append(raw, nt)
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	return build(head, args, raw)
}

func build(head token, args []Expr, raw []token) (Expr, error) {
	switch head.text {
	case "list":
		return ListExpr{Items: args}, nil
	case "attr":
		if len(args) != 2 || raw[0].kind != tokString || raw[1].kind != tokString {
			return nil, errs.Value("attr takes a name and a type string")
		}
		t, err := oh5.ParseType(raw[1].text)
		if err != nil {
			return nil, err
		}
		return Attr(raw[0].text, t), nil
	case "date":
		ints, err := intArgs(head.text, args, 3)
		if err != nil {
			return nil, err
		}
		d, err := oh5.NewDate(ints[0], ints[1], ints[2])
		if err != nil {
			return nil, err
		}
		return Literal(d), nil
	case "time":
		ints, err := intArgs(head.text, args, 3)
		if err != nil {
			return nil, err
		}
		tm, err := oh5.NewTime(ints[0], ints[1], ints[2])
		if err != nil {
			return nil, err
		}
		return Literal(tm), nil
	case "datetime":
		ints, err := intArgs(head.text, args, 6)
		if err != nil {
			return nil, err
		}
		d, err := oh5.NewDate(ints[0], ints[1], ints[2])
		if err != nil {
			return nil, err
		}
		tm, err := oh5.NewTime(ints[3], ints[4], ints[5])
		if err != nil {
			return nil, err
		}
		return Literal(oh5.DateTime{Date: d, Time: tm}), nil
	}

	if op, err := ParseOp(head.text); err == nil {
		if len(args) != 2 {
			return nil, errs.Value("%s takes 2 operands, got %d", head.text, len(args))
		}
		return Binary(op, args[0], args[1]), nil
	}
	fn, err := ParseFunc(head.text)
	if err != nil {
		return nil, err
	}
	return Call(fn, args...), nil
}

func intArgs(symbol string, args []Expr, n int) ([]int, error) {
	if len(args) != n {
		return nil, errs.Value("%s takes %d integers, got %d arguments", symbol, n, len(args))
	}
	out := make([]int, n)
	for i, a := range args {
		lit, ok := a.(LiteralExpr)
		if !ok {
			return nil, errs.Value("%s argument %d is not an integer", symbol, i)
		}
		v, ok := lit.Value.(oh5.Int)
		if !ok {
			return nil, errs.Value("%s argument %d is not an integer", symbol, i)
		}
		out[i] = int(v)
	}
	return out, nil
}

func parseAtom(t token) (Expr, error) {
	switch t.text {
	case "null":
		return Null(), nil
	case "true":
		return Bool(true), nil
	case "false":
		return Bool(false), nil
	case "NaN", "+Inf", "-Inf":
		f, _ := strconv.ParseFloat(t.text, 64)
		return Float(f), nil
	}
	c := t.text[0]
	if c == '-' || c == '+' || (c >= '0' && c <= '9') {
		if !strings.ContainsAny(t.text, ".eE") {
			if i, err := strconv.ParseInt(t.text, 10, 64); err == nil {
				return Int(i), nil
			}
		}
		if f, err := strconv.ParseFloat(t.text, 64); err == nil {
			return Float(f), nil
		}
		return nil, errs.Value("invalid number %q at offset %d", t.text, t.pos)
	}
	return nil, errs.Value("unexpected symbol %q at offset %d", t.text, t.pos)
}
