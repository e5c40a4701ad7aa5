package store

import (
	"fmt"

	"github.com/baltrad/baltrad-db-sub003/internal/errs"
	"github.com/baltrad/baltrad-db-sub003/internal/expr"
	"github.com/baltrad/baltrad-db-sub003/internal/mapper"
	"github.com/baltrad/baltrad-db-sub003/internal/oh5"
	"github.com/baltrad/baltrad-db-sub003/internal/sqlir"
)

// translator turns expressions into sqlir expressions over bdb_files. Each
// generic attribute gets its own left-joined alias of the attribute value
// table, shared by every reference to that attribute.
type translator struct {
	mapper *mapper.Mapper
	tables *Tables
	from   sqlir.Selectable
	joined map[string]*sqlir.Alias
}

func newTranslator(m *mapper.Mapper, t *Tables) *translator {
	return &translator{
		mapper: m,
		tables: t,
		from:   t.Files,
		joined: make(map[string]*sqlir.Alias),
	}
}

// From returns bdb_files joined with every attribute alias used so far.
func (t *translator) From() sqlir.Selectable { return t.from }

func (t *translator) translate(e expr.Expr) (sqlir.Expr, error) {
	switch e := e.(type) {
	case expr.LiteralExpr:
		return sqlir.Lit(e.Value), nil
	case expr.AttrExpr:
		return t.attribute(e)
	case expr.ListExpr:
		items, err := t.translateAll(e.Items)
		if err != nil {
			return nil, err
		}
		return sqlir.NewList(items...), nil
	case expr.FuncExpr:
		args, err := t.translateAll(e.Args)
		if err != nil {
			return nil, err
		}
		return sqlir.Call(sqlFunc(e.Func), args...), nil
	case expr.BinaryExpr:
		return t.binary(e)
	case nil:
		return nil, errs.Value("cannot translate a nil expression")
	default:
		return nil, errs.Value("unsupported expression %T", e)
	}
}

func (t *translator) translateAll(exprs []expr.Expr) ([]sqlir.Expr, error) {
	out := make([]sqlir.Expr, len(exprs))
	for i, e := range exprs {
		s, err := t.translate(e)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func (t *translator) binary(e expr.BinaryExpr) (sqlir.Expr, error) {
	lhs, err := t.translate(e.LHS)
	if err != nil {
		return nil, err
	}
	var rhs sqlir.Expr
	switch e.Op {
	case expr.OpLike:
		pattern, ok := stringLiteral(e.RHS)
		if !ok {
			return nil, errs.TypeMismatch("like: pattern %s is not a string literal", e.RHS)
		}
		rhs = sqlir.Lit(oh5.String(expr.SQLLikePattern(pattern)))
	case expr.OpIn, expr.OpNotIn:
		if _, ok := e.RHS.(expr.ListExpr); !ok {
			return nil, errs.TypeMismatch("%s: right operand %s is not a list", e.Op.Symbol(), e.RHS)
		}
		fallthrough
	default:
		if rhs, err = t.translate(e.RHS); err != nil {
			return nil, err
		}
	}
	return sqlir.NewBinary(sqlOp(e.Op), lhs, rhs), nil
}

// attribute resolves a reference to a bdb_files column or to the typed
// value column of the attribute's alias.
func (t *translator) attribute(a expr.AttrExpr) (sqlir.Expr, error) {
	name := mapper.ParseName(a.Name)
	if name.Container != "" {
		return nil, errs.Value("attribute %q: path-qualified references cannot be queried", a.Name)
	}
	if name.Key == "" {
		if m, err := t.mapper.Mapping(name.Attribute); err == nil && m.Table == FilesTable {
			return t.tables.Files.Column(m.Column)
		}
	}

	logical := name.Attribute
	if name.Key != "" {
		logical += ":" + name.Key
	}
	typ := a.Type
	if typ == oh5.TypeNull {
		typ = oh5.TypeString
		if m, err := t.mapper.Mapping(logical); err == nil {
			typ = m.Type
		}
	}
	alias, err := t.join(logical)
	if err != nil {
		return nil, err
	}
	return alias.Column(mapper.ValueColumn(typ))
}

// join returns the alias holding rows of attribute name, adding a left
// join for it on first use.
func (t *translator) join(name string) (*sqlir.Alias, error) {
	if a, ok := t.joined[name]; ok {
		return a, nil
	}
	a := t.tables.Values.Alias(fmt.Sprintf("_a%d", len(t.joined)))
	fileID := a.MustColumn("file_id")
	on := sqlir.And(
		sqlir.Eq(fileID, fileID.References()),
		sqlir.Eq(a.MustColumn("name"), sqlir.Lit(oh5.String(name))),
	)
	j, err := sqlir.NewJoin(sqlir.LeftJoin, t.from, a, on)
	if err != nil {
		return nil, err
	}
	t.from = j
	t.joined[name] = a
	return a, nil
}

func stringLiteral(e expr.Expr) (string, bool) {
	lit, ok := e.(expr.LiteralExpr)
	if !ok {
		return "", false
	}
	s, ok := lit.Value.(oh5.String)
	return string(s), ok
}

func sqlOp(op expr.Op) sqlir.BinaryOp {
	switch op {
	case expr.OpEq:
		return sqlir.OpEq
	case expr.OpNe:
		return sqlir.OpNe
	case expr.OpGt:
		return sqlir.OpGt
	case expr.OpLt:
		return sqlir.OpLt
	case expr.OpLe:
		return sqlir.OpLe
	case expr.OpGe:
		return sqlir.OpGe
	case expr.OpLike:
		return sqlir.OpLike
	case expr.OpIn:
		return sqlir.OpIn
	case expr.OpNotIn:
		return sqlir.OpNotIn
	case expr.OpAnd:
		return sqlir.OpAnd
	case expr.OpOr:
		return sqlir.OpOr
	case expr.OpAdd:
		return sqlir.OpAdd
	case expr.OpSub:
		return sqlir.OpSub
	case expr.OpMul:
		return sqlir.OpMul
	case expr.OpDiv:
		return sqlir.OpDiv
	}
	panic("store: invalid operator")
}

func sqlFunc(f expr.Func) string {
	switch f {
	case expr.FuncCount:
		return "COUNT"
	case expr.FuncMax:
		return "MAX"
	case expr.FuncMin:
		return "MIN"
	case expr.FuncSum:
		return "SUM"
	}
	panic("store: invalid function")
}
