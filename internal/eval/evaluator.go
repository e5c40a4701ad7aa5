// Package eval interprets expressions against an in-memory metadata tree.
package eval

import (
	"slices"

	"github.com/baltrad/baltrad-db-sub003/internal/errs"
	"github.com/baltrad/baltrad-db-sub003/internal/expr"
	"github.com/baltrad/baltrad-db-sub003/internal/mapper"
	"github.com/baltrad/baltrad-db-sub003/internal/oh5"
)

// Procedure implements an operator or function over evaluated arguments.
// Arguments and results are literals or lists of literals.
type Procedure func(args []expr.Expr) (expr.Expr, error)

// Evaluator maps operator and function symbols to procedures.
//
// Evaluate only reads the binding table and the tree, so one Evaluator may
// be shared by concurrent callers once its bindings are set up.
type Evaluator struct {
	procs  map[string]Procedure
	mapper *mapper.Mapper
}

// New returns an evaluator with every operator and function bound.
func New() *Evaluator {
	ev := &Evaluator{procs: make(map[string]Procedure)}
	for _, op := range expr.Ops {
		ev.procs[op.Symbol()] = binaryProcedure(op)
	}
	ev.procs[expr.FuncCount.Symbol()] = aggCount
	ev.procs[expr.FuncMax.Symbol()] = aggExtreme(1)
	ev.procs[expr.FuncMin.Symbol()] = aggExtreme(-1)
	ev.procs[expr.FuncSum.Symbol()] = aggSum
	return ev
}

// NewWithMapper returns an evaluator that resolves the attributes m
// specializes only at the top of the tree, where the catalog stores them.
func NewWithMapper(m *mapper.Mapper) *Evaluator {
	ev := New()
	ev.mapper = m
	return ev
}

// Bind sets the procedure for symbol, replacing any previous binding.
func (ev *Evaluator) Bind(symbol string, p Procedure) {
	ev.procs[symbol] = p
}

// Unbind removes the binding for symbol.
func (ev *Evaluator) Unbind(symbol string) {
	delete(ev.procs, symbol)
}

func (ev *Evaluator) lookup(symbol string) (Procedure, error) {
	p, ok := ev.procs[symbol]
	if !ok {
		return nil, errs.UnknownOperator(symbol)
	}
	return p, nil
}

// Evaluate reduces e against the tree rooted at root. Children are
// evaluated depth-first, left to right, before their operator is applied;
// and/or skip the right operand once the left one decides the result.
// Attributes missing from the tree evaluate to null.
//
// An attribute may occur more than once in a tree (where/elangle in every
// dataset). Each attribute name takes one of its values at a time, every
// reference to the name seeing the same value, and e is evaluated for each
// combination in pre-order. The first true result is returned; when none
// is true, the result for the first values found. A boolean e therefore
// holds when some choice of values satisfies it, as it does in a query.
func (ev *Evaluator) Evaluate(e expr.Expr, root *oh5.Node) (expr.Expr, error) {
	names := attributeNames(e, nil)
	domains := make([][]oh5.Value, len(names))
	for i, name := range names {
		domains[i] = ev.candidates(name, root)
		if len(domains[i]) == 0 {
			domains[i] = []oh5.Value{oh5.Null{}}
		}
	}

	var first expr.Expr
	pick := make([]int, len(names))
	bound := make(map[string]oh5.Value, len(names))
	for {
		for i, name := range names {
			bound[name] = domains[i][pick[i]]
		}
		v, err := ev.eval(e, root, bound)
		if err != nil {
			return nil, err
		}
		if first == nil {
			first = v
		}
		if isTrue(v) {
			return v, nil
		}
		i := len(pick) - 1
		for ; i >= 0; i-- {
			pick[i]++
			if pick[i] < len(domains[i]) {
				break
			}
			pick[i] = 0
		}
		if i < 0 {
			return first, nil
		}
	}
}

func (ev *Evaluator) eval(e expr.Expr, root *oh5.Node, bound map[string]oh5.Value) (expr.Expr, error) {
	switch e := e.(type) {
	case expr.LiteralExpr:
		return e, nil
	case expr.AttrExpr:
		v, err := convert(e, bound[e.Name])
		if err != nil {
			return nil, err
		}
		return expr.LiteralExpr{Value: v}, nil
	case expr.ListExpr:
		items := make([]expr.Expr, len(e.Items))
		for i, item := range e.Items {
			v, err := ev.eval(item, root, bound)
			if err != nil {
				return nil, err
			}
			items[i] = v
		}
		return expr.ListExpr{Items: items}, nil
	case expr.BinaryExpr:
		return ev.evalBinary(e, root, bound)
	case expr.FuncExpr:
		return ev.evalFunc(e, root, bound)
	case nil:
		return nil, errs.Value("cannot evaluate a nil expression")
	default:
		return nil, errs.Value("unsupported expression %T", e)
	}
}

func (ev *Evaluator) evalBinary(e expr.BinaryExpr, root *oh5.Node, bound map[string]oh5.Value) (expr.Expr, error) {
	proc, err := ev.lookup(e.Op.Symbol())
	if err != nil {
		return nil, err
	}
	lhs, err := ev.eval(e.LHS, root, bound)
	if err != nil {
		return nil, err
	}
	if e.Op.IsLogical() {
		l, err := truth(e.Op, lhs)
		if err != nil {
			return nil, err
		}
		if (e.Op == expr.OpAnd && !l) || (e.Op == expr.OpOr && l) {
			return expr.Bool(l), nil
		}
	}
	rhs, err := ev.eval(e.RHS, root, bound)
	if err != nil {
		return nil, err
	}
	return proc([]expr.Expr{lhs, rhs})
}

// evalFunc evaluates aggregate arguments. An attribute argument collects
// every matching value in the tree rather than the bound one.
func (ev *Evaluator) evalFunc(e expr.FuncExpr, root *oh5.Node, bound map[string]oh5.Value) (expr.Expr, error) {
	proc, err := ev.lookup(e.Func.Symbol())
	if err != nil {
		return nil, err
	}
	args := make([]expr.Expr, len(e.Args))
	for i, arg := range e.Args {
		var v expr.Expr
		if a, ok := arg.(expr.AttrExpr); ok {
			v, err = ev.resolveAll(a, root)
		} else {
			v, err = ev.eval(arg, root, bound)
		}
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return proc(args)
}

// attributeNames appends the distinct attribute names e binds, in order of
// appearance. Attributes given directly to an aggregate are not bound.
func attributeNames(e expr.Expr, names []string) []string {
	switch e := e.(type) {
	case expr.AttrExpr:
		if !slices.Contains(names, e.Name) {
			names = append(names, e.Name)
		}
	case expr.ListExpr:
		for _, item := range e.Items {
			names = attributeNames(item, names)
		}
	case expr.BinaryExpr:
		names = attributeNames(e.LHS, names)
		names = attributeNames(e.RHS, names)
	case expr.FuncExpr:
		for _, arg := range e.Args {
			if _, ok := arg.(expr.AttrExpr); !ok {
				names = attributeNames(arg, names)
			}
		}
	}
	return names
}

func isTrue(e expr.Expr) bool {
	lit, ok := e.(expr.LiteralExpr)
	if !ok {
		return false
	}
	b, ok := lit.Value.(oh5.Bool)
	return ok && bool(b)
}

func (ev *Evaluator) resolveAll(a expr.AttrExpr, root *oh5.Node) (expr.Expr, error) {
	var items []expr.Expr
	for _, v := range ev.candidates(a.Name, root) {
		c, err := convert(a, v)
		if err != nil {
			return nil, err
		}
		items = append(items, expr.LiteralExpr{Value: c})
	}
	return expr.ListExpr{Items: items}, nil
}

// convert casts v to the declared type of a. Null stays null.
func convert(a expr.AttrExpr, v oh5.Value) (oh5.Value, error) {
	if v == nil || oh5.IsNull(v) {
		return oh5.Null{}, nil
	}
	if a.Type == oh5.TypeNull {
		return v, nil
	}
	return oh5.Convert(v, a.Type)
}

// candidates returns the values of every attribute matching ref, in
// pre-order. A KEY suffix selects that entry of a source list; attributes
// without it are skipped.
func (ev *Evaluator) candidates(ref string, root *oh5.Node) []oh5.Value {
	if root == nil {
		return nil
	}
	name := mapper.ParseName(ref)

	var out []oh5.Value
	add := func(n *oh5.Node) {
		v := n.Value()
		if name.Key != "" {
			s, ok := v.(oh5.String)
			if !ok {
				return
			}
			entry, ok := oh5.ParseSource(string(s))[name.Key]
			if !ok {
				return
			}
			v = oh5.String(entry)
		}
		out = append(out, v)
	}

	container := name.Container
	if container == "" && name.Key == "" && ev.mapper != nil && ev.mapper.IsSpecialized(name.Attribute) {
		container = "/"
	}
	if container != "" {
		n, err := root.Find(oh5.JoinPath(container, name.Attribute))
		if err == nil && n.Kind() == oh5.KindAttribute {
			add(n)
		}
		return out
	}
	for n := range root.Walk() {
		if n.Kind() == oh5.KindAttribute && n.AttributeName() == name.Attribute {
			add(n)
		}
	}
	return out
}
