// Package expr provides the query expression AST shared by the in-memory
// evaluator and the SQL translation.
//
// Expr is a sealed interface implemented by five node types:
//
//	LiteralExpr  a scalar oh5.Value
//	AttrExpr     a logical attribute name plus its declared value type
//	FuncExpr     count/max/min/sum over an ordered argument list
//	BinaryExpr   one of the closed set of binary operators
//	ListExpr     an ordered sequence, the operand of in/not_in
//
// Expressions are immutable values. Builders (Attr, Str, Eq, And, In, ...)
// always return new nodes and copy the slices they are given.
//
// Every expression has a canonical s-expression form returned by String:
//
//	(and (eq (attr "what/object" "string") "PVOL") (gt (attr "where/elangle" "double") 0.5))
//
// Two expressions are equal iff their canonical forms are equal. Parse reads
// the canonical form back, and Parse(e.String()).String() == e.String() for
// every expression.
package expr
