// Package sqlir is a small relational statement builder: tables, columns,
// aliases, joins, and the select, insert and delete statements the catalog
// issues.
//
// Nodes are sealed: only types in this package implement Node, Expr,
// Selectable or Statement, so compilers can switch exhaustively.
//
//	switch n := node.(type) {
//	case *Select:
//	case *Insert:
//	case *Column:
//	...
//	}
//
// Builders validate as they go. Looking up a column a table does not have
// is a lookup error; adding two same-named selectables to one FROM clause,
// or setting an insert column twice, is a duplicate-entry error. Nothing is
// rendered here; see package querysql.
package sqlir
