// Package store persists ODIM_H5 metadata trees in a relational database
// and answers queries over them.
//
// # Layout
//
//   - bdb_files: one row per stored file, with the specialized attributes
//     (what/object, what/date, what/time, what/source) as columns
//   - bdb_nodes: group dictionary keyed by (parent_id, name), shared by
//     all files
//   - bdb_attribute_values: every other attribute, one row per value, in
//     the typed value column chosen by the attribute mapper
//
// # Storing
//
// Store walks a tree in pre-order inside one transaction. Group rows are
// looked up through an id cache keyed by (parent id, name) and inserted
// only when missing, so identical trees share their group rows. Attribute
// rows are always inserted: storing the same file twice duplicates them.
// Callers that want one copy per file use GetOrStore, which checks the
// content hash first.
//
// # Querying
//
// Expressions from package expr are translated into sqlir statements,
// joining an alias of bdb_attribute_values per generic attribute, and
// rendered by package querysql for the configured dialect.
//
// # Database Configuration (SQLite)
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
