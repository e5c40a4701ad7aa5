// Package oh5 provides the in-memory model of ODIM_H5 metadata.
//
// An ODIM_H5 file is a hierarchy of HDF5 groups carrying typed attributes.
// This package mirrors that hierarchy as a tree of *Node values rooted at a
// KindRoot node, and wraps the tree in a *File that knows the handful of
// mandatory attributes (what/object, what/date, what/time, what/source).
//
// Node kinds form a closed set and acceptance of a child kind by a parent
// kind is a pure table lookup (see Accepts). Violations are reported at
// insertion time as errs.CodeStructural errors.
//
// Attribute values are Values: a sealed interface implemented by Null,
// String, Int, Double, Bool, Date, Time and DateTime only.
//
// Attribute naming: an attribute directly below a what/where/how group is
// addressed by its group-prefixed name ("what/object"), and a full path
// splits into that name plus the path of the owning node:
//
//	SplitPath("/dataset1/where/elangle") == ("where/elangle", "/dataset1")
//	SplitPath("/what/object")            == ("what/object", "/")
//
// The tree itself is not safe for concurrent mutation. Reading a tree from
// several goroutines is safe once construction has finished.
package oh5
