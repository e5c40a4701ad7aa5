package oh5

import (
	"fmt"
	"iter"
	"regexp"
	"strings"

	"github.com/baltrad/baltrad-db-sub003/internal/errs"
)

// Kind is the kind of a metadata tree node.
type Kind int

const (
	KindRoot Kind = iota
	KindGroup
	KindAttributeGroup
	KindDataGroup
	KindDataSetGroup
	KindQualityGroup
	KindDataObject
	KindDataSet
	KindData
	KindAttribute
)

var kindNames = [...]string{
	KindRoot:           "root",
	KindGroup:          "group",
	KindAttributeGroup: "attribute_group",
	KindDataGroup:      "data_group",
	KindDataSetGroup:   "dataset_group",
	KindQualityGroup:   "quality_group",
	KindDataObject:     "data_object",
	KindDataSet:        "dataset",
	KindData:           "data",
	KindAttribute:      "attribute",
}

// String returns the kind name used in codecs and the nodes table.
func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind parses a kind name produced by Kind.String.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return Kind(k), nil
		}
	}
	return 0, errs.Value("unknown node kind %q", name)
}

// accepts is keyed on (parent kind, child kind). Missing pairs are rejected.
var accepts = map[Kind]map[Kind]bool{
	KindRoot: {
		KindGroup: true, KindAttributeGroup: true, KindDataSetGroup: true,
		KindAttribute: true,
	},
	KindGroup: {
		KindGroup: true, KindAttributeGroup: true, KindDataSetGroup: true,
		KindDataGroup: true, KindQualityGroup: true, KindDataObject: true,
		KindDataSet: true, KindData: true, KindAttribute: true,
	},
	KindAttributeGroup: {KindAttribute: true},
	KindDataSetGroup: {
		KindAttributeGroup: true, KindDataGroup: true, KindQualityGroup: true,
	},
	KindDataGroup: {KindAttributeGroup: true, KindQualityGroup: true},
	KindQualityGroup: {
		KindAttributeGroup: true, KindDataObject: true, KindData: true,
	},
	KindDataObject: {KindAttribute: true},
	KindDataSet:    {KindAttribute: true},
	KindData:       {KindAttribute: true},
}

// Accepts reports whether a node of kind parent may hold a child of kind
// child. No kind accepts KindRoot.
func Accepts(parent, child Kind) bool {
	return accepts[parent][child]
}

// IsGroup reports whether nodes of kind k are persisted as group rows,
// i.e. everything except attributes.
func (k Kind) IsGroup() bool {
	return k != KindAttribute
}

var attributeGroupNames = map[string]bool{"what": true, "where": true, "how": true}

// IsAttributeGroupName reports whether name is one of the reserved
// what/where/how group names.
func IsAttributeGroupName(name string) bool {
	return attributeGroupNames[name]
}

var (
	datasetName = regexp.MustCompile(`^dataset[0-9]+$`)
	dataName    = regexp.MustCompile(`^data[0-9]+$`)
	qualityName = regexp.MustCompile(`^quality[0-9]+$`)
)

// KindForName infers the group kind of an ODIM_H5 group from its name.
func KindForName(name string) Kind {
	switch {
	case IsAttributeGroupName(name):
		return KindAttributeGroup
	case datasetName.MatchString(name):
		return KindDataSetGroup
	case dataName.MatchString(name):
		return KindDataGroup
	case qualityName.MatchString(name):
		return KindQualityGroup
	case name == "data":
		return KindData
	default:
		return KindGroup
	}
}

// Node is a labeled node of a metadata tree.
type Node struct {
	name     string
	kind     Kind
	value    Value
	parent   *Node
	children []*Node
	byName   map[string]*Node
}

// NewRoot creates an empty root node.
func NewRoot() *Node {
	return &Node{kind: KindRoot}
}

// NewGroup creates a detached group-like node of the given kind.
func NewGroup(kind Kind, name string) *Node {
	return &Node{kind: kind, name: name}
}

// NewAttribute creates a detached attribute node. A nil value is stored as
// Null.
func NewAttribute(name string, v Value) *Node {
	if v == nil {
		v = Null{}
	}
	return &Node{kind: KindAttribute, name: name, value: v}
}

func (n *Node) Name() string  { return n.name }
func (n *Node) Kind() Kind    { return n.kind }
func (n *Node) Parent() *Node { return n.parent }

// Value returns the attribute value; nil for non-attribute nodes.
func (n *Node) Value() Value { return n.value }

// SetValue replaces the value of an attribute node.
func (n *Node) SetValue(v Value) error {
	if n.kind != KindAttribute {
		return errs.Structural("%s %q holds no value", n.kind, n.Path())
	}
	if v == nil {
		v = Null{}
	}
	n.value = v
	return nil
}

// AddChild attaches child below n and returns it.
//
// Fails with CodeStructural if n does not accept child's kind, if child
// already has a parent or has an empty name, and with CodeDuplicateEntry if
// n already has a child of the same name.
func (n *Node) AddChild(child *Node) (*Node, error) {
	if child == nil {
		return nil, errs.Structural("nil child")
	}
	if child.parent != nil {
		return nil, errs.Structural("node %q is already attached to %q", child.name, child.parent.Path())
	}
	if child.name == "" || strings.Contains(child.name, "/") {
		return nil, errs.Structural("invalid node name %q", child.name)
	}
	if !Accepts(n.kind, child.kind) {
		return nil, errs.Structural("%s %q does not accept %s %q", n.kind, n.Path(), child.kind, child.name)
	}
	if _, exists := n.byName[child.name]; exists {
		return nil, errs.Duplicate("%q already has a child named %q", n.Path(), child.name)
	}
	if n.byName == nil {
		n.byName = make(map[string]*Node)
	}
	child.parent = n
	n.children = append(n.children, child)
	n.byName[child.name] = child
	return child, nil
}

// Child returns the direct child with the given name, or nil.
func (n *Node) Child(name string) *Node {
	return n.byName[name]
}

// HasChildren reports whether n has any children.
func (n *Node) HasChildren() bool {
	return len(n.children) > 0
}

// Children returns the direct children of n in insertion order, restricted
// to the given kinds when any are passed. The sequence may be iterated any
// number of times.
func (n *Node) Children(kinds ...Kind) iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for _, c := range n.children {
			if len(kinds) > 0 && !kindIn(c.kind, kinds) {
				continue
			}
			if !yield(c) {
				return
			}
		}
	}
}

// Walk returns a depth-first pre-order sequence over n and its descendants.
func (n *Node) Walk() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		n.walk(yield)
	}
}

func (n *Node) walk(yield func(*Node) bool) bool {
	if !yield(n) {
		return false
	}
	for _, c := range n.children {
		if !c.walk(yield) {
			return false
		}
	}
	return true
}

func kindIn(k Kind, kinds []Kind) bool {
	for _, want := range kinds {
		if k == want {
			return true
		}
	}
	return false
}

// Root returns the topmost ancestor of n.
func (n *Node) Root() *Node {
	for n.parent != nil {
		n = n.parent
	}
	return n
}

// Path returns the slash-joined names from the root down to n.
// The root's path is "/".
func (n *Node) Path() string {
	if n.parent == nil {
		return "/"
	}
	var names []string
	for cur := n; cur.parent != nil; cur = cur.parent {
		names = append(names, cur.name)
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return "/" + strings.Join(names, "/")
}

// AttributeName returns the logical name of an attribute node: its name,
// prefixed with "what/", "where/" or "how/" when it sits directly in such a
// group.
func (n *Node) AttributeName() string {
	if n.parent != nil && n.parent.kind == KindAttributeGroup && IsAttributeGroupName(n.parent.name) {
		return n.parent.name + "/" + n.name
	}
	return n.name
}

// Owner returns the node an attribute belongs to: the parent of its
// what/where/how group, or its direct parent otherwise.
func (n *Node) Owner() *Node {
	if n.parent != nil && n.parent.kind == KindAttributeGroup && IsAttributeGroupName(n.parent.name) && n.parent.parent != nil {
		return n.parent.parent
	}
	return n.parent
}

// Find resolves a slash-separated path. Absolute paths resolve from the
// root of n's tree, relative ones from n. A missing segment is a
// CodeLookup error.
func (n *Node) Find(path string) (*Node, error) {
	cur := n
	if strings.HasPrefix(path, "/") {
		cur = n.Root()
	}
	for _, seg := range strings.Split(strings.Trim(path, "/"), "/") {
		if seg == "" {
			continue
		}
		next := cur.Child(seg)
		if next == nil {
			return nil, errs.Lookup("no node %q below %q", seg, cur.Path())
		}
		cur = next
	}
	return cur, nil
}

// SplitPath splits a full attribute path into the logical attribute name
// and the path of the owning node. A what/where/how segment directly
// before the leaf is folded into the name. The owning path is "/" when no
// segments remain.
func SplitPath(path string) (name, container string) {
	segs := strings.Split(strings.Trim(path, "/"), "/")
	name = segs[len(segs)-1]
	rest := segs[:len(segs)-1]
	if len(rest) > 0 && IsAttributeGroupName(rest[len(rest)-1]) {
		name = rest[len(rest)-1] + "/" + name
		rest = rest[:len(rest)-1]
	}
	return name, "/" + strings.Join(rest, "/")
}

// JoinPath is the inverse of SplitPath.
func JoinPath(container, name string) string {
	if container == "/" || container == "" {
		return "/" + name
	}
	return strings.TrimSuffix(container, "/") + "/" + name
}
