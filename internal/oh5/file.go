package oh5

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/baltrad/baltrad-db-sub003/internal/errs"
)

// DomainMetadata is the hash domain for metadata content hashes.
// The version suffix allows the listing format to change.
const DomainMetadata = "bdb/metadata/v1"

// File is one ODIM_H5 file's metadata tree.
type File struct {
	root *Node
}

// NewFile creates a file holding a root node and an empty /what group.
func NewFile() *File {
	root := NewRoot()
	// Root always accepts an attribute group.
	_, _ = root.AddChild(NewGroup(KindAttributeGroup, "what"))
	return &File{root: root}
}

// FileFromRoot wraps an existing tree. root must be a detached KindRoot node.
func FileFromRoot(root *Node) (*File, error) {
	if root == nil || root.kind != KindRoot || root.parent != nil {
		return nil, errs.Structural("file tree must start at a detached root node")
	}
	return &File{root: root}, nil
}

// Root returns the root node of the tree.
func (f *File) Root() *Node { return f.root }

// SetAttribute sets the attribute at a full path, creating intermediate
// groups as needed. Group kinds are inferred from their names.
func (f *File) SetAttribute(path string, v Value) (*Node, error) {
	segs := strings.Split(strings.Trim(path, "/"), "/")
	if len(segs) == 0 || segs[0] == "" {
		return nil, errs.Structural("invalid attribute path %q", path)
	}
	parent := f.root
	for _, seg := range segs[:len(segs)-1] {
		next := parent.Child(seg)
		if next == nil {
			var err error
			next, err = parent.AddChild(NewGroup(KindForName(seg), seg))
			if err != nil {
				return nil, err
			}
		} else if next.kind == KindAttribute {
			return nil, errs.Structural("%q is an attribute, not a group", next.Path())
		}
		parent = next
	}
	leaf := segs[len(segs)-1]
	if existing := parent.Child(leaf); existing != nil {
		if err := existing.SetValue(v); err != nil {
			return nil, err
		}
		return existing, nil
	}
	return parent.AddChild(NewAttribute(leaf, v))
}

// EnsureGroup returns the node at path, creating it and any missing
// ancestors with the given kind for the last segment and inferred kinds for
// the rest.
func (f *File) EnsureGroup(path string, kind Kind) (*Node, error) {
	segs := strings.Split(strings.Trim(path, "/"), "/")
	parent := f.root
	for i, seg := range segs {
		if seg == "" {
			continue
		}
		next := parent.Child(seg)
		if next == nil {
			k := KindForName(seg)
			if i == len(segs)-1 {
				k = kind
			}
			var err error
			if next, err = parent.AddChild(NewGroup(k, seg)); err != nil {
				return nil, err
			}
		}
		parent = next
	}
	return parent, nil
}

// Attribute returns the value of the attribute at a full path.
func (f *File) Attribute(path string) (Value, bool) {
	n, err := f.root.Find(path)
	if err != nil || n.kind != KindAttribute {
		return nil, false
	}
	return n.value, true
}

func (f *File) stringAttribute(path string) string {
	v, ok := f.Attribute(path)
	if !ok || IsNull(v) {
		return ""
	}
	s, err := Convert(v, TypeString)
	if err != nil {
		return ""
	}
	return s.String()
}

// Object returns /what/object, or "" if absent.
func (f *File) Object() string { return f.stringAttribute("/what/object") }

// Date returns /what/date.
func (f *File) Date() (Date, bool) {
	v, ok := f.Attribute("/what/date")
	if !ok {
		return Date{}, false
	}
	d, err := Convert(v, TypeDate)
	if err != nil || IsNull(d) {
		return Date{}, false
	}
	return d.(Date), true
}

// Time returns /what/time.
func (f *File) Time() (Time, bool) {
	v, ok := f.Attribute("/what/time")
	if !ok {
		return Time{}, false
	}
	t, err := Convert(v, TypeTime)
	if err != nil || IsNull(t) {
		return Time{}, false
	}
	return t.(Time), true
}

// Source returns /what/source parsed into its key/value pairs.
func (f *File) Source() Source {
	return ParseSource(f.stringAttribute("/what/source"))
}

// Attributes returns every attribute node in pre-order.
func (f *File) Attributes() []*Node {
	var out []*Node
	for n := range f.root.Walk() {
		if n.kind == KindAttribute {
			out = append(out, n)
		}
	}
	return out
}

// Hash returns the content hash of the metadata: SHA-256 over the domain,
// a null separator and the sorted listing of every node. Files with
// identical metadata have identical hashes regardless of insertion order.
func (f *File) Hash() string {
	var lines []string
	for n := range f.root.Walk() {
		var b strings.Builder
		b.WriteString(n.Path())
		b.WriteByte('|')
		b.WriteString(n.kind.String())
		if n.kind == KindAttribute {
			b.WriteByte('|')
			b.WriteString(n.value.Type().String())
			b.WriteByte('|')
			b.WriteString(n.value.String())
		}
		lines = append(lines, b.String())
	}
	sort.Strings(lines)

	h := sha256.New()
	h.Write([]byte(DomainMetadata))
	h.Write([]byte{0x00})
	for _, l := range lines {
		h.Write([]byte(l))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Source is the parsed form of what/source: "WMO:02606,RAD:SE50,PLC:Ängelholm".
type Source map[string]string

// ParseSource parses a comma separated list of KEY:value pairs. Entries
// without a colon are ignored.
func ParseSource(s string) Source {
	src := Source{}
	for _, part := range strings.Split(s, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok || key == "" {
			continue
		}
		src[key] = value
	}
	return src
}

// String renders the source with keys in sorted order.
func (s Source) String() string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ":" + s[k]
	}
	return strings.Join(parts, ",")
}
