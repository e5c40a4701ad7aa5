package oh5

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Codec reads and writes metadata trees from and to files.
type Codec interface {
	Read(path string) (*File, error)
	Write(f *File, path string) error
}

// YAMLCodec stores metadata as an ordered YAML listing of groups and
// attributes. It carries metadata only; no dataset payloads.
type YAMLCodec struct{}

var _ Codec = YAMLCodec{}

type yamlDocument struct {
	Groups     []yamlGroup     `yaml:"groups,omitempty"`
	Attributes []yamlAttribute `yaml:"attributes"`
}

type yamlGroup struct {
	Path string `yaml:"path"`
	Kind string `yaml:"kind"`
}

type yamlAttribute struct {
	Path  string `yaml:"path"`
	Type  string `yaml:"type"`
	Value string `yaml:"value"`
}

// Read loads a file from path.
func (c YAMLCodec) Read(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	f, err := c.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return f, nil
}

// Write stores f at path, replacing any existing file.
func (c YAMLCodec) Write(f *File, path string) error {
	var buf bytes.Buffer
	if err := c.Encode(f, &buf); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Decode reads a YAML document. Groups are created first, with their
// recorded kinds, then attributes in listing order.
func (YAMLCodec) Decode(r io.Reader) (*File, error) {
	var doc yamlDocument
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	f := &File{root: NewRoot()}
	for _, g := range doc.Groups {
		kind, err := ParseKind(g.Kind)
		if err != nil {
			return nil, fmt.Errorf("group %s: %w", g.Path, err)
		}
		if _, err := f.EnsureGroup(g.Path, kind); err != nil {
			return nil, fmt.Errorf("group %s: %w", g.Path, err)
		}
	}
	for _, a := range doc.Attributes {
		t, err := ParseType(a.Type)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", a.Path, err)
		}
		v, err := Convert(String(a.Value), t)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", a.Path, err)
		}
		if _, err := f.SetAttribute(a.Path, v); err != nil {
			return nil, fmt.Errorf("attribute %s: %w", a.Path, err)
		}
	}
	return f, nil
}

// Encode writes f as a YAML document.
func (YAMLCodec) Encode(f *File, w io.Writer) error {
	var doc yamlDocument
	for n := range f.root.Walk() {
		switch {
		case n.kind == KindRoot:
		case n.kind == KindAttribute:
			value := n.value.String()
			switch v := n.value.(type) {
			case Null:
				value = ""
			case Date:
				value = v.ODIM()
			case Time:
				value = v.ODIM()
			}
			doc.Attributes = append(doc.Attributes, yamlAttribute{
				Path:  n.Path(),
				Type:  n.value.Type().String(),
				Value: value,
			})
		default:
			doc.Groups = append(doc.Groups, yamlGroup{Path: n.Path(), Kind: n.kind.String()})
		}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}
