// Package merge writes configuration changes back into a YAML template
// without disturbing anything that did not change.
//
// The template is parsed into a yaml.Node tree for positions, styles and
// structure, and the original bytes are kept alongside it. Changes are
// expressed as byte-range edits against the original source, so comments,
// blank lines, key order and quoting of untouched entries survive exactly.
package merge

import (
	"bytes"
	"errors"
	"fmt"
	"unicode/utf8"

	"go.yaml.in/yaml/v3"
)

var (
	ErrFidelityUnavailable = errors.New("document does not retain source formatting")
	ErrNotMapping          = errors.New("document root is not a mapping")
)

// Document is a parsed YAML template that remembers its source text.
type Document struct {
	src   []byte
	root  *yaml.Node
	lines []int
}

// Parse reads src into a Document. An empty source yields an empty mapping.
func Parse(src []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(src, &root); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		root = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}}
	}
	if root.Content[0].Kind != yaml.MappingNode {
		return nil, ErrNotMapping
	}
	d := &Document{src: append([]byte{}, src...), root: &root}
	d.lines = lineStarts(d.src)
	return d, nil
}

// FromValue builds a Document from plain data. It has no source text, so
// it cannot be merged into; it exists for callers that only need values.
func FromValue(v map[string]any) (*Document, error) {
	var node yaml.Node
	if err := node.Encode(v); err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	return &Document{root: &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{&node}}}, nil
}

// RequireFidelity fails when d cannot be merged into byte for byte.
func RequireFidelity(d *Document) error {
	if d == nil || d.src == nil || d.root == nil {
		return ErrFidelityUnavailable
	}
	return nil
}

// Bytes returns a copy of the document source.
func (d *Document) Bytes() []byte {
	if d.src == nil {
		out, err := yaml.Marshal(d.root)
		if err != nil {
			return nil
		}
		return out
	}
	return append([]byte(nil), d.src...)
}

// Root returns the top-level mapping node.
func (d *Document) Root() *yaml.Node {
	return d.root.Content[0]
}

// Decode returns the document values as plain data.
func (d *Document) Decode() (map[string]any, error) {
	out := map[string]any{}
	if err := d.Root().Decode(&out); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return out, nil
}

func lineStarts(src []byte) []int {
	starts := []int{0}
	for i, c := range src {
		if c == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// offset converts a 1-based line and rune column into a byte offset.
func (d *Document) offset(line, column int) (int, bool) {
	if line < 1 || line > len(d.lines) {
		return 0, false
	}
	pos := d.lines[line-1]
	for col := 1; col < column; col++ {
		if pos >= len(d.src) || d.src[pos] == '\n' {
			return 0, false
		}
		_, size := utf8.DecodeRune(d.src[pos:])
		pos += size
	}
	return pos, true
}

// lineEnd returns the offset just past the newline ending line, or the end
// of the source for the final line.
func (d *Document) lineEnd(line int) int {
	if line < len(d.lines) {
		return d.lines[line]
	}
	return len(d.src)
}

func (d *Document) lineStart(line int) int {
	return d.lines[line-1]
}

// restOfLine returns the bytes from pos up to, not including, the newline.
func (d *Document) restOfLine(pos int) []byte {
	end := bytes.IndexByte(d.src[pos:], '\n')
	if end < 0 {
		return d.src[pos:]
	}
	return bytes.TrimSuffix(d.src[pos:pos+end], []byte("\r"))
}
