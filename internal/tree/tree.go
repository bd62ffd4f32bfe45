// Package tree holds the in-memory configuration assembled during a run.
//
// Paths are dot separated. A literal dot inside a key is written as "\.",
// so the annotation key "cert-manager.io/cluster-issuer" under
// ingress.annotations is addressed as
// `ingress.annotations.cert-manager\.io/cluster-issuer`. Use Key to build
// such paths without escaping by hand.
//
// Paths starting with TransientPrefix hold answers that steer linkage rules
// but never reach the generated document.
package tree

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// TransientPrefix marks a path whose value is kept out of the output.
const TransientPrefix = "@"

var (
	ErrTypeMismatch = errors.New("type mismatch")
	ErrInvalidPath  = errors.New("invalid path")
)

// Kind is the coarse type class a leaf belongs to.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindBool
	KindInt
	KindFloat
	KindList
	KindMap
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	}
	return "other"
}

// KindOf reports the kind of a normalized value.
func KindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return KindNull
	case string:
		return KindString
	case bool:
		return KindBool
	case int:
		return KindInt
	case float64:
		return KindFloat
	case []any:
		return KindList
	case map[string]any:
		return KindMap
	}
	return KindOther
}

// Tree is a nested map of configuration values plus a record of explicit
// deletions. It is not safe for concurrent use.
type Tree struct {
	root      map[string]any
	transient map[string]any
	deleted   map[string]struct{}
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{
		root:      map[string]any{},
		transient: map[string]any{},
		deleted:   map[string]struct{}{},
	}
}

// FromMap seeds a tree with a deep, normalized copy of m.
func FromMap(m map[string]any) *Tree {
	t := New()
	for k, v := range m {
		t.root[k] = Normalize(v)
	}
	return t
}

// Key joins raw key segments into an escaped path.
func Key(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = strings.ReplaceAll(p, ".", `\.`)
	}
	return strings.Join(escaped, ".")
}

// Split breaks an escaped path into raw key segments.
func Split(path string) []string {
	var (
		parts []string
		cur   strings.Builder
	)
	for i := 0; i < len(path); i++ {
		c := path[i]
		if c == '\\' && i+1 < len(path) && path[i+1] == '.' {
			cur.WriteByte('.')
			i++
			continue
		}
		if c == '.' {
			parts = append(parts, cur.String())
			cur.Reset()
			continue
		}
		cur.WriteByte(c)
	}
	return append(parts, cur.String())
}

// IsTransient reports whether path names a transient answer.
func IsTransient(path string) bool {
	return strings.HasPrefix(path, TransientPrefix)
}

func validate(path string) ([]string, error) {
	if path == "" || path == TransientPrefix {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	parts := Split(path)
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("%w: empty segment in %q", ErrInvalidPath, path)
		}
	}
	return parts, nil
}

// Get returns the value at path.
func (t *Tree) Get(path string) (any, bool) {
	if IsTransient(path) {
		v, ok := t.transient[path]
		return v, ok
	}
	parts, err := validate(path)
	if err != nil {
		return nil, false
	}
	var cur any = t.root
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[p]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// Has reports whether path exists.
func (t *Tree) Has(path string) bool {
	_, ok := t.Get(path)
	return ok
}

// String returns the value at path as a string, or def when absent or not
// a string.
func (t *Tree) String(path, def string) string {
	if v, ok := t.Get(path); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the boolean at path, or def.
func (t *Tree) Bool(path string, def bool) bool {
	if v, ok := t.Get(path); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the integer at path, or def.
func (t *Tree) Int(path string, def int) int {
	if v, ok := t.Get(path); ok {
		switch n := v.(type) {
		case int:
			return n
		case float64:
			if n == math.Trunc(n) {
				return int(n)
			}
		}
	}
	return def
}

// Check reports whether value may be stored at path without breaking the
// type of an existing leaf or descending through a non-map.
func (t *Tree) Check(path string, value any) error {
	if IsTransient(path) {
		return nil
	}
	parts, err := validate(path)
	if err != nil {
		return err
	}
	value = Normalize(value)
	cur := t.root
	for i, p := range parts {
		existing, ok := cur[p]
		if !ok {
			return nil
		}
		if i == len(parts)-1 {
			return compatible(path, existing, value)
		}
		next, ok := existing.(map[string]any)
		if !ok {
			if existing == nil {
				return nil
			}
			return fmt.Errorf("%w: %s is a %s, cannot hold key %q", ErrTypeMismatch,
				Key(parts[:i+1]...), KindOf(existing), parts[i+1])
		}
		cur = next
	}
	return nil
}

func compatible(path string, existing, value any) error {
	ek, vk := KindOf(existing), KindOf(value)
	if ek == KindNull || vk == KindNull || ek == vk {
		return nil
	}
	return fmt.Errorf("%w: %s holds a %s, refusing %s %v", ErrTypeMismatch, path, ek, vk, value)
}

// Set stores value at path, creating intermediate maps as needed.
func (t *Tree) Set(path string, value any) error {
	if err := t.Check(path, value); err != nil {
		return err
	}
	value = Normalize(value)
	if IsTransient(path) {
		t.transient[path] = value
		return nil
	}
	parts := Split(path)
	cur := t.root
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[p] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = value
	delete(t.deleted, path)
	return nil
}

// Delete removes path and records the removal so the merger can drop the
// key from the output document.
func (t *Tree) Delete(path string) bool {
	if IsTransient(path) {
		_, ok := t.transient[path]
		delete(t.transient, path)
		return ok
	}
	parts, err := validate(path)
	if err != nil {
		return false
	}
	cur := t.root
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(map[string]any)
		if !ok {
			return false
		}
		cur = next
	}
	last := parts[len(parts)-1]
	if _, ok := cur[last]; !ok {
		return false
	}
	delete(cur, last)
	t.deleted[path] = struct{}{}
	return true
}

// Deleted lists the paths removed with Delete, sorted.
func (t *Tree) Deleted() []string {
	out := make([]string, 0, len(t.deleted))
	for p := range t.deleted {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Map returns a deep copy of the persistent values.
func (t *Tree) Map() map[string]any {
	return Normalize(t.root).(map[string]any)
}

// Clone returns an independent copy of t.
func (t *Tree) Clone() *Tree {
	c := FromMap(t.root)
	for k, v := range t.transient {
		c.transient[k] = Normalize(v)
	}
	for k := range t.deleted {
		c.deleted[k] = struct{}{}
	}
	return c
}

// Adopt replaces the contents of t with those of other. Used to commit a
// staged copy in one step.
func (t *Tree) Adopt(other *Tree) {
	t.root = other.root
	t.transient = other.transient
	t.deleted = other.deleted
}

// Leaves returns every scalar or list leaf path in sorted order.
func (t *Tree) Leaves() []string {
	var out []string
	var walk func(prefix []string, m map[string]any)
	walk = func(prefix []string, m map[string]any) {
		for k, v := range m {
			p := append(append([]string{}, prefix...), k)
			if child, ok := v.(map[string]any); ok && len(child) > 0 {
				walk(p, child)
				continue
			}
			out = append(out, Key(p...))
		}
	}
	walk(nil, t.root)
	sort.Strings(out)
	return out
}

// Normalize deep copies v and folds numeric and container types into the
// set of kinds the tree stores.
func Normalize(v any) any {
	switch x := v.(type) {
	case nil, string, bool, int, float64:
		return x
	case int8:
		return int(x)
	case int16:
		return int(x)
	case int32:
		return int(x)
	case int64:
		return int(x)
	case uint:
		return int(x)
	case uint8:
		return int(x)
	case uint16:
		return int(x)
	case uint32:
		return int(x)
	case uint64:
		return int(x)
	case float32:
		return float64(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = Normalize(e)
		}
		return out
	case []string:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = e
		}
		return out
	case []map[string]any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = Normalize(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = Normalize(e)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = e
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[fmt.Sprint(k)] = Normalize(e)
		}
		return out
	}
	return v
}
