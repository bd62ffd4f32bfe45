// Package linkage keeps related configuration values consistent.
//
// Three kinds of rule are supported. A Derivation recomputes dependent
// values whenever one of its trigger paths is set. An Exclusion turns off
// the other members of a group when one member is turned on. A Consistency
// rule relates two paths that are checked, and optionally repaired, at the
// end of a module.
//
// SetAndPropagate applies a value and follows every rule it triggers. All
// resulting writes are staged and committed together, so a failure leaves
// the tree exactly as it was.
package linkage

import (
	"errors"
	"fmt"
	"strings"

	"valuesgen-cli/internal/tree"
)

// DefaultMaxDepth bounds how many derived hops one assignment may cause.
const DefaultMaxDepth = 8

var ErrLinkageCycleDetected = errors.New("linkage cycle detected")

// Getter reads the current, staged value of a path.
type Getter func(path string) (any, bool)

// Assignment is one derived write.
type Assignment struct {
	Path  string
	Value any
}

// Derivation recomputes values whenever a trigger path is assigned.
type Derivation struct {
	Name     string
	Triggers []string
	Derive   func(get Getter) []Assignment
}

// Exclusion is a group of boolean paths of which at most one may be true.
type Exclusion struct {
	Name    string
	Members []string
}

// Consistency relates two paths checked at a module checkpoint.
type Consistency struct {
	Name       string
	Module     string
	PathA      string
	PathB      string
	Equal      func(a, b any) bool
	Suggestion string
	// Repair returns the writes that bring the pair in line, or nil when the
	// mismatch needs more input than the two values carry.
	Repair func(a, b any) []Assignment
}

// RuleSet is the full set of rules an engine enforces.
type RuleSet struct {
	Derivations   []Derivation
	Exclusions    []Exclusion
	Consistencies []Consistency
}

// Notice reports an automatic resolution the operator should know about.
type Notice struct {
	Rule    string
	Path    string
	Cleared []string
}

func (n Notice) String() string {
	return fmt.Sprintf("%s enabled, disabled %s (%s)", n.Path, strings.Join(n.Cleared, ", "), n.Rule)
}

// Mismatch is a consistency rule that does not hold.
type Mismatch struct {
	Rule       string
	Module     string
	PathA      string
	ValueA     any
	PathB      string
	ValueB     any
	Suggestion string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s=%v does not match %s=%v", m.PathA, m.ValueA, m.PathB, m.ValueB)
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxDepth overrides DefaultMaxDepth.
func WithMaxDepth(n int) Option {
	return func(e *Engine) {
		e.maxDepth = n
	}
}

// Engine enforces a RuleSet on a tree.
type Engine struct {
	derivations   map[string][]Derivation
	exclusions    map[string][]Exclusion
	consistencies []Consistency
	maxDepth      int
}

// NewEngine indexes rules by trigger path.
func NewEngine(rules RuleSet, opts ...Option) (*Engine, error) {
	e := &Engine{
		derivations: map[string][]Derivation{},
		exclusions:  map[string][]Exclusion{},
		maxDepth:    DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(e)
	}

	for _, d := range rules.Derivations {
		if d.Name == "" || d.Derive == nil || len(d.Triggers) == 0 {
			return nil, fmt.Errorf("derivation %q needs a name, triggers and a derive function", d.Name)
		}
		for _, trig := range d.Triggers {
			e.derivations[trig] = append(e.derivations[trig], d)
		}
	}
	for _, x := range rules.Exclusions {
		if x.Name == "" || len(x.Members) < 2 {
			return nil, fmt.Errorf("exclusion %q needs a name and at least two members", x.Name)
		}
		for _, m := range x.Members {
			e.exclusions[m] = append(e.exclusions[m], x)
		}
	}
	for _, c := range rules.Consistencies {
		if c.Name == "" || c.PathA == "" || c.PathB == "" {
			return nil, fmt.Errorf("consistency rule %q needs a name and two paths", c.Name)
		}
		if c.Equal == nil {
			c.Equal = func(a, b any) bool { return Truthy(a) == Truthy(b) }
		}
		e.consistencies = append(e.consistencies, c)
	}
	return e, nil
}

type pending struct {
	path  string
	value any
	depth int
}

// SetAndPropagate assigns value to path and applies every rule that fires
// as a consequence. The tree is only modified if every write succeeds.
func (e *Engine) SetAndPropagate(t *tree.Tree, path string, value any) ([]Notice, error) {
	staged := t.Clone()
	get := Getter(staged.Get)

	var notices []Notice
	queue := []pending{{path: path, value: value}}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]

		if p.depth > e.maxDepth {
			return nil, fmt.Errorf("%w: setting %s re-triggered %s more than %d times",
				ErrLinkageCycleDetected, path, p.path, e.maxDepth)
		}
		if err := staged.Set(p.path, p.value); err != nil {
			return nil, fmt.Errorf("apply %s: %w", p.path, err)
		}

		if Truthy(p.value) {
			for _, x := range e.exclusions[p.path] {
				var cleared []string
				for _, m := range x.Members {
					if m == p.path {
						continue
					}
					if cur, ok := staged.Get(m); ok && Truthy(cur) {
						cleared = append(cleared, m)
						queue = append(queue, pending{path: m, value: false, depth: p.depth + 1})
					}
				}
				if len(cleared) > 0 {
					notices = append(notices, Notice{Rule: x.Name, Path: p.path, Cleared: cleared})
				}
			}
		}

		for _, d := range e.derivations[p.path] {
			for _, a := range d.Derive(get) {
				queue = append(queue, pending{path: a.Path, value: a.Value, depth: p.depth + 1})
			}
		}
	}

	t.Adopt(staged)
	return notices, nil
}

// Check evaluates the consistency rules bound to module, or all of them
// when module is empty.
func (e *Engine) Check(t *tree.Tree, module string) []Mismatch {
	var out []Mismatch
	for _, c := range e.consistencies {
		if module != "" && c.Module != module {
			continue
		}
		a, _ := t.Get(c.PathA)
		b, _ := t.Get(c.PathB)
		if c.Equal(a, b) {
			continue
		}
		out = append(out, Mismatch{
			Rule:       c.Name,
			Module:     c.Module,
			PathA:      c.PathA,
			ValueA:     a,
			PathB:      c.PathB,
			ValueB:     b,
			Suggestion: c.Suggestion,
		})
	}
	return out
}

// Repair applies the automatic fix for m, if its rule has one. It reports
// false when the rule cannot align the pair by itself.
func (e *Engine) Repair(t *tree.Tree, m Mismatch) (bool, []Notice, error) {
	for _, c := range e.consistencies {
		if c.Name != m.Rule || c.Repair == nil {
			continue
		}
		a, _ := t.Get(c.PathA)
		b, _ := t.Get(c.PathB)
		fixes := c.Repair(a, b)
		if len(fixes) == 0 {
			return false, nil, nil
		}
		var notices []Notice
		for _, f := range fixes {
			n, err := e.SetAndPropagate(t, f.Path, f.Value)
			if err != nil {
				return false, notices, err
			}
			notices = append(notices, n...)
		}
		return true, notices, nil
	}
	return false, nil, nil
}

// Truthy follows the usual configuration sense of "on": true, a non-empty
// string or collection, or a non-zero number.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case int:
		return x != 0
	case int64:
		return x != 0
	case float64:
		return x != 0
	case []any:
		return len(x) > 0
	case []string:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	}
	return true
}
