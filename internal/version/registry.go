package version

import (
	"fmt"
	"slices"
	"sort"
)

// Configuration modules, in the order the generator runs them.
const (
	ModuleGlobal         = "global"
	ModuleInfrastructure = "infrastructure"
	ModuleNetworking     = "networking"
	ModuleMail           = "mail"
	ModulePlugins        = "plugins"
	ModuleServices       = "services"
)

// AllModules lists every known module in execution order.
var AllModules = []string{
	ModuleGlobal,
	ModuleInfrastructure,
	ModuleNetworking,
	ModuleMail,
	ModulePlugins,
	ModuleServices,
}

// Line describes one supported MAJOR.MINOR release line.
type Line struct {
	Key         string
	Name        string
	Description string
	Modules     []string
}

// Registry maps release lines to the modules they support.
type Registry struct {
	lines map[string]Line
}

// NewRegistry builds a registry from lines. Keys must be unique and every
// module must be a known one.
func NewRegistry(lines ...Line) (*Registry, error) {
	r := &Registry{lines: make(map[string]Line, len(lines))}
	for _, l := range lines {
		if _, err := Parse(l.Key + ".0"); err != nil {
			return nil, fmt.Errorf("release line key %q is not MAJOR.MINOR", l.Key)
		}
		if _, dup := r.lines[l.Key]; dup {
			return nil, fmt.Errorf("duplicate release line %q", l.Key)
		}
		for _, m := range l.Modules {
			if !slices.Contains(AllModules, m) {
				return nil, fmt.Errorf("release line %q: unknown module %q", l.Key, m)
			}
		}
		l.Modules = slices.Clone(l.Modules)
		r.lines[l.Key] = l
	}
	return r, nil
}

// DefaultRegistry returns the built-in catalog: 2.6 through 2.9 without
// plugins, 3.0 through 3.8 with every module.
func DefaultRegistry() *Registry {
	legacy := []string{ModuleGlobal, ModuleInfrastructure, ModuleNetworking, ModuleMail, ModuleServices}

	var lines []Line
	for minor := 6; minor <= 9; minor++ {
		lines = append(lines, Line{
			Key:         fmt.Sprintf("2.%d", minor),
			Name:        fmt.Sprintf("Dify Enterprise 2.%d", minor),
			Description: "legacy release line without the plugin runtime",
			Modules:     legacy,
		})
	}
	for minor := 0; minor <= 8; minor++ {
		lines = append(lines, Line{
			Key:         fmt.Sprintf("3.%d", minor),
			Name:        fmt.Sprintf("Dify Enterprise 3.%d", minor),
			Description: "plugin-enabled release line",
			Modules:     AllModules,
		})
	}

	r, err := NewRegistry(lines...)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the release line for v.
func (r *Registry) Lookup(v Version) (Line, error) {
	l, ok := r.lines[v.Line()]
	if !ok {
		return Line{}, fmt.Errorf("%w: %s (no release line %s in the catalog)", ErrUnsupportedVersion, v, v.Line())
	}
	return l, nil
}

// ModulesFor returns the modules supported by v's release line.
func (r *Registry) ModulesFor(v Version) ([]string, error) {
	l, err := r.Lookup(v)
	if err != nil {
		return nil, err
	}
	return slices.Clone(l.Modules), nil
}

// IsModuleSupported reports whether module is part of v's release line.
// Unknown versions support nothing.
func (r *Registry) IsModuleSupported(v Version, module string) bool {
	mods, err := r.ModulesFor(v)
	if err != nil {
		return false
	}
	return slices.Contains(mods, module)
}

// Lines returns every release line, oldest first.
func (r *Registry) Lines() []Line {
	out := make([]Line, 0, len(r.lines))
	for _, l := range r.lines {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := MustParse(out[i].Key+".0"), MustParse(out[j].Key+".0")
		return a.Less(b)
	})
	return out
}
