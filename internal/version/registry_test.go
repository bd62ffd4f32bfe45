package version

import (
	"errors"
	"slices"
	"testing"
)

func TestDefaultRegistry_ModulesFor(t *testing.T) {
	r := DefaultRegistry()

	for _, line := range r.Lines() {
		t.Run(line.Key, func(t *testing.T) {
			v := MustParse(line.Key + ".3")
			mods, err := r.ModulesFor(v)
			if err != nil {
				t.Fatalf("ModulesFor(%s) failed: %v", v, err)
			}
			if !slices.Equal(mods, line.Modules) {
				t.Errorf("ModulesFor(%s) = %v, want %v", v, mods, line.Modules)
			}
			for _, m := range mods {
				if !r.IsModuleSupported(v, m) {
					t.Errorf("IsModuleSupported(%s, %s) = false", v, m)
				}
			}
		})
	}
}

func TestDefaultRegistry_Plugins(t *testing.T) {
	r := DefaultRegistry()

	tests := []struct {
		version string
		want    bool
	}{
		{"2.6.0", false},
		{"2.9.1", false},
		{"3.0.0", true},
		{"3.5.6", true},
		{"3.8.0-beta.1", true},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			if got := r.IsModuleSupported(MustParse(tt.version), ModulePlugins); got != tt.want {
				t.Errorf("IsModuleSupported(%s, plugins) = %v, want %v", tt.version, got, tt.want)
			}
		})
	}
}

func TestRegistry_Unsupported(t *testing.T) {
	r := DefaultRegistry()

	for _, input := range []string{"1.0.0", "2.5.9", "3.9.0", "4.0.0"} {
		t.Run(input, func(t *testing.T) {
			v := MustParse(input)
			if _, err := r.ModulesFor(v); !errors.Is(err, ErrUnsupportedVersion) {
				t.Errorf("ModulesFor(%s) error = %v, want ErrUnsupportedVersion", v, err)
			}
			if r.IsModuleSupported(v, ModuleGlobal) {
				t.Errorf("IsModuleSupported(%s, global) = true for an unknown line", v)
			}
		})
	}
}

func TestNewRegistry_Validation(t *testing.T) {
	if _, err := NewRegistry(Line{Key: "3.0", Modules: []string{"telemetry"}}); err == nil {
		t.Error("expected error for unknown module")
	}
	if _, err := NewRegistry(Line{Key: "3.0"}, Line{Key: "3.0"}); err == nil {
		t.Error("expected error for duplicate line")
	}
	if _, err := NewRegistry(Line{Key: "three"}); err == nil {
		t.Error("expected error for malformed key")
	}
}

func TestRegistry_LinesSorted(t *testing.T) {
	lines := DefaultRegistry().Lines()
	if len(lines) != 13 {
		t.Fatalf("expected 13 release lines, got %d", len(lines))
	}
	if lines[0].Key != "2.6" || lines[len(lines)-1].Key != "3.8" {
		t.Errorf("unexpected order: first %s, last %s", lines[0].Key, lines[len(lines)-1].Key)
	}
}
