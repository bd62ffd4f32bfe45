// Package feature registers configuration steps that only apply to a range
// of chart versions and runs them at the end of their module.
package feature

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"valuesgen-cli/internal/interfaces"
	"valuesgen-cli/internal/session"
	"valuesgen-cli/internal/version"
)

var ErrDuplicateFeatureName = errors.New("duplicate feature name")

// Action configures a feature inside a session.
type Action func(ctx context.Context, s *session.Session) error

// Feature is a version-gated configuration step owned by one module.
type Feature struct {
	Name        string
	Description string
	Module      string
	// MinVersion is inclusive. The zero Version means no lower bound.
	MinVersion version.Version
	// MaxVersion is inclusive. Nil means no upper bound.
	MaxVersion *version.Version
	Configure  Action
}

// Constructor builds a Feature.
type Constructor func() Feature

// Source enumerates feature constructors.
type Source func() []Constructor

// Failure reports a feature whose action returned an error.
type Failure struct {
	Feature string
	Module  string
	Err     error
}

func (f Failure) Error() string {
	return fmt.Sprintf("feature %q (%s): %v", f.Feature, f.Module, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

type entry struct {
	feature Feature
	seq     int
}

// Registry holds features grouped by module.
type Registry struct {
	mu       sync.Mutex
	modules  map[string][]entry
	seq      int
	discover sync.Once
	logger   *slog.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{modules: map[string][]entry{}, logger: logger}
}

// Register adds f. Names are unique per module.
func (r *Registry) Register(f Feature) error {
	if f.Name == "" || f.Module == "" || f.Configure == nil {
		return fmt.Errorf("feature %q needs a name, a module and an action", f.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.modules[f.Module] {
		if e.feature.Name == f.Name {
			return fmt.Errorf("%w: %q in module %s", ErrDuplicateFeatureName, f.Name, f.Module)
		}
	}
	r.modules[f.Module] = append(r.modules[f.Module], entry{feature: f, seq: r.seq})
	r.seq++
	r.logger.Debug("registered feature", "feature", f.Name, "module", f.Module, "min_version", f.MinVersion.String())
	return nil
}

// Discover registers every feature from sources. Only the first call has
// any effect.
func (r *Registry) Discover(sources ...Source) error {
	var errs []error
	r.discover.Do(func() {
		for _, src := range sources {
			for _, build := range src() {
				if err := r.Register(build()); err != nil {
					errs = append(errs, err)
				}
			}
		}
	})
	return errors.Join(errs...)
}

// Modules lists every module with registered features, sorted.
func (r *Registry) Modules() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.modules))
	for m := range r.modules {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// FeaturesFor returns the features of module whose range contains v,
// ordered by minimum version and then registration order.
func (r *Registry) FeaturesFor(v version.Version, module string) []Feature {
	r.mu.Lock()
	matched := make([]entry, 0, len(r.modules[module]))
	for _, e := range r.modules[module] {
		if v.Within(e.feature.MinVersion, e.feature.MaxVersion) {
			matched = append(matched, e)
		}
	}
	r.mu.Unlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if c := matched[i].feature.MinVersion.Compare(matched[j].feature.MinVersion); c != 0 {
			return c < 0
		}
		return matched[i].seq < matched[j].seq
	})

	out := make([]Feature, len(matched))
	for i, e := range matched {
		out[i] = e.feature
	}
	return out
}

// Apply runs every applicable feature of module. A failing feature is
// reported and the rest still run; cancellation stops immediately.
func (r *Registry) Apply(ctx context.Context, s *session.Session, module string) ([]Failure, error) {
	var failures []Failure
	for _, f := range r.FeaturesFor(s.Version, module) {
		if err := s.Checkpoint(ctx); err != nil {
			return failures, err
		}

		s.Console.Section(f.Name)
		err := run(ctx, s, f)
		switch {
		case err == nil:
			r.logger.Info("applied feature", "feature", f.Name, "module", module)
		case errors.Is(err, interfaces.ErrUserCancelled):
			return failures, err
		default:
			s.Console.Error(fmt.Sprintf("%s failed: %v", f.Name, err))
			r.logger.Warn("feature failed", "feature", f.Name, "module", module, "error", err)
			failures = append(failures, Failure{Feature: f.Name, Module: module, Err: err})
		}
	}
	return failures, nil
}

func run(ctx context.Context, s *session.Session, f Feature) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return f.Configure(ctx, s)
}
