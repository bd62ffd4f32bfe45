// Package modules holds the interactive configurators, one per area of the
// chart, run in a fixed order by the generator.
package modules

import (
	"context"
	"fmt"

	"valuesgen-cli/internal/feature"
	"valuesgen-cli/internal/interfaces"
	"valuesgen-cli/internal/linkage"
	"valuesgen-cli/internal/session"
	"valuesgen-cli/internal/version"
)

// Configure asks a module's questions and writes the answers.
type Configure func(ctx context.Context, s *session.Session) error

// Reconcile resolves a consistency mismatch that needs operator input.
// It reports whether the mismatch was resolved.
type Reconcile func(ctx context.Context, s *session.Session, m linkage.Mismatch) (bool, error)

// Descriptor names a configurator and its hooks.
type Descriptor struct {
	Name      string
	Title     string
	Configure Configure
	Reconcile Reconcile
}

// Defaults returns the built-in configurators in execution order.
func Defaults() []Descriptor {
	return []Descriptor{
		{Name: version.ModuleGlobal, Title: "Global settings", Configure: ConfigureGlobal},
		{Name: version.ModuleInfrastructure, Title: "Infrastructure", Configure: ConfigureInfrastructure},
		{Name: version.ModuleNetworking, Title: "Networking", Configure: ConfigureNetworking, Reconcile: ReconcileTLS},
		{Name: version.ModuleMail, Title: "Mail", Configure: ConfigureMail},
		{Name: version.ModulePlugins, Title: "Plugins", Configure: ConfigurePlugins},
		{Name: version.ModuleServices, Title: "Services", Configure: ConfigureServices},
	}
}

// Run executes one configurator. An unsupported module is announced and
// skipped without touching the tree. After the questions, consistency rules
// bound to the module are checked and the module's features are applied.
func Run(ctx context.Context, s *session.Session, d Descriptor, features *feature.Registry) ([]feature.Failure, error) {
	if !s.Supports(d.Name) {
		s.Console.Info(fmt.Sprintf("%s is not available in chart %s, skipping", d.Title, s.Version))
		s.Logger.Info("module skipped", "module", d.Name, "version", s.Version.String())
		return nil, nil
	}

	s.Console.Header(d.Title)
	s.Logger.Debug("module started", "module", d.Name)
	if err := d.Configure(ctx, s); err != nil {
		return nil, fmt.Errorf("%s: %w", d.Name, err)
	}

	var manual func(context.Context, linkage.Mismatch) (bool, error)
	if d.Reconcile != nil {
		manual = func(ctx context.Context, m linkage.Mismatch) (bool, error) {
			return d.Reconcile(ctx, s, m)
		}
	}
	if err := s.Reconcile(ctx, d.Name, manual); err != nil {
		return nil, fmt.Errorf("%s: %w", d.Name, err)
	}

	if features == nil {
		return nil, nil
	}
	failures, err := features.Apply(ctx, s, d.Name)
	if err != nil {
		return failures, fmt.Errorf("%s: %w", d.Name, err)
	}
	return failures, nil
}

// field is a text question that stores its answer at path.
type field struct {
	path string
	def  string
	opts []interfaces.AskOption
}

func text(path, def string, opts ...interfaces.AskOption) field {
	return field{path: path, def: def, opts: opts}
}

// setTexts asks each field in turn and stops at the first error.
func setTexts(ctx context.Context, s *session.Session, fields ...field) error {
	for _, f := range fields {
		if _, err := s.SetText(ctx, f.path, f.def, f.opts...); err != nil {
			return err
		}
	}
	return nil
}

// secretOrAnswer asks for a sensitive value and generates one when the
// answer is left empty.
func secretOrAnswer(ctx context.Context, s *session.Session, path string, byteLength int) error {
	v, err := s.Text(ctx, path, "", interfaces.Sensitive())
	if err != nil {
		return err
	}
	if v == "" {
		return s.SetSecret(ctx, path, byteLength)
	}
	return s.Set(ctx, path, v)
}
