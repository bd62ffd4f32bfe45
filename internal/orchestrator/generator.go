// Package orchestrator runs a generation: it loads the chart's values
// template, walks the operator through the configuration modules and merges
// the answers back into the template.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"valuesgen-cli/internal/feature"
	"valuesgen-cli/internal/interfaces"
	"valuesgen-cli/internal/linkage"
	"valuesgen-cli/internal/merge"
	"valuesgen-cli/internal/modules"
	"valuesgen-cli/internal/session"
	"valuesgen-cli/internal/tree"
	"valuesgen-cli/internal/version"
)

// Generator owns the configuration tree for one run at a time.
type Generator struct {
	store     interfaces.TemplateStore
	versions  *version.Registry
	features  *feature.Registry
	modules   []modules.Descriptor
	prompter  interfaces.Prompter
	secrets   interfaces.SecretProvider
	console   interfaces.Console
	merger    *merge.Merger
	newEngine func() *linkage.Engine
	logger    *slog.Logger
}

// Option configures a Generator
type Option func(*Generator)

// WithModules replaces the built-in configurators
func WithModules(ds []modules.Descriptor) Option {
	return func(g *Generator) { g.modules = ds }
}

// WithEngine supplies the linkage engine used for each run
func WithEngine(newEngine func() *linkage.Engine) Option {
	return func(g *Generator) { g.newEngine = newEngine }
}

// WithLogger sets the diagnostic logger
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) { g.logger = logger }
}

// New creates a Generator. The console receives operator-facing notices.
func New(
	store interfaces.TemplateStore,
	versions *version.Registry,
	features *feature.Registry,
	prompter interfaces.Prompter,
	secrets interfaces.SecretProvider,
	console interfaces.Console,
	opts ...Option,
) *Generator {
	g := &Generator{
		store:     store,
		versions:  versions,
		features:  features,
		modules:   modules.Defaults(),
		prompter:  prompter,
		secrets:   secrets,
		console:   console,
		newEngine: func() *linkage.Engine { return linkage.NewDefaultEngine() },
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.merger = merge.NewMerger(g.logger)
	return g
}

// Result is the outcome of a run. On cancellation it holds the partial
// document built from the answers given so far.
type Result struct {
	Version    version.Version
	Document   *merge.Document
	Report     *merge.Report
	Tree       *tree.Tree
	Partial    bool
	Failures   []feature.Failure
	Notices    []linkage.Notice
	Mismatches []linkage.Mismatch
}

// Generate configures chart version v and returns the merged document.
// When the operator cancels, the returned error wraps ErrUserCancelled and
// the result carries the partial document.
func (g *Generator) Generate(ctx context.Context, v string) (*Result, error) {
	parsed, err := version.Parse(v)
	if err != nil {
		return nil, NewVersionError(v, err)
	}
	line, err := g.versions.Lookup(parsed)
	if err != nil {
		return nil, NewVersionError(v, err)
	}
	logger := g.logger.With("chart_version", parsed.String())
	logger.Info("generation started", "line", line.Key, "modules", line.Modules)

	doc, err := g.store.Load(ctx, parsed.String())
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%w: %v", interfaces.ErrUserCancelled, err)
		}
		return nil, NewTemplateError(parsed.String(), err)
	}
	if err := merge.RequireFidelity(doc); err != nil {
		return nil, NewMergeError(err)
	}
	values, err := doc.Decode()
	if err != nil {
		return nil, NewMergeError(err)
	}

	s := &session.Session{
		Tree:     tree.FromMap(values),
		Version:  parsed,
		Versions: g.versions,
		Engine:   g.newEngine(),
		Prompter: g.prompter,
		Secrets:  g.secrets,
		Console:  g.console,
		Logger:   logger,
	}
	result := &Result{Version: parsed, Tree: s.Tree}

	for _, d := range g.modules {
		failures, err := modules.Run(ctx, s, d, g.features)
		result.Failures = append(result.Failures, failures...)
		if err == nil {
			continue
		}
		result.Notices, result.Mismatches = s.Notices, s.Mismatches
		if errors.Is(err, interfaces.ErrUserCancelled) {
			logger.Info("generation cancelled", "module", d.Name)
			return g.partial(doc, result, err)
		}
		return nil, classify(d.Name, err)
	}
	result.Notices, result.Mismatches = s.Notices, s.Mismatches

	merged, report, err := g.merger.Merge(doc, s.Tree)
	if err != nil {
		return nil, NewMergeError(err)
	}
	result.Document, result.Report = merged, report
	logger.Info("generation finished",
		"replaced", report.Replaced,
		"inserted", report.Inserted,
		"skipped", len(report.Skipped),
		"feature_failures", len(result.Failures),
		"mismatches", len(result.Mismatches))
	return result, nil
}

// partial merges whatever was answered before the cancellation. Every
// committed write is self-consistent, so the partial tree merges like a
// complete one.
func (g *Generator) partial(doc *merge.Document, result *Result, cause error) (*Result, error) {
	result.Partial = true
	merged, report, err := g.merger.Merge(doc, result.Tree)
	if err != nil {
		g.logger.Warn("partial merge failed", "error", err)
		return result, cause
	}
	result.Document, result.Report = merged, report
	return result, cause
}

// ResolveVersion returns requested when given. Otherwise it lists the
// published versions of supported chart lines and lets the operator pick
// one, or takes the newest release when ask is false.
func (g *Generator) ResolveVersion(ctx context.Context, requested string, ask bool) (string, error) {
	if requested != "" {
		return requested, nil
	}
	lister, ok := g.store.(interfaces.VersionLister)
	if !ok {
		return "", NewValidationError("chart_version", "", "no version given and the template source cannot list versions")
	}
	published, err := lister.Versions(ctx)
	if err != nil {
		return "", NewTemplateError("list", err)
	}

	var supported []string
	latest := ""
	for _, raw := range published {
		v, err := version.Parse(raw)
		if err != nil {
			continue
		}
		if _, err := g.versions.Lookup(v); err != nil {
			continue
		}
		supported = append(supported, raw)
		if latest == "" && v.Prerelease() == "" {
			latest = raw
		}
	}
	if len(supported) == 0 {
		return "", NewVersionError("", version.ErrUnsupportedVersion)
	}
	if latest == "" {
		latest = supported[0]
	}
	if !ask {
		g.logger.Info("selected newest release", "chart_version", latest)
		return latest, nil
	}
	return g.prompter.AskChoice(ctx, "@chart.version", supported, latest)
}
