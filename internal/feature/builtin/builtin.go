// Package builtin contains the features shipped with the generator.
package builtin

import (
	"context"

	"valuesgen-cli/internal/feature"
	"valuesgen-cli/internal/interfaces"
	"valuesgen-cli/internal/session"
	"valuesgen-cli/internal/version"
)

// Features is the Source of built-in features.
func Features() []feature.Constructor {
	return []feature.Constructor{
		ExternalPrometheus,
		PluginMetrics,
		TriggerWorker,
	}
}

// ExternalPrometheus points the enterprise dashboard at a Prometheus
// server outside the release.
func ExternalPrometheus() feature.Feature {
	return feature.Feature{
		Name:        "External Prometheus",
		Description: "read cluster metrics from an existing Prometheus server",
		Module:      version.ModuleInfrastructure,
		MinVersion:  version.MustParse("3.7.0"),
		Configure: func(ctx context.Context, s *session.Session) error {
			const base = "externalPrometheus."
			on, err := s.SetYesNo(ctx, base+"enabled", s.Tree.Bool(base+"enabled", false))
			if err != nil || !on {
				return err
			}
			if _, err := s.SetText(ctx, base+"endpoint", "http://prometheus:9090", interfaces.Required()); err != nil {
				return err
			}
			if _, err := s.SetText(ctx, base+"timeout", "10s"); err != nil {
				return err
			}
			auth, err := s.YesNo(ctx, base+"auth", false)
			if err != nil {
				return err
			}
			if auth {
				if _, err := s.SetText(ctx, base+"username", ""); err != nil {
					return err
				}
				if _, err := s.SetText(ctx, base+"password", "", interfaces.Sensitive()); err != nil {
					return err
				}
			}
			_, err = s.SetYesNo(ctx, base+"insecure", s.Tree.Bool(base+"insecure", true))
			return err
		},
	}
}

// Plugin metric sources.
const (
	MetricDisabled   = "disabled"
	MetricCAdvisor   = "cadvisor"
	MetricPrometheus = "prometheus"
)

// PluginMetrics selects where the plugin manager reads resource usage.
func PluginMetrics() feature.Feature {
	return feature.Feature{
		Name:        "Plugin Metrics",
		Description: "collect plugin resource usage through cAdvisor or Prometheus",
		Module:      version.ModulePlugins,
		MinVersion:  version.MustParse("3.7.0"),
		Configure: func(ctx context.Context, s *session.Session) error {
			const base = "plugin_manager.metric."
			source, err := s.SetChoice(ctx, base+"source",
				[]string{MetricDisabled, MetricCAdvisor, MetricPrometheus},
				s.Tree.String(base+"source", MetricDisabled))
			if err != nil || source != MetricCAdvisor {
				return err
			}
			for _, q := range []struct{ path, def string }{
				{base + "cadvisor.scrapeInterval", "20s"},
				{base + "cadvisor.scrapeTimeout", "10s"},
				{base + "cadvisor.retainPeriod", "604800s"},
			} {
				if _, err := s.SetText(ctx, q.path, q.def); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// TriggerWorker enables the worker that executes workflow triggers.
func TriggerWorker() feature.Feature {
	return feature.Feature{
		Name:        "Trigger Worker Service",
		Description: "run workflow triggers in a dedicated worker",
		Module:      version.ModuleServices,
		MinVersion:  version.MustParse("3.7.0"),
		Configure: func(ctx context.Context, s *session.Session) error {
			const base = "triggerWorker."
			on, err := s.SetYesNo(ctx, base+"enabled", s.Tree.Bool(base+"enabled", true))
			if err != nil || !on {
				return err
			}
			if _, err := s.SetInt(ctx, base+"replicas", 1); err != nil {
				return err
			}
			if _, err := s.SetInt(ctx, base+"celeryWorkerAmount", 1); err != nil {
				return err
			}
			for _, p := range []string{"maxStringArrayLength", "maxObjectArrayLength", "maxNumberArrayLength"} {
				if _, err := s.SetInt(ctx, base+"code."+p, 500); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
