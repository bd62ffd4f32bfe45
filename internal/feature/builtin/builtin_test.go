package builtin

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valuesgen-cli/internal/feature"
	"valuesgen-cli/internal/interactive"
	"valuesgen-cli/internal/linkage"
	"valuesgen-cli/internal/secret"
	"valuesgen-cli/internal/session"
	"valuesgen-cli/internal/tree"
	"valuesgen-cli/internal/version"
)

func newSession(v string, answers map[string]any) *session.Session {
	return &session.Session{
		Tree:     tree.New(),
		Version:  version.MustParse(v),
		Versions: version.DefaultRegistry(),
		Engine:   linkage.NewDefaultEngine(),
		Prompter: interactive.NewScriptedPrompter(answers, nil),
		Secrets:  secret.NewProvider(),
		Console:  interactive.NewConsole(io.Discard),
		Logger:   slog.New(slog.DiscardHandler),
	}
}

func TestFeatures_Register(t *testing.T) {
	r := feature.NewRegistry(nil)
	require.NoError(t, r.Discover(Features))
	assert.Equal(t, []string{version.ModuleInfrastructure, version.ModulePlugins, version.ModuleServices}, r.Modules())

	assert.Empty(t, r.FeaturesFor(version.MustParse("3.6.9"), version.ModuleServices))
	assert.Len(t, r.FeaturesFor(version.MustParse("3.7.0"), version.ModuleServices), 1)
}

func TestPluginMetrics_CAdvisor(t *testing.T) {
	s := newSession("3.7.0", map[string]any{"plugin_manager.metric.source": MetricCAdvisor})
	require.NoError(t, PluginMetrics().Configure(context.Background(), s))

	assert.Equal(t, map[string]any{
		"source": MetricCAdvisor,
		"cadvisor": map[string]any{
			"scrapeInterval": "20s",
			"scrapeTimeout":  "10s",
			"retainPeriod":   "604800s",
		},
	}, s.Tree.Map()["plugin_manager"].(map[string]any)["metric"])
}

func TestExternalPrometheus(t *testing.T) {
	t.Run("off by default", func(t *testing.T) {
		s := newSession("3.7.0", nil)
		require.NoError(t, ExternalPrometheus().Configure(context.Background(), s))
		assert.Equal(t, map[string]any{"externalPrometheus": map[string]any{"enabled": false}}, s.Tree.Map())
	})

	t.Run("with auth", func(t *testing.T) {
		s := newSession("3.7.0", map[string]any{
			"externalPrometheus.enabled":  true,
			"externalPrometheus.auth":     true,
			"externalPrometheus.username": "grafana",
			"externalPrometheus.password": "s3cret",
		})
		require.NoError(t, ExternalPrometheus().Configure(context.Background(), s))
		assert.Equal(t, "http://prometheus:9090", s.Tree.String("externalPrometheus.endpoint", ""))
		assert.Equal(t, "grafana", s.Tree.String("externalPrometheus.username", ""))
		assert.True(t, s.Tree.Bool("externalPrometheus.insecure", false))
	})
}

func TestTriggerWorker(t *testing.T) {
	s := newSession("3.7.0", map[string]any{"triggerWorker.replicas": "2"})
	require.NoError(t, TriggerWorker().Configure(context.Background(), s))

	assert.Equal(t, 2, s.Tree.Int("triggerWorker.replicas", 0))
	assert.Equal(t, 500, s.Tree.Int("triggerWorker.code.maxNumberArrayLength", 0))
}
