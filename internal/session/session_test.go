package session

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valuesgen-cli/internal/interactive"
	"valuesgen-cli/internal/interfaces"
	"valuesgen-cli/internal/linkage"
	"valuesgen-cli/internal/secret"
	"valuesgen-cli/internal/tree"
	"valuesgen-cli/internal/version"
)

// recordingConsole keeps warnings and successes for assertions.
type recordingConsole struct {
	warnings  []string
	successes []string
}

func (c *recordingConsole) Header(string)    {}
func (c *recordingConsole) Section(string)   {}
func (c *recordingConsole) Info(string)      {}
func (c *recordingConsole) Error(string)     {}
func (c *recordingConsole) Warn(m string)    { c.warnings = append(c.warnings, m) }
func (c *recordingConsole) Success(m string) { c.successes = append(c.successes, m) }

func newTestSession(t *testing.T, v string, values map[string]any, answers map[string]any) (*Session, *recordingConsole) {
	t.Helper()
	console := &recordingConsole{}
	return &Session{
		Tree:     tree.FromMap(values),
		Version:  version.MustParse(v),
		Versions: version.DefaultRegistry(),
		Engine:   linkage.NewDefaultEngine(),
		Prompter: interactive.NewScriptedPrompter(answers, nil),
		Secrets:  secret.NewProviderFrom(bytes.NewReader(bytes.Repeat([]byte{0xAB}, 64))),
		Console:  console,
		Logger:   slog.New(slog.DiscardHandler),
	}, console
}

func TestSet_PropagatesAndRecordsNotices(t *testing.T) {
	s, console := newTestSession(t, "3.5.6", map[string]any{
		"postgresql":       map[string]any{"enabled": true},
		"externalPostgres": map[string]any{"enabled": false},
	}, nil)

	require.NoError(t, s.Set(context.Background(), linkage.PathExternalPostgres, true))

	assert.False(t, s.Tree.Bool(linkage.PathBuiltinPostgres, true))
	require.Len(t, s.Notices, 1)
	assert.Equal(t, "postgres-source", s.Notices[0].Rule)
	require.Len(t, console.warnings, 1)
	assert.Contains(t, console.warnings[0], linkage.PathBuiltinPostgres)
}

func TestCheckpoint_Cancelled(t *testing.T) {
	s, _ := newTestSession(t, "3.5.6", nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Set(ctx, "global.edition", "SELF_HOSTED"), interfaces.ErrUserCancelled)
	_, err := s.Text(ctx, "global.edition", "")
	assert.ErrorIs(t, err, interfaces.ErrUserCancelled)
	assert.False(t, s.Tree.Has("global.edition"), "nothing is written after cancellation")
}

func TestSupportsAndAtLeast(t *testing.T) {
	old, _ := newTestSession(t, "2.9.0", nil, nil)
	cur, _ := newTestSession(t, "3.7.1", nil, nil)

	assert.False(t, old.Supports(version.ModulePlugins))
	assert.True(t, cur.Supports(version.ModulePlugins))
	assert.True(t, cur.AtLeast("3.7.0"))
	assert.False(t, old.AtLeast("3.0.0"))
}

func TestInt_FallsBackOnGarbage(t *testing.T) {
	s, console := newTestSession(t, "3.5.6", nil, map[string]any{
		"externalRedis.port": "not-a-port",
		"mail.smtp.port":     "2525",
	})
	ctx := context.Background()

	port, err := s.SetInt(ctx, "externalRedis.port", 6379)
	require.NoError(t, err)
	assert.Equal(t, 6379, port)
	assert.Len(t, console.warnings, 1)

	port, err = s.SetInt(ctx, "mail.smtp.port", 587)
	require.NoError(t, err)
	assert.Equal(t, 2525, port)
	assert.Equal(t, 2525, s.Tree.Int("mail.smtp.port", 0))
}

func TestSetText_OffersCurrentValue(t *testing.T) {
	s, _ := newTestSession(t, "3.5.6", map[string]any{
		"global": map[string]any{"consoleApiDomain": "console.example.com"},
	}, nil)

	got, err := s.SetText(context.Background(), "global.consoleApiDomain", "")
	require.NoError(t, err)
	assert.Equal(t, "console.example.com", got)
}

func TestSetSecret(t *testing.T) {
	s, console := newTestSession(t, "3.5.6", nil, nil)
	require.NoError(t, s.SetSecret(context.Background(), "global.appSecretKey", 42))

	v := s.Tree.String("global.appSecretKey", "")
	assert.Len(t, v, 56)
	assert.Equal(t, []string{"generated global.appSecretKey"}, console.successes)

	s.Secrets = secret.NewProviderFrom(bytes.NewReader(nil))
	err := s.SetSecret(context.Background(), "global.innerApiKey", 42)
	assert.ErrorIs(t, err, secret.ErrSecretGenerationUnavailable)
	assert.False(t, s.Tree.Has("global.innerApiKey"))
}

func TestReconcile(t *testing.T) {
	tlsHosts := []any{map[string]any{"hosts": []any{"console.example.com"}, "secretName": "example-tls"}}

	tests := []struct {
		name        string
		useTLS      bool
		ingressTLS  []any
		answers     map[string]any
		manual      func(context.Context, linkage.Mismatch) (bool, error)
		wantTLS     bool
		wantPending int
	}{
		{
			name:       "automatic repair accepted",
			ingressTLS: tlsHosts,
			wantTLS:    true,
		},
		{
			name:        "repair declined",
			ingressTLS:  tlsHosts,
			answers:     map[string]any{"linkage.tls-ingress.repair": false},
			wantTLS:     false,
			wantPending: 1,
		},
		{
			name:        "no automatic repair and no manual hook",
			useTLS:      true,
			ingressTLS:  []any{},
			wantTLS:     true,
			wantPending: 1,
		},
		{
			name:       "manual hook resolves",
			useTLS:     true,
			ingressTLS: []any{},
			manual: func(context.Context, linkage.Mismatch) (bool, error) {
				return true, nil
			},
			wantTLS: true,
		},
		{
			name:    "already consistent",
			useTLS:  false,
			wantTLS: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := map[string]any{"global": map[string]any{"useTLS": tt.useTLS}}
			if tt.ingressTLS != nil {
				values["ingress"] = map[string]any{"tls": tt.ingressTLS}
			}
			s, _ := newTestSession(t, "3.5.6", values, tt.answers)

			require.NoError(t, s.Reconcile(context.Background(), version.ModuleNetworking, tt.manual))
			assert.Equal(t, tt.wantTLS, s.Tree.Bool(linkage.PathGlobalTLS, false))
			assert.Len(t, s.Mismatches, tt.wantPending)
		})
	}
}

func TestReconcile_ManualError(t *testing.T) {
	s, _ := newTestSession(t, "3.5.6", map[string]any{
		"global":  map[string]any{"useTLS": true},
		"ingress": map[string]any{"tls": []any{}},
	}, nil)
	boom := errors.New("boom")

	err := s.Reconcile(context.Background(), version.ModuleNetworking,
		func(context.Context, linkage.Mismatch) (bool, error) { return false, boom })
	assert.ErrorIs(t, err, boom)
}
