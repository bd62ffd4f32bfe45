package feature

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valuesgen-cli/internal/interactive"
	"valuesgen-cli/internal/interfaces"
	"valuesgen-cli/internal/linkage"
	"valuesgen-cli/internal/secret"
	"valuesgen-cli/internal/session"
	"valuesgen-cli/internal/tree"
	"valuesgen-cli/internal/version"
)

func ptr(v version.Version) *version.Version { return &v }

func noop(context.Context, *session.Session) error { return nil }

func names(fs []Feature) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.Name
	}
	return out
}

func newSession(v string) *session.Session {
	return &session.Session{
		Tree:     tree.New(),
		Version:  version.MustParse(v),
		Versions: version.DefaultRegistry(),
		Engine:   linkage.NewDefaultEngine(),
		Prompter: interactive.NewScriptedPrompter(nil, nil),
		Secrets:  secret.NewProvider(),
		Console:  interactive.NewConsole(io.Discard),
		Logger:   slog.New(slog.DiscardHandler),
	}
}

func TestFeaturesFor_VersionRange(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(Feature{Name: "open", Module: "services", MinVersion: version.MustParse("3.7.0"), Configure: noop}))
	require.NoError(t, r.Register(Feature{Name: "capped", Module: "services", MinVersion: version.MustParse("3.0.0"),
		MaxVersion: ptr(version.MustParse("3.6.99")), Configure: noop}))

	tests := []struct {
		version string
		want    []string
	}{
		{"3.6.9", []string{"capped"}},
		{"3.7.0", []string{"open"}},
		{"3.7.0-rc.1", []string{}},
		{"2.9.0", []string{}},
		{"9.0.0", []string{"open"}},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			assert.Equal(t, tt.want, names(r.FeaturesFor(version.MustParse(tt.version), "services")))
		})
	}
	assert.Empty(t, r.FeaturesFor(version.MustParse("3.7.0"), "mail"))
}

func TestFeaturesFor_Ordering(t *testing.T) {
	r := NewRegistry(nil)
	for _, f := range []Feature{
		{Name: "late", Module: "global", MinVersion: version.MustParse("3.8.0")},
		{Name: "first", Module: "global", MinVersion: version.MustParse("3.1.0")},
		{Name: "second", Module: "global", MinVersion: version.MustParse("3.1.0")},
		{Name: "unbounded", Module: "global"},
	} {
		f.Configure = noop
		require.NoError(t, r.Register(f))
	}

	got := names(r.FeaturesFor(version.MustParse("3.8.1"), "global"))
	assert.Equal(t, []string{"unbounded", "first", "second", "late"}, got)
}

func TestRegister_Duplicates(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(Feature{Name: "x", Module: "global", Configure: noop}))

	err := r.Register(Feature{Name: "x", Module: "global", Configure: noop})
	assert.ErrorIs(t, err, ErrDuplicateFeatureName)

	assert.NoError(t, r.Register(Feature{Name: "x", Module: "mail", Configure: noop}), "same name in another module is allowed")
	assert.Error(t, r.Register(Feature{Name: "y", Module: "global"}), "action is required")
	assert.Equal(t, []string{"global", "mail"}, r.Modules())
}

func TestDiscover_RunsOnce(t *testing.T) {
	calls := 0
	src := func() []Constructor {
		calls++
		return []Constructor{
			func() Feature { return Feature{Name: "a", Module: "global", Configure: noop} },
		}
	}

	r := NewRegistry(nil)
	require.NoError(t, r.Discover(src))
	require.NoError(t, r.Discover(src))
	assert.Equal(t, 1, calls)
	assert.Len(t, r.FeaturesFor(version.MustParse("3.0.0"), "global"), 1)
}

func TestDiscover_ReportsDuplicates(t *testing.T) {
	build := func() Feature { return Feature{Name: "a", Module: "global", Configure: noop} }
	r := NewRegistry(nil)
	err := r.Discover(func() []Constructor { return []Constructor{build, build} })
	assert.ErrorIs(t, err, ErrDuplicateFeatureName)
	assert.Len(t, r.FeaturesFor(version.MustParse("3.0.0"), "global"), 1)
}

func TestApply_ContinuesPastFailures(t *testing.T) {
	var ran []string
	record := func(name string, err error) Action {
		return func(context.Context, *session.Session) error {
			ran = append(ran, name)
			return err
		}
	}

	r := NewRegistry(nil)
	require.NoError(t, r.Register(Feature{Name: "ok-1", Module: "global", Configure: record("ok-1", nil)}))
	require.NoError(t, r.Register(Feature{Name: "broken", Module: "global", Configure: record("broken", errors.New("boom"))}))
	require.NoError(t, r.Register(Feature{Name: "panics", Module: "global", Configure: func(context.Context, *session.Session) error {
		ran = append(ran, "panics")
		panic("bad feature")
	}}))
	require.NoError(t, r.Register(Feature{Name: "ok-2", Module: "global", Configure: record("ok-2", nil)}))

	failures, err := r.Apply(context.Background(), newSession("3.5.6"), "global")
	require.NoError(t, err)
	assert.Equal(t, []string{"ok-1", "broken", "panics", "ok-2"}, ran)
	require.Len(t, failures, 2)
	assert.Equal(t, "broken", failures[0].Feature)
	assert.Equal(t, "panics", failures[1].Feature)
	assert.Contains(t, failures[1].Error(), "bad feature")
}

func TestApply_CancellationStops(t *testing.T) {
	var ran []string
	r := NewRegistry(nil)
	require.NoError(t, r.Register(Feature{Name: "asks", Module: "global", Configure: func(context.Context, *session.Session) error {
		ran = append(ran, "asks")
		return interfaces.ErrUserCancelled
	}}))
	require.NoError(t, r.Register(Feature{Name: "after", Module: "global", Configure: func(context.Context, *session.Session) error {
		ran = append(ran, "after")
		return nil
	}}))

	_, err := r.Apply(context.Background(), newSession("3.5.6"), "global")
	assert.ErrorIs(t, err, interfaces.ErrUserCancelled)
	assert.Equal(t, []string{"asks"}, ran)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ran = nil
	_, err = r.Apply(ctx, newSession("3.5.6"), "global")
	assert.ErrorIs(t, err, interfaces.ErrUserCancelled)
	assert.Empty(t, ran)
}
