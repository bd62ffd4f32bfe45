package modules

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valuesgen-cli/internal/feature"
	"valuesgen-cli/internal/interactive"
	"valuesgen-cli/internal/interfaces"
	"valuesgen-cli/internal/linkage"
	"valuesgen-cli/internal/secret"
	"valuesgen-cli/internal/session"
	"valuesgen-cli/internal/tree"
	"valuesgen-cli/internal/version"
)

func newSession(v string, values, answers map[string]any) *session.Session {
	return &session.Session{
		Tree:     tree.FromMap(values),
		Version:  version.MustParse(v),
		Versions: version.DefaultRegistry(),
		Engine:   linkage.NewDefaultEngine(),
		Prompter: interactive.NewScriptedPrompter(answers, nil),
		Secrets:  secret.NewProvider(),
		Console:  interactive.NewConsole(io.Discard),
		Logger:   slog.New(slog.DiscardHandler),
	}
}

func TestDefaults_Order(t *testing.T) {
	var got []string
	for _, d := range Defaults() {
		got = append(got, d.Name)
		assert.NotNil(t, d.Configure, d.Name)
	}
	assert.Equal(t, []string{
		version.ModuleGlobal, version.ModuleInfrastructure, version.ModuleNetworking,
		version.ModuleMail, version.ModulePlugins, version.ModuleServices,
	}, got)
}

func TestRun_SkipsUnsupportedModule(t *testing.T) {
	s := newSession("2.9.0", map[string]any{"plugin_connector": map[string]any{"imageRepoType": "docker"}}, nil)
	called := false
	d := Descriptor{Name: version.ModulePlugins, Title: "Plugins", Configure: func(context.Context, *session.Session) error {
		called = true
		return nil
	}}

	failures, err := Run(context.Background(), s, d, nil)
	require.NoError(t, err)
	assert.Empty(t, failures)
	assert.False(t, called)
	assert.Equal(t, map[string]any{"plugin_connector": map[string]any{"imageRepoType": "docker"}}, s.Tree.Map())
}

func TestRun_AppliesFeaturesAfterQuestions(t *testing.T) {
	s := newSession("3.7.0", nil, nil)
	var order []string

	features := feature.NewRegistry(nil)
	require.NoError(t, features.Register(feature.Feature{
		Name: "extra", Module: version.ModuleMail, MinVersion: version.MustParse("3.7.0"),
		Configure: func(context.Context, *session.Session) error {
			order = append(order, "feature")
			return nil
		},
	}))
	require.NoError(t, features.Register(feature.Feature{
		Name: "broken", Module: version.ModuleMail,
		Configure: func(context.Context, *session.Session) error { return errors.New("boom") },
	}))

	d := Descriptor{Name: version.ModuleMail, Title: "Mail", Configure: func(context.Context, *session.Session) error {
		order = append(order, "module")
		return nil
	}}
	failures, err := Run(context.Background(), s, d, features)
	require.NoError(t, err)
	assert.Equal(t, []string{"module", "feature"}, order)
	require.Len(t, failures, 1)
	assert.Equal(t, "broken", failures[0].Feature)
}

func TestRun_WrapsModuleErrors(t *testing.T) {
	s := newSession("3.5.6", nil, nil)
	d := Descriptor{Name: version.ModuleMail, Configure: func(context.Context, *session.Session) error {
		return interfaces.ErrAnswerMissing
	}}
	_, err := Run(context.Background(), s, d, nil)
	assert.ErrorIs(t, err, interfaces.ErrAnswerMissing)
	assert.Contains(t, err.Error(), version.ModuleMail)
}

func TestConfigureMail(t *testing.T) {
	tests := []struct {
		name    string
		answers map[string]any
		want    map[string]any
		wantErr error
	}{
		{
			name: "disabled",
			want: map[string]any{"mail": map[string]any{"type": ""}},
		},
		{
			name: "resend",
			answers: map[string]any{
				"mail.type":          "resend",
				"mail.defaultSender": "no-reply@example.com",
				"mail.resend.apiKey": "re_123",
			},
			want: map[string]any{"mail": map[string]any{
				"type":          "resend",
				"defaultSender": "no-reply@example.com",
				"resend":        map[string]any{"apiKey": "re_123", "apiUrl": "https://api.resend.com"},
			}},
		},
		{
			name: "smtp",
			answers: map[string]any{
				"mail.type":          "smtp",
				"mail.defaultSender": "no-reply@example.com",
				"mail.smtp.server":   "smtp.example.com",
				"mail.smtp.port":     "465",
				"mail.smtp.useTLS":   "no",
			},
			want: map[string]any{"mail": map[string]any{
				"type":          "smtp",
				"defaultSender": "no-reply@example.com",
				"smtp": map[string]any{
					"server": "smtp.example.com", "port": 465,
					"username": "", "password": "", "useTLS": false,
				},
			}},
		},
		{
			name:    "sender required",
			answers: map[string]any{"mail.type": "smtp"},
			wantErr: interfaces.ErrAnswerMissing,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSession("3.5.6", nil, tt.answers)
			err := ConfigureMail(context.Background(), s)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Tree.Map())
		})
	}
}

func TestConfigurePlugins_ECRWithIRSA(t *testing.T) {
	s := newSession("3.5.6", map[string]any{
		"plugin_connector": map[string]any{"imageRepoSecret": "old-secret"},
	}, map[string]any{
		"plugin_connector.imageRepoType":        "ecr",
		"plugin_connector.ecrRegion":            "eu-west-1",
		"@plugins.ecrAccount":                   "123456789012",
		"plugin_connector.customServiceAccount": "plugin-builder",
		"plugin_connector.runnerServiceAccount": "plugin-runner",
		"@plugins.protocol":                     "HTTP",
	})

	require.NoError(t, ConfigurePlugins(context.Background(), s))
	assert.Equal(t, "123456789012.dkr.ecr.eu-west-1.amazonaws.com", s.Tree.String("plugin_connector.imageRepoPrefix", ""))
	assert.False(t, s.Tree.Has("plugin_connector.imageRepoSecret"))
	assert.Contains(t, s.Tree.Deleted(), "plugin_connector.imageRepoSecret")
	assert.True(t, s.Tree.Bool("plugin_connector.insecureImageRepo", false))
}

func TestConfigurePlugins_DockerDefaults(t *testing.T) {
	s := newSession("3.5.6", nil, nil)

	require.NoError(t, ConfigurePlugins(context.Background(), s))
	assert.Equal(t, map[string]any{
		"imageRepoType":     "docker",
		"imageRepoPrefix":   "docker.io/your-image-repo-prefix",
		"imageRepoSecret":   "image-repo-secret",
		"insecureImageRepo": false,
	}, s.Tree.Map()["plugin_connector"])
}

func TestConfigureServices(t *testing.T) {
	t.Run("secrets and online license", func(t *testing.T) {
		s := newSession("3.5.6", nil, nil)
		require.NoError(t, ConfigureServices(context.Background(), s))

		assert.Len(t, s.Tree.String("enterprise.appSecretKey", ""), 56)
		assert.Len(t, s.Tree.String("enterprise.passwordEncryptionKey", ""), 44)
		assert.Equal(t, "https://licenses.dify.ai/server", s.Tree.String("enterprise.licenseServer", ""))
		assert.False(t, s.Tree.Has("api.enabled"), "toggles are only asked on request")
	})

	t.Run("enterprise disabled", func(t *testing.T) {
		s := newSession("3.5.6", map[string]any{
			"enterprise": map[string]any{"enabled": false, "appSecretKey": "dify123456"},
		}, nil)
		require.NoError(t, ConfigureServices(context.Background(), s))

		assert.Equal(t, "dify123456", s.Tree.String("enterprise.appSecretKey", ""))
		assert.False(t, s.Tree.Has("enterprise.passwordEncryptionKey"))
		assert.False(t, s.Tree.Has("enterprise.licenseMode"))
		assert.False(t, s.Tree.Has("enterprise.licenseServer"))
	})

	t.Run("toggles skip plugin services on old charts", func(t *testing.T) {
		s := newSession("2.9.0", nil, map[string]any{
			"enterprise.licenseMode": "offline",
			"@services.toggle":       true,
			"sandbox.enabled":        false,
		})
		require.NoError(t, ConfigureServices(context.Background(), s))

		assert.False(t, s.Tree.Has("enterprise.licenseServer"))
		assert.False(t, s.Tree.Bool("sandbox.enabled", true))
		assert.True(t, s.Tree.Bool("api.enabled", false))
		assert.False(t, s.Tree.Has("plugin_daemon.enabled"))
	})
}

func TestConfigureInfrastructure_ExternalServices(t *testing.T) {
	s := newSession("3.5.6", map[string]any{
		"postgresql":    map[string]any{"enabled": true},
		"redis":         map[string]any{"enabled": true},
		"externalRedis": map[string]any{"cluster": map[string]any{"enabled": true}},
		"persistence":   map[string]any{"s3": map[string]any{"accessKey": "", "secretKey": ""}},
	}, map[string]any{
		"externalPostgres.credentials.dify.password":          "pw",
		"externalPostgres.credentials.plugin_daemon.password": "pw",
		"externalPostgres.credentials.enterprise.password":    "pw",
		"externalPostgres.credentials.audit.password":         "pw",
		"@redis.topology":              "sentinel",
		"externalRedis.sentinel.nodes": "10.0.0.1:26379",
		"persistence.type":             "s3",
		"@storage.provider":            "AWS S3",
		"persistence.s3.bucketName":    "dify",
		"api.serviceAccountName":       "dify-api",
		"worker.serviceAccountName":    "dify-worker",
	})

	require.NoError(t, ConfigureInfrastructure(context.Background(), s))

	assert.False(t, s.Tree.Bool(linkage.PathBuiltinPostgres, true))
	assert.False(t, s.Tree.Bool(linkage.PathBuiltinRedis, true))
	assert.True(t, s.Tree.Bool(linkage.PathRedisSentinel, false))
	assert.False(t, s.Tree.Bool(linkage.PathRedisCluster, true), "sentinel and cluster are exclusive")
	assert.Equal(t, 0.1, mustGet(t, s, "externalRedis.sentinel.socketTimeout"))
	assert.Equal(t, "require", s.Tree.String("externalPostgres.credentials.audit.sslmode", ""))

	assert.True(t, s.Tree.Bool(linkage.PathStorageUseAWS, false))
	assert.False(t, s.Tree.Bool(linkage.PathMinioEnabled, true))
	assert.True(t, s.Tree.Bool("persistence.s3.useAwsManagedIam", false))
	assert.False(t, s.Tree.Has("persistence.s3.accessKey"))
	assert.Equal(t, "dify-api", s.Tree.String("api.serviceAccountName", ""))
}

func TestConfigureInfrastructure_BuiltinServices(t *testing.T) {
	s := newSession("2.9.0", nil, map[string]any{
		linkage.PathExternalPostgres:       false,
		linkage.PathExternalRedis:          false,
		"@vectorDB.builtin":                "weaviate",
		"persistence.type":                 "aliyun-oss",
		"persistence.aliyunOss.endpoint":   "oss-cn-hangzhou.aliyuncs.com",
		"persistence.aliyunOss.bucketName": "dify",
		"persistence.aliyunOss.accessKey":  "ak",
		"persistence.aliyunOss.secretKey":  "sk",
	})

	require.NoError(t, ConfigureInfrastructure(context.Background(), s))

	assert.True(t, s.Tree.Bool(linkage.PathBuiltinPostgres, false))
	assert.NotEmpty(t, s.Tree.String("postgresql.global.postgresql.auth.postgresPassword", ""))
	assert.True(t, s.Tree.Bool(linkage.PathBuiltinRedis, false))
	assert.True(t, s.Tree.Bool(linkage.PathWeaviateEnabled, false))
	assert.Equal(t, "oss-cn-hangzhou.aliyuncs.com", s.Tree.String("persistence.aliyunOss.endpoint", ""))
	assert.True(t, s.Tree.Bool(linkage.PathMinioEnabled, false), "non-S3 storage keeps the bundled MinIO")
	assert.NotEmpty(t, s.Tree.String("minio.rootPassword", ""))
}

func TestConfigureNetworking(t *testing.T) {
	s := newSession("3.5.6", map[string]any{
		"global": map[string]any{
			"consoleApiDomain": "console.example.com",
			"consoleWebDomain": "console.example.com",
			"appApiDomain":     "app.example.com",
		},
	}, map[string]any{
		linkage.PathGlobalTLS:  true,
		"ingress.className":    "other",
		"@ingress.customClass": "haproxy",
		"@ingress.certManager": true,
	})

	require.NoError(t, ConfigureNetworking(context.Background(), s))

	assert.Equal(t, "haproxy", s.Tree.String("ingress.className", ""))
	assert.Equal(t, []any{map[string]any{
		"hosts":      []any{"console.example.com", "app.example.com"},
		"secretName": "console.example.com-tls",
	}}, mustGet(t, s, linkage.PathIngressTLS))
	assert.Equal(t, "letsencrypt-prod", s.Tree.String(certManagerIssuer, ""))
	assert.Empty(t, s.Engine.Check(s.Tree, version.ModuleNetworking))
}

func TestReconcileTLS(t *testing.T) {
	s := newSession("3.5.6", map[string]any{
		"global":  map[string]any{"useTLS": true},
		"ingress": map[string]any{"tls": []any{}},
	}, map[string]any{"@ingress.hosts": "a.example.com, b.example.com, a.example.com"})

	mismatches := s.Engine.Check(s.Tree, version.ModuleNetworking)
	require.Len(t, mismatches, 1)

	ok, err := ReconcileTLS(context.Background(), s, mismatches[0])
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, s.Engine.Check(s.Tree, version.ModuleNetworking))

	tls := mustGet(t, s, linkage.PathIngressTLS).([]any)
	assert.Equal(t, []any{"a.example.com", "b.example.com"}, tls[0].(map[string]any)["hosts"])

	ok, err = ReconcileTLS(context.Background(), s, linkage.Mismatch{PathA: linkage.PathGlobalTLS, ValueA: false, ValueB: []any{"x"}})
	require.NoError(t, err)
	assert.False(t, ok, "only global-on ingress-off is handled")
}

func mustGet(t *testing.T, s *session.Session, path string) any {
	t.Helper()
	v, ok := s.Tree.Get(path)
	require.True(t, ok, path)
	return v
}
