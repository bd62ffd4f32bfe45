package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded() *Tree {
	return FromMap(map[string]any{
		"global": map[string]any{
			"useTLS": false,
			"rag": map[string]any{
				"etlType":      "dify",
				"topKMaxValue": 10,
			},
		},
		"ingress": map[string]any{
			"tls":         []any{},
			"annotations": map[string]any{},
		},
		"placeholder": nil,
	})
}

func TestSplitAndKey(t *testing.T) {
	tests := []struct {
		path  string
		parts []string
	}{
		{"a", []string{"a"}},
		{"a.b.c", []string{"a", "b", "c"}},
		{`ingress.annotations.cert-manager\.io/cluster-issuer`, []string{"ingress", "annotations", "cert-manager.io/cluster-issuer"}},
		{`a\.b`, []string{"a.b"}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.parts, Split(tt.path))
			assert.Equal(t, tt.path, Key(tt.parts...))
		})
	}
}

func TestTree_GetSet(t *testing.T) {
	tr := seeded()

	v, ok := tr.Get("global.rag.etlType")
	require.True(t, ok)
	assert.Equal(t, "dify", v)

	require.NoError(t, tr.Set("global.rag.etlType", "Unstructured"))
	assert.Equal(t, "Unstructured", tr.String("global.rag.etlType", ""))

	require.NoError(t, tr.Set("mail.smtp.port", int64(587)))
	assert.Equal(t, 587, tr.Int("mail.smtp.port", 0))

	_, ok = tr.Get("global.missing")
	assert.False(t, ok)
}

func TestTree_DottedKey(t *testing.T) {
	tr := seeded()
	path := Key("ingress", "annotations", "cert-manager.io/cluster-issuer")

	require.NoError(t, tr.Set(path, "letsencrypt"))

	annotations, ok := tr.Get("ingress.annotations")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"cert-manager.io/cluster-issuer": "letsencrypt"}, annotations)
}

func TestTree_TypeMismatch(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		value any
	}{
		{"bool to string", "global.useTLS", "yes"},
		{"int to string", "global.rag.topKMaxValue", "ten"},
		{"list to bool", "ingress.tls", true},
		{"descend through scalar", "global.useTLS.nested", "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := seeded()
			err := tr.Set(tt.path, tt.value)
			assert.ErrorIs(t, err, ErrTypeMismatch)
		})
	}
}

func TestTree_NullAcceptsAnyKind(t *testing.T) {
	tr := seeded()
	require.NoError(t, tr.Set("placeholder", map[string]any{"enabled": true}))
	assert.True(t, tr.Bool("placeholder.enabled", false))
}

func TestTree_InvalidPath(t *testing.T) {
	tr := New()
	assert.ErrorIs(t, tr.Set("", 1), ErrInvalidPath)
	assert.ErrorIs(t, tr.Set("a..b", 1), ErrInvalidPath)
}

func TestTree_TransientNeverInMap(t *testing.T) {
	tr := seeded()
	require.NoError(t, tr.Set("@storage.provider", "MinIO"))

	assert.Equal(t, "MinIO", tr.String("@storage.provider", ""))
	_, ok := tr.Map()["@storage"]
	assert.False(t, ok)
	assert.NotContains(t, tr.Leaves(), "@storage.provider")
}

func TestTree_Delete(t *testing.T) {
	tr := seeded()
	require.NoError(t, tr.Set("persistence.s3.accessKey", "ak"))

	assert.True(t, tr.Delete("persistence.s3.accessKey"))
	assert.False(t, tr.Has("persistence.s3.accessKey"))
	assert.Equal(t, []string{"persistence.s3.accessKey"}, tr.Deleted())

	assert.False(t, tr.Delete("persistence.s3.nothing"))

	require.NoError(t, tr.Set("persistence.s3.accessKey", "again"))
	assert.Empty(t, tr.Deleted())
}

func TestTree_CloneIsIndependent(t *testing.T) {
	tr := seeded()
	c := tr.Clone()
	require.NoError(t, c.Set("global.rag.etlType", "Unstructured"))

	assert.Equal(t, "dify", tr.String("global.rag.etlType", ""))

	tr.Adopt(c)
	assert.Equal(t, "Unstructured", tr.String("global.rag.etlType", ""))
}

func TestNormalize(t *testing.T) {
	in := map[any]any{
		"hosts": []string{"a", "b"},
		"port":  int32(80),
		"ratio": float32(0.5),
	}
	want := map[string]any{
		"hosts": []any{"a", "b"},
		"port":  80,
		"ratio": 0.5,
	}
	assert.Equal(t, want, Normalize(in))
}
