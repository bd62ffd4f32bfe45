package secret

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"testing/iotest"
)

func TestProvider_Generate(t *testing.T) {
	p := NewProvider()

	for _, n := range []int{32, 42} {
		s, err := p.Generate(n)
		if err != nil {
			t.Fatalf("Generate(%d) failed: %v", n, err)
		}
		raw, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			t.Fatalf("Generate(%d) returned invalid base64 %q: %v", n, s, err)
		}
		if len(raw) != n {
			t.Errorf("Generate(%d) decoded to %d bytes", n, len(raw))
		}
	}

	a, _ := p.Generate(42)
	b, _ := p.Generate(42)
	if a == b {
		t.Error("two generated secrets should differ")
	}
}

func TestProvider_Deterministic(t *testing.T) {
	p := NewProviderFrom(strings.NewReader(strings.Repeat("a", 42)))
	s, err := p.Generate(3)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if s != "YWFh" {
		t.Errorf("Generate(3) = %q, want YWFh", s)
	}
}

func TestProvider_Unavailable(t *testing.T) {
	p := NewProviderFrom(iotest.ErrReader(errors.New("entropy exhausted")))
	if _, err := p.Generate(32); !errors.Is(err, ErrSecretGenerationUnavailable) {
		t.Errorf("expected ErrSecretGenerationUnavailable, got %v", err)
	}
}

func TestProvider_InvalidLength(t *testing.T) {
	if _, err := NewProvider().Generate(0); err == nil {
		t.Error("expected error for zero length")
	}
}
