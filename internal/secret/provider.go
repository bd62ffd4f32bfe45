// Package secret generates random key material for chart secrets.
package secret

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

var ErrSecretGenerationUnavailable = errors.New("secure random source unavailable")

// Provider draws secret bytes from a cryptographic random source.
type Provider struct {
	random io.Reader
}

// NewProvider returns a Provider backed by crypto/rand.
func NewProvider() *Provider {
	return &Provider{random: rand.Reader}
}

// NewProviderFrom returns a Provider reading from r.
func NewProviderFrom(r io.Reader) *Provider {
	return &Provider{random: r}
}

// Generate returns byteLength random bytes in standard base64.
func (p *Provider) Generate(byteLength int) (string, error) {
	if byteLength <= 0 {
		return "", fmt.Errorf("secret length must be positive, got %d", byteLength)
	}
	buf := make([]byte, byteLength)
	if _, err := io.ReadFull(p.random, buf); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSecretGenerationUnavailable, err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}
