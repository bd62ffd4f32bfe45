package interfaces

// SecretProvider produces random secret material
type SecretProvider interface {
	// Generate returns byteLength random bytes, base64 encoded
	Generate(byteLength int) (string, error)
}
