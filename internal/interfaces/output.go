package interfaces

// OutputHandler manages different output destinations
type OutputHandler interface {
	// WriteToClipboard copies content to the system clipboard
	WriteToClipboard(content string) error

	// WriteToStdout writes content to standard output
	WriteToStdout(content string) error

	// WriteToFile writes content to the specified file path
	WriteToFile(content string, path string) error

	// FileExists reports whether path already holds a file
	FileExists(path string) bool
}
