package orchestrator

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/atotto/clipboard"
	"github.com/spf13/afero"

	"valuesgen-cli/internal/interfaces"
)

// Output targets
const (
	TargetFile      = "file"
	TargetStdout    = "stdout"
	TargetClipboard = "clipboard"
)

// OutputHandler implements the OutputHandler interface
type OutputHandler struct {
	fs     afero.Fs
	stdout io.Writer
}

// NewOutputHandler creates a new output handler writing files to fs
func NewOutputHandler(fs afero.Fs, stdout io.Writer) *OutputHandler {
	return &OutputHandler{fs: fs, stdout: stdout}
}

// WriteToClipboard copies content to the system clipboard
func (h *OutputHandler) WriteToClipboard(content string) error {
	return clipboard.WriteAll(content)
}

// WriteToStdout writes content to standard output
func (h *OutputHandler) WriteToStdout(content string) error {
	_, err := io.WriteString(h.stdout, content)
	return err
}

// WriteToFile writes content to the specified file path
func (h *OutputHandler) WriteToFile(content string, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := h.fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	return afero.WriteFile(h.fs, path, []byte(content), 0644)
}

// FileExists reports whether path already holds a file
func (h *OutputHandler) FileExists(path string) bool {
	ok, err := afero.Exists(h.fs, path)
	return err == nil && ok
}

// Deliver sends content to target. For file output an existing file is
// only replaced after confirmation; otherwise the operator names another
// path. It returns the path written, or the target name.
func Deliver(ctx context.Context, out interfaces.OutputHandler, p interfaces.Prompter, content []byte, target, path string) (string, error) {
	switch target {
	case TargetStdout:
		if err := out.WriteToStdout(string(content)); err != nil {
			return "", NewOutputError(target, err)
		}
		return target, nil
	case TargetClipboard:
		if err := out.WriteToClipboard(string(content)); err != nil {
			return "", NewOutputError(target, err)
		}
		return target, nil
	case TargetFile, "":
	default:
		return "", NewValidationError("target", target, "unknown output target")
	}

	for out.FileExists(path) {
		overwrite, err := p.AskYesNo(ctx, "@output.overwrite", false, interfaces.WithHelp(path))
		if err != nil {
			return "", err
		}
		if overwrite {
			break
		}
		if path, err = p.AskText(ctx, "@output.path", "", interfaces.Required()); err != nil {
			return "", err
		}
	}
	if err := out.WriteToFile(string(content), path); err != nil {
		return "", NewOutputError("file:"+path, err)
	}
	return path, nil
}
