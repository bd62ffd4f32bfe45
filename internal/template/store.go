// Package template supplies the chart's values.yaml for a given version,
// from a local file, a download cache or the Helm repository, and renders
// output file names.
package template

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/afero"

	"valuesgen-cli/internal/merge"
)

// ErrTemplateUnavailable is returned when no values template can be produced
// for the requested version.
var ErrTemplateUnavailable = errors.New("values template unavailable")

// LocalStore serves a values file from disk regardless of the version asked for.
type LocalStore struct {
	fs     afero.Fs
	path   string
	logger *slog.Logger
}

// NewLocalStore creates a store reading path from fs
func NewLocalStore(fs afero.Fs, path string, logger *slog.Logger) *LocalStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &LocalStore{fs: fs, path: path, logger: logger}
}

// Load reads and parses the local values file
func (s *LocalStore) Load(ctx context.Context, version string) (*merge.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrTemplateUnavailable, s.path, err)
	}
	s.logger.Debug("loaded local values template", "path", s.path, "version", version)
	return parse(data, s.path)
}

func parse(data []byte, source string) (*merge.Document, error) {
	doc, err := merge.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTemplateUnavailable, source, err)
	}
	return doc, nil
}
