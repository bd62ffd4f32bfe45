package interfaces

import (
	"context"
	"time"

	"valuesgen-cli/internal/merge"
)

// TemplateStore supplies the chart's default values document for a version
type TemplateStore interface {
	// Load returns the values template for the exact chart version
	Load(ctx context.Context, version string) (*merge.Document, error)
}

// VersionLister is implemented by stores that can enumerate published
// chart versions, newest first
type VersionLister interface {
	Versions(ctx context.Context) ([]string, error)
}

// OutputNameData contains the variables available to the output name pattern
type OutputNameData struct {
	Version string    `json:"version"`
	Chart   string    `json:"chart"`
	Partial bool      `json:"partial"`
	Now     time.Time `json:"now"`
}
