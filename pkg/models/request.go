package models

import "fmt"

// GenerateRequest represents one invocation of the generator
type GenerateRequest struct {
	ChartVersion  string
	LocalValues   string
	ForceDownload bool
	RepoURL       string
	ChartName     string
	ConfigPath    string
	Output        string
	Target        string
	AnswerFiles   []string
	NumberSelect  bool
	Debug         bool

	// Interactive mode resolution
	Interactive         bool // Final resolved interactive mode
	ForceInteractive    bool // -i flag
	ForceNonInteractive bool // -y flag
}

// NewGenerateRequest creates a new GenerateRequest with default values
func NewGenerateRequest() *GenerateRequest {
	return &GenerateRequest{
		Interactive: true,
	}
}

// Validate checks flag combinations that cannot be resolved later
func (r *GenerateRequest) Validate() error {
	if r.ForceInteractive && r.ForceNonInteractive {
		return fmt.Errorf("cannot use both --interactive and --yes flags")
	}
	if r.ForceDownload && r.LocalValues != "" {
		return fmt.Errorf("--force-download has no effect with --local")
	}
	return nil
}

// ResolveInteractive applies -i / -y over the configured default
func (r *GenerateRequest) ResolveInteractive(configDefault bool) {
	switch {
	case r.ForceInteractive:
		r.Interactive = true
	case r.ForceNonInteractive:
		r.Interactive = false
	default:
		r.Interactive = configDefault
	}
}
