package interfaces

import (
	"context"
	"errors"
)

var (
	// ErrUserCancelled is returned when the operator aborts a question
	ErrUserCancelled = errors.New("cancelled by user")

	// ErrAnswerMissing is returned by non-interactive prompters when a
	// required question has neither an answer nor a default
	ErrAnswerMissing = errors.New("no answer for required question")
)

// AskOptions tunes a single question
type AskOptions struct {
	Required  bool
	Sensitive bool
	Help      string
}

// AskOption modifies AskOptions
type AskOption func(*AskOptions)

// Required rejects empty answers
func Required() AskOption {
	return func(o *AskOptions) { o.Required = true }
}

// Sensitive hides the answer while typing and from logs
func Sensitive() AskOption {
	return func(o *AskOptions) { o.Sensitive = true }
}

// WithHelp attaches help text shown on request
func WithHelp(help string) AskOption {
	return func(o *AskOptions) { o.Help = help }
}

// ResolveAskOptions folds opts into an AskOptions value
func ResolveAskOptions(opts ...AskOption) AskOptions {
	var o AskOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Prompter asks the operator questions. Keys identify questions; for
// questions that set a single value the key is that value's path.
type Prompter interface {
	// AskText asks for free text, returning def when the answer is empty
	AskText(ctx context.Context, key, def string, opts ...AskOption) (string, error)

	// AskYesNo asks a yes/no question
	AskYesNo(ctx context.Context, key string, def bool, opts ...AskOption) (bool, error)

	// AskChoice asks the operator to pick one of options
	AskChoice(ctx context.Context, key string, options []string, def string, opts ...AskOption) (string, error)
}
