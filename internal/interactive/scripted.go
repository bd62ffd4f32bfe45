package interactive

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"dario.cat/mergo"
	"go.yaml.in/yaml/v3"

	"valuesgen-cli/internal/interfaces"
	"valuesgen-cli/internal/tree"
)

// ScriptedPrompter answers questions from a prepared answer set, falling
// back to each question's default. It drives --yes and --answers runs.
type ScriptedPrompter struct {
	answers map[string]any
	asked   map[string]bool
	logger  *slog.Logger
}

// NewScriptedPrompter creates a prompter over answers keyed by question key
func NewScriptedPrompter(answers map[string]any, logger *slog.Logger) *ScriptedPrompter {
	if answers == nil {
		answers = map[string]any{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ScriptedPrompter{answers: answers, asked: map[string]bool{}, logger: logger}
}

// Unused returns answer keys that no question consumed, sorted
func (p *ScriptedPrompter) Unused() []string {
	var out []string
	for k := range p.answers {
		if !p.asked[k] {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}

func (p *ScriptedPrompter) lookup(ctx context.Context, key string) (any, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, fmt.Errorf("%w: %v", interfaces.ErrUserCancelled, err)
	}
	p.asked[key] = true
	v, ok := p.answers[key]
	return v, ok, nil
}

// AskText returns the scripted answer or def
func (p *ScriptedPrompter) AskText(ctx context.Context, key, def string, opts ...interfaces.AskOption) (string, error) {
	v, ok, err := p.lookup(ctx, key)
	if err != nil {
		return "", err
	}
	o := interfaces.ResolveAskOptions(opts...)
	answer := def
	if ok && v != nil {
		answer = strings.TrimSpace(fmt.Sprint(v))
	}
	if answer == "" && o.Required {
		return "", fmt.Errorf("%w: %s", interfaces.ErrAnswerMissing, key)
	}
	if o.Sensitive {
		p.logger.Debug("answered", "key", key, "scripted", ok)
	} else {
		p.logger.Debug("answered", "key", key, "scripted", ok, "value", answer)
	}
	return answer, nil
}

// AskYesNo returns the scripted answer or def
func (p *ScriptedPrompter) AskYesNo(ctx context.Context, key string, def bool, opts ...interfaces.AskOption) (bool, error) {
	v, ok, err := p.lookup(ctx, key)
	if err != nil || !ok {
		return def, err
	}
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "y", "yes", "true", "1":
			return true, nil
		case "n", "no", "false", "0":
			return false, nil
		}
	}
	return false, fmt.Errorf("answer %v for %s is not yes or no", v, key)
}

// AskChoice returns the scripted answer, which must be one of options
func (p *ScriptedPrompter) AskChoice(ctx context.Context, key string, options []string, def string, opts ...interfaces.AskOption) (string, error) {
	v, ok, err := p.lookup(ctx, key)
	if err != nil {
		return "", err
	}
	if !ok || v == nil {
		return def, nil
	}
	answer := fmt.Sprint(v)
	if !slices.Contains(options, answer) {
		return "", fmt.Errorf("answer %q for %s is not one of %v", answer, key, options)
	}
	return answer, nil
}

// LoadAnswers reads YAML answer files and merges them, later files taking
// precedence. Nested mappings are flattened into dotted question keys, so
// both `global.useTLS: true` and `global: {useTLS: true}` work.
func LoadAnswers(paths ...string) (map[string]any, error) {
	merged := map[string]any{}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read answers file: %w", err)
		}
		layer := map[string]any{}
		if err := yaml.Unmarshal(data, &layer); err != nil {
			return nil, fmt.Errorf("parse answers file %s: %w", path, err)
		}
		if err := mergo.Merge(&merged, Flatten(layer), mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merge answers file %s: %w", path, err)
		}
	}
	return merged, nil
}

// Flatten turns nested maps into a single map keyed by dotted paths.
// Lists and scalars are leaves.
func Flatten(m map[string]any) map[string]any {
	out := map[string]any{}
	var walk func(prefix string, v any)
	walk = func(prefix string, v any) {
		nested, ok := tree.Normalize(v).(map[string]any)
		if !ok || len(nested) == 0 {
			out[prefix] = tree.Normalize(v)
			return
		}
		for k, child := range nested {
			key := tree.Key(k)
			if prefix != "" {
				key = prefix + "." + key
			}
			walk(key, child)
		}
	}
	for k, v := range m {
		walk(k, v)
	}
	return out
}
