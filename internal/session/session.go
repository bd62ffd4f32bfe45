// Package session carries the state shared by configuration modules and
// version-gated features during one generation run.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"valuesgen-cli/internal/interfaces"
	"valuesgen-cli/internal/linkage"
	"valuesgen-cli/internal/tree"
	"valuesgen-cli/internal/version"
)

// Session is the working state of a run. Every write goes through the
// linkage engine, and every question is a cancellation checkpoint.
type Session struct {
	Tree     *tree.Tree
	Version  version.Version
	Versions *version.Registry
	Engine   *linkage.Engine
	Prompter interfaces.Prompter
	Secrets  interfaces.SecretProvider
	Console  interfaces.Console
	Logger   *slog.Logger

	Notices    []linkage.Notice
	Mismatches []linkage.Mismatch
}

// Checkpoint returns ErrUserCancelled once ctx is done. Values committed
// before the checkpoint stay in the tree.
func (s *Session) Checkpoint(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrUserCancelled, err)
	}
	return nil
}

// Supports reports whether module is available for the session's version.
func (s *Session) Supports(module string) bool {
	return s.Versions.IsModuleSupported(s.Version, module)
}

// AtLeast reports whether the session's version is v or newer.
func (s *Session) AtLeast(v string) bool {
	return !s.Version.Less(version.MustParse(v))
}

// Set writes value through the linkage engine.
func (s *Session) Set(ctx context.Context, path string, value any) error {
	if err := s.Checkpoint(ctx); err != nil {
		return err
	}
	notices, err := s.Engine.SetAndPropagate(s.Tree, path, value)
	if err != nil {
		return err
	}
	for _, n := range notices {
		s.Console.Warn(fmt.Sprintf("%s was enabled, so %s was turned off", n.Path, strings.Join(n.Cleared, " and ")))
		s.Logger.Info("exclusive option resolved", "rule", n.Rule, "path", n.Path, "cleared", n.Cleared)
	}
	s.Notices = append(s.Notices, notices...)
	return nil
}

// Delete removes path from the output.
func (s *Session) Delete(ctx context.Context, path string) error {
	if err := s.Checkpoint(ctx); err != nil {
		return err
	}
	if s.Tree.Delete(path) {
		s.Logger.Debug("removed value", "path", path)
	}
	return nil
}

func (s *Session) wrap(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", interfaces.ErrUserCancelled, err)
	}
	return err
}

// Text asks a free-text question.
func (s *Session) Text(ctx context.Context, key, def string, opts ...interfaces.AskOption) (string, error) {
	if err := s.Checkpoint(ctx); err != nil {
		return "", err
	}
	v, err := s.Prompter.AskText(ctx, key, def, opts...)
	return strings.TrimSpace(v), s.wrap(err)
}

// YesNo asks a yes/no question.
func (s *Session) YesNo(ctx context.Context, key string, def bool) (bool, error) {
	if err := s.Checkpoint(ctx); err != nil {
		return false, err
	}
	v, err := s.Prompter.AskYesNo(ctx, key, def)
	return v, s.wrap(err)
}

// Choice asks the operator to pick from options.
func (s *Session) Choice(ctx context.Context, key string, options []string, def string) (string, error) {
	if err := s.Checkpoint(ctx); err != nil {
		return "", err
	}
	v, err := s.Prompter.AskChoice(ctx, key, options, def)
	return v, s.wrap(err)
}

// Int asks for a whole number, falling back to def on unparsable input.
func (s *Session) Int(ctx context.Context, key string, def int) (int, error) {
	raw, err := s.Text(ctx, key, strconv.Itoa(def))
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		s.Console.Warn(fmt.Sprintf("%q is not a number, using %d", raw, def))
		return def, nil
	}
	return n, nil
}

// Float asks for a decimal number, falling back to def on unparsable input.
func (s *Session) Float(ctx context.Context, key string, def float64) (float64, error) {
	raw, err := s.Text(ctx, key, strconv.FormatFloat(def, 'f', -1, 64))
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		s.Console.Warn(fmt.Sprintf("%q is not a number, using %v", raw, def))
		return def, nil
	}
	return f, nil
}

// SetText asks a text question keyed by path and stores the answer there.
// The current tree value is offered when def is empty.
func (s *Session) SetText(ctx context.Context, path, def string, opts ...interfaces.AskOption) (string, error) {
	if def == "" {
		def = s.Tree.String(path, "")
	}
	v, err := s.Text(ctx, path, def, opts...)
	if err != nil {
		return "", err
	}
	return v, s.Set(ctx, path, v)
}

// SetYesNo asks a yes/no question keyed by path and stores the answer.
func (s *Session) SetYesNo(ctx context.Context, path string, def bool) (bool, error) {
	v, err := s.YesNo(ctx, path, def)
	if err != nil {
		return false, err
	}
	return v, s.Set(ctx, path, v)
}

// SetChoice asks a choice question keyed by path and stores the answer.
func (s *Session) SetChoice(ctx context.Context, path string, options []string, def string) (string, error) {
	v, err := s.Choice(ctx, path, options, def)
	if err != nil {
		return "", err
	}
	return v, s.Set(ctx, path, v)
}

// SetInt asks for a number keyed by path and stores it.
func (s *Session) SetInt(ctx context.Context, path string, def int) (int, error) {
	v, err := s.Int(ctx, path, s.Tree.Int(path, def))
	if err != nil {
		return 0, err
	}
	return v, s.Set(ctx, path, v)
}

// SetSecret stores freshly generated secret material at path.
func (s *Session) SetSecret(ctx context.Context, path string, byteLength int) error {
	secret, err := s.Secrets.Generate(byteLength)
	if err != nil {
		return fmt.Errorf("generate %s: %w", path, err)
	}
	if err := s.Set(ctx, path, secret); err != nil {
		return err
	}
	s.Console.Success(fmt.Sprintf("generated %s", path))
	return nil
}

// Reconcile runs the consistency rules of module, applying automatic
// repairs the operator accepts. Mismatches left over are recorded.
func (s *Session) Reconcile(ctx context.Context, module string, manual func(context.Context, linkage.Mismatch) (bool, error)) error {
	for _, m := range s.Engine.Check(s.Tree, module) {
		s.Console.Warn(fmt.Sprintf("%s. %s", m, m.Suggestion))
		fix, err := s.YesNo(ctx, "linkage."+m.Rule+".repair", true)
		if err != nil {
			return err
		}
		if !fix {
			s.Mismatches = append(s.Mismatches, m)
			continue
		}

		repaired, notices, err := s.Engine.Repair(s.Tree, m)
		if err != nil {
			return err
		}
		s.Notices = append(s.Notices, notices...)
		if !repaired && manual != nil {
			if repaired, err = manual(ctx, m); err != nil {
				return err
			}
		}
		if !repaired {
			s.Mismatches = append(s.Mismatches, m)
			continue
		}
		s.Console.Success(fmt.Sprintf("aligned %s and %s", m.PathA, m.PathB))
	}
	return nil
}
