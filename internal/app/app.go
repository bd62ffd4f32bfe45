package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/afero"

	"valuesgen-cli/internal/config"
	"valuesgen-cli/internal/feature"
	"valuesgen-cli/internal/feature/builtin"
	"valuesgen-cli/internal/interactive"
	"valuesgen-cli/internal/interfaces"
	"valuesgen-cli/internal/logger"
	"valuesgen-cli/internal/orchestrator"
	"valuesgen-cli/internal/secret"
	"valuesgen-cli/internal/template"
	"valuesgen-cli/internal/version"
	"valuesgen-cli/pkg/models"
)

// Streams are the process's output streams. Generated documents sent to
// stdout go to Out; notices and logs go to Err.
type Streams struct {
	Out io.Writer
	Err io.Writer
}

// env is everything a command needs, built from the request and settings
type env struct {
	cfg      *interfaces.Config
	stdout   io.Writer
	logger   *slog.Logger
	console  *interactive.Console
	fs       afero.Fs
	versions *version.Registry
	features *feature.Registry
}

func setup(req *models.GenerateRequest, streams Streams) (*env, error) {
	if err := req.Validate(); err != nil {
		return nil, orchestrator.NewValidationError("flags", "", err.Error())
	}

	manager := config.NewManager()
	if _, err := manager.Load(req.ConfigPath); err != nil {
		return nil, orchestrator.NewConfigurationError(err.Error(), err)
	}
	manager.SetFlag("repo_url", req.RepoURL)
	manager.SetFlag("chart_name", req.ChartName)
	manager.SetFlag("local_values", req.LocalValues)
	manager.SetFlag("target", req.Target)
	manager.SetFlag("number_select", req.NumberSelect)
	cfg, err := manager.Resolve()
	if err != nil {
		return nil, orchestrator.NewConfigurationError(err.Error(), err)
	}
	if err := manager.Validate(cfg); err != nil {
		return nil, orchestrator.NewConfigurationError(err.Error(), err)
	}

	log := logger.New(streams.Err, logger.Options{Format: cfg.LogFormat, Debug: req.Debug})
	features := feature.NewRegistry(log)
	if err := features.Discover(builtin.Features); err != nil {
		return nil, fmt.Errorf("register features: %w", err)
	}

	return &env{
		cfg:      cfg,
		stdout:   streams.Out,
		logger:   log,
		console:  interactive.NewConsole(streams.Err),
		fs:       afero.NewOsFs(),
		versions: version.DefaultRegistry(),
		features: features,
	}, nil
}

// store picks the template source: a local file, or the Helm repository
// behind the download cache.
func (e *env) store(forceDownload bool) interfaces.TemplateStore {
	if e.cfg.LocalValues != "" {
		return template.NewLocalStore(e.fs, e.cfg.LocalValues, e.logger)
	}
	repo := template.NewRepoStore(e.cfg.RepoURL, e.cfg.ChartName, e.cfg.DownloadTimeout, e.cfg.DownloadRetries, e.logger)
	return template.NewCacheStore(e.fs, e.cfg.CacheDir, repo, e.logger, template.WithForceRefresh(forceDownload))
}

// prompter returns the terminal prompter for interactive runs and the
// scripted one otherwise
func (e *env) prompter(req *models.GenerateRequest) (interfaces.Prompter, *interactive.ScriptedPrompter, error) {
	if len(req.AnswerFiles) > 0 && !req.ForceInteractive {
		req.Interactive = false
	}
	if req.Interactive && !interactive.IsTerminal() {
		e.logger.Warn("stdin is not a terminal, answering with defaults")
		req.Interactive = false
	}
	if req.Interactive {
		if len(req.AnswerFiles) > 0 {
			e.console.Warn("answer files are ignored in interactive mode")
		}
		return interactive.NewPrompter(e.cfg.NumberSelect), nil, nil
	}

	answers, err := interactive.LoadAnswers(req.AnswerFiles...)
	if err != nil {
		return nil, nil, orchestrator.NewValidationError("answers", strings.Join(req.AnswerFiles, ","), err.Error())
	}
	scripted := interactive.NewScriptedPrompter(answers, e.logger)
	return scripted, scripted, nil
}

// Run executes a generation for req
func Run(ctx context.Context, req *models.GenerateRequest, streams Streams) error {
	e, err := setup(req, streams)
	if err != nil {
		return err
	}
	req.ResolveInteractive(e.cfg.InteractiveDefault)
	prompter, scripted, err := e.prompter(req)
	if err != nil {
		return err
	}

	g := orchestrator.New(e.store(req.ForceDownload), e.versions, e.features, prompter,
		secret.NewProvider(), e.console, orchestrator.WithLogger(e.logger))

	chartVersion, err := g.ResolveVersion(ctx, req.ChartVersion, req.Interactive)
	if err != nil {
		return err
	}

	result, err := g.Generate(ctx, chartVersion)
	if err != nil && !errors.Is(err, interfaces.ErrUserCancelled) {
		return err
	}
	if err != nil {
		e.console.Warn("generation cancelled")
		if result == nil || result.Document == nil {
			return err
		}
		// The run context may already be done; the save offer must still work.
		save, askErr := prompter.AskYesNo(context.WithoutCancel(ctx), "@output.savePartial", !req.Interactive)
		if askErr != nil || !save {
			return err
		}
	}

	if result.Report != nil {
		for _, skip := range result.Report.Skipped {
			e.console.Warn(fmt.Sprintf("left %s unchanged: %s", skip.Path, skip.Reason))
		}
	}
	for _, m := range result.Mismatches {
		e.console.Warn(fmt.Sprintf("unresolved: %s", m))
	}
	if scripted != nil {
		if unused := scripted.Unused(); len(unused) > 0 {
			e.console.Warn(fmt.Sprintf("answers not used by any question: %s", strings.Join(unused, ", ")))
		}
	}

	written, outErr := e.write(context.WithoutCancel(ctx), req, prompter, result)
	if outErr != nil {
		return outErr
	}
	if result.Partial {
		e.console.Success(fmt.Sprintf("partial configuration saved to %s", written))
		return err
	}
	e.console.Success(fmt.Sprintf("values for chart %s written to %s", result.Version, written))
	if len(result.Failures) > 0 {
		e.console.Warn(fmt.Sprintf("%d optional feature(s) were skipped, see messages above", len(result.Failures)))
	}
	return nil
}

func (e *env) write(ctx context.Context, req *models.GenerateRequest, p interfaces.Prompter, result *orchestrator.Result) (string, error) {
	path := req.Output
	if path == "" {
		var err error
		path, err = template.RenderOutputName(e.cfg.OutputPattern, interfaces.OutputNameData{
			Version: result.Version.String(),
			Chart:   e.cfg.ChartName,
			Partial: result.Partial,
			Now:     time.Now(),
		})
		if err != nil {
			return "", orchestrator.NewConfigurationError(err.Error(), err)
		}
	}
	out := orchestrator.NewOutputHandler(e.fs, e.stdout)
	return orchestrator.Deliver(ctx, out, p, result.Document.Bytes(), e.cfg.Target, path)
}
