package app

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/afero"

	"valuesgen-cli/internal/config"
	"valuesgen-cli/internal/interfaces"
	"valuesgen-cli/internal/orchestrator"
	"valuesgen-cli/internal/version"
	"valuesgen-cli/pkg/models"
)

// ListVersions prints the supported chart lines. With remote, the chart
// versions published in the repository (or cached) are listed as well.
func ListVersions(ctx context.Context, req *models.GenerateRequest, remote bool, streams Streams) error {
	e, err := setup(req, streams)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(streams.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LINE\tNAME\tMODULES")
	for _, line := range e.versions.Lines() {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", line.Key, line.Name, strings.Join(line.Modules, ", "))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if !remote {
		return nil
	}

	lister, ok := e.store(req.ForceDownload).(interfaces.VersionLister)
	if !ok {
		return orchestrator.NewValidationError("remote", e.cfg.LocalValues, "a local values file has no version list")
	}
	published, err := lister.Versions(ctx)
	if err != nil {
		return orchestrator.NewTemplateError("list", err)
	}
	fmt.Fprintf(streams.Out, "\nPublished %s chart versions:\n", e.cfg.ChartName)
	for _, raw := range published {
		marker := ""
		if v, err := version.Parse(raw); err == nil {
			if _, err := e.versions.Lookup(v); err != nil {
				marker = " (unsupported)"
			}
		}
		fmt.Fprintf(streams.Out, "  - %s%s\n", raw, marker)
	}
	return nil
}

// ListFeatures prints the optional features active for req.ChartVersion,
// grouped by module in execution order.
func ListFeatures(req *models.GenerateRequest, streams Streams) error {
	if req.ChartVersion == "" {
		return orchestrator.NewValidationError("chart_version", "", "--chart-version is required")
	}
	e, err := setup(req, streams)
	if err != nil {
		return err
	}
	v, err := version.Parse(req.ChartVersion)
	if err != nil {
		return orchestrator.NewVersionError(req.ChartVersion, err)
	}
	modules, err := e.versions.ModulesFor(v)
	if err != nil {
		return orchestrator.NewVersionError(req.ChartVersion, err)
	}

	fmt.Fprintf(streams.Out, "Features for chart %s:\n", v)
	for _, m := range modules {
		features := e.features.FeaturesFor(v, m)
		if len(features) == 0 {
			continue
		}
		fmt.Fprintf(streams.Out, "\n%s\n", m)
		for _, f := range features {
			fmt.Fprintf(streams.Out, "  - %s (since %s): %s\n", f.Name, f.MinVersion, f.Description)
		}
	}
	return nil
}

// InitConfig writes the default settings file
func InitConfig(path string, force bool, streams Streams) error {
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return orchestrator.NewConfigurationError(err.Error(), err)
		}
	}
	if err := config.WriteDefault(afero.NewOsFs(), path, force); err != nil {
		return orchestrator.NewConfigurationError(err.Error(), err)
	}
	fmt.Fprintf(streams.Out, "Wrote default configuration to %s\n", path)
	return nil
}
