package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"

	"github.com/spf13/cobra"

	"valuesgen-cli/internal/app"
	"valuesgen-cli/internal/interfaces"
	"valuesgen-cli/pkg/models"
)

// Build-time variables injected via ldflags
var (
	version   = "dev"
	commit    = "unknown"
	date      = "unknown"
	goVersion = runtime.Version()
)

func streams(cmd *cobra.Command) app.Streams {
	return app.Streams{Out: cmd.OutOrStdout(), Err: cmd.ErrOrStderr()}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "valuesgen",
		Short: "Generate production values for the Dify Enterprise Helm chart",
		Long: `valuesgen walks you through the settings of a Dify Enterprise deployment and
writes them into the chart's own values.yaml, keeping its comments, quoting and
key order. Related settings are kept consistent while you answer.

The values template is downloaded from the Helm repository and cached, or read
from a local file with --local. Use --yes to accept every default, and --answers
to supply answers from YAML files.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			request, err := buildRequestFromFlags(cmd)
			if err != nil {
				return fmt.Errorf("invalid arguments: %w", err)
			}
			return app.Run(cmd.Context(), request, streams(cmd))
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config file path (default ~/.config/valuesgen/config.toml)")
	rootCmd.PersistentFlags().StringP("chart-version", "c", "", "chart version to configure")
	rootCmd.PersistentFlags().StringP("local", "l", "", "use a local values.yaml instead of downloading")
	rootCmd.PersistentFlags().String("repo-url", "", "Helm repository URL")
	rootCmd.PersistentFlags().String("chart-name", "", "chart name in the repository")
	rootCmd.PersistentFlags().BoolP("force-download", "f", false, "ignore the cache and download the template again")
	rootCmd.PersistentFlags().BoolP("yes", "y", false, "noninteractive mode - use defaults without prompts")
	rootCmd.PersistentFlags().BoolP("interactive", "i", false, "force interactive mode (overrides config default)")
	rootCmd.PersistentFlags().Bool("debug", false, "write debug logs to stderr")

	rootCmd.Flags().StringP("output", "o", "", "output file (default from output_pattern)")
	rootCmd.Flags().StringP("target", "t", "", "output target (file, stdout, clipboard)")
	rootCmd.Flags().StringArray("answers", nil, "YAML file with answers keyed by question; repeatable, later files win")
	rootCmd.Flags().BoolP("numbers", "n", false, "enable number key selection for choices")

	rootCmd.AddCommand(newVersionCmd(), newVersionsCmd(), newFeaturesCmd(), newConfigCmd())
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  "Print detailed version information including build version, commit, date, and platform details.",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "valuesgen version %s\n", version)
			fmt.Fprintf(out, "  commit: %s\n", commit)
			fmt.Fprintf(out, "  built: %s\n", date)
			fmt.Fprintf(out, "  go version: %s\n", goVersion)
			fmt.Fprintf(out, "  platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

func newVersionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "versions",
		Short: "List supported chart lines",
		Long:  "List the chart lines this tool can configure and the modules each one has. With --remote, also list the versions published in the Helm repository.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			request, err := buildRequestFromFlags(cmd)
			if err != nil {
				return err
			}
			remote, _ := cmd.Flags().GetBool("remote")
			return app.ListVersions(cmd.Context(), request, remote, streams(cmd))
		},
	}
	cmd.Flags().Bool("remote", false, "also list versions published in the repository")
	return cmd
}

func newFeaturesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "features",
		Short: "List optional features active for a chart version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			request, err := buildRequestFromFlags(cmd)
			if err != nil {
				return err
			}
			return app.ListFeatures(request, streams(cmd))
		},
	}
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the valuesgen settings file",
	}
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default settings file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("config")
			force, _ := cmd.Flags().GetBool("force")
			return app.InitConfig(path, force, streams(cmd))
		},
	}
	initCmd.Flags().Bool("force", false, "overwrite an existing settings file")
	cmd.AddCommand(initCmd)
	return cmd
}

// buildRequestFromFlags reads every flag the command knows about. Flags
// that a subcommand does not define keep their zero value.
func buildRequestFromFlags(cmd *cobra.Command) (*models.GenerateRequest, error) {
	request := models.NewGenerateRequest()
	flags := cmd.Flags()

	strs := map[string]*string{
		"config":        &request.ConfigPath,
		"chart-version": &request.ChartVersion,
		"local":         &request.LocalValues,
		"repo-url":      &request.RepoURL,
		"chart-name":    &request.ChartName,
		"output":        &request.Output,
		"target":        &request.Target,
	}
	for name, dst := range strs {
		if flags.Lookup(name) == nil {
			continue
		}
		v, err := flags.GetString(name)
		if err != nil {
			return nil, err
		}
		*dst = v
	}

	bools := map[string]*bool{
		"force-download": &request.ForceDownload,
		"yes":            &request.ForceNonInteractive,
		"interactive":    &request.ForceInteractive,
		"numbers":        &request.NumberSelect,
		"debug":          &request.Debug,
	}
	for name, dst := range bools {
		if flags.Lookup(name) == nil {
			continue
		}
		v, err := flags.GetBool(name)
		if err != nil {
			return nil, err
		}
		*dst = v
	}

	if flags.Lookup("answers") != nil {
		answers, err := flags.GetStringArray("answers")
		if err != nil {
			return nil, err
		}
		request.AnswerFiles = answers
	}

	if err := request.Validate(); err != nil {
		return nil, err
	}
	return request, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if errors.Is(err, interfaces.ErrUserCancelled) {
			fmt.Fprintln(os.Stderr, "Cancelled.")
			os.Exit(130)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
