package main

import (
	"bytes"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"valuesgen-cli/pkg/models"
)

func TestBuildRequestFromFlags(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected *models.GenerateRequest
		wantErr  bool
	}{
		{
			name:     "defaults",
			expected: &models.GenerateRequest{Interactive: true, AnswerFiles: []string{}},
		},
		{
			name: "noninteractive with version and answers",
			args: []string{"-y", "-c", "3.5.6", "--answers", "a.yaml", "--answers", "b.yaml"},
			expected: &models.GenerateRequest{
				ChartVersion:        "3.5.6",
				AnswerFiles:         []string{"a.yaml", "b.yaml"},
				ForceNonInteractive: true,
				Interactive:         true,
			},
		},
		{
			name: "local file to stdout",
			args: []string{"--local", "values.yaml", "-t", "stdout", "-o", "out.yaml", "-n", "--debug"},
			expected: &models.GenerateRequest{
				LocalValues:  "values.yaml",
				Target:       "stdout",
				Output:       "out.yaml",
				NumberSelect: true,
				Debug:        true,
				Interactive:  true,
				AnswerFiles:  []string{},
			},
		},
		{
			name: "repository overrides",
			args: []string{"--repo-url", "https://charts.example.com", "--chart-name", "dify-ee", "-f"},
			expected: &models.GenerateRequest{
				RepoURL:       "https://charts.example.com",
				ChartName:     "dify-ee",
				ForceDownload: true,
				Interactive:   true,
				AnswerFiles:   []string{},
			},
		},
		{
			name:    "interactive and yes together",
			args:    []string{"-i", "-y"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newRootCmd()
			if err := cmd.ParseFlags(tt.args); err != nil {
				t.Fatalf("ParseFlags() failed: %v", err)
			}

			request, err := buildRequestFromFlags(cmd)
			if (err != nil) != tt.wantErr {
				t.Fatalf("buildRequestFromFlags() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if request.AnswerFiles == nil {
				request.AnswerFiles = []string{}
			}
			if !reflect.DeepEqual(request, tt.expected) {
				t.Errorf("buildRequestFromFlags() = %+v, expected %+v", request, tt.expected)
			}
		})
	}
}

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(out.String(), "valuesgen version dev") {
		t.Errorf("unexpected output: %s", out.String())
	}
}

func TestFeaturesCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"features", "-c", "3.7.0", "--config", filepath.Join(t.TempDir(), "none.toml")})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("features failed: %v", err)
	}
	if !strings.Contains(out.String(), "Trigger Worker Service") {
		t.Errorf("expected Trigger Worker Service in output:\n%s", out.String())
	}
}

func TestConfigInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"config", "init", "--config", path})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init failed: %v", err)
	}

	cmd = newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"config", "init", "--config", path})
	if err := cmd.Execute(); err == nil {
		t.Error("expected config init to refuse an existing file")
	}
}
