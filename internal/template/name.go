package template

import (
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"valuesgen-cli/internal/interfaces"
)

// DefaultOutputPattern names the generated file after the chart version
const DefaultOutputPattern = `values-prd-{{ .Version }}{{ if .Partial }}-partial{{ end }}.yaml`

// RenderOutputName executes pattern against data. Sprig functions are
// available along with fileSafe, which replaces characters that do not
// belong in a file name.
func RenderOutputName(pattern string, data interfaces.OutputNameData) (string, error) {
	if strings.TrimSpace(pattern) == "" {
		pattern = DefaultOutputPattern
	}
	funcMap := sprig.TxtFuncMap()
	funcMap["fileSafe"] = fileSafe

	tmpl, err := template.New("output").Funcs(funcMap).Option("missingkey=error").Parse(pattern)
	if err != nil {
		return "", fmt.Errorf("failed to parse output pattern: %w", err)
	}
	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute output pattern: %w", err)
	}

	name := strings.TrimSpace(buf.String())
	if name == "" || strings.HasSuffix(name, string(filepath.Separator)) {
		return "", fmt.Errorf("output pattern %q produced an empty file name", pattern)
	}
	return name, nil
}

func fileSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '-'
		}
		return r
	}, s)
}
