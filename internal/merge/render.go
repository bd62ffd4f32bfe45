package merge

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"
)

// renderInline formats a scalar or empty collection for a single line,
// keeping the quote style of the value it replaces where that is possible.
func renderInline(v any, style yaml.Style) (string, error) {
	switch x := v.(type) {
	case nil:
		return "null", nil
	case bool:
		return strconv.FormatBool(x), nil
	case int:
		return strconv.Itoa(x), nil
	case float64:
		return formatFloat(x), nil
	case string:
		return quoteString(x, style), nil
	case map[string]any:
		if len(x) == 0 {
			return "{}", nil
		}
	case []any:
		if len(x) == 0 {
			return "[]", nil
		}
	}
	return "", fmt.Errorf("cannot render %T on a single line", v)
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	case math.IsNaN(f):
		return ".nan"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func quoteString(s string, style yaml.Style) string {
	switch {
	case style&yaml.SingleQuotedStyle != 0 && !strings.ContainsAny(s, "\n\r"):
		return "'" + strings.ReplaceAll(s, "'", "''") + "'"
	case style&yaml.DoubleQuotedStyle != 0:
		return strconv.Quote(s)
	case plainSafe(s):
		return s
	}
	return strconv.Quote(s)
}

// yaml11Bools are read as booleans by YAML 1.1 parsers such as Helm's.
var yaml11Bools = map[string]bool{"y": true, "n": true, "yes": true, "no": true, "on": true, "off": true}

// plainSafe reports whether s reads back as the same string when written
// without quotes, under both YAML 1.2 and YAML 1.1 rules.
func plainSafe(s string) bool {
	if s == "" || strings.TrimSpace(s) != s || yaml11Bools[strings.ToLower(s)] {
		return false
	}
	if strings.ContainsAny(s, "\n\r\t") || strings.Contains(s, ": ") || strings.Contains(s, " #") || strings.HasSuffix(s, ":") {
		return false
	}
	if strings.ContainsRune("-?:,[]{}#&*!|>'\"%@`", rune(s[0])) {
		return false
	}
	var out any
	if err := yaml.Unmarshal([]byte(s), &out); err != nil {
		return false
	}
	str, ok := out.(string)
	return ok && str == s
}

// renderBlock encodes v as block YAML with every line indented by indent
// spaces. The result ends with a newline.
func renderBlock(v any, indent int) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("render block: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("render block: %w", err)
	}

	pad := strings.Repeat(" ", indent)
	var out strings.Builder
	for _, line := range strings.SplitAfter(buf.String(), "\n") {
		if line == "" {
			continue
		}
		if line != "\n" {
			out.WriteString(pad)
		}
		out.WriteString(line)
	}
	return out.String(), nil
}
