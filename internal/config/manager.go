package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"valuesgen-cli/internal/interfaces"
)

// Manager implements the ConfigManager interface
type Manager struct {
	v     *viper.Viper
	flags map[string]interface{} // Store flag values for precedence
}

// NewManager creates a new configuration manager
func NewManager() *Manager {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix("VALUESGEN")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	return &Manager{
		v:     v,
		flags: make(map[string]interface{}),
	}
}

// Defaults returns the built-in configuration
func Defaults() *interfaces.Config {
	return &interfaces.Config{
		RepoURL:            "https://langgenius.github.io/dify-helm",
		ChartName:          "dify",
		CacheDir:           ".cache",
		LocalValues:        "",
		OutputPattern:      `values-prd-{{ .Version }}{{ if .Partial }}-partial{{ end }}.yaml`,
		Target:             "file",
		DownloadTimeout:    10 * time.Second,
		DownloadRetries:    3,
		NumberSelect:       false,
		InteractiveDefault: true,
		LogFormat:          "text",
	}
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("repo_url", d.RepoURL)
	v.SetDefault("chart_name", d.ChartName)
	v.SetDefault("cache_dir", d.CacheDir)
	v.SetDefault("local_values", d.LocalValues)
	v.SetDefault("output_pattern", d.OutputPattern)
	v.SetDefault("target", d.Target)
	v.SetDefault("download_timeout", d.DownloadTimeout)
	v.SetDefault("download_retries", d.DownloadRetries)
	v.SetDefault("number_select", d.NumberSelect)
	v.SetDefault("interactive_default", d.InteractiveDefault)
	v.SetDefault("log_format", d.LogFormat)
}

// DefaultPath returns ~/.config/valuesgen/config.toml
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "valuesgen", "config.toml"), nil
}

// Load loads configuration from the specified path. A missing file leaves
// the defaults in place.
func (m *Manager) Load(path string) (*interfaces.Config, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}
	path = expandPath(path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return m.getConfigFromViper(), nil
	}

	m.v.SetConfigFile(path)
	if err := m.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return m.getConfigFromViper(), nil
}

// SetFlag sets a flag value for precedence resolution. Zero values are
// treated as unset.
func (m *Manager) SetFlag(key string, value interface{}) {
	m.flags[key] = value
}

// Resolve applies precedence rules (flags > env > config > defaults)
func (m *Manager) Resolve() (*interfaces.Config, error) {
	config := m.getConfigFromViper()
	m.applyFlagOverrides(config)
	return config, nil
}

// applyFlagOverrides applies flag values over the configuration
func (m *Manager) applyFlagOverrides(config *interfaces.Config) {
	strs := map[string]*string{
		"repo_url":       &config.RepoURL,
		"chart_name":     &config.ChartName,
		"cache_dir":      &config.CacheDir,
		"local_values":   &config.LocalValues,
		"output_pattern": &config.OutputPattern,
		"target":         &config.Target,
		"log_format":     &config.LogFormat,
	}
	for key, dst := range strs {
		if str, ok := m.flags[key].(string); ok && str != "" {
			*dst = str
		}
	}
	config.CacheDir = expandPath(config.CacheDir)
	config.LocalValues = expandPath(config.LocalValues)

	if val, ok := m.flags["number_select"].(bool); ok && val {
		config.NumberSelect = true
	}
	if val, ok := m.flags["download_timeout"].(time.Duration); ok && val > 0 {
		config.DownloadTimeout = val
	}
	if val, ok := m.flags["download_retries"].(int); ok && val > 0 {
		config.DownloadRetries = val
	}
}

var (
	validTargets    = map[string]bool{"file": true, "stdout": true, "clipboard": true}
	validLogFormats = map[string]bool{"text": true, "json": true}
)

// Validate validates the configuration values
func (m *Manager) Validate(config *interfaces.Config) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if !validTargets[config.Target] {
		return fmt.Errorf("invalid target: %s (must be 'file', 'stdout', or 'clipboard')", config.Target)
	}
	if !validLogFormats[config.LogFormat] {
		return fmt.Errorf("invalid log_format: %s (must be 'text' or 'json')", config.LogFormat)
	}
	if config.LocalValues == "" {
		if config.RepoURL == "" {
			return fmt.Errorf("repo_url is required when no local values file is set")
		}
		if config.ChartName == "" {
			return fmt.Errorf("chart_name is required when no local values file is set")
		}
	}
	if config.DownloadTimeout <= 0 {
		return fmt.Errorf("download_timeout must be positive, got %s", config.DownloadTimeout)
	}
	if config.DownloadRetries < 0 {
		return fmt.Errorf("download_retries cannot be negative, got %d", config.DownloadRetries)
	}
	if strings.TrimSpace(config.OutputPattern) == "" {
		return fmt.Errorf("output_pattern cannot be empty")
	}
	return nil
}

// getConfigFromViper converts viper configuration to Config struct
// This handles env > config > defaults precedence (flags are applied separately)
func (m *Manager) getConfigFromViper() *interfaces.Config {
	return &interfaces.Config{
		RepoURL:            m.v.GetString("repo_url"),
		ChartName:          m.v.GetString("chart_name"),
		CacheDir:           expandPath(m.v.GetString("cache_dir")),
		LocalValues:        expandPath(m.v.GetString("local_values")),
		OutputPattern:      m.v.GetString("output_pattern"),
		Target:             m.v.GetString("target"),
		DownloadTimeout:    m.v.GetDuration("download_timeout"),
		DownloadRetries:    m.v.GetInt("download_retries"),
		NumberSelect:       m.v.GetBool("number_select"),
		InteractiveDefault: m.v.GetBool("interactive_default"),
		LogFormat:          m.v.GetString("log_format"),
	}
}

// fileConfig is the on-disk shape written by WriteDefault. Durations are
// stored as strings, which viper parses back.
type fileConfig struct {
	RepoURL            string `toml:"repo_url"`
	ChartName          string `toml:"chart_name"`
	CacheDir           string `toml:"cache_dir"`
	LocalValues        string `toml:"local_values"`
	OutputPattern      string `toml:"output_pattern"`
	Target             string `toml:"target"`
	DownloadTimeout    string `toml:"download_timeout"`
	DownloadRetries    int    `toml:"download_retries"`
	NumberSelect       bool   `toml:"number_select"`
	InteractiveDefault bool   `toml:"interactive_default"`
	LogFormat          string `toml:"log_format"`
}

// WriteDefault writes the default configuration to path. An existing file
// is kept unless force is set.
func WriteDefault(fs afero.Fs, path string, force bool) error {
	path = expandPath(path)
	if exists, _ := afero.Exists(fs, path); exists && !force {
		return fmt.Errorf("config file %s already exists", path)
	}

	d := Defaults()
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(fileConfig{
		RepoURL:            d.RepoURL,
		ChartName:          d.ChartName,
		CacheDir:           d.CacheDir,
		LocalValues:        d.LocalValues,
		OutputPattern:      d.OutputPattern,
		Target:             d.Target,
		DownloadTimeout:    d.DownloadTimeout.String(),
		DownloadRetries:    d.DownloadRetries,
		NumberSelect:       d.NumberSelect,
		InteractiveDefault: d.InteractiveDefault,
		LogFormat:          d.LogFormat,
	}); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return afero.WriteFile(fs, path, buf.Bytes(), 0644)
}

// expandPath expands ~ to user home directory
func expandPath(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path // Return original path if we can't get home dir
	}

	return filepath.Join(homeDir, path[2:])
}
