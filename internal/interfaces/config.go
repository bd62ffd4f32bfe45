package interfaces

import "time"

// Config represents the application configuration
type Config struct {
	RepoURL            string        `toml:"repo_url"`
	ChartName          string        `toml:"chart_name"`
	CacheDir           string        `toml:"cache_dir"`
	LocalValues        string        `toml:"local_values"`
	OutputPattern      string        `toml:"output_pattern"`
	Target             string        `toml:"target"`
	DownloadTimeout    time.Duration `toml:"download_timeout"`
	DownloadRetries    int           `toml:"download_retries"`
	NumberSelect       bool          `toml:"number_select"`
	InteractiveDefault bool          `toml:"interactive_default"`
	LogFormat          string        `toml:"log_format"`
}

// ConfigManager handles configuration loading and resolution
type ConfigManager interface {
	// Load loads configuration from the specified path
	Load(path string) (*Config, error)

	// Resolve applies precedence rules (flags > env > config > defaults)
	Resolve() (*Config, error)

	// Validate validates the configuration values
	Validate(config *Config) error
}
