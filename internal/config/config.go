// Package config loads and validates the pipeline configuration.
// Configuration is an immutable value handed to each stage; nothing in the
// pipeline mutates it after Load, which keeps runs reproducible and lets tests
// drive the stages with a different variable set.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Source    SourceConfig   `mapstructure:"source"`
	Series    SeriesConfig   `mapstructure:"series"`
	Search    SearchConfig   `mapstructure:"search"`
	Forecast  ForecastConfig `mapstructure:"forecast"`
	Publish   PublishConfig  `mapstructure:"publish"`
	Variables []Variable     `mapstructure:"variables"`
	Logging   LoggingConfig  `mapstructure:"logging"`
}

// SourceConfig holds raw data acquisition configuration
type SourceConfig struct {
	SheetURL    string        `mapstructure:"sheet_url"`
	Window      int           `mapstructure:"window"`
	CachePath   string        `mapstructure:"cache_path"`
	CacheWindow int           `mapstructure:"cache_window"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`
}

// SeriesConfig holds cleaning and resampling configuration
type SeriesConfig struct {
	TimestampColumn  string `mapstructure:"timestamp_column"`
	TimestampFormat  string `mapstructure:"timestamp_format"`
	HistoryWindow    int    `mapstructure:"history_window"`
	DropTrailingDays int    `mapstructure:"drop_trailing_days"`
}

// SearchConfig holds SARIMA order search configuration
type SearchConfig struct {
	MaxOrder       int `mapstructure:"max_order"`
	SeasonalPeriod int `mapstructure:"seasonal_period"`
	MaxIterations  int `mapstructure:"max_iterations"`
}

// ForecastConfig holds forecast generation configuration
type ForecastConfig struct {
	Horizon int `mapstructure:"horizon"`
}

// PublishConfig holds document publishing configuration
type PublishConfig struct {
	APIBaseURL   string        `mapstructure:"api_base_url"`
	RepoOwner    string        `mapstructure:"repo_owner"`
	RepoName     string        `mapstructure:"repo_name"`
	Branch       string        `mapstructure:"branch"`
	RemoteDir    string        `mapstructure:"remote_dir"`
	LocalDir     string        `mapstructure:"local_dir"`
	IndexFile    string        `mapstructure:"index_file"`
	TokenEnvVar  string        `mapstructure:"token_env_var"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Variable describes one tracked sensor variable
type Variable struct {
	Name      string   `mapstructure:"name"`      // Canonical display name, e.g. "PM 2.5"
	Column    string   `mapstructure:"column"`    // Raw source column header
	Filename  string   `mapstructure:"filename"`  // Forecast document filename
	Threshold *float64 `mapstructure:"threshold"` // Optional safety threshold, nil if none
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()

	// Set config file
	v.SetConfigFile(path)

	// Set defaults
	setDefaults(v)

	// Enable environment variable override
	v.SetEnvPrefix("FORECASTER")
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// The tracked variable set is fixed; the config file only lists variables
	// when overriding it (tests, reduced deployments).
	if len(cfg.Variables) == 0 {
		cfg.Variables = DefaultVariables()
	}

	return &cfg, nil
}

// Default returns a configuration with all default values, without requiring
// a config file on disk.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Defaults are static; unmarshal cannot fail on them.
		panic(fmt.Sprintf("invalid built-in defaults: %v", err))
	}
	cfg.Variables = DefaultVariables()
	return &cfg
}

// DefaultVariables returns the fixed enumeration of tracked sensor variables
// with their source column headers, output filenames, and safety thresholds.
func DefaultVariables() []Variable {
	pm25Limit := 37.0
	pm10Limit := 75.0
	return []Variable{
		{Name: "Temperature", Column: "Temperature", Filename: "pronostico_Temperature.json"},
		{Name: "Humidity", Column: "Humidity", Filename: "pronostico_Humidity.json"},
		{Name: "PM 2.5", Column: "PM 2.5(µg/m³)", Filename: "pronostico_PM_2_5.json", Threshold: &pm25Limit},
		{Name: "PM 10", Column: "PM 10 (µg/m³)", Filename: "pronostico_PM_10.json", Threshold: &pm10Limit},
		{Name: "Radiacion Solar", Column: "Radiacion Solar (W/m)", Filename: "pronostico_radiacion.json"},
	}
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Source defaults
	v.SetDefault("source.sheet_url", "https://docs.google.com/spreadsheets/d/1x1FeUolFWlR07tgrc6F4cgeUhJYV7uQ5yuRTBHO8jWI/export?format=csv&gid=0")
	v.SetDefault("source.window", 600)
	v.SetDefault("source.cache_path", "./data/readings.db")
	v.SetDefault("source.cache_window", 1100)
	v.SetDefault("source.timeout", "10s")
	v.SetDefault("source.max_retries", 3)

	// Series defaults
	v.SetDefault("series.timestamp_column", "Date")
	v.SetDefault("series.timestamp_format", "02/01/2006 15:04:05")
	v.SetDefault("series.history_window", 700)
	v.SetDefault("series.drop_trailing_days", 2)

	// Search defaults
	v.SetDefault("search.max_order", 1)
	v.SetDefault("search.seasonal_period", 12)
	v.SetDefault("search.max_iterations", 200)

	// Forecast defaults
	v.SetDefault("forecast.horizon", 72)

	// Publish defaults
	v.SetDefault("publish.api_base_url", "https://api.github.com")
	v.SetDefault("publish.repo_owner", "majito0703")
	v.SetDefault("publish.repo_name", "measure_data_logger")
	v.SetDefault("publish.branch", "main")
	v.SetDefault("publish.remote_dir", "pronosticos")
	v.SetDefault("publish.local_dir", "./pronosticos")
	v.SetDefault("publish.index_file", "index.json")
	v.SetDefault("publish.token_env_var", "GH_TOKEN")
	v.SetDefault("publish.read_timeout", "10s")
	v.SetDefault("publish.write_timeout", "30s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate Source config
	if c.Source.SheetURL == "" {
		return fmt.Errorf("source.sheet_url is required")
	}
	if c.Source.Window < 1 {
		return fmt.Errorf("source.window must be at least 1")
	}
	if c.Source.CacheWindow < 1 {
		return fmt.Errorf("source.cache_window must be at least 1")
	}
	if c.Source.Timeout < 1*time.Second {
		return fmt.Errorf("source.timeout must be at least 1 second")
	}
	if c.Source.MaxRetries < 1 {
		return fmt.Errorf("source.max_retries must be at least 1")
	}

	// Validate Series config
	if c.Series.TimestampColumn == "" {
		return fmt.Errorf("series.timestamp_column is required")
	}
	if c.Series.TimestampFormat == "" {
		return fmt.Errorf("series.timestamp_format is required")
	}
	if c.Series.HistoryWindow < 1 {
		return fmt.Errorf("series.history_window must be at least 1")
	}
	if c.Series.DropTrailingDays < 0 {
		return fmt.Errorf("series.drop_trailing_days must not be negative")
	}

	// Validate Search config
	if c.Search.MaxOrder < 0 || c.Search.MaxOrder > 2 {
		return fmt.Errorf("search.max_order must be 0, 1, or 2")
	}
	if c.Search.SeasonalPeriod < 2 {
		return fmt.Errorf("search.seasonal_period must be at least 2")
	}
	if c.Search.MaxIterations < 1 {
		return fmt.Errorf("search.max_iterations must be at least 1")
	}

	// Validate Forecast config
	if c.Forecast.Horizon < 1 {
		return fmt.Errorf("forecast.horizon must be at least 1")
	}

	// Validate Publish config
	if c.Publish.APIBaseURL == "" {
		return fmt.Errorf("publish.api_base_url is required")
	}
	if c.Publish.RepoOwner == "" || c.Publish.RepoName == "" {
		return fmt.Errorf("publish.repo_owner and publish.repo_name are required")
	}
	if c.Publish.Branch == "" {
		return fmt.Errorf("publish.branch is required")
	}
	if c.Publish.LocalDir == "" {
		return fmt.Errorf("publish.local_dir is required")
	}
	if c.Publish.ReadTimeout < 1*time.Second {
		return fmt.Errorf("publish.read_timeout must be at least 1 second")
	}
	if c.Publish.WriteTimeout < 1*time.Second {
		return fmt.Errorf("publish.write_timeout must be at least 1 second")
	}

	// Validate Variables
	if len(c.Variables) == 0 {
		return fmt.Errorf("variables must contain at least one tracked variable")
	}
	seen := make(map[string]bool, len(c.Variables))
	for _, vr := range c.Variables {
		if vr.Name == "" {
			return fmt.Errorf("variable name must not be empty")
		}
		if vr.Column == "" {
			return fmt.Errorf("variable %q has no source column", vr.Name)
		}
		if vr.Filename == "" {
			return fmt.Errorf("variable %q has no output filename", vr.Name)
		}
		if seen[vr.Name] {
			return fmt.Errorf("variable %q is listed twice", vr.Name)
		}
		seen[vr.Name] = true
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}

// VariableNames returns the tracked variable names in configuration order.
func (c *Config) VariableNames() []string {
	names := make([]string, len(c.Variables))
	for i, vr := range c.Variables {
		names[i] = vr.Name
	}
	return names
}
