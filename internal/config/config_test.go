package config

import (
	"os"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmpfile, err := os.CreateTemp(t.TempDir(), "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}
	return tmpfile.Name()
}

func TestLoadAndValidate(t *testing.T) {
	content := `
source:
  sheet_url: "https://example.com/export?format=csv"
  window: 600
  cache_path: "./data/readings.db"
  cache_window: 1100
  timeout: 10s
  max_retries: 3

series:
  timestamp_column: "Date"
  timestamp_format: "02/01/2006 15:04:05"
  history_window: 700
  drop_trailing_days: 2

search:
  max_order: 1
  seasonal_period: 12
  max_iterations: 200

forecast:
  horizon: 72

publish:
  api_base_url: "https://api.github.com"
  repo_owner: "majito0703"
  repo_name: "measure_data_logger"
  branch: "main"
  local_dir: "./pronosticos"
  read_timeout: 10s
  write_timeout: 30s

logging:
  level: "info"
  format: "json"
`
	path := writeTempConfig(t, content)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if cfg.Source.Window != 600 {
		t.Errorf("Expected window 600, got %d", cfg.Source.Window)
	}
	if cfg.Search.SeasonalPeriod != 12 {
		t.Errorf("Expected seasonal period 12, got %d", cfg.Search.SeasonalPeriod)
	}
	if cfg.Publish.WriteTimeout != 30*time.Second {
		t.Errorf("Expected write timeout 30s, got %v", cfg.Publish.WriteTimeout)
	}

	// Variables were not listed, so the fixed enumeration applies.
	if len(cfg.Variables) != 5 {
		t.Fatalf("Expected 5 default variables, got %d", len(cfg.Variables))
	}
	if cfg.Variables[0].Name != "Temperature" {
		t.Errorf("Expected Temperature first, got %s", cfg.Variables[0].Name)
	}
}

func TestDefaultVariableThresholds(t *testing.T) {
	vars := DefaultVariables()
	byName := make(map[string]Variable, len(vars))
	for _, v := range vars {
		byName[v.Name] = v
	}

	pm25, ok := byName["PM 2.5"]
	if !ok {
		t.Fatal("PM 2.5 missing from default variables")
	}
	if pm25.Threshold == nil || *pm25.Threshold != 37 {
		t.Errorf("Expected PM 2.5 threshold 37, got %v", pm25.Threshold)
	}

	pm10 := byName["PM 10"]
	if pm10.Threshold == nil || *pm10.Threshold != 75 {
		t.Errorf("Expected PM 10 threshold 75, got %v", pm10.Threshold)
	}

	for _, name := range []string{"Temperature", "Humidity", "Radiacion Solar"} {
		if byName[name].Threshold != nil {
			t.Errorf("Expected no threshold for %s, got %v", name, *byName[name].Threshold)
		}
	}
}

func TestLoadVariableOverride(t *testing.T) {
	content := `
variables:
  - name: "Temperature"
    column: "Temperature"
    filename: "pronostico_Temperature.json"
  - name: "PM 2.5"
    column: "PM 2.5(µg/m³)"
    filename: "pronostico_PM_2_5.json"
    threshold: 37
`
	path := writeTempConfig(t, content)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.Variables) != 2 {
		t.Fatalf("Expected 2 variables, got %d", len(cfg.Variables))
	}
	if cfg.Variables[1].Threshold == nil || *cfg.Variables[1].Threshold != 37 {
		t.Errorf("Expected threshold 37, got %v", cfg.Variables[1].Threshold)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestDefaultConfigValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default configuration must validate: %v", err)
	}
	if cfg.Forecast.Horizon != 72 {
		t.Errorf("Expected default horizon 72, got %d", cfg.Forecast.Horizon)
	}
	if cfg.Series.TimestampFormat != "02/01/2006 15:04:05" {
		t.Errorf("Unexpected default timestamp format %q", cfg.Series.TimestampFormat)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty sheet URL", func(c *Config) { c.Source.SheetURL = "" }},
		{"zero window", func(c *Config) { c.Source.Window = 0 }},
		{"tiny timeout", func(c *Config) { c.Source.Timeout = time.Millisecond }},
		{"bad max order", func(c *Config) { c.Search.MaxOrder = 5 }},
		{"bad seasonal period", func(c *Config) { c.Search.SeasonalPeriod = 1 }},
		{"zero horizon", func(c *Config) { c.Forecast.Horizon = 0 }},
		{"no repo", func(c *Config) { c.Publish.RepoOwner = "" }},
		{"no variables", func(c *Config) { c.Variables = nil }},
		{"duplicate variable", func(c *Config) {
			c.Variables = append(c.Variables, c.Variables[0])
		}},
		{"nameless variable", func(c *Config) {
			c.Variables[0].Name = ""
		}},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Expected validation error for %s", tt.name)
			}
		})
	}
}
