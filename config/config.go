// ABOUTME: Runtime configuration for the ingestion engine
// ABOUTME: Merges defaults, an optional YAML file, and environment variables
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the engine. Defaults match the production
// deployment; the YAML file and environment both override them, environment
// winning.
type Config struct {
	// API
	BaseURL        string        `yaml:"base_url"`
	RequestsPerSec float64       `yaml:"requests_per_sec"`
	PageSize       int           `yaml:"page_size"`
	ResultCap      int           `yaml:"result_cap"`
	MaxRetries     int           `yaml:"max_retries"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`
	RetryMaxDelay  time.Duration `yaml:"retry_max_delay"`

	// Credentials
	TokenTTL   time.Duration `yaml:"token_ttl"`
	SecretName string        `yaml:"secret_name"`

	// Sync behavior
	Incremental   bool          `yaml:"incremental"`
	StartDate     string        `yaml:"start_date"`
	OverlapBuffer time.Duration `yaml:"overlap_buffer"`

	// Storage
	DataDir  string `yaml:"data_dir"`
	StateDir string `yaml:"state_dir"`
	S3Bucket string `yaml:"s3_bucket"`
	S3Prefix string `yaml:"s3_prefix"`

	// Watermarks
	WatermarkTable string `yaml:"watermark_table"` // DynamoDB table; empty = local badger
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		BaseURL:        "https://api.hubapi.com",
		RequestsPerSec: 5,
		PageSize:       200,
		ResultCap:      10000,
		MaxRetries:     5,
		RetryBaseDelay: time.Second,
		RetryMaxDelay:  30 * time.Second,
		TokenTTL:       5 * time.Minute,
		Incremental:    true,
		StartDate:      "2025-01-01",
		OverlapBuffer:  2 * time.Hour,
		DataDir:        filepath.Join(xdg.DataHome, "hublake", "curated"),
		StateDir:       filepath.Join(xdg.StateHome, "hublake"),
		S3Prefix:       "curated",
	}
}

// Load builds the effective config: defaults, then the YAML file at path (if
// any), then environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.BaseURL, "HUBSPOT_BASE_URL")
	setString(&c.SecretName, "HUBSPOT_SECRET_ARN")
	setString(&c.StartDate, "START_DATE")
	setString(&c.DataDir, "DATA_DIR")
	setString(&c.StateDir, "STATE_DIR")
	setString(&c.S3Bucket, "S3_BUCKET")
	setString(&c.S3Prefix, "S3_PREFIX")
	setString(&c.WatermarkTable, "SYNC_STATE_TABLE")

	if v := os.Getenv("HUBSPOT_TOKEN_TTL_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			c.TokenTTL = time.Duration(secs) * time.Second
		}
	}
	if v := os.Getenv("INCREMENTAL_SYNC"); v != "" {
		c.Incremental = isTruthy(v)
	}
	if v := os.Getenv("OVERLAP_BUFFER_HOURS"); v != "" {
		if hrs, err := strconv.Atoi(v); err == nil && hrs >= 0 {
			c.OverlapBuffer = time.Duration(hrs) * time.Hour
		}
	}
}

func (c *Config) validate() error {
	if c.RequestsPerSec <= 0 {
		return fmt.Errorf("requests_per_sec must be positive, got %v", c.RequestsPerSec)
	}
	if c.PageSize <= 0 || c.PageSize > 200 {
		return fmt.Errorf("page_size must be in 1..200, got %d", c.PageSize)
	}
	if c.ResultCap <= 0 {
		return fmt.Errorf("result_cap must be positive, got %d", c.ResultCap)
	}
	if _, err := time.Parse("2006-01-02", c.StartDate); err != nil {
		return fmt.Errorf("start_date must be YYYY-MM-DD: %w", err)
	}
	return nil
}

// StartTime parses StartDate as midnight UTC.
func (c *Config) StartTime() time.Time {
	t, _ := time.Parse("2006-01-02", c.StartDate)
	return t
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func isTruthy(v string) bool {
	switch v {
	case "true", "1", "yes", "enabled", "TRUE", "True":
		return true
	}
	return false
}
