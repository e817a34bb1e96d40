package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config struct to hold the configuration settings
type Config struct {
	Postgres      PostgresConfig      `yaml:"postgres"`
	NATS          NATSConfig          `yaml:"nats"`
	HTTP          HTTPConfig          `yaml:"http"`
	Fetch         FetchConfig         `yaml:"fetch"`
	Scoring       ScoringConfig       `yaml:"scoring"`
	Matching      MatchingConfig      `yaml:"matching"`
	Commit        CommitConfig        `yaml:"commit"`
	Queue         QueueConfig         `yaml:"queue"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// NATSConfig holds NATS configuration. An empty URL selects the in-process
// event bus.
type NATSConfig struct {
	URL string `yaml:"url"`
}

// HTTPConfig holds the inbound HTTP API settings.
type HTTPConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	RatePerSecond  float64  `yaml:"rate_per_second"`
	RateBurst      int      `yaml:"rate_burst"`
}

// FetchConfig controls how results pages are downloaded.
type FetchConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	UserAgent     string        `yaml:"user_agent"`
	ProxyURL      string        `yaml:"proxy_url"`
	MaxBytes      int64         `yaml:"max_bytes"`
	MaxRedirects  int           `yaml:"max_redirects"`
	RatePerSecond float64       `yaml:"rate_per_second"`
	RateBurst     int           `yaml:"rate_burst"`
}

// ScoringConfig holds the extraction thresholds. They depend on the sport
// and federation, so none of them are inlined in the parser.
type ScoringConfig struct {
	MinScore            int     `yaml:"min_score"`
	MaxScore            int     `yaml:"max_score"`
	LeadingNoiseCeiling int     `yaml:"leading_noise_ceiling"`
	LeadingNoiseAnchor  int     `yaml:"leading_noise_anchor"`
	TeamTotalFloor      int     `yaml:"team_total_floor"`
	TeamTotalMargin     float64 `yaml:"team_total_margin"`
	MinDataCells        int     `yaml:"min_data_cells"`
	HeaderScanRows      int     `yaml:"header_scan_rows"`
	MaxDivisionLength   int     `yaml:"max_division_length"`
}

// MatchingConfig holds the name matching distance tiers (0 = identical).
type MatchingConfig struct {
	AutoAcceptDistance float64 `yaml:"auto_accept_distance"`
	ReviewDistance     float64 `yaml:"review_distance"`
}

// CommitConfig bounds the commit transaction.
type CommitConfig struct {
	Timeout     time.Duration `yaml:"timeout"`
	LockTimeout time.Duration `yaml:"lock_timeout"`
}

// QueueConfig holds River settings for asynchronous commits.
type QueueConfig struct {
	Enabled     bool `yaml:"enabled"`
	MaxWorkers  int  `yaml:"max_workers"`
	MaxAttempts int  `yaml:"max_attempts"`
}

// ObservabilityConfig holds configuration for observability components
type ObservabilityConfig struct {
	MetricsAddress string `yaml:"metrics_address"`
	Environment    string `yaml:"environment"`
	LogLevel       string `yaml:"log_level"`
}

// LoadConfig loads the configuration from a YAML file.
func LoadConfig(filename string) (*Config, error) {
	// Try reading configuration from the file first
	data, err := os.ReadFile(filename)
	if err != nil {
		// If the file is not found, try loading from environment variables
		return loadConfigFromEnv()
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(&cfg)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadConfigFromEnv loads the configuration from environment variables.
func loadConfigFromEnv() (*Config, error) {
	var cfg Config

	cfg.Postgres.DSN = os.Getenv("DATABASE_URL")
	if cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	applyEnvOverrides(&cfg)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("METRICS_ADDRESS"); v != "" {
		cfg.Observability.MetricsAddress = v
	}
	if v := os.Getenv("ENV"); v != "" {
		cfg.Observability.Environment = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
	if v := os.Getenv("FETCH_PROXY_URL"); v != "" {
		cfg.Fetch.ProxyURL = v
	}
	if v := os.Getenv("FETCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Fetch.Timeout = d
		}
	}
	if v := os.Getenv("MATCH_AUTO_ACCEPT_DISTANCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Matching.AutoAcceptDistance = f
		}
	}
	if v := os.Getenv("MATCH_REVIEW_DISTANCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Matching.ReviewDistance = f
		}
	}
	if v := os.Getenv("COMMIT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Commit.Timeout = d
		}
	}
	if v := os.Getenv("QUEUE_ENABLED"); v != "" {
		cfg.Queue.Enabled = v == "true"
	}
}

// Default returns a configuration with every default filled in and no
// connection settings.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.RatePerSecond == 0 {
		c.HTTP.RatePerSecond = 2
	}
	if c.HTTP.RateBurst == 0 {
		c.HTTP.RateBurst = 5
	}

	if c.Fetch.Timeout == 0 {
		c.Fetch.Timeout = 30 * time.Second
	}
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = "Mozilla/5.0 (compatible; PinfallImport/1.0)"
	}
	if c.Fetch.MaxBytes == 0 {
		c.Fetch.MaxBytes = 10 << 20
	}
	if c.Fetch.MaxRedirects == 0 {
		c.Fetch.MaxRedirects = 5
	}
	if c.Fetch.RatePerSecond == 0 {
		c.Fetch.RatePerSecond = 1
	}
	if c.Fetch.RateBurst == 0 {
		c.Fetch.RateBurst = 2
	}

	if c.Scoring.MinScore == 0 {
		c.Scoring.MinScore = 50
	}
	if c.Scoring.MaxScore == 0 {
		c.Scoring.MaxScore = 300
	}
	if c.Scoring.LeadingNoiseCeiling == 0 {
		c.Scoring.LeadingNoiseCeiling = 90
	}
	if c.Scoring.LeadingNoiseAnchor == 0 {
		c.Scoring.LeadingNoiseAnchor = 100
	}
	if c.Scoring.TeamTotalFloor == 0 {
		c.Scoring.TeamTotalFloor = 200
	}
	if c.Scoring.TeamTotalMargin == 0 {
		c.Scoring.TeamTotalMargin = 0.3
	}
	if c.Scoring.MinDataCells == 0 {
		c.Scoring.MinDataCells = 3
	}
	if c.Scoring.HeaderScanRows == 0 {
		c.Scoring.HeaderScanRows = 15
	}
	if c.Scoring.MaxDivisionLength == 0 {
		c.Scoring.MaxDivisionLength = 50
	}

	if c.Matching.AutoAcceptDistance == 0 {
		c.Matching.AutoAcceptDistance = 0.2
	}
	if c.Matching.ReviewDistance == 0 {
		c.Matching.ReviewDistance = 0.35
	}

	if c.Commit.Timeout == 0 {
		c.Commit.Timeout = 30 * time.Second
	}
	if c.Commit.LockTimeout == 0 {
		c.Commit.LockTimeout = 10 * time.Second
	}

	if c.Queue.MaxWorkers == 0 {
		c.Queue.MaxWorkers = 4
	}
	if c.Queue.MaxAttempts == 0 {
		c.Queue.MaxAttempts = 5
	}

	if c.Observability.LogLevel == "" {
		c.Observability.LogLevel = "info"
	}
}

// Validate checks that thresholds are internally consistent.
func (c *Config) Validate() error {
	var errs []error
	if c.Scoring.MinScore <= 0 || c.Scoring.MaxScore <= c.Scoring.MinScore {
		errs = append(errs, fmt.Errorf("invalid score range [%d, %d]", c.Scoring.MinScore, c.Scoring.MaxScore))
	}
	if c.Matching.AutoAcceptDistance <= 0 || c.Matching.AutoAcceptDistance > 1 {
		errs = append(errs, fmt.Errorf("auto_accept_distance must be in (0, 1], got %v", c.Matching.AutoAcceptDistance))
	}
	if c.Matching.ReviewDistance < c.Matching.AutoAcceptDistance || c.Matching.ReviewDistance > 1 {
		errs = append(errs, fmt.Errorf("review_distance must be in [auto_accept_distance, 1], got %v", c.Matching.ReviewDistance))
	}
	if c.Scoring.TeamTotalMargin < 0 {
		errs = append(errs, fmt.Errorf("team_total_margin must not be negative"))
	}
	if c.Scoring.MinDataCells < 2 {
		errs = append(errs, fmt.Errorf("min_data_cells must be at least 2"))
	}
	return errors.Join(errs...)
}
