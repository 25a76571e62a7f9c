// Package config loads scraper configuration from the environment.
package config

import "github.com/kelseyhightower/envconfig"

// Config is the full scraper configuration. Defaults match the production
// NHL APIs and their observed rate tolerance.
type Config struct {
	Redis   Redis
	NHLAPI  NHLAPI
	Scraper Scraper
	Log     Log
}

// Redis configures the document store connection.
type Redis struct {
	Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// NHLAPI configures the upstream client and request pacing.
type NHLAPI struct {
	StatsBaseURL      string `envconfig:"NHL_STATS_API_URL" default:"https://api.nhle.com"`
	WebBaseURL        string `envconfig:"NHL_WEB_API_URL" default:"https://api-web.nhle.com"`
	MaxAttempts       int    `envconfig:"NHL_MAX_ATTEMPTS" default:"3"`
	RequestsPerMinute int    `envconfig:"NHL_REQUESTS_PER_MINUTE" default:"30"`
}

// Scraper configures the ingestion run.
type Scraper struct {
	League    string `envconfig:"SCRAPER_LEAGUE" default:"NHL"`
	PageSize  int    `envconfig:"SCRAPER_PAGE_SIZE" default:"100"`
	BatchSize int    `envconfig:"SCRAPER_BATCH_SIZE" default:"50"`

	// ActiveGraceYears widens the window in which a tenure's end year still
	// counts as active. The upstream data lags behind during the off-season.
	ActiveGraceYears int `envconfig:"SCRAPER_ACTIVE_GRACE_YEARS" default:"1"`

	// MetricsAddr is the listen address for /metrics and /health.
	MetricsAddr string `envconfig:"SCRAPER_METRICS_ADDR" default:":9090"`
}

// Log configures logging output.
type Log struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Pretty bool   `envconfig:"LOG_PRETTY" default:"false"`
}

// New loads the configuration from the environment.
func New() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	return &c, nil
}
