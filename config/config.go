package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/tidepool-org/vitals/readings"
	"github.com/tidepool-org/vitals/series"
)

type Config struct {
	HttpPort           uint16        `envconfig:"TIDEPOOL_VITALS_HTTP_PORT" default:"8080" required:"true"`
	PollInterval       time.Duration `envconfig:"TIDEPOOL_VITALS_POLL_INTERVAL" default:"3s"`
	MaxVisiblePoints   int           `envconfig:"TIDEPOOL_VITALS_MAX_VISIBLE_POINTS" default:"20"`
	TimeZone           string        `envconfig:"TIDEPOOL_VITALS_TIME_ZONE" default:"Local"`
	MetricProfilesFile string        `envconfig:"TIDEPOOL_VITALS_METRIC_PROFILES_FILE"`

	Profiles readings.Profiles `ignored:"true"`
	Location *time.Location    `ignored:"true"`
}

func New() *Config {
	return &Config{}
}

func NewConfig() (*Config, error) {
	cfg := New()
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) LoadFromEnv() error {
	if err := envconfig.Process("", c); err != nil {
		return err
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", c.PollInterval)
	}

	location, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return fmt.Errorf("unable to load time zone %q: %w", c.TimeZone, err)
	}
	c.Location = location

	c.Profiles, err = LoadProfilesFile(c.MetricProfilesFile)
	return err
}

// SeriesConfig returns the aggregation settings for the metric using the global band
func (c *Config) SeriesConfig(metric readings.Metric) (series.Config, error) {
	profile, err := c.Profiles.Get(metric)
	if err != nil {
		return series.Config{}, err
	}
	return series.ConfigForProfile(profile, c.MaxVisiblePoints, c.Location), nil
}
