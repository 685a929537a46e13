package source

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type ClientConfig struct {
	BaseUrl      string        `envconfig:"TIDEPOOL_VITALS_SOURCE_BASE_URL" required:"true"`
	ServiceToken string        `envconfig:"TIDEPOOL_VITALS_SOURCE_SERVICE_TOKEN"`
	ClientId     string        `envconfig:"TIDEPOOL_VITALS_SOURCE_CLIENT_ID"`
	ClientSecret string        `envconfig:"TIDEPOOL_VITALS_SOURCE_CLIENT_SECRET"`
	TokenUrl     string        `envconfig:"TIDEPOOL_VITALS_SOURCE_TOKEN_URL"`
	Timeout      time.Duration `envconfig:"TIDEPOOL_VITALS_SOURCE_TIMEOUT" default:"10s"`
}

func NewClientConfig() (*ClientConfig, error) {
	cfg := &ClientConfig{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
