package fetchinsights

import (
	"time"

	"qfusion/internal/common/config"
)

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

func LoadConfig(cfg config.InsightsAPIConfig) *Config {
	timeout := config.GetDuration(cfg.Timeout)
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Config{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Timeout: timeout,
	}
}
