package llmsummary

import (
	"time"

	"qfusion/internal/common/config"
)

type Config struct {
	BaseURL      string
	APIKey       string
	DefaultModel string
	MaxTokens    int
	Temperature  float32
	Timeout      time.Duration
}

func LoadConfig(cfg config.CompletionAPIConfig) *Config {
	timeout := config.GetDuration(cfg.Timeout)
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Config{
		BaseURL:      cfg.BaseURL,
		APIKey:       cfg.APIKey,
		DefaultModel: cfg.DefaultModel,
		MaxTokens:    cfg.MaxTokens,
		Temperature:  cfg.Temperature,
		Timeout:      timeout,
	}
}
