package config

import "time"

type Config struct {
	App     AppConfig               `mapstructure:"app"`
	Server  ServerConfig            `mapstructure:"server"`
	Camunda CamundaConfig           `mapstructure:"camunda"`
	Redis   RedisConfig             `mapstructure:"redis"`
	Workers map[string]WorkerConfig `mapstructure:"workers"`
	APIs    APIsConfig              `mapstructure:"apis"`
	Logging LoggingConfig           `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment" validate:"oneof=development staging production test"`
}

type ServerConfig struct {
	Address      string `mapstructure:"address" validate:"required"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout int    `mapstructure:"write_timeout"` // milliseconds
}

type CamundaConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	BrokerAddress string `mapstructure:"broker_address" validate:"required_if=Enabled true"`
	MaxJobsActive int    `mapstructure:"max_jobs_active"`
	Timeout       int    `mapstructure:"timeout"` // milliseconds
}

type RedisConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Address    string `mapstructure:"address" validate:"required_if=Enabled true"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	RunLogKey  string `mapstructure:"run_log_key"`
	RunLogSize int    `mapstructure:"run_log_size" validate:"gte=0"`
}

type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
}

type APIsConfig struct {
	Insights   InsightsAPIConfig   `mapstructure:"insights"`
	Completion CompletionAPIConfig `mapstructure:"completion"`
}

// InsightsAPIConfig points at the Qloo insights endpoint.
type InsightsAPIConfig struct {
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
	APIKey  string `mapstructure:"api_key"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

// CompletionAPIConfig points at an OpenAI-compatible chat completion API.
type CompletionAPIConfig struct {
	BaseURL      string `mapstructure:"base_url" validate:"required,url"`
	APIKey       string `mapstructure:"api_key"`
	DefaultModel string `mapstructure:"default_model" validate:"required"`
	MaxTokens    int    `mapstructure:"max_tokens" validate:"gt=0"`
	// Zero is rejected: the client omits a zero temperature from the request.
	Temperature float32 `mapstructure:"temperature" validate:"gt=0,lte=2"`
	Timeout     int     `mapstructure:"timeout"` // milliseconds
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
