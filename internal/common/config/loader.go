package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DefaultInsightsURL   = "https://hackathon.api.qloo.com/v2/insights"
	DefaultCompletionURL = "https://openrouter.ai/api/v1"
	DefaultModel         = "anthropic/claude-3-haiku"
)

var validate = validator.New()

// Load reads configs/config.yaml, overlays configs/config.<APP_ENVIRONMENT>.yaml and
// applies environment overrides.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return build(v)
}

// LoadFromFile reads a single YAML file; environment overrides still apply.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return build(v)
}

func build(v *viper.Viper) (*Config, error) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override keys absent from the file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "qfusion")
	v.SetDefault("app.version", "dev")
	v.SetDefault("app.environment", "development")
	v.SetDefault("server.address", ":3001")
	v.SetDefault("server.read_timeout", 15000)
	v.SetDefault("server.write_timeout", 90000)
	v.SetDefault("camunda.enabled", false)
	v.SetDefault("camunda.broker_address", "")
	v.SetDefault("camunda.max_jobs_active", 10)
	v.SetDefault("camunda.timeout", 90000)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.run_log_key", "qfusion:runs")
	v.SetDefault("redis.run_log_size", 200)
	v.SetDefault("apis.insights.base_url", DefaultInsightsURL)
	v.SetDefault("apis.insights.api_key", "")
	v.SetDefault("apis.insights.timeout", 15000)
	v.SetDefault("apis.completion.base_url", DefaultCompletionURL)
	v.SetDefault("apis.completion.api_key", "")
	v.SetDefault("apis.completion.default_model", DefaultModel)
	v.SetDefault("apis.completion.max_tokens", 500)
	v.SetDefault("apis.completion.temperature", 0.7)
	v.SetDefault("apis.completion.timeout", 60000)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func loadEnvFile() {
	possiblePaths := []string{".env", "../.env", "../../.env"}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok || !strings.Contains(strVal, "$") {
			continue
		}
		if expanded := os.ExpandEnv(strVal); expanded != strVal {
			v.Set(key, expanded)
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Redis.RunLogKey == "" {
		cfg.Redis.RunLogKey = "qfusion:runs"
	}
	if cfg.APIs.Completion.DefaultModel == "" {
		cfg.APIs.Completion.DefaultModel = DefaultModel
	}
	if cfg.APIs.Completion.MaxTokens == 0 {
		cfg.APIs.Completion.MaxTokens = 500
	}

	for key, w := range cfg.Workers {
		if w.MaxJobsActive == 0 {
			w.MaxJobsActive = cfg.Camunda.MaxJobsActive
		}
		if w.Timeout == 0 {
			w.Timeout = cfg.Camunda.Timeout
		}
		cfg.Workers[key] = w
	}
}

// overrideEmptyConfig honours the legacy QLOO_* / OPENROUTER_API_KEY / PORT variables.
func overrideEmptyConfig(cfg *Config) {
	if val := os.Getenv("QLOO_API_URL"); val != "" {
		cfg.APIs.Insights.BaseURL = val
	}
	if cfg.APIs.Insights.APIKey == "" {
		cfg.APIs.Insights.APIKey = os.Getenv("QLOO_API_KEY")
	}
	if cfg.APIs.Completion.APIKey == "" {
		cfg.APIs.Completion.APIKey = os.Getenv("OPENROUTER_API_KEY")
	}
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Address = ":" + strings.TrimPrefix(port, ":")
	}
}

// GetWorkerConfig returns the named worker config or an enabled default.
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if w, exists := cfg.Workers[workerName]; exists {
		return w
	}
	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: cfg.Camunda.MaxJobsActive,
		Timeout:       cfg.Camunda.Timeout,
	}
}
