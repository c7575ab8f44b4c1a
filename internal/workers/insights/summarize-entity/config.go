package summarizeentity

import (
	"time"

	"qfusion/internal/common/config"
)

type Config struct {
	// Timeout bounds one Zeebe job; HTTP requests use the server's own deadlines.
	Timeout time.Duration
}

func LoadConfig(wc config.WorkerConfig) *Config {
	timeout := config.GetDuration(wc.Timeout)
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Config{Timeout: timeout}
}
