// internal/workers/insights/evaluate-activity-risk/config.go
package evaluateactivityrisk

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}
