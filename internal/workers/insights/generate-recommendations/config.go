// internal/workers/insights/generate-recommendations/config.go
package generaterecommendations

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 60 * time.Second,
	}
}
