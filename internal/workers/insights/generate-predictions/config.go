// internal/workers/insights/generate-predictions/config.go
package generatepredictions

import "time"

type Config struct {
	Timeout time.Duration
	// SampleWindowDays bounds how far back the metric series reach.
	SampleWindowDays int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:          60 * time.Second,
		SampleWindowDays: 90,
	}
}
