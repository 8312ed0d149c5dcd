// internal/workers/insights/aggregate-insight-analytics/config.go
package aggregateinsightanalytics

import "time"

type Config struct {
	Timeout time.Duration
	// FetchPageSize is the insight page size used while scanning the period.
	FetchPageSize int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:       60 * time.Second,
		FetchPageSize: 200,
	}
}
