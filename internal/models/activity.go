// internal/models/activity.go
package models

import "time"

// ActivitySnapshot aggregates the operational counters the risk rules read.
type ActivitySnapshot struct {
	EntityID                string    `json:"entityId"`
	EntityType              string    `json:"entityType"`
	CompletionRate          float64   `json:"completionRate"`
	AvgTaskDurationHours    float64   `json:"avgTaskDurationHours"`
	BenchmarkDurationHours  float64   `json:"benchmarkDurationHours"`
	OverdueMandatoryCourses int       `json:"overdueMandatoryCourses"`
	FailedAudits            int       `json:"failedAudits"`
	CapturedAt              time.Time `json:"capturedAt"`
}

// MetricSample is one (timestamp, value) observation of a metric.
type MetricSample struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// MetricSeries is an ordered sequence of samples for one metric on one entity.
type MetricSeries struct {
	EntityID   string         `json:"entityId"`
	EntityType string         `json:"entityType"`
	Metric     PredictionType `json:"metric"`
	Samples    []MetricSample `json:"samples"`
}
