// internal/engine/forecast/forecast.go
package forecast

import (
	"math"
	"time"

	"github.com/google/uuid"

	"insight-engine/internal/common/errors"
	"insight-engine/internal/common/logger"
	"insight-engine/internal/models"
)

// metricSpec fixes the forecasting policy per metric. The minimum sample
// counts are load-bearing business policy: below minimum no prediction is
// emitted at all.
type metricSpec struct {
	minSamples int
	bounded    bool // bounded-rate metrics forecast in [0,1]
	seasonal   bool // day-of-week seasonality applies
	timeframe  models.Timeframe
}

var metricSpecs = map[models.PredictionType]metricSpec{
	models.PredictionSales:          {minSamples: 7, bounded: false, seasonal: true, timeframe: models.TimeframeWeekly},
	models.PredictionTaskCompletion: {minSamples: 5, bounded: true, seasonal: false, timeframe: models.TimeframeWeekly},
	models.PredictionAuditScore:     {minSamples: 3, bounded: true, seasonal: false, timeframe: models.TimeframeMonthly},
}

// seasonalityFactorThreshold is the minimum absolute seasonality offset that
// warrants reporting a day-of-week influencing factor.
const seasonalityFactorThreshold = 0.1

// Forecaster turns an ordered metric series into a point forecast with a
// bounded confidence score.
type Forecaster struct {
	logger logger.Logger
	now    func() time.Time
}

func New(log logger.Logger) *Forecaster {
	return &Forecaster{
		logger: log.WithFields(map[string]interface{}{"component": "forecaster"}),
		now:    time.Now,
	}
}

// Forecast produces one Prediction for the series' (entity, metric) pair.
// A series below its metric's minimum sample count, or for a metric with no
// forecasting policy, yields an INSUFFICIENT_DATA condition the caller skips;
// it is never a batch failure.
func (f *Forecaster) Forecast(series models.MetricSeries) (*models.Prediction, *errors.StandardError) {
	spec, ok := metricSpecs[series.Metric]
	if !ok {
		return nil, errors.NewInsufficientDataError(string(series.Metric), len(series.Samples), 0)
	}
	if len(series.Samples) < spec.minSamples {
		f.logger.Debug("series below minimum sample count", map[string]interface{}{
			"entityId": series.EntityID,
			"metric":   series.Metric,
			"samples":  len(series.Samples),
			"minimum":  spec.minSamples,
		})
		return nil, errors.NewInsufficientDataError(string(series.Metric), len(series.Samples), spec.minSamples)
	}

	values := make([]float64, len(series.Samples))
	for i, s := range series.Samples {
		values[i] = s.Value
	}

	trend := Trend(values)
	vol := Volatility(values)

	var seasonality float64
	if spec.seasonal {
		seasonality = Seasonality(series.Samples, f.now())
	}

	var predicted float64
	if spec.bounded {
		predicted = clamp(Mean(values)+trend, 0, 1)
	} else {
		predicted = math.Max(0, values[len(values)-1]+trend+seasonality)
	}

	confidence := clamp(1-vol, 0.1, 0.95)

	prediction := &models.Prediction{
		ID:             uuid.NewString(),
		EntityID:       series.EntityID,
		EntityType:     series.EntityType,
		PredictionType: series.Metric,
		PredictedValue: predicted,
		Confidence:     confidence,
		Timeframe:      spec.timeframe,
		Factors:        influencingFactors(trend, seasonality, confidence),
		CreatedAt:      f.now().UTC(),
	}

	f.logger.Debug("forecast produced", map[string]interface{}{
		"entityId":   series.EntityID,
		"metric":     series.Metric,
		"predicted":  predicted,
		"confidence": confidence,
		"trend":      trend,
		"volatility": vol,
	})

	return prediction, nil
}

// influencingFactors reports the historical trend always, and the day-of-week
// pattern only when the seasonality offset is material.
func influencingFactors(trend, seasonality, confidence float64) []models.InfluencingFactor {
	factors := []models.InfluencingFactor{
		{
			Factor:      "historical trend",
			Impact:      clamp(trend*10, -1, 1),
			Confidence:  confidence,
			Description: "Direction and strength of the recent linear trend",
		},
	}

	if math.Abs(seasonality) > seasonalityFactorThreshold {
		factors = append(factors, models.InfluencingFactor{
			Factor:      "day-of-week pattern",
			Impact:      clamp(seasonality, -1, 1),
			Confidence:  confidence,
			Description: "Deviation of same-weekday samples from the overall average",
		})
	}

	return factors
}

// Trend returns the ordinary-least-squares slope of value against the 1-based
// sample index. A series shorter than 2 samples has no trend.
func Trend(values []float64) float64 {
	n := float64(len(values))
	if n < 2 {
		return 0
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, v := range values {
		x := float64(i + 1)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

// Seasonality returns the average of samples falling on the same weekday as
// now, minus the overall average. Zero when no same-weekday samples exist.
func Seasonality(samples []models.MetricSample, now time.Time) float64 {
	if len(samples) == 0 {
		return 0
	}

	weekday := now.Weekday()

	var overallSum float64
	var sameDaySum float64
	sameDayCount := 0
	for _, s := range samples {
		overallSum += s.Value
		if s.Timestamp.Weekday() == weekday {
			sameDaySum += s.Value
			sameDayCount++
		}
	}

	if sameDayCount == 0 {
		return 0
	}

	return sameDaySum/float64(sameDayCount) - overallSum/float64(len(samples))
}

// Volatility is the sample standard deviation divided by the mean, used as an
// inverse confidence proxy. Zero when the mean is not positive or fewer than
// 2 samples exist.
func Volatility(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	mean := Mean(values)
	if mean <= 0 {
		return 0
	}

	return StdDev(values) / mean
}

// Mean returns the arithmetic mean, 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the sample standard deviation, 0 for fewer than 2 values.
func StdDev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}

	mean := Mean(values)
	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// MinimumSamples exposes the per-metric minimum for callers that pre-filter
// series before fan-out. Zero means the metric is not forecastable.
func MinimumSamples(metric models.PredictionType) int {
	return metricSpecs[metric].minSamples
}

// ForecastableMetrics lists the metrics a forecast can target, in a stable
// order.
func ForecastableMetrics() []models.PredictionType {
	return []models.PredictionType{
		models.PredictionSales,
		models.PredictionTaskCompletion,
		models.PredictionAuditScore,
	}
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
