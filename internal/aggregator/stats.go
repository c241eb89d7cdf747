package aggregator

import (
	"math"

	"inspection-backend/internal/models"
)

// StatsAggregator folds simulation records into running statistics.
// Not safe for concurrent use; each run owns its aggregator.
type StatsAggregator struct {
	total      int
	pass       int
	fail       int
	sum        float64
	sumSquares float64
	min        float64
	max        float64
}

// NewStatsAggregator creates an empty aggregator
func NewStatsAggregator() *StatsAggregator {
	return &StatsAggregator{}
}

// Add folds one record into the running totals
func (a *StatsAggregator) Add(record models.SimulationRecord) {
	if record.Prediction == models.LabelPass {
		a.pass++
	} else {
		a.fail++
	}

	c := record.Confidence
	if a.total == 0 || c < a.min {
		a.min = c
	}
	if a.total == 0 || c > a.max {
		a.max = c
	}
	a.total++
	a.sum += c
	a.sumSquares += c * c
}

// Snapshot returns the statistics so far. Confidence figures are 0 when nothing was added.
func (a *StatsAggregator) Snapshot() models.SimulationStatistics {
	stats := models.SimulationStatistics{
		TotalPredictions: a.total,
		PassCount:        a.pass,
		FailCount:        a.fail,
	}
	if a.total == 0 {
		return stats
	}

	n := float64(a.total)
	mean := a.sum / n
	variance := a.sumSquares/n - mean*mean
	if variance < 0 {
		// rounding
		variance = 0
	}

	stats.AverageConfidence = mean
	stats.MinConfidence = a.min
	stats.MaxConfidence = a.max
	stats.ConfidenceStdDev = math.Sqrt(variance)
	return stats
}
