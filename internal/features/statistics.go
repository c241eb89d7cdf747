package features

import (
	"time"

	"inspection-backend/internal/models"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Summarize reports the size, pass rate, width and time span of a dataset.
// Feature count is taken from the first sample. Time span runs from the first
// to the last timestamped sample in input order and is 0 when either does not parse.
func Summarize(samples []models.LabeledSample) models.DatasetStatistics {
	stats := models.DatasetStatistics{TotalSamples: len(samples)}
	if len(samples) == 0 {
		return stats
	}

	pass := 0
	var timestamps []string
	for _, s := range samples {
		if s.Response != nil && *s.Response == 1 {
			pass++
		}
		if s.Timestamp != "" {
			timestamps = append(timestamps, s.Timestamp)
		}
	}
	stats.PassRate = float64(pass) / float64(len(samples))
	stats.FeatureCount = len(samples[0].Features)

	if len(timestamps) >= 2 {
		start, okStart := parseTimestamp(timestamps[0])
		end, okEnd := parseTimestamp(timestamps[len(timestamps)-1])
		if okStart && okEnd {
			stats.TimeSpanSeconds = end.Sub(start).Seconds()
		}
	}
	return stats
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
