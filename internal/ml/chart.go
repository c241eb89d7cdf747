package ml

import (
	"fmt"
	"math"
	"math/rand"
)

// ChartDataset is one plotted series
type ChartDataset struct {
	Label           string    `json:"label"`
	Data            []float64 `json:"data"`
	BorderColor     string    `json:"borderColor"`
	BackgroundColor string    `json:"backgroundColor"`
}

// TrainingChart is a display payload for the training view.
// It is NOT recorded telemetry: see SyntheticTrainingCurve.
type TrainingChart struct {
	Synthetic bool           `json:"synthetic"`
	Labels    []string       `json:"labels"`
	Datasets  []ChartDataset `json:"datasets"`
}

// SyntheticTrainingCurve interpolates a smooth, noisy accuracy/loss trend over epochs.
// The classifier keeps no per-round history; this curve is cosmetic only and is
// never derived from the fitted model or its EvaluationMetrics.
func SyntheticTrainingCurve(epochs int, seed int64) TrainingChart {
	rng := rand.New(rand.NewSource(seed))

	labels := make([]string, epochs)
	accuracy := make([]float64, epochs)
	loss := make([]float64, epochs)
	for i := 0; i < epochs; i++ {
		progress := float64(i) / float64(epochs)
		labels[i] = fmt.Sprintf("Epoch %d", i+1)
		accuracy[i] = clamp01(0.6 + progress*0.3 + rng.NormFloat64()*0.02)
		loss[i] = clamp01(0.8 - progress*0.5 + rng.NormFloat64()*0.02)
	}

	return TrainingChart{
		Synthetic: true,
		Labels:    labels,
		Datasets: []ChartDataset{
			{
				Label:           "Accuracy",
				Data:            accuracy,
				BorderColor:     "#007bff",
				BackgroundColor: "rgba(0, 123, 255, 0.1)",
			},
			{
				Label:           "Loss",
				Data:            loss,
				BorderColor:     "#dc3545",
				BackgroundColor: "rgba(220, 53, 69, 0.1)",
			},
		},
	}
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
