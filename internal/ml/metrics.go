package ml

import (
	"math"
	"sort"
)

// DecisionThreshold is the probability of class 1 above which a sample passes
const DecisionThreshold = 0.5

// ConfusionMatrix counts predictions against ground truth. Class 1 is positive.
type ConfusionMatrix struct {
	TruePositives  int `json:"truePositives"`
	TrueNegatives  int `json:"trueNegatives"`
	FalsePositives int `json:"falsePositives"`
	FalseNegatives int `json:"falseNegatives"`
}

// Total returns the number of evaluated samples
func (cm ConfusionMatrix) Total() int {
	return cm.TruePositives + cm.TrueNegatives + cm.FalsePositives + cm.FalseNegatives
}

// MetricValue is the configured evaluation metric measured on the held-out set
type MetricValue struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// EvaluationMetrics summarises a model against a held-out set
type EvaluationMetrics struct {
	Accuracy        float64         `json:"accuracy"`
	Precision       float64         `json:"precision"`
	Recall          float64         `json:"recall"`
	F1Score         float64         `json:"f1Score"`
	ConfusionMatrix ConfusionMatrix `json:"confusionMatrix"`
	EvalMetric      MetricValue     `json:"evalMetric"`
}

// Evaluate scores class-1 probabilities against labels.
// Ratios with a zero denominator are reported as 0.
func Evaluate(labels []int, proba []float64, metric string) EvaluationMetrics {
	var cm ConfusionMatrix
	for i, label := range labels {
		predicted := proba[i] > DecisionThreshold
		switch {
		case predicted && label == 1:
			cm.TruePositives++
		case predicted:
			cm.FalsePositives++
		case label == 1:
			cm.FalseNegatives++
		default:
			cm.TrueNegatives++
		}
	}

	m := EvaluationMetrics{ConfusionMatrix: cm}
	m.Accuracy = safeDiv(float64(cm.TruePositives+cm.TrueNegatives), float64(cm.Total()))
	m.Precision = safeDiv(float64(cm.TruePositives), float64(cm.TruePositives+cm.FalsePositives))
	m.Recall = safeDiv(float64(cm.TruePositives), float64(cm.TruePositives+cm.FalseNegatives))
	m.F1Score = safeDiv(2*m.Precision*m.Recall, m.Precision+m.Recall)

	m.EvalMetric = MetricValue{Name: metric}
	switch metric {
	case MetricLogLoss:
		m.EvalMetric.Value = logLoss(labels, proba)
	case MetricError:
		m.EvalMetric.Value = 1 - m.Accuracy
	case MetricAUC:
		m.EvalMetric.Value = rocAUC(labels, proba)
	}
	return m
}

func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

func logLoss(labels []int, proba []float64) float64 {
	if len(labels) == 0 {
		return 0
	}
	const eps = 1e-15
	sum := 0.0
	for i, label := range labels {
		p := math.Min(math.Max(proba[i], eps), 1-eps)
		if label == 1 {
			sum -= math.Log(p)
		} else {
			sum -= math.Log(1 - p)
		}
	}
	return sum / float64(len(labels))
}

// rocAUC uses the rank-sum formulation with averaged ranks for ties.
// It is 0 when only one class is present.
func rocAUC(labels []int, proba []float64) float64 {
	n := len(labels)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return proba[order[a]] < proba[order[b]] })

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && proba[order[j+1]] == proba[order[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[order[k]] = avg
		}
		i = j + 1
	}

	var pos, neg int
	var rankSum float64
	for i, label := range labels {
		if label == 1 {
			pos++
			rankSum += ranks[i]
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return 0
	}
	return (rankSum - float64(pos*(pos+1))/2) / float64(pos*neg)
}
