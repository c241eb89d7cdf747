package models

import "time"

// TrainingRun is the history row written after each successful training call
type TrainingRun struct {
	RunID             string    `json:"run_id"`
	Timestamp         time.Time `json:"timestamp"`
	TrainingSamples   int       `json:"training_samples"`
	EvaluationSamples int       `json:"evaluation_samples"`
	FeatureCount      int       `json:"feature_count"`
	Accuracy          float64   `json:"accuracy"`
	Precision         float64   `json:"precision"`
	Recall            float64   `json:"recall"`
	F1Score           float64   `json:"f1_score"`
	TruePositives     int       `json:"true_positives"`
	TrueNegatives     int       `json:"true_negatives"`
	FalsePositives    int       `json:"false_positives"`
	FalseNegatives    int       `json:"false_negatives"`
	EvalMetric        string    `json:"eval_metric"`
	EvalMetricValue   float64   `json:"eval_metric_value"`
}

// PredictionLog is the history row written for single and live predictions
type PredictionLog struct {
	Timestamp       time.Time `json:"timestamp"`
	Source          string    `json:"source"` // "api" or "mqtt"
	LineID          string    `json:"line_id"`
	SampleID        string    `json:"sample_id"`
	Prediction      string    `json:"prediction"`
	Confidence      float64   `json:"confidence"`
	PassProbability float64   `json:"pass_probability"`
}
