package models

import "time"

// Prediction labels
const (
	LabelPass = "Pass"
	LabelFail = "Fail"
)

// LabeledSample is one historical inspection with its ground-truth response.
// Response is nil when the source row carried no label.
type LabeledSample struct {
	Timestamp string      `json:"timestamp"`
	Response  *int        `json:"response,omitempty"`
	Features  RawFeatures `json:"features"`
}

// SimulationSample is one row replayed through the model during a simulation
type SimulationSample struct {
	Timestamp string      `json:"timestamp"`
	ID        int         `json:"id"`
	Response  *int        `json:"response,omitempty"`
	Features  RawFeatures `json:"features"`
}

// SimulationRecord is the result of replaying a single sample.
// Instrumentation readings are synthetic and independent of the model.
type SimulationRecord struct {
	Timestamp   string   `json:"timestamp"`
	SampleID    string   `json:"sampleId"`
	Prediction  string   `json:"prediction"`
	Confidence  float64  `json:"confidence"`
	Temperature float64  `json:"temperature"` // °C
	Pressure    float64  `json:"pressure"`    // hPa
	Humidity    float64  `json:"humidity"`    // %
	Vibration   *float64 `json:"vibration,omitempty"`
	Voltage     *float64 `json:"voltage,omitempty"` // V
	Current     *float64 `json:"current,omitempty"` // A
}

// SimulationStatistics aggregates a completed simulation run
type SimulationStatistics struct {
	TotalPredictions  int     `json:"totalPredictions"`
	PassCount         int     `json:"passCount"`
	FailCount         int     `json:"failCount"`
	AverageConfidence float64 `json:"averageConfidence"`
	MinConfidence     float64 `json:"minConfidence"`
	MaxConfidence     float64 `json:"maxConfidence"`
	ConfidenceStdDev  float64 `json:"confidenceStd"`
}

// ClassProbabilities holds the probability mass of each class
type ClassProbabilities struct {
	Pass float64 `json:"pass"`
	Fail float64 `json:"fail"`
}

// PredictionResult is the outcome of a single prediction
type PredictionResult struct {
	Prediction  string             `json:"prediction"`
	Confidence  float64            `json:"confidence"`
	Probability ClassProbabilities `json:"probability"`
}

// InspectionSample is a live sample received from a production line over MQTT
type InspectionSample struct {
	LineID    string      `json:"line_id"`
	SampleID  string      `json:"sample_id"`
	Timestamp time.Time   `json:"timestamp"`
	Features  RawFeatures `json:"features"`
}

// InspectionResult is published back to the line after a live prediction
type InspectionResult struct {
	LineID      string             `json:"line_id"`
	SampleID    string             `json:"sample_id"`
	Timestamp   time.Time          `json:"timestamp"`
	Prediction  string             `json:"prediction"`
	Confidence  float64            `json:"confidence"`
	Probability ClassProbabilities `json:"probability"`
}

// DatasetStatistics summarises a labeled dataset
type DatasetStatistics struct {
	TotalSamples    int     `json:"totalSamples"`
	PassRate        float64 `json:"passRate"`
	FeatureCount    int     `json:"featureCount"`
	TimeSpanSeconds float64 `json:"timeSpanSeconds"`
}
