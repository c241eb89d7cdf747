package services

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"inspection-backend/internal/features"
	"inspection-backend/internal/ml"
	"inspection-backend/internal/models"
	"inspection-backend/internal/store"
)

// Prediction sources written to history
const (
	SourceAPI  = "api"
	SourceMQTT = "mqtt"
)

// TrainResult is returned to the caller of a training request
type TrainResult struct {
	RunID             string             `json:"runId"`
	Accuracy          float64            `json:"accuracy"`
	Precision         float64            `json:"precision"`
	Recall            float64            `json:"recall"`
	F1Score           float64            `json:"f1Score"`
	EvalMetric        ml.MetricValue     `json:"evalMetric"`
	TrainingChartData ml.TrainingChart   `json:"trainingChartData"`
	ConfusionMatrix   ml.ConfusionMatrix `json:"confusionMatrix"`

	TrainingStatistics models.DatasetStatistics `json:"trainingStatistics"`
	TestingStatistics  models.DatasetStatistics `json:"testingStatistics"`
}

// ModelInfo describes the active model
type ModelInfo struct {
	Status            string                `json:"status"`
	Trained           bool                  `json:"trained"`
	ModelType         string                `json:"modelType,omitempty"`
	FeatureSchema     []string              `json:"featureSchema,omitempty"`
	Metrics           *ml.EvaluationMetrics `json:"metrics"`
	FeatureImportance map[string]float64    `json:"featureImportance,omitempty"`
	Hyperparameters   *ml.Hyperparameters   `json:"hyperparameters,omitempty"`
}

// InspectionService orchestrates training, single predictions and the model lifecycle
type InspectionService struct {
	trainer   *ml.Trainer
	store     *store.ModelStore
	recorder  Recorder
	modelPath string
}

// InspectionServiceConfig holds configuration for the inspection service
type InspectionServiceConfig struct {
	ModelPath string // empty disables persistence
}

// NewInspectionService creates a new inspection service. recorder may be nil.
func NewInspectionService(trainer *ml.Trainer, modelStore *store.ModelStore, recorder Recorder, config InspectionServiceConfig) *InspectionService {
	return &InspectionService{
		trainer:   trainer,
		store:     modelStore,
		recorder:  recorder,
		modelPath: config.ModelPath,
	}
}

// Train fits a new model and, only if every step succeeds, persists and activates it
func (s *InspectionService) Train(ctx context.Context, trainingSet, evaluationSet []models.LabeledSample) (*TrainResult, error) {
	log.Printf("InspectionService: Starting training with %d training and %d evaluation samples",
		len(trainingSet), len(evaluationSet))

	out, err := s.trainer.Train(trainingSet, evaluationSet)
	if err != nil {
		log.Printf("InspectionService: Training failed: %v", err)
		return nil, err
	}

	if err := s.store.Replace(out.Model, &out.Metrics, s.modelPath); err != nil {
		log.Printf("InspectionService: Failed to persist model, keeping previous one: %v", err)
		return nil, err
	}

	runID := uuid.NewString()
	s.recordTrainingRun(ctx, runID, len(trainingSet), len(evaluationSet), out)

	return &TrainResult{
		RunID:             runID,
		Accuracy:          out.Metrics.Accuracy,
		Precision:         out.Metrics.Precision,
		Recall:            out.Metrics.Recall,
		F1Score:           out.Metrics.F1Score,
		EvalMetric:        out.Metrics.EvalMetric,
		TrainingChartData: out.Chart,
		ConfusionMatrix:   out.Metrics.ConfusionMatrix,

		TrainingStatistics: features.Summarize(trainingSet),
		TestingStatistics:  features.Summarize(evaluationSet),
	}, nil
}

func (s *InspectionService) recordTrainingRun(ctx context.Context, runID string, trainN, evalN int, out *ml.TrainingOutput) {
	if s.recorder == nil {
		return
	}

	cm := out.Metrics.ConfusionMatrix
	run := &models.TrainingRun{
		RunID:             runID,
		Timestamp:         time.Now(),
		TrainingSamples:   trainN,
		EvaluationSamples: evalN,
		FeatureCount:      len(out.Model.Schema),
		Accuracy:          out.Metrics.Accuracy,
		Precision:         out.Metrics.Precision,
		Recall:            out.Metrics.Recall,
		F1Score:           out.Metrics.F1Score,
		TruePositives:     cm.TruePositives,
		TrueNegatives:     cm.TrueNegatives,
		FalsePositives:    cm.FalsePositives,
		FalseNegatives:    cm.FalseNegatives,
		EvalMetric:        out.Metrics.EvalMetric.Name,
		EvalMetricValue:   out.Metrics.EvalMetric.Value,
	}
	if err := s.recorder.SaveTrainingRun(ctx, run); err != nil {
		log.Printf("InspectionService: Error saving training run %s: %v", runID, err)
	}
}

// Predict classifies a single raw feature mapping with the active model
func (s *InspectionService) Predict(ctx context.Context, raw models.RawFeatures) (models.PredictionResult, error) {
	snap, err := s.store.Active()
	if err != nil {
		return models.PredictionResult{}, err
	}

	result := snap.Model.Predict(features.Validate(raw))
	s.recordPrediction(ctx, SourceAPI, "", "", result)
	return result, nil
}

// PredictLive classifies a sample received from a production line
func (s *InspectionService) PredictLive(ctx context.Context, sample *models.InspectionSample) (*models.InspectionResult, error) {
	snap, err := s.store.Active()
	if err != nil {
		return nil, err
	}

	result := snap.Model.Predict(features.Validate(sample.Features))
	s.recordPrediction(ctx, SourceMQTT, sample.LineID, sample.SampleID, result)

	return &models.InspectionResult{
		LineID:      sample.LineID,
		SampleID:    sample.SampleID,
		Timestamp:   time.Now(),
		Prediction:  result.Prediction,
		Confidence:  result.Confidence,
		Probability: result.Probability,
	}, nil
}

func (s *InspectionService) recordPrediction(ctx context.Context, source, lineID, sampleID string, result models.PredictionResult) {
	if s.recorder == nil {
		return
	}

	entry := &models.PredictionLog{
		Timestamp:       time.Now(),
		Source:          source,
		LineID:          lineID,
		SampleID:        sampleID,
		Prediction:      result.Prediction,
		Confidence:      result.Confidence,
		PassProbability: result.Probability.Pass,
	}
	if err := s.recorder.SavePrediction(ctx, entry); err != nil {
		log.Printf("InspectionService: Error saving prediction: %v", err)
	}
}

// ModelInfo reports the state of the active model
func (s *InspectionService) ModelInfo() ModelInfo {
	snap, err := s.store.Active()
	if err != nil {
		return ModelInfo{Status: "No model trained"}
	}

	var metrics *ml.EvaluationMetrics
	if snap.Metrics != nil {
		m := *snap.Metrics
		metrics = &m
	}

	params := s.trainer.Params()
	return ModelInfo{
		Status:            "Model trained",
		Trained:           true,
		ModelType:         ml.ModelType,
		FeatureSchema:     append([]string(nil), snap.Model.Schema...),
		Metrics:           metrics,
		FeatureImportance: snap.Model.FeatureImportance(),
		Hyperparameters:   &params,
	}
}

// DeleteModel clears the active model, its metrics and simulation state
func (s *InspectionService) DeleteModel() error {
	return s.store.Delete()
}

// LoadPersisted restores the model written by a previous process, if any
func (s *InspectionService) LoadPersisted() error {
	if s.modelPath == "" {
		return nil
	}
	return s.store.Load(s.modelPath)
}
