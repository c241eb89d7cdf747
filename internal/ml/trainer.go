package ml

import (
	"fmt"
	"log"
	"time"

	"inspection-backend/internal/features"
	"inspection-backend/internal/models"
)

// ChartEpochs is the number of points in the synthetic training curve
const ChartEpochs = 10

// TrainingOutput bundles everything a successful training call produces
type TrainingOutput struct {
	Model   *TrainedModel
	Metrics EvaluationMetrics
	Chart   TrainingChart
}

// Trainer fits and evaluates gradient-boosted tree classifiers
type Trainer struct {
	params Hyperparameters
}

// NewTrainer creates a trainer after validating the hyperparameters
func NewTrainer(params Hyperparameters) (*Trainer, error) {
	if err := params.Validate(); err != nil {
		return nil, E(KindValidation, "configure trainer", err)
	}
	return &Trainer{params: params}, nil
}

// Params returns the trainer hyperparameters
func (t *Trainer) Params() Hyperparameters {
	return t.params
}

// Train fits a classifier on trainingSet and evaluates it on evaluationSet.
// It has no side effects; the caller decides whether to activate the model.
func (t *Trainer) Train(trainingSet, evaluationSet []models.LabeledSample) (*TrainingOutput, error) {
	const op = "train model"

	if len(trainingSet) == 0 || len(evaluationSet) == 0 {
		return nil, Errorf(KindValidation, op, "empty dataset: %d training samples, %d evaluation samples",
			len(trainingSet), len(evaluationSet))
	}

	trainLabels := features.ExtractLabels(trainingSet)
	if err := checkBinary(trainLabels); err != nil {
		return nil, E(KindValidation, op, fmt.Errorf("training set: %w", err))
	}
	evalLabels := features.ExtractLabels(evaluationSet)
	if err := checkBinary(evalLabels); err != nil {
		return nil, E(KindValidation, op, fmt.Errorf("evaluation set: %w", err))
	}

	log.Printf("Trainer: Fitting %d trees (max_depth=%d, learning_rate=%.3f) on %d samples",
		t.params.NEstimators, t.params.MaxDepth, t.params.LearningRate, len(trainingSet))
	start := time.Now()

	trainX, schema := features.BuildMatrix(features.ValidateAll(trainingSet), nil)

	clf, err := fitClassifier(trainX, trainLabels, len(schema), t.params)
	if err != nil {
		return nil, E(KindTraining, op, err)
	}

	model := &TrainedModel{Classifier: clf, Schema: schema, Trained: true}

	evalX, _ := features.BuildMatrix(features.ValidateAll(evaluationSet), schema)
	metrics := Evaluate(evalLabels, model.PredictProbaMatrix(evalX), t.params.EvalMetric)

	log.Printf("Trainer: Training completed in %v. Features=%d, Accuracy=%.3f, %s=%.4f",
		time.Since(start).Round(time.Millisecond), len(schema), metrics.Accuracy,
		metrics.EvalMetric.Name, metrics.EvalMetric.Value)

	return &TrainingOutput{
		Model:   model,
		Metrics: metrics,
		Chart:   SyntheticTrainingCurve(ChartEpochs, t.params.RandomState),
	}, nil
}

func checkBinary(labels []int) error {
	for i, label := range labels {
		if label != 0 && label != 1 {
			return fmt.Errorf("sample %d has response %d, expected 0 or 1", i, label)
		}
	}
	return nil
}
