package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"inspection-backend/internal/features"
	"inspection-backend/internal/models"
)

// ModelFormatVersion is written into every persisted model file
const ModelFormatVersion = 1

// ModelType is reported by model info
const ModelType = "Gradient Boosted Trees Classifier"

// TrainedModel is a fitted classifier bound to the feature schema it was trained on.
// It is never mutated after construction, so it may be shared between goroutines.
type TrainedModel struct {
	Classifier *Classifier
	Schema     []string
	Trained    bool
}

// Predict projects a validated feature vector onto the model schema and classifies it
func (m *TrainedModel) Predict(fv models.FeatureVector) models.PredictionResult {
	matrix, _ := features.BuildMatrix([]models.FeatureVector{fv}, m.Schema)
	return Classify(m.Classifier.PredictProba(matrix[0]))
}

// PredictProbaMatrix returns the class-1 probability for each projected row
func (m *TrainedModel) PredictProbaMatrix(matrix [][]float64) []float64 {
	out := make([]float64, len(matrix))
	for i, row := range matrix {
		out[i] = m.Classifier.PredictProba(row)
	}
	return out
}

// FeatureImportance maps each schema feature to its share of total split gain
func (m *TrainedModel) FeatureImportance() map[string]float64 {
	out := make(map[string]float64, len(m.Schema))
	for i, name := range m.Schema {
		if i < len(m.Classifier.Importance) {
			out[name] = m.Classifier.Importance[i]
		} else {
			out[name] = 0
		}
	}
	return out
}

// Classify turns a class-1 probability into a Pass/Fail decision.
// Confidence is the mass on the chosen class, so it is always >= 0.5.
func Classify(passProb float64) models.PredictionResult {
	failProb := 1 - passProb
	result := models.PredictionResult{
		Probability: models.ClassProbabilities{Pass: passProb, Fail: failProb},
	}
	if passProb > DecisionThreshold {
		result.Prediction = models.LabelPass
		result.Confidence = passProb
	} else {
		result.Prediction = models.LabelFail
		result.Confidence = failProb
	}
	return result
}

// modelFile is the on-disk layout of a persisted model
type modelFile struct {
	FormatVersion int         `json:"format_version"`
	Trained       bool        `json:"trained"`
	FeatureSchema []string    `json:"feature_schema"`
	Classifier    *Classifier `json:"classifier"`
}

// WriteModelFile serialises the model to path, creating parent directories.
// The file is replaced atomically.
func WriteModelFile(path string, m *TrainedModel) error {
	const op = "persist model"

	data, err := json.Marshal(modelFile{
		FormatVersion: ModelFormatVersion,
		Trained:       m.Trained,
		FeatureSchema: m.Schema,
		Classifier:    m.Classifier,
	})
	if err != nil {
		return E(KindInternal, op, fmt.Errorf("failed to marshal model: %w", err))
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return E(KindIO, op, fmt.Errorf("failed to create model directory: %w", err))
	}

	tmp, err := os.CreateTemp(dir, ".model-*.tmp")
	if err != nil {
		return E(KindIO, op, fmt.Errorf("failed to create temp file: %w", err))
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return E(KindIO, op, fmt.Errorf("failed to write model file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return E(KindIO, op, fmt.Errorf("failed to write model file: %w", err))
	}
	if err := os.Rename(tmpName, path); err != nil {
		return E(KindIO, op, fmt.Errorf("failed to move model file into place: %w", err))
	}

	log.Printf("Saved model to %s (%d trees, %d features)", path, len(m.Classifier.Trees), len(m.Schema))
	return nil
}

// ReadModelFile loads a model written by WriteModelFile
func ReadModelFile(path string) (*TrainedModel, error) {
	const op = "load model"

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, E(KindNotFound, op, fmt.Errorf("model file not found: %s", path))
		}
		return nil, E(KindIO, op, fmt.Errorf("failed to read model file: %w", err))
	}

	var f modelFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, E(KindCorruptState, op, fmt.Errorf("failed to unmarshal model: %w", err))
	}
	if f.FormatVersion != ModelFormatVersion {
		return nil, Errorf(KindCorruptState, op, "unsupported model format version %d", f.FormatVersion)
	}
	if !f.Trained || f.Classifier == nil {
		return nil, Errorf(KindCorruptState, op, "model file holds no trained classifier")
	}
	if f.Classifier.NumFeatures != len(f.FeatureSchema) {
		return nil, Errorf(KindCorruptState, op, "classifier expects %d features, schema has %d",
			f.Classifier.NumFeatures, len(f.FeatureSchema))
	}
	if err := f.Classifier.validate(); err != nil {
		return nil, E(KindCorruptState, op, err)
	}

	log.Printf("Loaded model from %s with %d features", path, len(f.FeatureSchema))

	return &TrainedModel{
		Classifier: f.Classifier,
		Schema:     f.FeatureSchema,
		Trained:    f.Trained,
	}, nil
}
