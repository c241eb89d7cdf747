package services

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"inspection-backend/internal/aggregator"
	"inspection-backend/internal/ml"
	"inspection-backend/internal/models"
	"inspection-backend/internal/store"
)

// MockRecorder is a mock implementation of Recorder
type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) SaveTrainingRun(ctx context.Context, run *models.TrainingRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockRecorder) SaveSimulationRecords(ctx context.Context, runID string, records []models.SimulationRecord) error {
	args := m.Called(ctx, runID, records)
	return args.Error(0)
}

func (m *MockRecorder) SavePrediction(ctx context.Context, prediction *models.PredictionLog) error {
	args := m.Called(ctx, prediction)
	return args.Error(0)
}

func sample(f1, f2 float64, label int) models.LabeledSample {
	return models.LabeledSample{
		Timestamp: "2021-01-01T12:00:00",
		Response:  &label,
		Features: models.RawFeatures{
			{Name: "feature1", Value: f1},
			{Name: "feature2", Value: f2},
		},
	}
}

// makeDataset labels a sample 1 when feature1+feature2 > 1
func makeDataset(n int, seed int64) []models.LabeledSample {
	rng := rand.New(rand.NewSource(seed))
	samples := make([]models.LabeledSample, n)
	for i := range samples {
		f1, f2 := rng.Float64(), rng.Float64()
		label := 0
		if f1+f2 > 1 {
			label = 1
		}
		samples[i] = sample(f1, f2, label)
		samples[i].Timestamp = fmt.Sprintf("2021-01-01T12:%02d:00", i%60)
	}
	return samples
}

type testEnv struct {
	store      *store.ModelStore
	inspection *InspectionService
	simulation *SimulationService
}

func newTestEnv(t *testing.T, modelPath string, recorder Recorder) *testEnv {
	t.Helper()

	trainer, err := ml.NewTrainer(ml.DefaultHyperparameters())
	require.NoError(t, err)

	modelStore := store.NewModelStore(modelPath)
	instruments := aggregator.NewInstrumentsWithSource(aggregator.DefaultInstrumentConfig(), rand.NewSource(1))

	return &testEnv{
		store:      modelStore,
		inspection: NewInspectionService(trainer, modelStore, recorder, InspectionServiceConfig{ModelPath: modelPath}),
		simulation: NewSimulationServiceWithInstruments(modelStore, recorder, 50, instruments),
	}
}

func (e *testEnv) train(t *testing.T) *TrainResult {
	t.Helper()
	data := makeDataset(100, 1)
	result, err := e.inspection.Train(context.Background(), data[:70], data[70:])
	require.NoError(t, err)
	return result
}
