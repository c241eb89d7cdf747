package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"inspection-backend/internal/ml"
	"inspection-backend/internal/models"
)

func simulationSample(id int, f1, f2 float64) models.SimulationSample {
	return models.SimulationSample{
		Timestamp: "2021-01-02T00:00:00",
		ID:        id,
		Features: models.RawFeatures{
			{Name: "feature1", Value: f1},
			{Name: "feature2", Value: f2},
		},
	}
}

func TestSimulationMatchesKnownFailSample(t *testing.T) {
	env := newTestEnv(t, "", nil)

	data := makeDataset(100, 1)
	training := append(data[:70:70], sample(0.1, 0.1, 0))
	_, err := env.inspection.Train(context.Background(), training, data[70:])
	require.NoError(t, err)

	samples := []models.SimulationSample{
		simulationSample(1, 0.9, 0.8),
		simulationSample(2, 0.1, 0.1),
		simulationSample(3, 0.7, 0.9),
	}
	records, stats, err := env.simulation.Run(context.Background(), samples)
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, "SAMPLE_0001", records[0].SampleID)
	assert.Equal(t, "SAMPLE_0002", records[1].SampleID)
	assert.Equal(t, "SAMPLE_0003", records[2].SampleID)
	assert.Equal(t, models.LabelFail, records[1].Prediction)

	for _, r := range records {
		assert.GreaterOrEqual(t, r.Confidence, 0.5)
		assert.LessOrEqual(t, r.Confidence, 1.0)
		assert.Nil(t, r.Vibration)
	}

	assert.Equal(t, 3, stats.TotalPredictions)
	assert.Equal(t, stats.TotalPredictions, stats.PassCount+stats.FailCount)
	assert.Equal(t, stats, env.simulation.Stats())
}

func TestSimulationPreservesOrder(t *testing.T) {
	env := newTestEnv(t, "", nil)
	env.train(t)

	samples := make([]models.SimulationSample, 40)
	for i := range samples {
		samples[i] = simulationSample(40-i, float64(i)/40, 0.5)
		samples[i].Timestamp = fmt.Sprintf("2021-01-02T00:%02d:00", i)
	}

	records, stats, err := env.simulation.Run(context.Background(), samples)
	require.NoError(t, err)
	require.Len(t, records, 40)
	for i, r := range records {
		assert.Equal(t, samples[i].Timestamp, r.Timestamp)
		assert.Contains(t, []string{models.LabelPass, models.LabelFail}, r.Prediction)
	}
	assert.Equal(t, "SAMPLE_0040", records[0].SampleID)
	assert.Equal(t, "SAMPLE_0001", records[39].SampleID)
	assert.Equal(t, 40, stats.TotalPredictions)
}

func TestSimulationWithoutModel(t *testing.T) {
	env := newTestEnv(t, "", nil)

	_, _, err := env.simulation.Run(context.Background(), []models.SimulationSample{simulationSample(1, 0, 0)})
	assert.True(t, errors.Is(err, ml.ErrUntrainedModel))
	assert.Equal(t, models.SimulationStatistics{}, env.simulation.Stats())
}

func TestSimulationEmptyBatchResetsStats(t *testing.T) {
	env := newTestEnv(t, "", nil)
	env.train(t)

	_, _, err := env.simulation.Run(context.Background(), []models.SimulationSample{simulationSample(1, 0.9, 0.9)})
	require.NoError(t, err)
	assert.Equal(t, 1, env.simulation.Stats().TotalPredictions)

	records, stats, err := env.simulation.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, models.SimulationStatistics{}, stats)
	assert.Equal(t, models.SimulationStatistics{}, env.simulation.Stats())
}

func TestSimulationSampleLimit(t *testing.T) {
	env := newTestEnv(t, "", nil)
	env.train(t)

	samples := make([]models.SimulationSample, 51)
	_, _, err := env.simulation.Run(context.Background(), samples)
	assert.True(t, errors.Is(err, ml.ErrValidation))
}

func TestSimulationStatsClearedByRetrainAndDelete(t *testing.T) {
	env := newTestEnv(t, "", nil)
	env.train(t)

	_, _, err := env.simulation.Run(context.Background(), []models.SimulationSample{simulationSample(1, 0.2, 0.2)})
	require.NoError(t, err)
	require.Equal(t, 1, env.simulation.Stats().TotalPredictions)

	env.train(t)
	assert.Equal(t, models.SimulationStatistics{}, env.simulation.Stats())

	_, _, err = env.simulation.Run(context.Background(), []models.SimulationSample{simulationSample(1, 0.2, 0.2)})
	require.NoError(t, err)
	require.NoError(t, env.inspection.DeleteModel())
	assert.Equal(t, models.SimulationStatistics{}, env.simulation.Stats())
}

func TestSimulationStreamsAndRecords(t *testing.T) {
	recorder := new(MockRecorder)
	recorder.On("SaveTrainingRun", mock.Anything, mock.Anything).Return(nil)
	recorder.On("SaveSimulationRecords", mock.Anything, mock.AnythingOfType("string"), mock.MatchedBy(func(records []models.SimulationRecord) bool {
		return len(records) == 2
	})).Return(nil).Once()

	env := newTestEnv(t, "", recorder)
	env.train(t)

	recordChan := make(chan *models.SimulationRecord, 10)
	env.simulation.RecordChan = recordChan

	records, _, err := env.simulation.Run(context.Background(), []models.SimulationSample{
		simulationSample(7, 0.9, 0.9),
		simulationSample(8, 0.1, 0.2),
	})
	require.NoError(t, err)

	for _, want := range records {
		select {
		case got := <-recordChan:
			assert.Equal(t, want, *got)
		case <-time.After(time.Second):
			t.Fatal("record was not streamed")
		}
	}

	recorder.AssertExpectations(t)
}

func TestLiveInspectionService(t *testing.T) {
	env := newTestEnv(t, "", nil)
	live := NewLiveInspectionService(env.inspection, DefaultLiveInspectionServiceConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go live.Start(ctx)

	// untrained samples are skipped
	live.SampleChan <- &models.InspectionSample{LineID: "line-1", SampleID: "S0"}
	select {
	case res := <-live.ResultChan:
		t.Fatalf("unexpected result %+v", res)
	case <-time.After(100 * time.Millisecond):
	}

	env.train(t)
	live.SampleChan <- &models.InspectionSample{
		LineID:   "line-2",
		SampleID: "S1",
		Features: models.RawFeaturesFromMap(map[string]interface{}{"feature1": 0.9, "feature2": 0.95}),
	}

	select {
	case res := <-live.ResultChan:
		assert.Equal(t, "line-2", res.LineID)
		assert.Equal(t, "S1", res.SampleID)
		assert.Equal(t, models.LabelPass, res.Prediction)
	case <-time.After(5 * time.Second):
		t.Fatal("no live result")
	}
}

func TestSimulationDoesNotWaitOnFullRecordChannel(t *testing.T) {
	env := newTestEnv(t, "", nil)
	env.train(t)

	recordChan := make(chan *models.SimulationRecord, 1)
	env.simulation.RecordChan = recordChan

	samples := make([]models.SimulationSample, 30)
	for i := range samples {
		samples[i] = simulationSample(i+1, 0.5, 0.5)
	}

	start := time.Now()
	records, stats, err := env.simulation.Run(context.Background(), samples)
	require.NoError(t, err)

	assert.Less(t, time.Since(start), time.Second)
	assert.Len(t, records, 30)
	assert.Equal(t, 30, stats.TotalPredictions)
	require.Len(t, recordChan, 1)
	assert.Equal(t, "SAMPLE_0001", (<-recordChan).SampleID)
}
