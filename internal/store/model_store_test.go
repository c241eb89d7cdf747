package store

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inspection-backend/internal/ml"
	"inspection-backend/internal/models"
)

// stubModel builds a one-leaf model that predicts a constant probability
func stubModel(schema ...string) *ml.TrainedModel {
	return &ml.TrainedModel{
		Classifier: &ml.Classifier{
			BaseScore:   1.0,
			NumFeatures: len(schema),
			Trees:       []ml.Tree{{Nodes: []ml.Node{{Leaf: true, Value: 0.5}}}},
			Importance:  make([]float64, len(schema)),
		},
		Schema:  schema,
		Trained: true,
	}
}

func TestActiveWithoutModel(t *testing.T) {
	s := NewModelStore("")

	_, err := s.Active()
	assert.True(t, errors.Is(err, ml.ErrUntrainedModel))
	assert.False(t, s.HasModel())
	assert.Nil(t, s.Metrics())
	assert.Equal(t, models.SimulationStatistics{}, s.SimulationStats())
}

func TestSetActiveReplacesWholesale(t *testing.T) {
	s := NewModelStore("")
	metrics := &ml.EvaluationMetrics{Accuracy: 0.9}

	s.SetActive(stubModel("a"), metrics)
	first, err := s.Active()
	require.NoError(t, err)
	require.True(t, s.RecordSimulation(first.Generation, models.SimulationStatistics{TotalPredictions: 3}))

	metrics.Accuracy = 0.1
	assert.Equal(t, 0.9, s.Metrics().Accuracy)

	s.SetActive(stubModel("b", "c"), nil)
	second, err := s.Active()
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "c"}, second.Model.Schema)
	assert.Nil(t, second.Metrics)
	assert.Greater(t, second.Generation, first.Generation)
	assert.Equal(t, models.SimulationStatistics{}, s.SimulationStats())

	// earlier snapshot keeps its own model
	assert.Equal(t, []string{"a"}, first.Model.Schema)
}

func TestRecordSimulationGenerationGuard(t *testing.T) {
	s := NewModelStore("")
	s.SetActive(stubModel("a"), nil)
	snap, err := s.Active()
	require.NoError(t, err)

	s.SetActive(stubModel("a"), nil)

	assert.False(t, s.RecordSimulation(snap.Generation, models.SimulationStatistics{TotalPredictions: 5}))
	assert.Equal(t, models.SimulationStatistics{}, s.SimulationStats())
}

func TestReplaceAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	s := NewModelStore(path)

	require.NoError(t, s.Replace(stubModel("feature1", "feature2"), &ml.EvaluationMetrics{Accuracy: 0.8}, path))
	assert.Equal(t, 0.8, s.Metrics().Accuracy)

	reloaded := NewModelStore(path)
	require.NoError(t, reloaded.Load(path))
	snap, err := reloaded.Active()
	require.NoError(t, err)
	assert.Equal(t, []string{"feature1", "feature2"}, snap.Model.Schema)
}

func TestReplaceWithoutPathSkipsWrite(t *testing.T) {
	dir := t.TempDir()
	s := NewModelStore("")

	require.NoError(t, s.Replace(stubModel("a"), nil, ""))
	assert.True(t, s.HasModel())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReplaceWriteFailureKeepsActiveModel(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	s := NewModelStore("")
	s.SetActive(stubModel("a"), nil)
	before, err := s.Active()
	require.NoError(t, err)

	err = s.Replace(stubModel("b"), nil, filepath.Join(blocker, "model.json"))
	assert.True(t, errors.Is(err, ml.ErrIO))

	after, err := s.Active()
	require.NoError(t, err)
	assert.Equal(t, before.Generation, after.Generation)
	assert.Equal(t, []string{"a"}, after.Model.Schema)
}

func TestConcurrentReplaceKeepsFileAndSlotInSync(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	s := NewModelStore(path)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			schema := make([]string, i%4+1)
			for j := range schema {
				schema[j] = fmt.Sprintf("f%d", j)
			}
			assert.NoError(t, s.Replace(stubModel(schema...), nil, path))
		}(i)
	}
	wg.Wait()

	snap, err := s.Active()
	require.NoError(t, err)
	onDisk, err := ml.ReadModelFile(path)
	require.NoError(t, err)
	assert.Equal(t, snap.Model.Schema, onDisk.Schema)
}

func TestLoadMissingFile(t *testing.T) {
	s := NewModelStore("")
	err := s.Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.True(t, errors.Is(err, ml.ErrNotFound))
	assert.False(t, s.HasModel())
}

func TestDeleteIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	s := NewModelStore(path)
	require.NoError(t, s.Replace(stubModel("a"), &ml.EvaluationMetrics{Accuracy: 1}, path))

	require.NoError(t, s.Delete())
	_, err := os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	_, err = s.Active()
	assert.True(t, errors.Is(err, ml.ErrUntrainedModel))
	assert.Nil(t, s.Metrics())

	assert.NoError(t, s.Delete())
}

func TestConcurrentAccess(t *testing.T) {
	s := NewModelStore("")
	s.SetActive(stubModel("a"), nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			if i%2 == 0 {
				s.SetActive(stubModel("a"), nil)
			} else {
				_ = s.Delete()
			}
		}
	}()

	for i := 0; i < 200; i++ {
		snap, err := s.Active()
		if err != nil {
			assert.True(t, errors.Is(err, ml.ErrUntrainedModel))
			continue
		}
		assert.NotNil(t, snap.Model.Classifier)
	}
	<-done
}

func TestDeleteLogsWithAndWithoutFile(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	s := NewModelStore("")
	s.SetActive(stubModel("a"), nil)
	require.NoError(t, s.Delete())
	assert.Contains(t, buf.String(), "ModelStore: Model deleted")

	buf.Reset()
	path := filepath.Join(t.TempDir(), "model.json")
	withFile := NewModelStore(path)
	require.NoError(t, withFile.Replace(stubModel("a"), nil, path))
	require.NoError(t, withFile.Delete())
	assert.Contains(t, buf.String(), "ModelStore: Model deleted")
}
