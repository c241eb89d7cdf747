// Package store owns the single active model slot of the process.
package store

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sync"

	"inspection-backend/internal/ml"
	"inspection-backend/internal/models"
)

// Snapshot is an immutable view of the active slot.
// Generation changes every time the slot is replaced or cleared.
type Snapshot struct {
	Model      *ml.TrainedModel
	Metrics    *ml.EvaluationMetrics
	Generation uint64
}

// ModelStore holds at most one trained model together with the metrics of its
// last evaluation and the statistics of the most recent simulation run on it.
//
// Readers get a snapshot pointer; writers swap the whole entry under the lock,
// so a prediction in flight keeps using the model it started with.
type ModelStore struct {
	mu         sync.RWMutex
	model      *ml.TrainedModel
	metrics    *ml.EvaluationMetrics
	simStats   *models.SimulationStatistics
	generation uint64
	path       string // file removed by Delete
}

// NewModelStore creates an empty store. path is the default persistence location.
func NewModelStore(path string) *ModelStore {
	return &ModelStore{path: path}
}

// SetActive replaces the active model wholesale and clears cached simulation state.
// metrics may be nil when the model was not evaluated (e.g. reloaded from disk).
func (s *ModelStore) SetActive(model *ml.TrainedModel, metrics *ml.EvaluationMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.swapLocked(model, metrics)
}

// Replace writes model to path and activates it in one step under the write lock,
// so the file on disk always holds the active model. With an empty path nothing is
// written. A failed write leaves the current model active.
func (s *ModelStore) Replace(model *ml.TrainedModel, metrics *ml.EvaluationMetrics, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if path != "" {
		if err := ml.WriteModelFile(path, model); err != nil {
			return err
		}
		s.path = path
	}
	s.swapLocked(model, metrics)
	return nil
}

func (s *ModelStore) swapLocked(model *ml.TrainedModel, metrics *ml.EvaluationMetrics) {
	s.model = model
	if metrics != nil {
		m := *metrics
		s.metrics = &m
	} else {
		s.metrics = nil
	}
	s.simStats = nil
	s.generation++

	log.Printf("ModelStore: Active model replaced (generation %d, %d features)", s.generation, len(model.Schema))
}

// Active returns a snapshot of the active model, or an UntrainedModel error
func (s *ModelStore) Active() (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.model == nil || !s.model.Trained {
		return Snapshot{}, ml.Errorf(ml.KindUntrainedModel, "get active model", "no trained model available, train a model first")
	}
	return Snapshot{Model: s.model, Metrics: s.metrics, Generation: s.generation}, nil
}

// HasModel reports whether a trained model is active
func (s *ModelStore) HasModel() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model != nil && s.model.Trained
}

// Load reads a persisted model from path into the active slot
func (s *ModelStore) Load(path string) error {
	model, err := ml.ReadModelFile(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.path = path
	s.swapLocked(model, nil)
	return nil
}

// Delete clears the slot and removes the persisted file. Deleting twice is not an error.
func (s *ModelStore) Delete() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.model = nil
	s.metrics = nil
	s.simStats = nil
	s.generation++

	if s.path != "" {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return ml.E(ml.KindIO, "delete model", fmt.Errorf("failed to remove model file: %w", err))
		}
	}

	log.Printf("ModelStore: Model deleted (generation %d)", s.generation)
	return nil
}

// Metrics returns the evaluation metrics of the active model, if any
func (s *ModelStore) Metrics() *ml.EvaluationMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.metrics == nil {
		return nil
	}
	m := *s.metrics
	return &m
}

// RecordSimulation stores the statistics of a completed run.
// It returns false and drops the stats when the model was replaced while the run was in flight.
func (s *ModelStore) RecordSimulation(generation uint64, stats models.SimulationStatistics) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		return false
	}
	s.simStats = &stats
	return true
}

// SimulationStats returns the most recent statistics, all-zero when no run completed
func (s *ModelStore) SimulationStats() models.SimulationStatistics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.simStats == nil {
		return models.SimulationStatistics{}
	}
	return *s.simStats
}
