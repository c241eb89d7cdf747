package services

import (
	"context"

	"inspection-backend/internal/models"
)

// Recorder appends inspection history to durable storage.
// Writes are best effort: failures are logged and never fail the calling operation.
type Recorder interface {
	SaveTrainingRun(ctx context.Context, run *models.TrainingRun) error
	SaveSimulationRecords(ctx context.Context, runID string, records []models.SimulationRecord) error
	SavePrediction(ctx context.Context, prediction *models.PredictionLog) error
}
