package services

import (
	"context"
	"errors"
	"log"
	"time"

	"inspection-backend/internal/ml"
	"inspection-backend/internal/models"
)

// LivePredictor classifies samples arriving from production lines
type LivePredictor interface {
	PredictLive(ctx context.Context, sample *models.InspectionSample) (*models.InspectionResult, error)
}

// LiveInspectionService consumes live samples from the MQTT layer, classifies
// them and hands results to the publisher
type LiveInspectionService struct {
	predictor LivePredictor

	// Input channel from MQTT subscriber
	SampleChan chan *models.InspectionSample

	// Output channel to MQTT publisher
	ResultChan chan *models.InspectionResult
}

// LiveInspectionServiceConfig holds configuration for the live inspection service
type LiveInspectionServiceConfig struct {
	SampleChannelSize int
	ResultChannelSize int
}

// DefaultLiveInspectionServiceConfig returns default configuration
func DefaultLiveInspectionServiceConfig() LiveInspectionServiceConfig {
	return LiveInspectionServiceConfig{
		SampleChannelSize: 100,
		ResultChannelSize: 100,
	}
}

// NewLiveInspectionService creates a new live inspection service
func NewLiveInspectionService(predictor LivePredictor, config LiveInspectionServiceConfig) *LiveInspectionService {
	return &LiveInspectionService{
		predictor:  predictor,
		SampleChan: make(chan *models.InspectionSample, config.SampleChannelSize),
		ResultChan: make(chan *models.InspectionResult, config.ResultChannelSize),
	}
}

// Start processes samples until the context is cancelled or the input channel closes
func (s *LiveInspectionService) Start(ctx context.Context) {
	log.Println("LiveInspectionService: Starting...")

	for {
		select {
		case <-ctx.Done():
			log.Println("LiveInspectionService: Shutting down...")
			return
		case sample, ok := <-s.SampleChan:
			if !ok {
				log.Println("LiveInspectionService: Sample channel closed, shutting down...")
				return
			}
			s.process(ctx, sample)
		}
	}
}

// process handles a single live sample
func (s *LiveInspectionService) process(ctx context.Context, sample *models.InspectionSample) {
	result, err := s.predictor.PredictLive(ctx, sample)
	if err != nil {
		if errors.Is(err, ml.ErrUntrainedModel) {
			log.Printf("LiveInspectionService: No trained model, skipping sample %s from line %s", sample.SampleID, sample.LineID)
			return
		}
		log.Printf("LiveInspectionService: Error predicting sample %s: %v", sample.SampleID, err)
		return
	}

	log.Printf("LiveInspectionService: Line %s sample %s -> %s (confidence=%.3f)",
		result.LineID, result.SampleID, result.Prediction, result.Confidence)

	select {
	case s.ResultChan <- result:
	case <-time.After(1 * time.Second):
		log.Printf("LiveInspectionService: Warning - result channel full, dropping result for %s", result.SampleID)
	}
}
