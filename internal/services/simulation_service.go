package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"inspection-backend/internal/aggregator"
	"inspection-backend/internal/features"
	"inspection-backend/internal/ml"
	"inspection-backend/internal/models"
	"inspection-backend/internal/store"
)

// SimulationService replays ordered samples through the active model to mimic live inspection
type SimulationService struct {
	store       *store.ModelStore
	instruments *aggregator.Instruments
	recorder    Recorder
	maxSamples  int

	// Output channel for streaming records (nil disables streaming)
	RecordChan chan *models.SimulationRecord
}

// SimulationServiceConfig holds configuration for the simulation service
type SimulationServiceConfig struct {
	MaxSamples  int // 0 means unlimited
	Instruments aggregator.InstrumentConfig
}

// DefaultSimulationServiceConfig returns default configuration
func DefaultSimulationServiceConfig() SimulationServiceConfig {
	return SimulationServiceConfig{
		MaxSamples:  10000,
		Instruments: aggregator.DefaultInstrumentConfig(),
	}
}

// NewSimulationService creates a new simulation service. recorder may be nil.
func NewSimulationService(modelStore *store.ModelStore, recorder Recorder, config SimulationServiceConfig) *SimulationService {
	return NewSimulationServiceWithInstruments(modelStore, recorder, config.MaxSamples, aggregator.NewInstruments(config.Instruments))
}

// NewSimulationServiceWithInstruments creates a simulation service with a given instrument generator
func NewSimulationServiceWithInstruments(modelStore *store.ModelStore, recorder Recorder, maxSamples int, instruments *aggregator.Instruments) *SimulationService {
	return &SimulationService{
		store:       modelStore,
		instruments: instruments,
		recorder:    recorder,
		maxSamples:  maxSamples,
	}
}

// Run replays samples in order. Records keep the input order and the resulting
// statistics replace those of any earlier run.
func (s *SimulationService) Run(ctx context.Context, samples []models.SimulationSample) ([]models.SimulationRecord, models.SimulationStatistics, error) {
	const op = "run simulation"

	snap, err := s.store.Active()
	if err != nil {
		return nil, models.SimulationStatistics{}, err
	}
	if s.maxSamples > 0 && len(samples) > s.maxSamples {
		return nil, models.SimulationStatistics{}, ml.E(ml.KindValidation, op,
			fmt.Errorf("simulation has %d samples, limit is %d", len(samples), s.maxSamples))
	}

	log.Printf("SimulationService: Starting simulation with %d samples", len(samples))
	start := time.Now()

	agg := aggregator.NewStatsAggregator()
	records := make([]models.SimulationRecord, 0, len(samples))
	dropped := 0

	for _, sample := range samples {
		result := snap.Model.Predict(features.Validate(sample.Features))
		readings := s.instruments.Read()

		record := models.SimulationRecord{
			Timestamp:   sample.Timestamp,
			SampleID:    fmt.Sprintf("SAMPLE_%04d", sample.ID),
			Prediction:  result.Prediction,
			Confidence:  result.Confidence,
			Temperature: readings.Temperature,
			Pressure:    readings.Pressure,
			Humidity:    readings.Humidity,
			Vibration:   readings.Vibration,
			Voltage:     readings.Voltage,
			Current:     readings.Current,
		}

		records = append(records, record)
		agg.Add(record)
		if !s.publish(&records[len(records)-1]) {
			dropped++
		}
	}
	if dropped > 0 {
		log.Printf("SimulationService: Warning - record channel full, %d of %d records not streamed", dropped, len(records))
	}

	stats := agg.Snapshot()
	if !s.store.RecordSimulation(snap.Generation, stats) {
		log.Printf("SimulationService: Model replaced during simulation, statistics discarded")
	}

	log.Printf("SimulationService: Simulation completed in %v. Pass: %d, Fail: %d, Avg Confidence: %.3f",
		time.Since(start).Round(time.Millisecond), stats.PassCount, stats.FailCount, stats.AverageConfidence)

	if s.recorder != nil && len(records) > 0 {
		runID := uuid.NewString()
		if err := s.recorder.SaveSimulationRecords(ctx, runID, records); err != nil {
			log.Printf("SimulationService: Error saving simulation run %s: %v", runID, err)
		}
	}

	return records, stats, nil
}

// Stats returns the statistics of the most recent completed run
func (s *SimulationService) Stats() models.SimulationStatistics {
	return s.store.SimulationStats()
}

// publish streams a record without blocking. It reports false when the
// record was dropped because the channel is full.
func (s *SimulationService) publish(record *models.SimulationRecord) bool {
	if s.RecordChan == nil {
		return true
	}

	rec := *record
	select {
	case s.RecordChan <- &rec:
		return true
	default:
		return false
	}
}
