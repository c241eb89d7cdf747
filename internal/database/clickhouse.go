package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"inspection-backend/internal/models"
)

// ClickHouseDB stores inspection history
type ClickHouseDB struct {
	conn driver.Conn
}

// NewClickHouseDB creates a new ClickHouse database connection
func NewClickHouseDB(addr, database, username, password string) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	log.Printf("Connected to ClickHouse at %s", addr)

	db := &ClickHouseDB{conn: conn}

	if err := db.InitSchema(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// InitSchema creates the necessary tables if they don't exist
func (db *ClickHouseDB) InitSchema(ctx context.Context) error {
	for _, tableSQL := range AllTables() {
		if err := db.conn.Exec(ctx, tableSQL); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	log.Println("Database schema initialized successfully")
	return nil
}

// SaveTrainingRun records the outcome of a training call
func (db *ClickHouseDB) SaveTrainingRun(ctx context.Context, run *models.TrainingRun) error {
	query := `
		INSERT INTO training_runs (run_id, timestamp, training_samples, evaluation_samples, feature_count,
			accuracy, precision, recall, f1_score,
			true_positives, true_negatives, false_positives, false_negatives,
			eval_metric, eval_metric_value)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := db.conn.Exec(ctx, query,
		run.RunID,
		run.Timestamp,
		uint32(run.TrainingSamples),
		uint32(run.EvaluationSamples),
		uint32(run.FeatureCount),
		run.Accuracy,
		run.Precision,
		run.Recall,
		run.F1Score,
		uint32(run.TruePositives),
		uint32(run.TrueNegatives),
		uint32(run.FalsePositives),
		uint32(run.FalseNegatives),
		run.EvalMetric,
		run.EvalMetricValue,
	)
	if err != nil {
		return fmt.Errorf("failed to insert training run: %w", err)
	}

	log.Printf("Saved training run to ClickHouse: RunID=%s, Accuracy=%.3f", run.RunID, run.Accuracy)
	return nil
}

// SaveSimulationRecords writes all records of one simulation run in a single batch
func (db *ClickHouseDB) SaveSimulationRecords(ctx context.Context, runID string, records []models.SimulationRecord) error {
	batch, err := db.conn.PrepareBatch(ctx, InsertSimulationRecordsSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare simulation batch: %w", err)
	}

	now := time.Now()
	for i, rec := range records {
		if err := batch.Append(
			runID,
			uint32(i),
			rec.Timestamp,
			rec.SampleID,
			rec.Prediction,
			rec.Confidence,
			rec.Temperature,
			rec.Pressure,
			rec.Humidity,
			rec.Vibration,
			rec.Voltage,
			rec.Current,
			now,
		); err != nil {
			return fmt.Errorf("failed to append simulation record %s: %w", rec.SampleID, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to insert simulation records: %w", err)
	}

	log.Printf("Saved %d simulation records to ClickHouse: RunID=%s", len(records), runID)
	return nil
}

// SavePrediction records a single or live prediction
func (db *ClickHouseDB) SavePrediction(ctx context.Context, prediction *models.PredictionLog) error {
	query := `
		INSERT INTO predictions (timestamp, source, line_id, sample_id, prediction, confidence, pass_probability)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	err := db.conn.Exec(ctx, query,
		prediction.Timestamp,
		prediction.Source,
		prediction.LineID,
		prediction.SampleID,
		prediction.Prediction,
		prediction.Confidence,
		prediction.PassProbability,
	)
	if err != nil {
		return fmt.Errorf("failed to insert prediction: %w", err)
	}

	return nil
}

// Close closes the ClickHouse connection
func (db *ClickHouseDB) Close() error {
	if db.conn != nil {
		if err := db.conn.Close(); err != nil {
			return fmt.Errorf("failed to close ClickHouse connection: %w", err)
		}
		log.Println("ClickHouse connection closed")
	}
	return nil
}
