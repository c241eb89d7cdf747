package database

// SQL schemas for all ClickHouse tables

const (
	// TrainingRunsTableSQL creates the training_runs table
	TrainingRunsTableSQL = `
		CREATE TABLE IF NOT EXISTS training_runs (
			run_id String,
			timestamp DateTime64(3),
			training_samples UInt32,
			evaluation_samples UInt32,
			feature_count UInt32,
			accuracy Float64,
			precision Float64,
			recall Float64,
			f1_score Float64,
			true_positives UInt32,
			true_negatives UInt32,
			false_positives UInt32,
			false_negatives UInt32,
			eval_metric String,
			eval_metric_value Float64
		) ENGINE = MergeTree()
		ORDER BY timestamp
		PARTITION BY toYYYYMM(timestamp)
	`

	// SimulationRecordsTableSQL creates the simulation_records table
	SimulationRecordsTableSQL = `
		CREATE TABLE IF NOT EXISTS simulation_records (
			run_id String,
			seq UInt32,
			sample_timestamp String,
			sample_id String,
			prediction LowCardinality(String),
			confidence Float64,
			temperature Float64,
			pressure Float64,
			humidity Float64,
			vibration Nullable(Float64),
			voltage Nullable(Float64),
			current Nullable(Float64),
			recorded_at DateTime64(3)
		) ENGINE = MergeTree()
		ORDER BY (run_id, seq)
		PARTITION BY toYYYYMM(recorded_at)
	`

	// PredictionsTableSQL creates the predictions table
	PredictionsTableSQL = `
		CREATE TABLE IF NOT EXISTS predictions (
			timestamp DateTime64(3),
			source LowCardinality(String),
			line_id String,
			sample_id String,
			prediction LowCardinality(String),
			confidence Float64,
			pass_probability Float64
		) ENGINE = MergeTree()
		ORDER BY (line_id, timestamp)
		PARTITION BY toYYYYMM(timestamp)
	`
)

// InsertSimulationRecordsSQL is the batch insert for simulation_records
const InsertSimulationRecordsSQL = `
	INSERT INTO simulation_records (run_id, seq, sample_timestamp, sample_id, prediction, confidence,
		temperature, pressure, humidity, vibration, voltage, current, recorded_at)
`

// AllTables returns all table creation SQL statements
func AllTables() []string {
	return []string{
		TrainingRunsTableSQL,
		SimulationRecordsTableSQL,
		PredictionsTableSQL,
	}
}
