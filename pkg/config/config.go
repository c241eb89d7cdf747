package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"inspection-backend/internal/ml"
)

type Config struct {
	// HTTP Configuration
	HTTPAddr       string
	RequestTimeout time.Duration

	// ML Model Configuration
	ModelPath       string
	ModelParamsFile string
	ModelParams     ml.Hyperparameters

	// Simulation Configuration
	MaxSimulationSamples    int
	ExtendedInstrumentation bool

	// ClickHouse Configuration
	ClickHouseEnabled bool
	ClickHouseAddr    string
	ClickHouseDB      string
	ClickHouseUser    string
	ClickHousePass    string

	// MQTT Configuration
	MQTTEnabled  bool
	MQTTBroker   string
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string

	MQTTTopicSample     string
	MQTTTopicResult     string
	MQTTTopicSimulation string
	MQTTTopicStatus     string
}

// Load reads configuration from the environment (and a .env file if present).
// Hyperparameters from MODEL_PARAMS_FILE, when set, override the XGB_* variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	defaults := ml.DefaultHyperparameters()

	cfg := &Config{
		// HTTP Configuration
		HTTPAddr:       getEnv("HTTP_ADDR", ":8000"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT", 300)) * time.Second,

		// ML Model Configuration
		ModelPath:       getEnv("MODEL_PATH", "./data/trained_model.json"),
		ModelParamsFile: getEnv("MODEL_PARAMS_FILE", ""),
		ModelParams: ml.Hyperparameters{
			NEstimators:     getEnvInt("XGB_N_ESTIMATORS", defaults.NEstimators),
			MaxDepth:        getEnvInt("XGB_MAX_DEPTH", defaults.MaxDepth),
			LearningRate:    getEnvFloat("XGB_LEARNING_RATE", defaults.LearningRate),
			RandomState:     int64(getEnvInt("XGB_RANDOM_STATE", int(defaults.RandomState))),
			Subsample:       getEnvFloat("XGB_SUBSAMPLE", defaults.Subsample),
			ColsampleByTree: getEnvFloat("XGB_COLSAMPLE_BYTREE", defaults.ColsampleByTree),
			EvalMetric:      getEnv("XGB_EVAL_METRIC", defaults.EvalMetric),
			Lambda:          getEnvFloat("XGB_LAMBDA", defaults.Lambda),
			MinChildWeight:  getEnvFloat("XGB_MIN_CHILD_WEIGHT", defaults.MinChildWeight),
		},

		// Simulation Configuration
		MaxSimulationSamples:    getEnvInt("MAX_SIMULATION_SAMPLES", 10000),
		ExtendedInstrumentation: getEnvBool("EXTENDED_INSTRUMENTATION", false),

		// ClickHouse Configuration
		ClickHouseEnabled: getEnvBool("CLICKHOUSE_ENABLED", false),
		ClickHouseAddr:    getEnv("CLICKHOUSE_ADDR", "localhost:9000"),
		ClickHouseDB:      getEnv("CLICKHOUSE_DB", "inspection"),
		ClickHouseUser:    getEnv("CLICKHOUSE_USER", "default"),
		ClickHousePass:    getEnv("CLICKHOUSE_PASS", ""),

		// MQTT Configuration
		MQTTEnabled:  getEnvBool("MQTT_ENABLED", false),
		MQTTBroker:   getEnv("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTClientID: getEnv("MQTT_CLIENT_ID", "inspection-backend"),
		MQTTUsername: getEnv("MQTT_USERNAME", ""),
		MQTTPassword: getEnv("MQTT_PASSWORD", ""),

		MQTTTopicSample:     getEnv("MQTT_TOPIC_SAMPLE", "inspection/+/sample"),
		MQTTTopicResult:     getEnv("MQTT_TOPIC_RESULT", "inspection/{line_id}/result"),
		MQTTTopicSimulation: getEnv("MQTT_TOPIC_SIMULATION", "inspection/simulation/record"),
		MQTTTopicStatus:     getEnv("MQTT_TOPIC_STATUS", "inspection/backend/status"),
	}

	if cfg.ModelParamsFile != "" {
		if err := cfg.loadModelParams(cfg.ModelParamsFile); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// loadModelParams overlays hyperparameters from a YAML file.
// Keys absent from the file keep their current values.
func (c *Config) loadModelParams(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading model params file: %w", err)
	}

	if err := yaml.Unmarshal(data, &c.ModelParams); err != nil {
		return fmt.Errorf("error parsing model params file: %w", err)
	}

	log.Printf("Loaded model parameters from %s", path)
	return nil
}

// Validate checks ranges of all settings
func (c *Config) Validate() error {
	if err := c.ModelParams.Validate(); err != nil {
		return fmt.Errorf("model params: %w", err)
	}
	if c.HTTPAddr == "" {
		return fmt.Errorf("HTTP_ADDR is required")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	if c.MaxSimulationSamples <= 0 {
		return fmt.Errorf("MAX_SIMULATION_SAMPLES must be positive")
	}
	if c.ClickHouseEnabled && c.ClickHouseAddr == "" {
		return fmt.Errorf("CLICKHOUSE_ADDR is required when ClickHouse is enabled")
	}
	if c.MQTTEnabled && c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required when MQTT is enabled")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as int, using default: %v", key, err)
		return defaultValue
	}
	return intValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("Warning: failed to parse %s as float, using default: %v", key, err)
		return defaultValue
	}
	return floatValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as bool, using default: %v", key, err)
		return defaultValue
	}
	return boolValue
}
