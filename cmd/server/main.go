package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"inspection-backend/internal/aggregator"
	"inspection-backend/internal/api"
	"inspection-backend/internal/database"
	"inspection-backend/internal/ml"
	"inspection-backend/internal/models"
	"inspection-backend/internal/mqtt"
	"inspection-backend/internal/services"
	"inspection-backend/internal/store"
	"inspection-backend/pkg/config"
)

func main() {
	log.Println("Starting Inspection Backend Service...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// === Initialize ClickHouse history (optional) ===
	var recorder services.Recorder
	if cfg.ClickHouseEnabled {
		db, err := database.NewClickHouseDB(
			cfg.ClickHouseAddr,
			cfg.ClickHouseDB,
			cfg.ClickHouseUser,
			cfg.ClickHousePass,
		)
		if err != nil {
			log.Printf("Warning: failed to initialize ClickHouse: %v", err)
			log.Println("Inspection history will not be recorded")
		} else {
			defer db.Close()
			recorder = db
		}
	}

	// === Initialize ML core ===
	log.Println("Initializing model trainer...")
	trainer, err := ml.NewTrainer(cfg.ModelParams)
	if err != nil {
		log.Fatalf("Failed to create trainer: %v", err)
	}

	modelStore := store.NewModelStore(cfg.ModelPath)

	inspectionService := services.NewInspectionService(trainer, modelStore, recorder, services.InspectionServiceConfig{
		ModelPath: cfg.ModelPath,
	})

	if err := inspectionService.LoadPersisted(); err != nil {
		if errors.Is(err, ml.ErrNotFound) {
			log.Printf("No persisted model at %s, waiting for training", cfg.ModelPath)
		} else {
			log.Printf("Warning: failed to load persisted model: %v", err)
		}
	}

	simConfig := services.DefaultSimulationServiceConfig()
	simConfig.MaxSamples = cfg.MaxSimulationSamples
	simConfig.Instruments.Extended = cfg.ExtendedInstrumentation
	simulationService := services.NewSimulationService(modelStore, recorder, simConfig)

	// === Initialize MQTT layer (optional) ===
	if cfg.MQTTEnabled {
		startMQTT(ctx, cfg, inspectionService, simulationService)
	}

	// === Initialize HTTP server ===
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	handler := api.NewHandler(inspectionService, simulationService)
	handler.RegisterRoutes(router)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.RequestTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// === Log startup info ===
	log.Println("=== Inspection Backend Service is running ===")
	log.Printf("Model path: %s", cfg.ModelPath)
	log.Printf("Hyperparameters: n_estimators=%d max_depth=%d learning_rate=%.3f eval_metric=%s",
		cfg.ModelParams.NEstimators, cfg.ModelParams.MaxDepth, cfg.ModelParams.LearningRate, cfg.ModelParams.EvalMetric)
	log.Printf("Instruments: %s", aggregatorMode(simConfig.Instruments))
	log.Println("Press Ctrl+C to exit...")

	// === Wait for interrupt signal ===
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// === Graceful shutdown ===
	log.Println("Shutdown signal received, stopping services...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Shutdown complete. Goodbye!")
}

// startMQTT connects to the broker and wires live inspection and simulation streaming
func startMQTT(ctx context.Context, cfg *config.Config, inspection *services.InspectionService, simulation *services.SimulationService) {
	log.Println("Connecting to MQTT broker...")
	mqttClient, err := mqtt.NewClient(mqtt.ClientConfig{
		Broker:      cfg.MQTTBroker,
		ClientID:    cfg.MQTTClientID,
		Username:    cfg.MQTTUsername,
		Password:    cfg.MQTTPassword,
		StatusTopic: cfg.MQTTTopicStatus,
	})
	if err != nil {
		log.Printf("Warning: failed to initialize MQTT client: %v", err)
		log.Println("Live inspection over MQTT is disabled")
		return
	}
	go func() {
		<-ctx.Done()
		mqttClient.Close()
	}()

	// === Channel Creation ===
	liveService := services.NewLiveInspectionService(inspection, services.DefaultLiveInspectionServiceConfig())
	recordChan := make(chan *models.SimulationRecord, 100)
	simulation.RecordChan = recordChan

	// === MQTT Subscriber ===
	subscriber := mqtt.NewSubscriber(
		mqttClient.GetNativeClient(),
		mqtt.SubscriberConfig{SampleTopic: cfg.MQTTTopicSample},
		liveService.SampleChan,
	)
	if err := subscriber.SubscribeAll(); err != nil {
		log.Printf("Warning: failed to subscribe to MQTT topics: %v", err)
	}
	mqttClient.OnConnect(subscriber.SubscribeAll)

	// === MQTT Publisher ===
	publisher := mqtt.NewPublisher(
		mqttClient.GetNativeClient(),
		mqtt.PublisherConfig{
			ResultTopic:     cfg.MQTTTopicResult,
			SimulationTopic: cfg.MQTTTopicSimulation,
		},
		liveService.ResultChan,
		recordChan,
	)

	go publisher.Start(ctx)
	go liveService.Start(ctx)

	log.Printf("MQTT Topics:")
	log.Printf("  - Samples:    %s", cfg.MQTTTopicSample)
	log.Printf("  - Results:    %s", cfg.MQTTTopicResult)
	log.Printf("  - Simulation: %s", cfg.MQTTTopicSimulation)
	log.Printf("  - Status:     %s", cfg.MQTTTopicStatus)
}

func aggregatorMode(cfg aggregator.InstrumentConfig) string {
	if cfg.Extended {
		return "temperature, pressure, humidity, vibration, voltage, current"
	}
	return "temperature, pressure, humidity"
}
