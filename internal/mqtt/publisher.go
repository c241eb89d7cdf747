package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"inspection-backend/internal/models"
)

// Publisher drains result and simulation-record channels onto MQTT topics
type Publisher struct {
	client mqtt.Client

	// Input channels (read by publisher). Either may be nil.
	ResultChan chan *models.InspectionResult
	RecordChan chan *models.SimulationRecord

	resultTopic     string // e.g., "inspection/{line_id}/result"
	simulationTopic string // e.g., "inspection/simulation/record"
	publishTimeout  time.Duration
}

// PublisherConfig holds configuration for the MQTT publisher
type PublisherConfig struct {
	ResultTopic     string
	SimulationTopic string
	PublishTimeout  time.Duration // defaults to 5s
}

// NewPublisher creates a new MQTT publisher
func NewPublisher(
	client mqtt.Client,
	config PublisherConfig,
	resultChan chan *models.InspectionResult,
	recordChan chan *models.SimulationRecord,
) *Publisher {
	if config.PublishTimeout <= 0 {
		config.PublishTimeout = 5 * time.Second
	}
	return &Publisher{
		client:          client,
		ResultChan:      resultChan,
		RecordChan:      recordChan,
		resultTopic:     config.ResultTopic,
		simulationTopic: config.SimulationTopic,
		publishTimeout:  config.PublishTimeout,
	}
}

// Start publishes from both channels until the context is cancelled or both channels close
func (p *Publisher) Start(ctx context.Context) {
	log.Println("MQTT Publisher: Starting...")

	results, records := p.ResultChan, p.RecordChan
	for results != nil || records != nil {
		select {
		case <-ctx.Done():
			log.Println("MQTT Publisher: Context cancelled, shutting down...")
			return

		case res, ok := <-results:
			if !ok {
				results = nil
				continue
			}
			if err := p.publishResult(res); err != nil {
				log.Printf("Error publishing inspection result: %v", err)
			}

		case rec, ok := <-records:
			if !ok {
				records = nil
				continue
			}
			if err := p.publishRecord(rec); err != nil {
				log.Printf("Error publishing simulation record: %v", err)
			}
		}
	}

	log.Println("MQTT Publisher: Input channels closed, shutting down...")
}

func (p *Publisher) publishResult(res *models.InspectionResult) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to marshal inspection result: %w", err)
	}
	return p.publish(formatTopic(p.resultTopic, res.LineID), payload)
}

func (p *Publisher) publishRecord(rec *models.SimulationRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal simulation record: %w", err)
	}
	return p.publish(p.simulationTopic, payload)
}

func (p *Publisher) publish(topic string, payload []byte) error {
	token := p.client.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(p.publishTimeout) {
		return fmt.Errorf("failed to publish to %s: timed out after %v", topic, p.publishTimeout)
	}
	if token.Error() != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, token.Error())
	}
	return nil
}

// formatTopic replaces the {line_id} placeholder with the actual line ID
func formatTopic(topicPattern, lineID string) string {
	return strings.ReplaceAll(topicPattern, "{line_id}", lineID)
}
