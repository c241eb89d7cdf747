package mqtt

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"inspection-backend/internal/models"
)

// Subscriber receives live inspection samples and writes them to a channel
type Subscriber struct {
	client mqtt.Client

	// Output channel (written by subscriber, read by the live inspection service)
	SampleChan chan *models.InspectionSample

	sampleTopic string
}

// SubscriberConfig holds configuration for the MQTT subscriber
type SubscriberConfig struct {
	SampleTopic string // e.g., "inspection/+/sample"
}

// NewSubscriber creates a new MQTT subscriber
func NewSubscriber(client mqtt.Client, config SubscriberConfig, sampleChan chan *models.InspectionSample) *Subscriber {
	return &Subscriber{
		client:      client,
		SampleChan:  sampleChan,
		sampleTopic: config.SampleTopic,
	}
}

// SubscribeAll subscribes to all configured topics
func (s *Subscriber) SubscribeAll() error {
	if s.sampleTopic == "" {
		return nil
	}

	token := s.client.Subscribe(s.sampleTopic, 1, s.handleSample)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to sample topic: %w", token.Error())
	}
	log.Printf("Subscribed to sample topic: %s", s.sampleTopic)
	return nil
}

// handleSample parses a live sample and forwards it to the channel
func (s *Subscriber) handleSample(client mqtt.Client, msg mqtt.Message) {
	sample, err := parseSample(msg.Topic(), msg.Payload(), time.Now())
	if err != nil {
		log.Printf("Error parsing inspection sample: %v", err)
		return
	}

	select {
	case s.SampleChan <- sample:
	case <-time.After(1 * time.Second):
		log.Printf("Warning: Sample channel full, dropping sample %s from line %s", sample.SampleID, sample.LineID)
	}
}

// parseSample decodes a sample payload, filling the line ID from the topic
// and the timestamp from now when the payload leaves them out
func parseSample(topic string, payload []byte, now time.Time) (*models.InspectionSample, error) {
	var sample models.InspectionSample
	if err := json.Unmarshal(payload, &sample); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sample: %w", err)
	}

	if sample.LineID == "" {
		sample.LineID = extractLineID(topic)
	}
	if sample.LineID == "" {
		return nil, fmt.Errorf("could not extract line ID from topic: %s", topic)
	}
	if sample.Timestamp.IsZero() {
		sample.Timestamp = now
	}
	return &sample, nil
}

// extractLineID extracts the line ID from an MQTT topic
// Example: "inspection/line-7/sample" -> "line-7"
func extractLineID(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) >= 3 {
		return parts[1]
	}
	return ""
}
