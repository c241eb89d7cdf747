package mqtt

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inspection-backend/internal/models"
)

type doneToken struct{}

func (doneToken) Wait() bool                     { return true }
func (doneToken) WaitTimeout(time.Duration) bool { return true }
func (doneToken) Done() <-chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}
func (doneToken) Error() error { return nil }

// pendingToken never completes, like a QoS1 publish queued while the broker is away
type pendingToken struct{ doneToken }

func (pendingToken) Wait() bool {
	select {}
}

func (pendingToken) WaitTimeout(d time.Duration) bool {
	time.Sleep(d)
	return false
}

type stalledClient struct {
	mqtt.Client
}

func (stalledClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	return pendingToken{}
}

// fakeClient records publications; other methods are unused
type fakeClient struct {
	mqtt.Client

	mu        sync.Mutex
	published map[string][][]byte
}

func (f *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.published == nil {
		f.published = make(map[string][][]byte)
	}
	f.published[topic] = append(f.published[topic], payload.([]byte))
	return doneToken{}
}

func (f *fakeClient) count(topic string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published[topic])
}

type fakeMessage struct {
	mqtt.Message
	topic   string
	payload []byte
}

func (m fakeMessage) Topic() string   { return m.topic }
func (m fakeMessage) Payload() []byte { return m.payload }

func TestExtractLineID(t *testing.T) {
	assert.Equal(t, "line-7", extractLineID("inspection/line-7/sample"))
	assert.Equal(t, "", extractLineID("inspection/sample"))
}

func TestFormatTopic(t *testing.T) {
	assert.Equal(t, "inspection/line-3/result", formatTopic("inspection/{line_id}/result", "line-3"))
	assert.Equal(t, "static/topic", formatTopic("static/topic", "line-3"))
}

func TestParseSample(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	sample, err := parseSample("inspection/line-2/sample", []byte(`{"sample_id":"S9","features":{"b":1,"a":2}}`), now)
	require.NoError(t, err)
	assert.Equal(t, "line-2", sample.LineID)
	assert.Equal(t, "S9", sample.SampleID)
	assert.Equal(t, now, sample.Timestamp)
	require.Len(t, sample.Features, 2)
	assert.Equal(t, "b", sample.Features[0].Name)

	sample, err = parseSample("other", []byte(`{"line_id":"line-9","timestamp":"2024-01-01T00:00:00Z"}`), now)
	require.NoError(t, err)
	assert.Equal(t, "line-9", sample.LineID)
	assert.Equal(t, 2024, sample.Timestamp.Year())
	assert.Equal(t, time.January, sample.Timestamp.Month())

	_, err = parseSample("other", []byte(`{}`), now)
	assert.Error(t, err)

	_, err = parseSample("inspection/line-1/sample", []byte(`not json`), now)
	assert.Error(t, err)
}

func TestSubscriberForwardsSamples(t *testing.T) {
	sampleChan := make(chan *models.InspectionSample, 1)
	sub := NewSubscriber(&fakeClient{}, SubscriberConfig{SampleTopic: "inspection/+/sample"}, sampleChan)

	sub.handleSample(nil, fakeMessage{topic: "inspection/line-4/sample", payload: []byte(`{"sample_id":"A"}`)})

	select {
	case s := <-sampleChan:
		assert.Equal(t, "line-4", s.LineID)
		assert.Equal(t, "A", s.SampleID)
	default:
		t.Fatal("sample not forwarded")
	}
}

func TestPublisherRoutesMessages(t *testing.T) {
	client := &fakeClient{}
	results := make(chan *models.InspectionResult, 2)
	records := make(chan *models.SimulationRecord, 2)

	pub := NewPublisher(client, PublisherConfig{
		ResultTopic:     "inspection/{line_id}/result",
		SimulationTopic: "inspection/simulation/record",
	}, results, records)

	results <- &models.InspectionResult{LineID: "line-5", SampleID: "S1", Prediction: models.LabelPass, Confidence: 0.9}
	records <- &models.SimulationRecord{SampleID: "SAMPLE_0001", Prediction: models.LabelFail, Confidence: 0.7}
	close(results)
	close(records)

	done := make(chan struct{})
	go func() {
		pub.Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher did not stop after channels closed")
	}

	assert.Equal(t, 1, client.count("inspection/line-5/result"))
	require.Equal(t, 1, client.count("inspection/simulation/record"))

	var rec models.SimulationRecord
	require.NoError(t, json.Unmarshal(client.published["inspection/simulation/record"][0], &rec))
	assert.Equal(t, "SAMPLE_0001", rec.SampleID)
}

func TestPublishTimesOutWhenBrokerStalls(t *testing.T) {
	pub := NewPublisher(stalledClient{}, PublisherConfig{
		SimulationTopic: "inspection/simulation/record",
		PublishTimeout:  20 * time.Millisecond,
	}, nil, nil)

	start := time.Now()
	err := pub.publishRecord(&models.SimulationRecord{SampleID: "SAMPLE_0001"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
	assert.Less(t, time.Since(start), time.Second)
}

func TestNewPublisherDefaultsTimeout(t *testing.T) {
	pub := NewPublisher(&fakeClient{}, PublisherConfig{}, nil, nil)
	assert.Equal(t, 5*time.Second, pub.publishTimeout)
}
