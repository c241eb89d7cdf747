package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Status payloads published on the retained status topic
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Client owns the broker connection shared by Subscriber and Publisher.
// It announces backend availability on a retained status topic and replays
// registered subscriptions after an automatic reconnect.
type Client struct {
	client mqtt.Client
	config ClientConfig

	mu        sync.Mutex
	onConnect []func() error
}

// ClientConfig holds MQTT client configuration
type ClientConfig struct {
	Broker         string
	ClientID       string
	Username       string
	Password       string
	StatusTopic    string // empty disables the online/offline announcement
	ConnectTimeout time.Duration
}

// NewClient connects to the broker
func NewClient(config ClientConfig) (*Client, error) {
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = 10 * time.Second
	}

	c := &Client{config: config}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	opts.SetUsername(config.Username)
	opts.SetPassword(config.Password)
	opts.SetOnConnectHandler(c.handleConnect)
	opts.SetConnectionLostHandler(connectLostHandler)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectTimeout(config.ConnectTimeout)
	if config.StatusTopic != "" {
		opts.SetWill(config.StatusTopic, StatusOffline, 1, true)
	}

	c.client = mqtt.NewClient(opts)

	token := c.client.Connect()
	if !token.WaitTimeout(config.ConnectTimeout) {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: timed out after %v", config.Broker, config.ConnectTimeout)
	}
	if token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	log.Println("MQTT Client: Connected to broker:", config.Broker)
	return c, nil
}

// OnConnect registers fn to run after every reconnect.
// Subscriptions are lost when the broker drops a clean session, so subscribers register here.
func (c *Client) OnConnect(fn func() error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onConnect = append(c.onConnect, fn)
}

func (c *Client) handleConnect(client mqtt.Client) {
	log.Println("MQTT: Connection established")

	if c.config.StatusTopic != "" {
		token := client.Publish(c.config.StatusTopic, 1, true, StatusOnline)
		if token.WaitTimeout(5*time.Second) && token.Error() != nil {
			log.Printf("MQTT: Failed to publish status: %v", token.Error())
		}
	}

	c.mu.Lock()
	hooks := append([]func() error(nil), c.onConnect...)
	c.mu.Unlock()

	for _, fn := range hooks {
		if err := fn(); err != nil {
			log.Printf("MQTT: Resubscribe failed: %v", err)
		}
	}
}

// GetNativeClient returns the underlying paho client
func (c *Client) GetNativeClient() mqtt.Client {
	return c.client
}

// IsConnected returns whether the client is currently connected
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

// Close announces the backend offline and disconnects from the broker
func (c *Client) Close() {
	if c.config.StatusTopic != "" && c.client.IsConnected() {
		c.client.Publish(c.config.StatusTopic, 1, true, StatusOffline).WaitTimeout(time.Second)
	}
	c.client.Disconnect(250)
	log.Println("MQTT Client: Disconnected")
}

var connectLostHandler mqtt.ConnectionLostHandler = func(client mqtt.Client, err error) {
	log.Printf("MQTT: Connection lost: %v", err)
}
