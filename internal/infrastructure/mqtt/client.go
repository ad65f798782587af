package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"location-tracking-core/internal/config"
	"location-tracking-core/internal/domain/location"
)

type MessageHandler func(payload []byte, topic string) error

type Client struct {
	client          mqtt.Client
	config          *config.MQTTConfig
	locationHandler MessageHandler
	connected       bool
}

func NewClient(config *config.MQTTConfig) *Client {
	return &Client{
		config:    config,
		connected: false,
	}
}

func (c *Client) Connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", c.config.Broker, c.config.Port))
	opts.SetClientID(c.config.ClientID)
	opts.SetUsername(c.config.Username)
	opts.SetPassword(c.config.Password)
	opts.SetCleanSession(c.config.CleanSession)
	opts.SetKeepAlive(c.config.KeepAlive)
	opts.SetConnectTimeout(c.config.ConnectTimeout)
	opts.SetAutoReconnect(c.config.AutoReconnect)
	opts.SetMaxReconnectInterval(c.config.MaxReconnectDelay)

	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Printf("Connection lost: %v", err)
		c.connected = false
	})

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		log.Println("MQTT connected successfully")
		c.connected = true

		if err := c.subscribe(); err != nil {
			log.Printf("Failed to subscribe on reconnect: %v", err)
		}
	})

	c.client = mqtt.NewClient(opts)

	token := c.client.Connect()
	if !token.WaitTimeout(c.config.ConnectTimeout) {
		return fmt.Errorf("connection timeout")
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	log.Printf("Connected to MQTT broker at %s:%d", c.config.Broker, c.config.Port)

	return c.subscribe()
}

func (c *Client) subscribe() error {
	token := c.client.Subscribe(c.config.LocationTopic, byte(c.config.QoS), c.locationMessageHandler)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("location subscription timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to subscribe to locations: %w", err)
	}
	log.Printf("Subscribed to location topic: %s", c.config.LocationTopic)

	return nil
}

func (c *Client) locationMessageHandler(client mqtt.Client, msg mqtt.Message) {
	if c.locationHandler != nil {
		if err := c.locationHandler(msg.Payload(), msg.Topic()); err != nil {
			log.Printf("Error handling location message: %v", err)
		}
	}
}

func (c *Client) SetLocationHandler(handler MessageHandler) {
	c.locationHandler = handler
}

func (c *Client) Publish(topic string, payload interface{}) error {
	if !c.connected {
		return fmt.Errorf("mqtt client not connected")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	token := c.client.Publish(topic, byte(c.config.QoS), false, data)
	if !token.WaitTimeout(c.config.ConnectTimeout) {
		return fmt.Errorf("connection timeout")
	}

	return token.Error()
}

func (c *Client) Disconnect() {
	if c.client != nil && c.client.IsConnected() {
		c.client.Disconnect(250)
		log.Println("MQTT client disconnected")
	}
}

func (c *Client) IsConnected() bool {
	return c.connected && c.client != nil && c.client.IsConnected()
}

// ParseLocationPayload decodes a location message. The device ID comes from
// the topic (device/{id}/location); a device_id in the body, if present,
// must match.
func ParseLocationPayload(payload []byte, topic string) (*location.IngestRequest, error) {
	var req location.IngestRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	topicDevice := deviceFromTopic(topic)
	if topicDevice == "" {
		return nil, fmt.Errorf("topic %q carries no device id", topic)
	}

	if req.DeviceID != "" && req.DeviceID != topicDevice {
		return nil, fmt.Errorf("device_id %q does not match topic device %q", req.DeviceID, topicDevice)
	}
	req.DeviceID = topicDevice

	return &req, nil
}

func deviceFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 || parts[0] != "device" {
		return ""
	}
	return parts[1]
}
