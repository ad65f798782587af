package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"location-tracking-core/internal/config"
	"location-tracking-core/internal/domain/geofence"
)

type Publisher struct {
	client *Client
	config *config.RabbitMQConfig
}

func NewPublisher(client *Client, config *config.RabbitMQConfig) *Publisher {
	return &Publisher{
		client: client,
		config: config,
	}
}

// Notification is the payload handed to the downstream push service. Data
// carries type-specific fields the mobile client renders.
type Notification struct {
	MessageID string                 `json:"message_id"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	UserID    string                 `json:"user_id"`
	Type      string                 `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

func (p *Publisher) PublishGeofenceEvent(ctx context.Context, userID string, e *geofence.Event, fenceName, message string) error {
	title := fmt.Sprintf("Entered %s", fenceName)
	if e.EventType == geofence.EventExit {
		title = fmt.Sprintf("Left %s", fenceName)
	}

	n := &Notification{
		UserID:  userID,
		Type:    "geofence_" + string(e.EventType),
		Title:   title,
		Message: message,
		Data: map[string]interface{}{
			"geofence_id": e.GeofenceID.String(),
			"device_id":   e.DeviceID,
			"event_type":  string(e.EventType),
			"latitude":    e.Latitude,
			"longitude":   e.Longitude,
			"timestamp":   e.Timestamp,
		},
	}

	return p.publishNotification(ctx, "notification.geofence", n)
}

func (p *Publisher) PublishDistanceAlert(ctx context.Context, userID, groupID, deviceID string, distanceKm float64) error {
	n := &Notification{
		UserID:  userID,
		Type:    "group_distance",
		Title:   "Group member far away",
		Message: fmt.Sprintf("A group member is %.1f km from the group", distanceKm),
		Data: map[string]interface{}{
			"group_id":    groupID,
			"device_id":   deviceID,
			"distance_km": distanceKm,
		},
	}

	return p.publishNotification(ctx, "notification.group_distance", n)
}

func (p *Publisher) PublishSpeedViolation(ctx context.Context, userID string, vehicleID uuid.UUID, speedKmh, limitKmh float64, severity string) error {
	n := &Notification{
		UserID:  userID,
		Type:    "speed_violation",
		Title:   "Speed limit exceeded",
		Message: fmt.Sprintf("Vehicle at %.0f km/h in a %.0f km/h zone", speedKmh, limitKmh),
		Data: map[string]interface{}{
			"vehicle_id":      vehicleID.String(),
			"speed_kmh":       speedKmh,
			"speed_limit_kmh": limitKmh,
			"severity":        severity,
		},
	}

	return p.publishNotification(ctx, "notification.speed", n)
}

func (p *Publisher) publishNotification(ctx context.Context, routingKey string, n *Notification) error {
	n.MessageID = uuid.New().String()
	n.Timestamp = time.Now()
	n.Source = "location-tracking-core"

	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	publishing := amqp.Publishing{
		ContentType:  "application/json",
		Body:         payload,
		DeliveryMode: amqp.Persistent,
		Timestamp:    n.Timestamp,
		MessageId:    n.MessageID,
	}

	if err := p.client.Publish(ctx, p.config.Exchange, routingKey, publishing); err != nil {
		log.Printf("Failed to publish to routing key %s: %v", routingKey, err)
		return err
	}

	return nil
}
