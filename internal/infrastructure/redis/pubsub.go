package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"location-tracking-core/internal/domain/location"
)

const (
	channelLocationUpdates = "location:updates"
	channelGeofenceAlerts  = "geofence:alerts"
)

type PubSub struct {
	client *Client
}

func NewPubSub(client *Client) *PubSub {
	return &PubSub{client: client}
}

type LocationUpdate struct {
	DeviceID string          `json:"device_id"`
	Sample   location.Sample `json:"sample"`
	Activity string          `json:"activity,omitempty"`
}

type GeofenceAlert struct {
	DeviceID   string  `json:"device_id"`
	GeofenceID string  `json:"geofence_id"`
	EventType  string  `json:"event_type"`
	Message    string  `json:"message,omitempty"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Timestamp  int64   `json:"timestamp"`
}

func (ps *PubSub) PublishLocationUpdate(ctx context.Context, update *LocationUpdate) error {
	data, err := json.Marshal(update)
	if err != nil {
		return err
	}

	return ps.client.Client().Publish(ctx, channelLocationUpdates, data).Err()
}

func (ps *PubSub) PublishGeofenceAlert(ctx context.Context, alert *GeofenceAlert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return err
	}

	return ps.client.Client().Publish(ctx, channelGeofenceAlerts, data).Err()
}

func (ps *PubSub) SubscribeLocationUpdates(ctx context.Context, handler func(update *LocationUpdate)) error {
	go func() {
		if err := ps.subscribe(ctx, channelLocationUpdates, func(msg *redis.Message) {
			var update LocationUpdate
			if err := json.Unmarshal([]byte(msg.Payload), &update); err != nil {
				log.Printf("Failed to unmarshal location update: %v", err)
				return
			}
			handler(&update)
		}); err != nil && ctx.Err() == nil {
			log.Printf("Location subscription stopped: %v", err)
		}
	}()

	return nil
}

func (ps *PubSub) SubscribeGeofenceAlerts(ctx context.Context, handler func(*GeofenceAlert)) error {
	go func() {
		if err := ps.subscribe(ctx, channelGeofenceAlerts, func(msg *redis.Message) {
			var alert GeofenceAlert
			if err := json.Unmarshal([]byte(msg.Payload), &alert); err != nil {
				log.Printf("Failed to unmarshal geofence alert: %v", err)
				return
			}
			handler(&alert)
		}); err != nil && ctx.Err() == nil {
			log.Printf("Geofence alert subscription stopped: %v", err)
		}
	}()

	return nil
}

func (ps *PubSub) subscribe(ctx context.Context, channel string, handler func(message *redis.Message)) error {
	pubsub := ps.client.Client().Subscribe(ctx, channel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("channel closed")
			}
			if msg == nil {
				continue
			}

			func() {
				defer func() {
					if r := recover(); r != nil {
						log.Printf("Panic in handler: %v", r)
					}
				}()
				handler(msg)
			}()
		}
	}
}
