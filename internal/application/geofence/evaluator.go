package geofence

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"location-tracking-core/internal/domain/geofence"
	"location-tracking-core/internal/domain/location"
	"location-tracking-core/internal/infrastructure/redis"
	"location-tracking-core/internal/infrastructure/storage"
	"location-tracking-core/internal/worker"
	"location-tracking-core/pkg/geo"
)

// Notifier is the push-delivery collaborator. Delivery failure never fails
// the evaluation that triggered it.
type Notifier interface {
	PublishGeofenceEvent(ctx context.Context, userID string, e *geofence.Event, fenceName, message string) error
}

// Evaluator tests each accepted sample against the geofences visible to its
// device and appends enter/exit events on boundary crossings. Membership
// state lives in memory per (device, geofence); a device starts outside, so
// the first sample inside a fence fires a single enter.
type Evaluator struct {
	fences   storage.GeofenceRepository
	notifier Notifier
	pubsub   *redis.PubSub

	mu     sync.Mutex
	inside map[string]map[uuid.UUID]bool
}

// NewEvaluator builds the fan-out handler. notifier and pubsub may be nil;
// events are then only appended to the log.
func NewEvaluator(fences storage.GeofenceRepository, notifier Notifier, pubsub *redis.PubSub) *Evaluator {
	return &Evaluator{
		fences:   fences,
		notifier: notifier,
		pubsub:   pubsub,
		inside:   make(map[string]map[uuid.UUID]bool),
	}
}

func (e *Evaluator) Name() string { return "geofence" }

func (e *Evaluator) Handle(ctx context.Context, job worker.Job) error {
	fences, err := e.fences.ListEnabled(ctx, job.OwnerID, job.Sample.DeviceID)
	if err != nil {
		return fmt.Errorf("list enabled geofences failed: %w", err)
	}

	for i := range fences {
		e.evaluate(ctx, job, &fences[i])
	}
	return nil
}

// Contains reports whether the sample lies within the fence radius.
func Contains(s *location.Sample, f *geofence.Geofence) bool {
	dist := geo.HaversineM(s.Coords.Latitude, s.Coords.Longitude, f.Latitude, f.Longitude)
	return dist <= f.RadiusM
}

func (e *Evaluator) evaluate(ctx context.Context, job worker.Job, f *geofence.Geofence) {
	inside := Contains(job.Sample, f)

	e.mu.Lock()
	dev, ok := e.inside[job.Sample.DeviceID]
	if !ok {
		dev = make(map[uuid.UUID]bool)
		e.inside[job.Sample.DeviceID] = dev
	}
	prev := dev[f.ID]
	dev[f.ID] = inside
	e.mu.Unlock()

	// A transition fires once per boundary crossing, never per sample.
	if prev == inside {
		return
	}

	eventType := geofence.EventEnter
	if !inside {
		eventType = geofence.EventExit
	}

	event := &geofence.Event{
		ID:         uuid.New(),
		GeofenceID: f.ID,
		DeviceID:   job.Sample.DeviceID,
		EventType:  eventType,
		Latitude:   job.Sample.Coords.Latitude,
		Longitude:  job.Sample.Coords.Longitude,
		Timestamp:  job.Sample.Timestamp,
	}

	if err := e.fences.InsertEvent(ctx, event); err != nil {
		log.Printf("Failed to append geofence event for device %s: %v", event.DeviceID, err)
		return
	}

	e.notify(ctx, job.OwnerID, f, event)
}

func (e *Evaluator) notify(ctx context.Context, ownerID string, f *geofence.Geofence, event *geofence.Event) {
	wanted := f.NotifyOnEnter
	message := f.EnterMessage
	if event.EventType == geofence.EventExit {
		wanted = f.NotifyOnExit
		message = f.ExitMessage
	}
	if !wanted {
		return
	}

	text := fmt.Sprintf("Device %s %sed %s", event.DeviceID, event.EventType, f.Name)
	if message != nil && *message != "" {
		text = *message
	}

	if e.notifier != nil {
		if err := e.notifier.PublishGeofenceEvent(ctx, ownerID, event, f.Name, text); err != nil {
			log.Printf("Failed to publish geofence notification: %v", err)
		}
	}

	if e.pubsub != nil {
		alert := &redis.GeofenceAlert{
			DeviceID:   event.DeviceID,
			GeofenceID: event.GeofenceID.String(),
			EventType:  string(event.EventType),
			Message:    text,
			Latitude:   event.Latitude,
			Longitude:  event.Longitude,
			Timestamp:  event.Timestamp,
		}
		if err := e.pubsub.PublishGeofenceAlert(ctx, alert); err != nil {
			log.Printf("Failed to publish geofence alert: %v", err)
		}
	}
}
