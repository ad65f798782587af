// Package group implements cross-device group features: the distance
// watchdog running on the ingestion fan-out and bulk latest-location reads.
package group

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"location-tracking-core/internal/domain/location"
	"location-tracking-core/internal/infrastructure/storage"
	"location-tracking-core/internal/worker"
	"location-tracking-core/pkg/geo"
)

const (
	// distanceThresholdKm is the separation beyond which a member counts as
	// away from the group.
	distanceThresholdKm = 30.0

	// alertCooldown suppresses repeat alerts for the same (group, device)
	// while the member stays far away.
	alertCooldown = 30 * time.Minute
)

// Notifier is the push-delivery collaborator for distance alerts.
type Notifier interface {
	PublishDistanceAlert(ctx context.Context, userID, groupID, deviceID string, distanceKm float64) error
}

// LastLocator returns the newest known position of a device, or nil when the
// device has never reported.
type LastLocator interface {
	Latest(ctx context.Context, deviceID string) (*location.Sample, error)
}

// Watchdog compares each accepted sample against fellow group members'
// last-known positions and raises an alert when someone drifts beyond the
// distance threshold. Alert failures are logged, never propagated.
type Watchdog struct {
	groups   storage.GroupRepository
	locator  LastLocator
	notifier Notifier

	mu       sync.Mutex
	lastSent map[string]time.Time // "groupID:deviceID"
}

func NewWatchdog(groups storage.GroupRepository, locator LastLocator, notifier Notifier) *Watchdog {
	return &Watchdog{
		groups:   groups,
		locator:  locator,
		notifier: notifier,
		lastSent: make(map[string]time.Time),
	}
}

func (w *Watchdog) Name() string { return "group-watchdog" }

func (w *Watchdog) Handle(ctx context.Context, job worker.Job) error {
	groups, err := w.groups.GroupsForDevice(ctx, job.Sample.DeviceID)
	if err != nil {
		return fmt.Errorf("list groups for device failed: %w", err)
	}

	for _, g := range groups {
		w.checkGroup(ctx, job, g.ID, g.OwnerID)
	}
	return nil
}

func (w *Watchdog) checkGroup(ctx context.Context, job worker.Job, groupID, ownerID string) {
	members, err := w.groups.ListMembers(ctx, groupID)
	if err != nil {
		log.Printf("Failed to list members of group %s: %v", groupID, err)
		return
	}

	sample := job.Sample
	for _, m := range members {
		if m.DeviceID == sample.DeviceID {
			continue
		}

		peer, err := w.locator.Latest(ctx, m.DeviceID)
		if err != nil {
			log.Printf("Failed to read last location of device %s: %v", m.DeviceID, err)
			continue
		}
		if peer == nil {
			continue
		}

		dist := geo.HaversineKm(
			sample.Coords.Latitude, sample.Coords.Longitude,
			peer.Coords.Latitude, peer.Coords.Longitude,
		)
		if dist <= distanceThresholdKm {
			continue
		}

		if !w.shouldAlert(groupID, sample.DeviceID) {
			continue
		}

		if w.notifier != nil {
			if err := w.notifier.PublishDistanceAlert(ctx, ownerID, groupID, sample.DeviceID, dist); err != nil {
				log.Printf("Failed to publish distance alert for group %s: %v", groupID, err)
			}
		}
		// One alert per detection covers every peer beyond the threshold.
		return
	}
}

// shouldAlert enforces the per-(group, device) cooldown.
func (w *Watchdog) shouldAlert(groupID, deviceID string) bool {
	key := groupID + ":" + deviceID
	now := time.Now()

	w.mu.Lock()
	defer w.mu.Unlock()

	if sent, ok := w.lastSent[key]; ok && now.Sub(sent) < alertCooldown {
		return false
	}
	w.lastSent[key] = now
	return true
}
