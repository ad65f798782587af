package vehicle

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"location-tracking-core/internal/domain/vehicle"
	"location-tracking-core/internal/infrastructure/memstore"
	"location-tracking-core/internal/infrastructure/storage"
)

type violationRecorder struct {
	severities []string
}

func (r *violationRecorder) PublishSpeedViolation(ctx context.Context, userID string, vehicleID uuid.UUID, speedKmh, limitKmh float64, severity string) error {
	r.severities = append(r.severities, severity)
	return nil
}

func newVehicle(t *testing.T, svc *Service, ownerID string) *vehicle.Vehicle {
	t.Helper()

	v, err := svc.Create(context.Background(), ownerID, &vehicle.CreateRequest{Name: "van"})
	if err != nil {
		t.Fatalf("create vehicle: %v", err)
	}
	return v
}

func TestCreateDefaultsVehicleType(t *testing.T) {
	svc := NewService(memstore.NewVehicleRepository(), nil)

	v := newVehicle(t, svc, "user-1")
	if v.VehicleType != "car" {
		t.Errorf("vehicle type = %s, want car", v.VehicleType)
	}
	if !v.IsActive {
		t.Error("new vehicle must be active")
	}
}

func TestStartSessionClosesPreviousActive(t *testing.T) {
	repo := memstore.NewVehicleRepository()
	svc := NewService(repo, nil)
	ctx := context.Background()

	v := newVehicle(t, svc, "user-1")
	loc := &vehicle.StartLocation{Latitude: 41, Longitude: 29}

	first, err := svc.StartSession(ctx, "user-1", &vehicle.StartSessionRequest{VehicleID: v.ID, Location: loc})
	if err != nil {
		t.Fatalf("first StartSession: %v", err)
	}

	second, err := svc.StartSession(ctx, "user-1", &vehicle.StartSessionRequest{VehicleID: v.ID, Location: loc})
	if err != nil {
		t.Fatalf("second StartSession: %v", err)
	}

	active, err := svc.ActiveSession(ctx, "user-1", v.ID)
	if err != nil {
		t.Fatalf("ActiveSession: %v", err)
	}
	if active == nil || active.ID != second.ID {
		t.Errorf("active session = %+v, want the second session", active)
	}
	if active.ID == first.ID {
		t.Error("first session still active after starting a second")
	}
}

func TestEndSessionIsTerminal(t *testing.T) {
	svc := NewService(memstore.NewVehicleRepository(), nil)
	ctx := context.Background()

	v := newVehicle(t, svc, "user-1")
	s, err := svc.StartSession(ctx, "user-1", &vehicle.StartSessionRequest{
		VehicleID: v.ID,
		Location:  &vehicle.StartLocation{Latitude: 41, Longitude: 29},
	})
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	ended, err := svc.EndSession(ctx, "user-1", s.ID)
	if err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	if ended.IsActive || ended.EndedAt == nil {
		t.Errorf("ended session = %+v, want closed with end time", ended)
	}

	if _, err := svc.EndSession(ctx, "user-1", s.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("ending twice error = %v, want not found", err)
	}
}

func TestRecordViolationDerivesSeverity(t *testing.T) {
	tests := []struct {
		name     string
		speed    float64
		limit    float64
		severity vehicle.ViolationSeverity
	}{
		{"just over", 55, 50, vehicle.SeverityMinor},
		{"twenty percent over", 61, 50, vehicle.SeverityModerate},
		{"fifty percent over", 76, 50, vehicle.SeveritySevere},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifier := &violationRecorder{}
			svc := NewService(memstore.NewVehicleRepository(), notifier)
			v := newVehicle(t, svc, "user-1")

			got, err := svc.RecordViolation(context.Background(), "user-1", &vehicle.ViolationRequest{
				VehicleID:     v.ID,
				SpeedKmh:      tt.speed,
				SpeedLimitKmh: tt.limit,
			})
			if err != nil {
				t.Fatalf("RecordViolation: %v", err)
			}

			if got.Severity != tt.severity {
				t.Errorf("severity = %s, want %s", got.Severity, tt.severity)
			}
			if len(notifier.severities) != 1 || notifier.severities[0] != string(tt.severity) {
				t.Errorf("notified severities = %v, want [%s]", notifier.severities, tt.severity)
			}
		})
	}
}

func TestVehicleAccessIsOwnerScoped(t *testing.T) {
	svc := NewService(memstore.NewVehicleRepository(), nil)
	ctx := context.Background()

	v := newVehicle(t, svc, "user-1")

	if _, err := svc.Get(ctx, "user-2", v.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("cross-owner get error = %v, want not found", err)
	}

	if _, err := svc.RecordViolation(ctx, "user-2", &vehicle.ViolationRequest{
		VehicleID:     v.ID,
		SpeedKmh:      80,
		SpeedLimitKmh: 50,
	}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("cross-owner violation error = %v, want not found", err)
	}
}
