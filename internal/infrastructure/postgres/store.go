package postgres

import "location-tracking-core/internal/infrastructure/storage"

// NewStore assembles the postgres-backed storage.Store.
func NewStore(client *Client) *storage.Store {
	store := storage.New("postgres", client.HealthCheck)
	store.Locations = NewLocationRepository(client)
	store.Geofences = NewGeofenceRepository(client)
	store.Vehicles = NewVehicleRepository(client)
	store.Groups = NewGroupRepository(client)
	return store
}
