package memstore

import "location-tracking-core/internal/infrastructure/storage"

// NewStore assembles the in-memory storage.Store.
func NewStore() *storage.Store {
	groups := NewGroupRepository()

	store := storage.New("memory", nil)
	store.Locations = NewLocationRepository()
	store.Geofences = NewGeofenceRepository(groups)
	store.Vehicles = NewVehicleRepository()
	store.Groups = groups
	return store
}
