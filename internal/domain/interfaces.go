package domain

import "context"

// Provider represents any geocoding provider. Implementations translate the
// canonical request into a provider-specific call and normalize the provider
// response back into the canonical shape, including the provider's own
// confidence heuristic.
type Provider interface {
	// Geocode resolves an address into coordinates.
	Geocode(ctx context.Context, req *GeocodeRequest) (*GeocodeResponse, error)

	// ReverseGeocode resolves coordinates into an address.
	ReverseGeocode(ctx context.Context, req *ReverseGeocodeRequest) (*ReverseGeocodeResponse, error)

	// Name returns the provider identifier.
	Name() string
}

// Cache stores canonical responses keyed by deterministic request keys.
// Implementations must be safe for concurrent use; the service imposes no
// external locking.
type Cache interface {
	// Get returns the cached value for key, if present and not expired.
	Get(key string) (any, bool)

	// Set stores value under key. Entries are never mutated in place.
	Set(key string, value any)

	// Stats returns a snapshot of cache size, capacity, TTL and counters.
	Stats() CacheStats
}
