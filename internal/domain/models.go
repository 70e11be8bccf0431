package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// MaxAddressLength is the longest accepted address, in runes.
	MaxAddressLength = 500

	// MinRadiusMeters and MaxRadiusMeters bound the reverse geocoding search radius.
	MinRadiusMeters = 1
	MaxRadiusMeters = 50000

	// DefaultRadiusMeters is applied when a reverse geocoding request omits the radius.
	DefaultRadiusMeters = 1000
)

// GeocodeRequest asks for the coordinates of a street address.
type GeocodeRequest struct {
	Address string `json:"address"`
	City    string `json:"city,omitempty"` // optional hint to narrow the search
}

// Validate trims the address and checks its length. The address is rejected
// when it is blank after trimming.
func (r *GeocodeRequest) Validate() error {
	r.Address = strings.TrimSpace(r.Address)

	var v violations
	switch {
	case r.Address == "":
		v.add("address", "must not be blank")
	case utf8.RuneCountInString(r.Address) > MaxAddressLength:
		v.add("address", fmt.Sprintf("must be at most %d characters", MaxAddressLength))
	}
	return v.err()
}

// GeocodeResponse is the canonical forward geocoding result, identical for
// every provider. Immutable after construction.
type GeocodeResponse struct {
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	FormattedAddress string  `json:"formatted_address"`
	Confidence       float64 `json:"confidence,omitempty"`
	// AddressComponents is an open mapping on purpose: providers expose
	// different component sets and forcing a fixed schema would be lossy.
	AddressComponents map[string]any `json:"address_components,omitempty"`
}

// ReverseGeocodeRequest asks for the address at a coordinate pair.
type ReverseGeocodeRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Radius    int     `json:"radius,omitempty"` // search radius in meters
}

// Validate checks coordinate bounds and the radius range, applying the
// default radius when none was supplied. All out-of-range fields are
// reported together.
func (r *ReverseGeocodeRequest) Validate() error {
	if r.Radius == 0 {
		r.Radius = DefaultRadiusMeters
	}

	var v violations
	if r.Latitude < -90 || r.Latitude > 90 {
		v.add("latitude", "must be between -90 and 90")
	}
	if r.Longitude < -180 || r.Longitude > 180 {
		v.add("longitude", "must be between -180 and 180")
	}
	if r.Radius < MinRadiusMeters || r.Radius > MaxRadiusMeters {
		v.add("radius", fmt.Sprintf("must be between %d and %d", MinRadiusMeters, MaxRadiusMeters))
	}
	return v.err()
}

// ReverseGeocodeResponse is the canonical reverse geocoding result. The
// decomposed fields are best-effort projections of AddressComponents; an
// empty field means the provider did not supply it, not an error.
type ReverseGeocodeResponse struct {
	Address           string         `json:"address"`
	FormattedAddress  string         `json:"formatted_address"`
	Confidence        float64        `json:"confidence,omitempty"`
	Country           string         `json:"country,omitempty"`
	Province          string         `json:"province,omitempty"`
	City              string         `json:"city,omitempty"`
	District          string         `json:"district,omitempty"`
	Street            string         `json:"street,omitempty"`
	StreetNumber      string         `json:"street_number,omitempty"`
	PostalCode        string         `json:"postal_code,omitempty"`
	AddressComponents map[string]any `json:"address_components,omitempty"`
}

// CacheStats is a read-only snapshot of the response cache.
type CacheStats struct {
	Enabled bool    `json:"enabled"`
	Size    int     `json:"size"`
	MaxSize int     `json:"max_size"`
	TTL     float64 `json:"ttl"` // seconds
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
}
