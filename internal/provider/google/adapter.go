// Package google provides an adapter for the Google Maps Geocoding API.
// Forward confidence is derived from the geometry location_type; address
// components are flattened into the canonical open mapping keyed by
// component type.
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/davidbz/waypost/internal/domain"
)

const (
	providerName = "google"

	// defaultConfidence applies when the result carries an unknown location type.
	defaultConfidence = 0.7

	// reverseConfidence is fixed: Google's reverse API exposes no precision signal.
	reverseConfidence = 0.9

	// reverseResultTypes filters reverse lookups to address-like results.
	reverseResultTypes = "street_address|route|neighborhood|locality|administrative_area_level_1|country"
)

// locationTypeConfidence maps Google's location_type enum to a [0,1] confidence.
var locationTypeConfidence = map[string]float64{
	"ROOFTOP":            0.95,
	"RANGE_INTERPOLATED": 0.85,
	"GEOMETRIC_CENTER":   0.75,
	"APPROXIMATE":        0.6,
}

// Provider implements the domain.Provider interface for Google Maps.
type Provider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewProvider creates a new Google Maps provider, failing fast when the
// credential is missing.
func NewProvider(config Config, client *http.Client) (*Provider, error) {
	if config.APIKey == "" {
		return nil, domain.NewConfigurationError("Google Maps API key is required")
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &Provider{
		apiKey:  config.APIKey,
		baseURL: strings.TrimSuffix(config.BaseURL, "/"),
		client:  client,
	}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return providerName
}

type addressComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

type envelope struct {
	Status  string `json:"status"`
	Results []struct {
		FormattedAddress  string             `json:"formatted_address"`
		AddressComponents []addressComponent `json:"address_components"`
		Geometry          struct {
			Location *struct {
				Lat *float64 `json:"lat"`
				Lng *float64 `json:"lng"`
			} `json:"location"`
			LocationType string `json:"location_type"`
		} `json:"geometry"`
	} `json:"results"`
}

// Geocode resolves an address through Google's geocode/json endpoint. A city
// hint is appended to the query rather than sent as a separate parameter.
func (p *Provider) Geocode(ctx context.Context, req *domain.GeocodeRequest) (*domain.GeocodeResponse, error) {
	address := req.Address
	if req.City != "" {
		address = req.Address + ", " + req.City
	}

	params := url.Values{
		"key":     {p.apiKey},
		"address": {address},
	}

	var env envelope
	if err := p.get(ctx, "geocode", params, &env); err != nil {
		return nil, err
	}

	if env.Status != "OK" {
		return nil, domain.NewProviderError(providerName, "geocode",
			"Google Maps API error: "+statusOrUnknown(env.Status), nil)
	}
	if len(env.Results) == 0 {
		return nil, domain.NewProviderError(providerName, "geocode", "no geocoding results", nil)
	}

	result := env.Results[0]
	location := result.Geometry.Location
	if location == nil {
		return nil, domain.NewProviderError(providerName, "geocode",
			"result is missing coordinate data", nil)
	}
	if location.Lat == nil || location.Lng == nil {
		return nil, domain.NewProviderError(providerName, "geocode",
			"coordinate data is incomplete", nil)
	}

	formatted := result.FormattedAddress
	if formatted == "" {
		formatted = req.Address
	}

	return &domain.GeocodeResponse{
		Latitude:          *location.Lat,
		Longitude:         *location.Lng,
		FormattedAddress:  formatted,
		Confidence:        confidenceForLocationType(result.Geometry.LocationType),
		AddressComponents: flattenComponents(result.AddressComponents),
	}, nil
}

// ReverseGeocode resolves coordinates through the same geocode/json endpoint
// using a latlng query and a result_type filter.
func (p *Provider) ReverseGeocode(
	ctx context.Context,
	req *domain.ReverseGeocodeRequest,
) (*domain.ReverseGeocodeResponse, error) {
	params := url.Values{
		"key":         {p.apiKey},
		"latlng":      {formatCoordinate(req.Latitude) + "," + formatCoordinate(req.Longitude)},
		"result_type": {reverseResultTypes},
	}

	var env envelope
	if err := p.get(ctx, "reverse_geocode", params, &env); err != nil {
		return nil, err
	}

	if env.Status != "OK" {
		return nil, domain.NewProviderError(providerName, "reverse_geocode",
			"Google Maps API error: "+statusOrUnknown(env.Status), nil)
	}
	if len(env.Results) == 0 {
		return nil, domain.NewProviderError(providerName, "reverse_geocode",
			"no reverse geocoding results", nil)
	}

	result := env.Results[0]
	components := flattenComponents(result.AddressComponents)

	return &domain.ReverseGeocodeResponse{
		Address:           result.FormattedAddress,
		FormattedAddress:  result.FormattedAddress,
		Confidence:        reverseConfidence,
		Country:           componentString(components, "country"),
		Province:          componentString(components, "administrative_area_level_1"),
		City:              componentString(components, "locality"),
		District:          componentString(components, "administrative_area_level_2"),
		Street:            componentString(components, "route"),
		StreetNumber:      componentString(components, "street_number"),
		PostalCode:        componentString(components, "postal_code"),
		AddressComponents: components,
	}, nil
}

// get issues one outbound call to the geocode endpoint and decodes the JSON
// envelope into out.
func (p *Provider) get(ctx context.Context, op string, params url.Values, out any) error {
	endpoint := p.baseURL + "/geocode/json"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return domain.NewProviderError(providerName, op, "failed to create request", err)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return domain.NewProviderError(providerName, op, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return domain.NewProviderError(providerName, op,
			fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, body), nil)
	}

	if decodeErr := json.NewDecoder(resp.Body).Decode(out); decodeErr != nil {
		return domain.NewProviderError(providerName, op, "failed to decode response", decodeErr)
	}
	return nil
}

// flattenComponents maps each component type to its long name, with a
// "<type>_short" entry for the short name.
func flattenComponents(components []addressComponent) map[string]any {
	flattened := make(map[string]any)
	for _, component := range components {
		for _, typeName := range component.Types {
			flattened[typeName] = component.LongName
			flattened[typeName+"_short"] = component.ShortName
		}
	}
	return flattened
}

func componentString(components map[string]any, key string) string {
	if value, ok := components[key].(string); ok {
		return value
	}
	return ""
}

func confidenceForLocationType(locationType string) float64 {
	if confidence, ok := locationTypeConfidence[locationType]; ok {
		return confidence
	}
	return defaultConfidence
}

func formatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func statusOrUnknown(status string) string {
	if status == "" {
		return "unknown error"
	}
	return status
}
