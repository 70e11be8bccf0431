// Package baidu provides an adapter for the Baidu Maps (百度地图) geocoding
// API. Baidu reports forward precision as a 0-100 integer, which is rescaled
// to the canonical [0,1] confidence.
package baidu

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
	providerName = "baidu"

	// reverseConfidence is fixed: Baidu's reverse API exposes no precision signal.
	reverseConfidence = 0.85

	// confidenceScale converts Baidu's 0-100 confidence to [0,1].
	confidenceScale = 100.0
)

// Provider implements the domain.Provider interface for Baidu Maps.
type Provider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewProvider creates a new Baidu provider, failing fast when the credential
// is missing.
func NewProvider(config Config, client *http.Client) (*Provider, error) {
	if config.APIKey == "" {
		return nil, domain.NewConfigurationError("Baidu API key is required")
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

type geocodeEnvelope struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Result  *struct {
		Location *struct {
			Lat *float64 `json:"lat"`
			Lng *float64 `json:"lng"`
		} `json:"location"`
		Confidence    float64 `json:"confidence"`
		Comprehension float64 `json:"comprehension"`
		Level         string  `json:"level"`
	} `json:"result"`
}

type reverseEnvelope struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Result  struct {
		FormattedAddress string `json:"formatted_address"`
		AddressComponent struct {
			Country      string `json:"country"`
			Province     string `json:"province"`
			City         string `json:"city"`
			District     string `json:"district"`
			Street       string `json:"street"`
			StreetNumber string `json:"street_number"`
			Adcode       string `json:"adcode"`
			Direction    string `json:"direction"`
			Distance     string `json:"distance"`
		} `json:"addressComponent"`
	} `json:"result"`
}

// Geocode resolves an address through Baidu's geocoding/v3 endpoint.
func (p *Provider) Geocode(ctx context.Context, req *domain.GeocodeRequest) (*domain.GeocodeResponse, error) {
	params := url.Values{
		"ak":      {p.apiKey},
		"address": {req.Address},
		"output":  {"json"},
	}
	if req.City != "" {
		params.Set("city", req.City)
	}

	var envelope geocodeEnvelope
	if err := p.get(ctx, "geocode", p.baseURL+"/geocoding/v3/", params, &envelope); err != nil {
		return nil, err
	}

	if envelope.Status != 0 {
		return nil, domain.NewProviderError(providerName, "geocode",
			"Baidu API error: "+messageOrUnknown(envelope.Message), nil)
	}
	if envelope.Result == nil || envelope.Result.Location == nil {
		return nil, domain.NewProviderError(providerName, "geocode",
			"result is missing coordinate data", nil)
	}

	location := envelope.Result.Location
	if location.Lat == nil || location.Lng == nil {
		return nil, domain.NewProviderError(providerName, "geocode",
			"coordinate data is incomplete", nil)
	}

	result := envelope.Result
	return &domain.GeocodeResponse{
		Latitude:         *location.Lat,
		Longitude:        *location.Lng,
		FormattedAddress: req.Address,
		Confidence:       result.Confidence / confidenceScale,
		AddressComponents: map[string]any{
			"country":       "中国",
			"province":      "",
			"city":          "",
			"district":      "",
			"street":        "",
			"confidence":    result.Confidence,
			"comprehension": result.Comprehension,
			"level":         result.Level,
		},
	}, nil
}

// ReverseGeocode resolves coordinates through Baidu's reverse_geocoding/v3
// endpoint using WGS84 coordinates.
func (p *Provider) ReverseGeocode(
	ctx context.Context,
	req *domain.ReverseGeocodeRequest,
) (*domain.ReverseGeocodeResponse, error) {
	params := url.Values{
		"ak":             {p.apiKey},
		"location":       {formatCoordinate(req.Latitude) + "," + formatCoordinate(req.Longitude)},
		"output":         {"json"},
		"coordtype":      {"wgs84ll"},
		"extensions_poi": {"1"},
	}

	var envelope reverseEnvelope
	if err := p.get(ctx, "reverse_geocode", p.baseURL+"/reverse_geocoding/v3/", params, &envelope); err != nil {
		return nil, err
	}

	if envelope.Status != 0 {
		return nil, domain.NewProviderError(providerName, "reverse_geocode",
			"Baidu API error: "+messageOrUnknown(envelope.Message), nil)
	}

	component := envelope.Result.AddressComponent
	formatted := envelope.Result.FormattedAddress

	return &domain.ReverseGeocodeResponse{
		Address:          formatted,
		FormattedAddress: formatted,
		Confidence:       reverseConfidence,
		Country:          component.Country,
		Province:         component.Province,
		City:             component.City,
		District:         component.District,
		Street:           component.Street,
		StreetNumber:     component.StreetNumber,
		PostalCode:       component.Adcode,
		AddressComponents: map[string]any{
			"country":       component.Country,
			"province":      component.Province,
			"city":          component.City,
			"district":      component.District,
			"street":        component.Street,
			"street_number": component.StreetNumber,
			"adcode":        component.Adcode,
			"direction":     component.Direction,
			"distance":      component.Distance,
		},
	}, nil
}

// get issues one outbound call and decodes the JSON envelope into out.
func (p *Provider) get(ctx context.Context, op, endpoint string, params url.Values, out any) error {
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

func formatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func messageOrUnknown(message string) string {
	if message == "" {
		return "unknown error"
	}
	return message
}
