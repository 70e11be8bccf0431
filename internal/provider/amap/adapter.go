// Package amap provides an adapter for the Amap (高德地图) geocoding API.
// It implements the domain.Provider interface and normalizes Amap's JSON
// envelope into the canonical response shapes, including the level-based
// confidence heuristic.
package amap

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
	"github.com/davidbz/waypost/internal/observability"
)

const (
	providerName = "amap"

	// maxReverseRadiusMeters is the largest search radius Amap accepts.
	maxReverseRadiusMeters = 3000

	// defaultConfidence applies when the result carries an unknown level.
	defaultConfidence = 0.7

	// reverseConfidence is fixed: Amap's reverse API exposes no precision signal.
	reverseConfidence = 0.9
)

// levelConfidence maps Amap's precision level tags to a [0,1] confidence.
var levelConfidence = map[string]float64{
	"国家":   0.3,
	"省":    0.4,
	"市":    0.5,
	"区县":   0.6,
	"开发区":  0.7,
	"乡镇":   0.7,
	"村庄":   0.8,
	"热点商圈": 0.8,
	"兴趣点":  0.9,
	"门牌号":  0.95,
	"单元号":  0.98,
}

// Provider implements the domain.Provider interface for Amap.
type Provider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewProvider creates a new Amap provider. The credential is validated here
// so a missing key fails at startup, not at first request.
func NewProvider(config Config, client *http.Client) (*Provider, error) {
	if config.APIKey == "" {
		return nil, domain.NewConfigurationError("Amap API key is required")
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
	Status   string `json:"status"`
	Info     string `json:"info"`
	Geocodes []struct {
		Location         string `json:"location"` // "lng,lat"
		FormattedAddress string `json:"formatted_address"`
		Country          string `json:"country"`
		Province         string `json:"province"`
		City             string `json:"city"`
		District         string `json:"district"`
		Township         string `json:"township"`
		Street           string `json:"street"`
		Number           string `json:"number"`
		Adcode           string `json:"adcode"`
		Level            string `json:"level"`
	} `json:"geocodes"`
}

type reverseEnvelope struct {
	Status    string `json:"status"`
	Info      string `json:"info"`
	Regeocode *struct {
		FormattedAddress string `json:"formatted_address"`
		AddressComponent struct {
			Country      string `json:"country"`
			Province     string `json:"province"`
			City         string `json:"city"`
			District     string `json:"district"`
			Township     string `json:"township"`
			Adcode       string `json:"adcode"`
			StreetNumber struct {
				Street string `json:"street"`
				Number string `json:"number"`
			} `json:"streetNumber"`
			Building map[string]any `json:"building"`
		} `json:"addressComponent"`
	} `json:"regeocode"`
}

// Geocode resolves an address through Amap's geocode/geo endpoint.
func (p *Provider) Geocode(ctx context.Context, req *domain.GeocodeRequest) (*domain.GeocodeResponse, error) {
	logger := observability.FromContext(ctx)

	params := url.Values{
		"key":     {p.apiKey},
		"address": {req.Address},
		"output":  {"json"},
	}
	if req.City != "" {
		params.Set("city", req.City)
	}

	var envelope geocodeEnvelope
	if err := p.get(ctx, "geocode", p.baseURL+"/geocode/geo", params, &envelope); err != nil {
		return nil, err
	}

	if envelope.Status != "1" {
		return nil, domain.NewProviderError(providerName, "geocode",
			"Amap API error: "+infoOrUnknown(envelope.Info), nil)
	}
	if len(envelope.Geocodes) == 0 {
		return nil, domain.NewProviderError(providerName, "geocode", "no geocoding results", nil)
	}

	geocode := envelope.Geocodes[0]
	if geocode.Location == "" {
		return nil, domain.NewProviderError(providerName, "geocode",
			"result is missing coordinate data", nil)
	}

	lat, lng, err := parseLocation(geocode.Location)
	if err != nil {
		return nil, domain.NewProviderError(providerName, "geocode",
			"result has malformed coordinate data", err)
	}

	formatted := geocode.FormattedAddress
	if formatted == "" {
		formatted = req.Address
	}

	logger.Debug("Amap geocode succeeded",
		observability.String("level", geocode.Level))

	return &domain.GeocodeResponse{
		Latitude:         lat,
		Longitude:        lng,
		FormattedAddress: formatted,
		Confidence:       confidenceForLevel(geocode.Level),
		AddressComponents: map[string]any{
			"country":  geocode.Country,
			"province": geocode.Province,
			"city":     geocode.City,
			"district": geocode.District,
			"township": geocode.Township,
			"street":   geocode.Street,
			"number":   geocode.Number,
			"adcode":   geocode.Adcode,
			"level":    geocode.Level,
		},
	}, nil
}

// ReverseGeocode resolves coordinates through Amap's geocode/regeo endpoint.
// The radius is clamped to Amap's 3000 m ceiling before the call.
func (p *Provider) ReverseGeocode(
	ctx context.Context,
	req *domain.ReverseGeocodeRequest,
) (*domain.ReverseGeocodeResponse, error) {
	radius := req.Radius
	if radius > maxReverseRadiusMeters {
		radius = maxReverseRadiusMeters
	}

	params := url.Values{
		"key":        {p.apiKey},
		"location":   {formatCoordinate(req.Longitude) + "," + formatCoordinate(req.Latitude)},
		"radius":     {strconv.Itoa(radius)},
		"extensions": {"all"},
		"output":     {"json"},
	}

	var envelope reverseEnvelope
	if err := p.get(ctx, "reverse_geocode", p.baseURL+"/geocode/regeo", params, &envelope); err != nil {
		return nil, err
	}

	if envelope.Status != "1" {
		return nil, domain.NewProviderError(providerName, "reverse_geocode",
			"Amap API error: "+infoOrUnknown(envelope.Info), nil)
	}
	if envelope.Regeocode == nil {
		return nil, domain.NewProviderError(providerName, "reverse_geocode",
			"no reverse geocoding results", nil)
	}

	regeocode := envelope.Regeocode
	component := regeocode.AddressComponent

	return &domain.ReverseGeocodeResponse{
		Address:          regeocode.FormattedAddress,
		FormattedAddress: regeocode.FormattedAddress,
		Confidence:       reverseConfidence,
		Country:          component.Country,
		Province:         component.Province,
		City:             component.City,
		District:         component.District,
		Street:           component.StreetNumber.Street,
		StreetNumber:     component.StreetNumber.Number,
		PostalCode:       component.Adcode,
		AddressComponents: map[string]any{
			"country":       component.Country,
			"province":      component.Province,
			"city":          component.City,
			"district":      component.District,
			"township":      component.Township,
			"street":        component.StreetNumber.Street,
			"street_number": component.StreetNumber.Number,
			"adcode":        component.Adcode,
			"building":      component.Building,
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

// parseLocation splits Amap's "lng,lat" coordinate string.
func parseLocation(location string) (lat, lng float64, err error) {
	parts := strings.Split(location, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected lng,lat pair, got %q", location)
	}
	lng, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, err
	}
	lat, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, err
	}
	return lat, lng, nil
}

func confidenceForLevel(level string) float64 {
	if confidence, ok := levelConfidence[level]; ok {
		return confidence
	}
	return defaultConfidence
}

func formatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func infoOrUnknown(info string) string {
	if info == "" {
		return "unknown error"
	}
	return info
}
