package google_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/waypost/internal/domain"
	"github.com/davidbz/waypost/internal/provider/google"
)

func newTestProvider(t *testing.T, body string) (*google.Provider, *url.Values) {
	t.Helper()

	var query url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	provider, err := google.NewProvider(google.Config{APIKey: "test-key", BaseURL: server.URL}, server.Client())
	require.NoError(t, err)

	return provider, &query
}

func TestNewProvider(t *testing.T) {
	t.Run("should fail without an API key", func(t *testing.T) {
		_, err := google.NewProvider(google.Config{}, nil)

		var configErr *domain.ConfigurationError
		require.ErrorAs(t, err, &configErr)
	})
}

func TestProvider_Geocode(t *testing.T) {
	t.Run("should map ROOFTOP precision to high confidence", func(t *testing.T) {
		provider, query := newTestProvider(t, `{
			"status": "OK",
			"results": [{
				"formatted_address": "1600 Amphitheatre Pkwy, Mountain View, CA 94043, USA",
				"address_components": [
					{"long_name": "1600", "short_name": "1600", "types": ["street_number"]},
					{"long_name": "Amphitheatre Parkway", "short_name": "Amphitheatre Pkwy", "types": ["route"]},
					{"long_name": "United States", "short_name": "US", "types": ["country", "political"]}
				],
				"geometry": {
					"location": {"lat": 37.4224764, "lng": -122.0842499},
					"location_type": "ROOFTOP"
				}
			}]
		}`)

		resp, err := provider.Geocode(context.Background(), &domain.GeocodeRequest{
			Address: "1600 Amphitheatre Parkway",
		})

		require.NoError(t, err)
		require.InDelta(t, 37.4224764, resp.Latitude, 1e-9)
		require.InDelta(t, -122.0842499, resp.Longitude, 1e-9)
		require.InDelta(t, 0.95, resp.Confidence, 1e-9)
		require.Equal(t, "Amphitheatre Parkway", resp.AddressComponents["route"])
		require.Equal(t, "US", resp.AddressComponents["country_short"])

		require.Equal(t, "test-key", query.Get("key"))
		require.Equal(t, "1600 Amphitheatre Parkway", query.Get("address"))
	})

	t.Run("should append the city hint to the address query", func(t *testing.T) {
		provider, query := newTestProvider(t, `{
			"status": "OK",
			"results": [{
				"geometry": {"location": {"lat": 37.42, "lng": -122.08}, "location_type": "APPROXIMATE"}
			}]
		}`)

		_, err := provider.Geocode(context.Background(), &domain.GeocodeRequest{
			Address: "Amphitheatre Parkway",
			City:    "Mountain View",
		})

		require.NoError(t, err)
		require.Equal(t, "Amphitheatre Parkway, Mountain View", query.Get("address"))
	})

	t.Run("should fail on a non-OK status", func(t *testing.T) {
		provider, _ := newTestProvider(t, `{"status": "ZERO_RESULTS", "results": []}`)

		_, err := provider.Geocode(context.Background(), &domain.GeocodeRequest{Address: "nowhere"})

		var providerErr *domain.ProviderError
		require.ErrorAs(t, err, &providerErr)
		require.Contains(t, err.Error(), "ZERO_RESULTS")
	})

	t.Run("should fail on an OK status with no results", func(t *testing.T) {
		provider, _ := newTestProvider(t, `{"status": "OK", "results": []}`)

		_, err := provider.Geocode(context.Background(), &domain.GeocodeRequest{Address: "nowhere"})

		var providerErr *domain.ProviderError
		require.ErrorAs(t, err, &providerErr)
		require.Contains(t, err.Error(), "no geocoding results")
	})

	t.Run("should fall back to 0.7 confidence for unknown location types", func(t *testing.T) {
		provider, _ := newTestProvider(t, `{
			"status": "OK",
			"results": [{
				"geometry": {"location": {"lat": 37.42, "lng": -122.08}, "location_type": "PLUS_CODE"}
			}]
		}`)

		resp, err := provider.Geocode(context.Background(), &domain.GeocodeRequest{Address: "somewhere"})

		require.NoError(t, err)
		require.InDelta(t, 0.7, resp.Confidence, 1e-9)
	})

	t.Run("should fail when the result has no coordinates", func(t *testing.T) {
		provider, _ := newTestProvider(t, `{
			"status": "OK",
			"results": [{"formatted_address": "Mountain View, CA", "geometry": {"location_type": "APPROXIMATE"}}]
		}`)

		_, err := provider.Geocode(context.Background(), &domain.GeocodeRequest{Address: "Mountain View"})

		var providerErr *domain.ProviderError
		require.ErrorAs(t, err, &providerErr)
		require.Contains(t, err.Error(), "missing coordinate data")
	})
}

func TestProvider_ReverseGeocode(t *testing.T) {
	t.Run("should decompose address components", func(t *testing.T) {
		provider, query := newTestProvider(t, `{
			"status": "OK",
			"results": [{
				"formatted_address": "277 Bedford Ave, Brooklyn, NY 11211, USA",
				"address_components": [
					{"long_name": "277", "short_name": "277", "types": ["street_number"]},
					{"long_name": "Bedford Avenue", "short_name": "Bedford Ave", "types": ["route"]},
					{"long_name": "Brooklyn", "short_name": "Brooklyn", "types": ["locality", "political"]},
					{"long_name": "Kings County", "short_name": "Kings County", "types": ["administrative_area_level_2"]},
					{"long_name": "New York", "short_name": "NY", "types": ["administrative_area_level_1"]},
					{"long_name": "United States", "short_name": "US", "types": ["country"]},
					{"long_name": "11211", "short_name": "11211", "types": ["postal_code"]}
				],
				"geometry": {"location": {"lat": 40.714224, "lng": -73.961452}, "location_type": "ROOFTOP"}
			}]
		}`)

		resp, err := provider.ReverseGeocode(context.Background(), &domain.ReverseGeocodeRequest{
			Latitude: 40.714224, Longitude: -73.961452, Radius: 1000,
		})

		require.NoError(t, err)
		require.Equal(t, "277 Bedford Ave, Brooklyn, NY 11211, USA", resp.FormattedAddress)
		require.InDelta(t, 0.9, resp.Confidence, 1e-9)
		require.Equal(t, "United States", resp.Country)
		require.Equal(t, "New York", resp.Province)
		require.Equal(t, "Brooklyn", resp.City)
		require.Equal(t, "Kings County", resp.District)
		require.Equal(t, "Bedford Avenue", resp.Street)
		require.Equal(t, "277", resp.StreetNumber)
		require.Equal(t, "11211", resp.PostalCode)

		require.Equal(t, "40.714224,-73.961452", query.Get("latlng"))
		require.Contains(t, query.Get("result_type"), "street_address")
	})

	t.Run("should fail when no results are returned", func(t *testing.T) {
		provider, _ := newTestProvider(t, `{"status": "OK", "results": []}`)

		_, err := provider.ReverseGeocode(context.Background(), &domain.ReverseGeocodeRequest{
			Latitude: 0.000001, Longitude: 0.000001, Radius: 1000,
		})

		var providerErr *domain.ProviderError
		require.ErrorAs(t, err, &providerErr)
		require.Contains(t, err.Error(), "no reverse geocoding results")
	})
}
