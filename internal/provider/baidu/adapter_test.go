package baidu_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/waypost/internal/domain"
	"github.com/davidbz/waypost/internal/provider/baidu"
)

func newTestProvider(t *testing.T, body string) (*baidu.Provider, *url.Values) {
	t.Helper()

	var query url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	provider, err := baidu.NewProvider(baidu.Config{APIKey: "test-key", BaseURL: server.URL}, server.Client())
	require.NoError(t, err)

	return provider, &query
}

func TestNewProvider(t *testing.T) {
	t.Run("should fail without an API key", func(t *testing.T) {
		_, err := baidu.NewProvider(baidu.Config{}, nil)

		var configErr *domain.ConfigurationError
		require.ErrorAs(t, err, &configErr)
	})
}

func TestProvider_Geocode(t *testing.T) {
	t.Run("should rescale confidence to the unit interval", func(t *testing.T) {
		provider, query := newTestProvider(t, `{
			"status": 0,
			"result": {
				"location": {"lat": 39.9042, "lng": 116.4074},
				"confidence": 85,
				"comprehension": 90,
				"level": "地产小区"
			}
		}`)

		resp, err := provider.Geocode(context.Background(), &domain.GeocodeRequest{Address: "三里屯"})

		require.NoError(t, err)
		require.InDelta(t, 39.9042, resp.Latitude, 1e-9)
		require.InDelta(t, 116.4074, resp.Longitude, 1e-9)
		require.InDelta(t, 0.85, resp.Confidence, 1e-9)
		require.Equal(t, "三里屯", resp.FormattedAddress)
		require.Equal(t, "中国", resp.AddressComponents["country"])
		require.Equal(t, "地产小区", resp.AddressComponents["level"])

		require.Equal(t, "test-key", query.Get("ak"))
		require.Equal(t, "三里屯", query.Get("address"))
		require.Equal(t, "json", query.Get("output"))
	})

	t.Run("should pass the city parameter when provided", func(t *testing.T) {
		provider, query := newTestProvider(t, `{
			"status": 0,
			"result": {"location": {"lat": 39.9042, "lng": 116.4074}, "confidence": 80}
		}`)

		_, err := provider.Geocode(context.Background(), &domain.GeocodeRequest{Address: "三里屯", City: "北京"})

		require.NoError(t, err)
		require.Equal(t, "北京", query.Get("city"))
	})

	t.Run("should fail when the API reports a non-zero status", func(t *testing.T) {
		provider, _ := newTestProvider(t, `{"status": 302, "message": "天配额超限，限制访问"}`)

		_, err := provider.Geocode(context.Background(), &domain.GeocodeRequest{Address: "三里屯"})

		var providerErr *domain.ProviderError
		require.ErrorAs(t, err, &providerErr)
		require.Contains(t, err.Error(), "天配额超限")
	})

	t.Run("should fail when the result has no location", func(t *testing.T) {
		provider, _ := newTestProvider(t, `{"status": 0, "result": {"confidence": 80}}`)

		_, err := provider.Geocode(context.Background(), &domain.GeocodeRequest{Address: "三里屯"})

		var providerErr *domain.ProviderError
		require.ErrorAs(t, err, &providerErr)
		require.Contains(t, err.Error(), "missing coordinate data")
	})

	t.Run("should fail when the location is incomplete", func(t *testing.T) {
		provider, _ := newTestProvider(t, `{"status": 0, "result": {"location": {"lat": 39.9042}}}`)

		_, err := provider.Geocode(context.Background(), &domain.GeocodeRequest{Address: "三里屯"})

		var providerErr *domain.ProviderError
		require.ErrorAs(t, err, &providerErr)
		require.Contains(t, err.Error(), "incomplete")
	})
}

func TestProvider_ReverseGeocode(t *testing.T) {
	t.Run("should normalize a successful response", func(t *testing.T) {
		provider, query := newTestProvider(t, `{
			"status": 0,
			"result": {
				"formatted_address": "北京市朝阳区工体北路8号",
				"addressComponent": {
					"country": "中国",
					"province": "北京市",
					"city": "北京市",
					"district": "朝阳区",
					"street": "工体北路",
					"street_number": "8号",
					"adcode": "110105",
					"direction": "附近",
					"distance": "12"
				}
			}
		}`)

		resp, err := provider.ReverseGeocode(context.Background(), &domain.ReverseGeocodeRequest{
			Latitude: 39.9042, Longitude: 116.4074, Radius: 1000,
		})

		require.NoError(t, err)
		require.Equal(t, "北京市朝阳区工体北路8号", resp.FormattedAddress)
		require.InDelta(t, 0.85, resp.Confidence, 1e-9)
		require.Equal(t, "中国", resp.Country)
		require.Equal(t, "工体北路", resp.Street)
		require.Equal(t, "110105", resp.PostalCode)
		require.Equal(t, "附近", resp.AddressComponents["direction"])

		require.Equal(t, "39.9042,116.4074", query.Get("location"))
		require.Equal(t, "wgs84ll", query.Get("coordtype"))
		require.Equal(t, "1", query.Get("extensions_poi"))
	})

	t.Run("should fail when the API reports a non-zero status", func(t *testing.T) {
		provider, _ := newTestProvider(t, `{"status": 1, "message": "内部服务器错误"}`)

		_, err := provider.ReverseGeocode(context.Background(), &domain.ReverseGeocodeRequest{
			Latitude: 39.9042, Longitude: 116.4074, Radius: 1000,
		})

		var providerErr *domain.ProviderError
		require.ErrorAs(t, err, &providerErr)
		require.Contains(t, err.Error(), "内部服务器错误")
	})
}
