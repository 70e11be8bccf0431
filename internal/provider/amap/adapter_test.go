package amap_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/waypost/internal/domain"
	"github.com/davidbz/waypost/internal/provider/amap"
)

// newTestProvider wires an adapter to a stub API server and records the
// query parameters of each request.
func newTestProvider(t *testing.T, body string) (*amap.Provider, *url.Values) {
	t.Helper()

	var query url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	provider, err := amap.NewProvider(amap.Config{APIKey: "test-key", BaseURL: server.URL}, server.Client())
	require.NoError(t, err)

	return provider, &query
}

func TestNewProvider(t *testing.T) {
	t.Run("should fail without an API key", func(t *testing.T) {
		_, err := amap.NewProvider(amap.Config{}, nil)

		var configErr *domain.ConfigurationError
		require.ErrorAs(t, err, &configErr)
	})
}

func TestProvider_Geocode(t *testing.T) {
	t.Run("should normalize a successful response", func(t *testing.T) {
		provider, query := newTestProvider(t, `{
			"status": "1",
			"geocodes": [{
				"location": "116.4074,39.9042",
				"formatted_address": "北京市朝阳区三里屯",
				"province": "北京市",
				"city": "北京市",
				"district": "朝阳区",
				"adcode": "110105",
				"level": "兴趣点"
			}]
		}`)

		resp, err := provider.Geocode(context.Background(), &domain.GeocodeRequest{Address: "三里屯"})

		require.NoError(t, err)
		require.InDelta(t, 39.9042, resp.Latitude, 1e-9)
		require.InDelta(t, 116.4074, resp.Longitude, 1e-9)
		require.Equal(t, "北京市朝阳区三里屯", resp.FormattedAddress)
		require.InDelta(t, 0.9, resp.Confidence, 1e-9)
		require.Equal(t, "朝阳区", resp.AddressComponents["district"])

		require.Equal(t, "test-key", query.Get("key"))
		require.Equal(t, "三里屯", query.Get("address"))
		require.Equal(t, "json", query.Get("output"))
		require.False(t, query.Has("city"))
	})

	t.Run("should pass the city parameter when provided", func(t *testing.T) {
		provider, query := newTestProvider(t, `{
			"status": "1",
			"geocodes": [{"location": "116.4074,39.9042", "level": "门牌号"}]
		}`)

		_, err := provider.Geocode(context.Background(), &domain.GeocodeRequest{Address: "三里屯", City: "北京"})

		require.NoError(t, err)
		require.Equal(t, "北京", query.Get("city"))
	})

	t.Run("should fail when the API reports an error status", func(t *testing.T) {
		provider, _ := newTestProvider(t, `{"status": "0", "info": "INVALID_USER_KEY"}`)

		_, err := provider.Geocode(context.Background(), &domain.GeocodeRequest{Address: "三里屯"})

		var providerErr *domain.ProviderError
		require.ErrorAs(t, err, &providerErr)
		require.Contains(t, err.Error(), "INVALID_USER_KEY")
	})

	t.Run("should fail when no results are returned", func(t *testing.T) {
		provider, _ := newTestProvider(t, `{"status": "1", "geocodes": []}`)

		_, err := provider.Geocode(context.Background(), &domain.GeocodeRequest{Address: "不存在的地址"})

		var providerErr *domain.ProviderError
		require.ErrorAs(t, err, &providerErr)
		require.Contains(t, err.Error(), "no geocoding results")
	})

	t.Run("should fail when the result has no coordinates", func(t *testing.T) {
		provider, _ := newTestProvider(t, `{"status": "1", "geocodes": [{"formatted_address": "北京市"}]}`)

		_, err := provider.Geocode(context.Background(), &domain.GeocodeRequest{Address: "北京"})

		var providerErr *domain.ProviderError
		require.ErrorAs(t, err, &providerErr)
		require.Contains(t, err.Error(), "missing coordinate data")
	})

	t.Run("should fall back to 0.7 confidence for unknown levels", func(t *testing.T) {
		provider, _ := newTestProvider(t, `{
			"status": "1",
			"geocodes": [{"location": "116.4074,39.9042", "level": "未知等级"}]
		}`)

		resp, err := provider.Geocode(context.Background(), &domain.GeocodeRequest{Address: "三里屯"})

		require.NoError(t, err)
		require.InDelta(t, 0.7, resp.Confidence, 1e-9)
	})

	t.Run("should rank confidence by precision level", func(t *testing.T) {
		coarseToFine := []string{"国家", "省", "市", "区县", "村庄", "兴趣点", "门牌号", "单元号"}

		var previous float64
		for _, level := range coarseToFine {
			provider, _ := newTestProvider(t, `{
				"status": "1",
				"geocodes": [{"location": "116.4074,39.9042", "level": "`+level+`"}]
			}`)

			resp, err := provider.Geocode(context.Background(), &domain.GeocodeRequest{Address: "三里屯"})
			require.NoError(t, err)
			require.Greater(t, resp.Confidence, previous)
			previous = resp.Confidence
		}
	})
}

func TestProvider_ReverseGeocode(t *testing.T) {
	t.Run("should normalize a successful response", func(t *testing.T) {
		provider, query := newTestProvider(t, `{
			"status": "1",
			"regeocode": {
				"formatted_address": "北京市朝阳区三里屯街道",
				"addressComponent": {
					"country": "中国",
					"province": "北京市",
					"city": "北京市",
					"district": "朝阳区",
					"adcode": "110105",
					"streetNumber": {"street": "工体北路", "number": "8号"}
				}
			}
		}`)

		resp, err := provider.ReverseGeocode(context.Background(), &domain.ReverseGeocodeRequest{
			Latitude: 39.9042, Longitude: 116.4074, Radius: 1000,
		})

		require.NoError(t, err)
		require.Equal(t, "北京市朝阳区三里屯街道", resp.FormattedAddress)
		require.InDelta(t, 0.9, resp.Confidence, 1e-9)
		require.Equal(t, "中国", resp.Country)
		require.Equal(t, "朝阳区", resp.District)
		require.Equal(t, "工体北路", resp.Street)
		require.Equal(t, "8号", resp.StreetNumber)
		require.Equal(t, "110105", resp.PostalCode)

		require.Equal(t, "116.4074,39.9042", query.Get("location"))
		require.Equal(t, "1000", query.Get("radius"))
		require.Equal(t, "all", query.Get("extensions"))
	})

	t.Run("should clamp the radius to the API maximum", func(t *testing.T) {
		provider, query := newTestProvider(t, `{
			"status": "1",
			"regeocode": {"formatted_address": "北京市", "addressComponent": {}}
		}`)

		_, err := provider.ReverseGeocode(context.Background(), &domain.ReverseGeocodeRequest{
			Latitude: 39.9042, Longitude: 116.4074, Radius: 5000,
		})

		require.NoError(t, err)
		require.Equal(t, "3000", query.Get("radius"))
	})

	t.Run("should fail when no result is returned", func(t *testing.T) {
		provider, _ := newTestProvider(t, `{"status": "1"}`)

		_, err := provider.ReverseGeocode(context.Background(), &domain.ReverseGeocodeRequest{
			Latitude: 0.000001, Longitude: 0.000001, Radius: 1000,
		})

		var providerErr *domain.ProviderError
		require.ErrorAs(t, err, &providerErr)
		require.Contains(t, err.Error(), "no reverse geocoding results")
	})

	t.Run("should fail when the API reports an error status", func(t *testing.T) {
		provider, _ := newTestProvider(t, `{"status": "0", "info": "DAILY_QUERY_OVER_LIMIT"}`)

		_, err := provider.ReverseGeocode(context.Background(), &domain.ReverseGeocodeRequest{
			Latitude: 39.9042, Longitude: 116.4074, Radius: 1000,
		})

		var providerErr *domain.ProviderError
		require.ErrorAs(t, err, &providerErr)
		require.Contains(t, err.Error(), "DAILY_QUERY_OVER_LIMIT")
	})
}
