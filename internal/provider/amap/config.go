package amap

// Config contains Amap (高德地图) provider configuration.
type Config struct {
	APIKey  string `env:"AMAP_API_KEY"`
	BaseURL string `env:"AMAP_BASE_URL" envDefault:"https://restapi.amap.com/v3"`
}
