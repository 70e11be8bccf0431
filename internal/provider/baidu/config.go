package baidu

// Config contains Baidu Maps (百度地图) provider configuration.
type Config struct {
	APIKey  string `env:"BAIDU_API_KEY"`
	BaseURL string `env:"BAIDU_BASE_URL" envDefault:"https://api.map.baidu.com"`
}
