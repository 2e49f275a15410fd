// internal/workers/content-testing/parse-video-descriptor/config.go
package parsevideodescriptor

import "time"

type Config struct {
	Timeout          time.Duration
	CaptionAssetPath string
	Autoplay         bool
}

func LoadConfig() *Config {
	return &Config{
		Timeout:          5 * time.Second,
		CaptionAssetPath: "/static/subs/",
		Autoplay:         true,
	}
}
