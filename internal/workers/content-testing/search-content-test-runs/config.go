// internal/workers/content-testing/search-content-test-runs/config.go
package searchcontenttestruns

import "time"

type Config struct {
	Timeout     time.Duration
	MaxPageSize int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:     10 * time.Second,
		MaxPageSize: 100,
	}
}
