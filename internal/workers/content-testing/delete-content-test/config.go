// internal/workers/content-testing/delete-content-test/config.go
package deletecontenttest

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}
