// internal/workers/content-testing/rematch-content-test/config.go
package rematchcontenttest

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}
