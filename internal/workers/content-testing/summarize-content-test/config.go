// internal/workers/content-testing/summarize-content-test/config.go
package summarizecontenttest

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 15 * time.Second,
	}
}
