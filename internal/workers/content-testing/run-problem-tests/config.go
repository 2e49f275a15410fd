// internal/workers/content-testing/run-problem-tests/config.go
package runproblemtests

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 5 * time.Minute,
	}
}
