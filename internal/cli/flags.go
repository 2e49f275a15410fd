// internal/cli/flags.go
package cli

import "time"

// Flags holds all command-line flags
type Flags struct {
	Location    string
	GraderURL   string
	Timeout     time.Duration
	Concurrency int
	HTMLID      string
	Preview     bool
	Format      string
}
