package store

import "time"

// Build is one recorded run of a build target.
type Build struct {
	ID        int64
	Target    string
	StartedAt time.Time
	// Manifest maps each written path to its content hash.
	Manifest map[string]string
}
