package core

import "time"

// Run represents a single completed rating stored in the database.
type Run struct {
	ID        int64
	Project   string
	MRIID     int
	HeadSHA   string
	Score     int
	Total     int
	Passed    bool
	Report    string
	CreatedAt time.Time
}
