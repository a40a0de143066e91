package scheduler

import "errors"

var (
	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrSyncInProgress is returned when a manual trigger overlaps a running sync
	ErrSyncInProgress = errors.New("rate sync already in progress")
)
