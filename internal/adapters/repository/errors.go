package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrDriverNotFound = errors.New("driver not found")
	ErrPlanNotFound   = errors.New("coaching plan not found")
	ErrClosed         = errors.New("store closed")
)
