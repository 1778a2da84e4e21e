package queue

import "errors"

// ErrQueueFull is returned when the queue cannot accept more jobs.
var ErrQueueFull = errors.New("rescore queue full")
