package services

import "errors"

var (
	ErrBrowserUnavailable = errors.New("browser unavailable")
	ErrSessionClosed      = errors.New("pipeline session is closed")
	ErrJobNotFound        = errors.New("job not found")
	ErrQueueFull          = errors.New("job queue is full")
	ErrJobsClosed         = errors.New("job manager is closed")
	ErrCacheMiss          = errors.New("key not found")
)
