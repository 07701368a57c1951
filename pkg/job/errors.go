package job

import "errors"

// Job errors.
var (
	// ErrJobNotFound is returned when a run ID is unknown to the provider.
	ErrJobNotFound = errors.New("job: not found")

	// ErrQueueFull is returned when the provider refuses new work.
	ErrQueueFull = errors.New("job: queue is full")

	// ErrNoHandler is returned when no handler is registered for an event.
	ErrNoHandler = errors.New("job: no handler registered")

	// ErrInvalidPayload is returned when a payload cannot be encoded or
	// decoded into the handler's type.
	ErrInvalidPayload = errors.New("job: invalid payload")

	// ErrInvalidTransition is returned when an outcome does not apply to the
	// job's current status.
	ErrInvalidTransition = errors.New("job: invalid state transition")

	// ErrNotConfigured is returned when a provider is used without its backend.
	ErrNotConfigured = errors.New("job: provider not configured")

	// ErrAlreadyStarted is returned when starting a running provider.
	ErrAlreadyStarted = errors.New("job: already started")

	// ErrNotStarted is returned when stopping a provider that is not running.
	ErrNotStarted = errors.New("job: not started")

	// ErrHealthcheckFailed is returned by Healthcheck when the provider is unhealthy.
	ErrHealthcheckFailed = errors.New("job: healthcheck failed")
)
