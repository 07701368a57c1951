package event

import (
	"errors"
	"fmt"

	"github.com/dmitrymomot/jobcore/pkg/classify"
)

var (
	// ErrMissingTenant is returned when a payload has no usable tenantId.
	ErrMissingTenant = errors.New("event: payload missing tenantId")

	// ErrUnknownEvent is returned when a catalog does not contain the event name.
	ErrUnknownEvent = errors.New("event: unknown event")

	// ErrInvalidName is returned for names that are not dot-namespaced lowercase identifiers.
	ErrInvalidName = errors.New("event: invalid event name")
)

// TenantError describes why a payload failed tenant validation.
// It matches ErrMissingTenant with errors.Is.
type TenantError struct {
	Event  string
	Reason string
}

func (e *TenantError) Error() string {
	return fmt.Sprintf("event %q: payload missing tenantId: %s", e.Event, e.Reason)
}

// Is reports whether target is ErrMissingTenant.
func (e *TenantError) Is(target error) bool {
	return target == ErrMissingTenant
}

// Code reports the classification code for tenant failures.
func (e *TenantError) Code() string {
	return classify.CodeMissingTenant
}
