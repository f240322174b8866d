package domain

import (
	"context"
	"errors"
)

// ErrUpstreamUnavailable wraps every failure to obtain records from the
// incident dataset: transport errors, timeouts, and non-success responses.
var ErrUpstreamUnavailable = errors.New("incident dataset unavailable")

// IncidentSource fetches raw incidents matching a filter.
type IncidentSource interface {
	Fetch(ctx context.Context, filter QueryFilter) ([]RawIncident, error)
}
