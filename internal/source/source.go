// Package source fetches raw device telemetry from the upstream service.
// The HTTP implementation talks to the real API; the fake allows testing
// without a network.
package source

import (
	"context"
	"errors"

	"github.com/RayRama/laundry-monitor-sub001/internal/logic"
)

// Source returns the current telemetry for every device at an outlet.
type Source interface {
	// Fetch must honor ctx cancellation and deadlines.
	Fetch(ctx context.Context, outletID string) ([]logic.Telemetry, error)
}

var (
	// ErrUpstreamStatus is returned for a non-2xx upstream response.
	ErrUpstreamStatus = errors.New("source: upstream returned non-success status")
	// ErrMalformed is returned when the upstream body cannot be decoded.
	ErrMalformed = errors.New("source: malformed upstream payload")
)

// Upstream type codes.
const (
	typeCodeWasher = 1
	typeCodeDryer  = 2
)
