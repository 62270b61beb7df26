package source

import (
	"context"
	"errors"
	"sync"

	"github.com/RayRama/laundry-monitor-sub001/internal/logic"
)

// Fake is a test double that returns scripted telemetry.
type Fake struct {
	mu sync.Mutex

	// Responses contains scripted results. Each call to Fetch consumes the
	// next one; when exhausted the last is returned repeatedly.
	Responses []Response

	// Gate, if set, blocks every Fetch until it is closed or ctx is done.
	Gate chan struct{}

	index int
	calls int
}

// Response is a single scripted Fetch result.
type Response struct {
	Telemetry []logic.Telemetry
	Err       error
}

// NewFake creates a Fake with the given responses.
func NewFake(responses ...Response) *Fake {
	return &Fake{Responses: responses}
}

// Fetch returns the next scripted response.
func (f *Fake) Fetch(ctx context.Context, outletID string) ([]logic.Telemetry, error) {
	f.mu.Lock()
	f.calls++
	gate := f.Gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.Responses) == 0 {
		return nil, errors.New("no responses configured")
	}

	r := f.Responses[f.index]
	if f.index < len(f.Responses)-1 {
		f.index++
	}
	return r.Telemetry, r.Err
}

// Calls returns the number of Fetch calls made.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Reset rewinds the scripted responses and clears the call counter.
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.index = 0
	f.calls = 0
}
