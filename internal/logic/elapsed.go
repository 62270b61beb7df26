package logic

import "time"

// DefaultStartSkewLimit is the maximum age of an upstream timestamp that is
// still trusted as a run start time.
const DefaultStartSkewLimit = 5 * time.Minute

// ElapsedTracker remembers when each running device started.
// Not safe for concurrent use; callers serialize refresh passes.
type ElapsedTracker struct {
	skewLimit time.Duration
	starts    map[string]time.Time
}

// NewElapsedTracker creates a tracker that distrusts upstream timestamps older
// than skewLimit.
func NewElapsedTracker(skewLimit time.Duration) *ElapsedTracker {
	return &ElapsedTracker{
		skewLimit: skewLimit,
		starts:    make(map[string]time.Time),
	}
}

// Track returns the run progress for a device, or false if it is not running
// with valid counters. Stopping clears the remembered start time.
func (e *ElapsedTracker) Track(deviceID string, confirmed Status, t Telemetry, now time.Time) (Run, bool) {
	if confirmed != StatusRunning || !ValidCounters(t.TimeLeftMs, t.TotalDurationMs) {
		delete(e.starts, deviceID)
		return Run{}, false
	}

	elapsed := t.TotalDurationMs - t.TimeLeftMs
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > t.TotalDurationMs {
		elapsed = t.TotalDurationMs
	}

	start, ok := e.starts[deviceID]
	if !ok {
		start = e.startTime(t.LastUpdated, now)
		e.starts[deviceID] = start
	}

	return Run{ElapsedMs: elapsed, StartTime: start}, true
}

func (e *ElapsedTracker) startTime(updated, now time.Time) time.Time {
	if updated.IsZero() || updated.After(now) || now.Sub(updated) > e.skewLimit {
		return now
	}
	return updated
}

// Start returns the remembered start time for a device.
func (e *ElapsedTracker) Start(deviceID string) (time.Time, bool) {
	t, ok := e.starts[deviceID]
	return t, ok
}
