package logic

import "time"

// DefaultHoldWindow is how long a confirmed status is held against a differing reading.
const DefaultHoldWindow = 3 * time.Second

// debounceRecord tracks the confirmed state for a single device.
type debounceRecord struct {
	// Current confirmed status
	Status Status
	// Time the status was last confirmed (anchor of the hold window)
	Since time.Time
}

// Debouncer confirms raw statuses per device and suppresses flicker.
// Not safe for concurrent use; callers serialize refresh passes.
type Debouncer struct {
	hold    time.Duration
	records map[string]*debounceRecord
	counts  map[Status]int
}

// NewDebouncer creates a debouncer with the given hold window.
func NewDebouncer(hold time.Duration) *Debouncer {
	return &Debouncer{
		hold:    hold,
		records: make(map[string]*debounceRecord),
		counts:  make(map[Status]int),
	}
}

// Confirm takes a raw status for a device and returns the confirmed status.
// A non-nil Transition is returned exactly once per confirmed change.
func (d *Debouncer) Confirm(deviceID string, raw Status, now time.Time) (Status, *Transition) {
	rec, ok := d.records[deviceID]
	if !ok {
		// First observation, nothing to transition from
		d.records[deviceID] = &debounceRecord{Status: raw, Since: now}
		return raw, nil
	}

	if raw == rec.Status {
		return rec.Status, nil
	}

	// A finished run is never delayed
	if rec.Status == StatusRunning && raw == StatusReady {
		return d.accept(deviceID, rec, raw, now)
	}

	if now.Sub(rec.Since) >= d.hold {
		return d.accept(deviceID, rec, raw, now)
	}

	return rec.Status, nil
}

func (d *Debouncer) accept(deviceID string, rec *debounceRecord, raw Status, now time.Time) (Status, *Transition) {
	tr := &Transition{
		DeviceID: deviceID,
		From:     rec.Status,
		To:       raw,
		At:       now,
		Since:    rec.Since,
	}
	rec.Status = raw
	rec.Since = now
	d.counts[raw]++
	return raw, tr
}

// Confirmed returns the confirmed status of a device and when it was confirmed.
func (d *Debouncer) Confirmed(deviceID string) (Status, time.Time, bool) {
	rec, ok := d.records[deviceID]
	if !ok {
		return "", time.Time{}, false
	}
	return rec.Status, rec.Since, true
}

// TransitionCounts returns the number of confirmed transitions into each status
// since startup.
func (d *Debouncer) TransitionCounts() map[Status]int {
	out := make(map[Status]int, len(d.counts))
	for k, v := range d.counts {
		out[k] = v
	}
	return out
}
