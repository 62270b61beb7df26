// Package pipeline normalizes a poll of raw telemetry into display-ready
// devices, holding the per-device debounce and run-timer state between polls.
package pipeline

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/RayRama/laundry-monitor-sub001/internal/labels"
	"github.com/RayRama/laundry-monitor-sub001/internal/logic"
	"github.com/RayRama/laundry-monitor-sub001/internal/status"
)

// Notifier receives confirmed transitions. Notify must not block.
type Notifier interface {
	Notify(ev logic.TransitionEvent)
}

// Config holds the pipeline policy values.
type Config struct {
	HoldWindow     time.Duration
	StartSkewLimit time.Duration
}

// Pipeline owns the debouncer and elapsed tracker for the fleet.
// Concurrent Run calls are serialized.
type Pipeline struct {
	mu        sync.Mutex
	debouncer *logic.Debouncer
	elapsed   *logic.ElapsedTracker
	labels    *labels.Resolver
	notifier  Notifier
	runTags   map[string]string
	newID     func() string
}

// New creates a pipeline. notifier may be nil.
func New(cfg Config, resolver *labels.Resolver, notifier Notifier) *Pipeline {
	return &Pipeline{
		debouncer: logic.NewDebouncer(cfg.HoldWindow),
		elapsed:   logic.NewElapsedTracker(cfg.StartSkewLimit),
		labels:    resolver,
		notifier:  notifier,
		runTags:   make(map[string]string),
		newID:     uuid.NewString,
	}
}

// Run normalizes one poll. Each input record yields exactly one device, except
// repeated ids, which are ignored after the first.
func (p *Pipeline) Run(telemetry []logic.Telemetry, now time.Time) []status.Device {
	p.mu.Lock()
	defer p.mu.Unlock()

	pass := p.labels.NewPass()
	seen := make(map[string]struct{}, len(telemetry))
	devices := make([]status.Device, 0, len(telemetry))

	for _, t := range telemetry {
		if _, dup := seen[t.ID]; dup {
			log.Printf("pipeline: duplicate device %s in poll, ignoring", t.ID)
			continue
		}
		seen[t.ID] = struct{}{}

		label, slot := pass.Resolve(t.ID, t.Name, t.Type)
		c := logic.Classify(t)

		// Capture the run start and tag before Track clears them on a stop
		prevStart, hadStart := p.elapsed.Start(t.ID)
		prevTag := p.runTags[t.ID]

		confirmed, tr := p.debouncer.Confirm(t.ID, c.Status, now)
		run, running := p.elapsed.Track(t.ID, confirmed, t, now)

		d := status.Device{
			ID:            t.ID,
			Type:          t.Type,
			Label:         label,
			Slot:          slot,
			Status:        confirmed,
			UpdatedAt:     t.LastUpdated,
			ActivationTag: t.ActivationTag,
		}
		if d.UpdatedAt.IsZero() {
			d.UpdatedAt = now
		}
		if !running {
			delete(p.runTags, t.ID)
		} else if t.ActivationTag != "" {
			p.runTags[t.ID] = t.ActivationTag
		}
		if running {
			timeLeft, total := t.TimeLeftMs, t.TotalDurationMs
			elapsed, start := run.ElapsedMs, run.StartTime
			d.TimeLeftMs = &timeLeft
			d.TotalDurationMs = &total
			d.ElapsedMs = &elapsed
			d.StartTime = &start
		}
		devices = append(devices, d)

		if tr != nil && p.notifier != nil {
			p.notifier.Notify(p.event(t, label, c, tr, prevStart, hadStart, prevTag))
		}
	}

	return devices
}

func (p *Pipeline) event(t logic.Telemetry, label string, c logic.Classification, tr *logic.Transition, prevStart time.Time, hadStart bool, prevTag string) logic.TransitionEvent {
	prev := logic.PreviousState{Status: tr.From, Since: tr.Since}
	if hadStart {
		start := prevStart
		prev.StartTime = &start
		prev.RunMs = tr.At.Sub(start).Milliseconds()
		prev.ActivationTag = prevTag
	}
	return logic.TransitionEvent{
		ID:         p.newID(),
		DeviceID:   tr.DeviceID,
		Label:      label,
		Type:       t.Type,
		From:       tr.From,
		To:         tr.To,
		At:         tr.At,
		Reason:     c.Reason,
		Diagnostic: c.Diagnostic,
		Previous:   prev,
	}
}

// TransitionCounts returns confirmed transitions into each status since startup.
func (p *Pipeline) TransitionCounts() map[logic.Status]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.debouncer.TransitionCounts()
}
