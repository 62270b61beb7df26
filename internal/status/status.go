// Package status holds the current fleet snapshot for HTTP handlers and
// event publishers. Snapshots are immutable once stored.
package status

import (
	"sync"
	"time"

	"github.com/RayRama/laundry-monitor-sub001/internal/logic"
)

// DefaultStaleThreshold is the age after which a snapshot is reported stale.
const DefaultStaleThreshold = 2 * time.Minute

// Device is the normalized view of one appliance.
type Device struct {
	ID            string
	Type          logic.DeviceType
	Label         string
	Slot          int
	Status        logic.Status
	UpdatedAt     time.Time
	ActivationTag string

	// Set only while the device is running with valid counters
	TimeLeftMs      *int64
	TotalDurationMs *int64
	ElapsedMs       *int64
	StartTime       *time.Time
}

// Counts is the number of devices in each status.
type Counts map[logic.Status]int

// Total returns the number of devices counted.
func (c Counts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// Aggregates holds per-type status counts.
type Aggregates map[logic.DeviceType]Counts

// Meta describes when and how a snapshot was produced.
type Meta struct {
	// Timestamp is when the device data was produced.
	Timestamp time.Time
	Stale     bool
	Version   uint64
	// LastSuccess is the time of the most recent successful refresh.
	LastSuccess time.Time
	// CheckedAt is the time of the most recent refresh attempt.
	CheckedAt time.Time
	LastError string
}

// Snapshot is a point-in-time view of the fleet.
// It is treated as immutable once passed to Store.Set.
type Snapshot struct {
	Devices    []Device
	Aggregates Aggregates
	Meta       Meta
}

// NewSnapshot builds a snapshot whose aggregates are computed from devices.
func NewSnapshot(devices []Device, meta Meta) *Snapshot {
	return &Snapshot{
		Devices:    devices,
		Aggregates: Aggregate(devices),
		Meta:       meta,
	}
}

// Aggregate counts devices by type and status. Every known type and status
// is present, zero if unused.
func Aggregate(devices []Device) Aggregates {
	agg := make(Aggregates, len(logic.DeviceTypes))
	for _, typ := range logic.DeviceTypes {
		c := make(Counts, len(logic.Statuses))
		for _, s := range logic.Statuses {
			c[s] = 0
		}
		agg[typ] = c
	}
	for _, d := range devices {
		c, ok := agg[d.Type]
		if !ok {
			c = make(Counts)
			agg[d.Type] = c
		}
		c[d.Status]++
	}
	return agg
}

// Stale reports whether snap is missing, marked stale, or older than threshold.
func Stale(snap *Snapshot, now time.Time, threshold time.Duration) bool {
	if snap == nil || snap.Meta.Stale {
		return true
	}
	return now.Sub(snap.Meta.Timestamp) > threshold
}

// Store holds the current snapshot behind an RWMutex.
// Single writer, many readers.
type Store struct {
	mu        sync.RWMutex
	snap      *Snapshot
	version   uint64
	threshold time.Duration
}

// NewStore creates an empty store with the given staleness threshold.
func NewStore(threshold time.Duration) *Store {
	return &Store{threshold: threshold}
}

// Set atomically replaces the current snapshot and assigns the next version.
// The stored value is a copy of snap; the device slice is shared and must not
// be modified afterwards.
func (s *Store) Set(snap *Snapshot) *Snapshot {
	cp := *snap
	s.mu.Lock()
	s.version++
	cp.Meta.Version = s.version
	s.snap = &cp
	s.mu.Unlock()
	return &cp
}

// Get returns the current snapshot, or nil if none has been stored.
func (s *Store) Get() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// IsStale reports whether the current snapshot is missing, marked stale, or
// older than the store threshold.
func (s *Store) IsStale(now time.Time) bool {
	return Stale(s.Get(), now, s.threshold)
}

// Threshold returns the staleness threshold.
func (s *Store) Threshold() time.Duration {
	return s.threshold
}
