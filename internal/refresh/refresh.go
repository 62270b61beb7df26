// Package refresh drives the normalization pipeline against the telemetry
// source, periodically and on demand, with at most one refresh in flight.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/RayRama/laundry-monitor-sub001/internal/logic"
	"github.com/RayRama/laundry-monitor-sub001/internal/source"
	"github.com/RayRama/laundry-monitor-sub001/internal/status"
)

const refreshKey = "refresh"

// Normalizer turns one poll of telemetry into devices.
type Normalizer interface {
	Run(telemetry []logic.Telemetry, now time.Time) []status.Device
}

// Config is the runtime config the scheduler needs.
type Config struct {
	OutletID string
	Interval time.Duration
	Timeout  time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// Scheduler refreshes the snapshot store from the telemetry source.
type Scheduler struct {
	cfg   Config
	src   source.Source
	norm  Normalizer
	store *status.Store
	now   func() time.Time
	group singleflight.Group
}

// New creates a scheduler with immutable config.
func New(cfg Config, src source.Source, norm Normalizer, store *status.Store) (*Scheduler, error) {
	if cfg.OutletID == "" {
		return nil, errors.New("refresh: outlet id required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("refresh: interval must be > 0")
	}
	if cfg.Timeout <= 0 {
		return nil, errors.New("refresh: timeout must be > 0")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		cfg:   cfg,
		src:   src,
		norm:  norm,
		store: store,
		now:   now,
	}, nil
}

// RefreshOnce runs one refresh and returns the resulting snapshot. Concurrent
// callers join the refresh already in flight. If ctx is done first the
// current snapshot is returned while the refresh completes in the background.
func (s *Scheduler) RefreshOnce(ctx context.Context) *status.Snapshot {
	ch := s.group.DoChan(refreshKey, func() (interface{}, error) {
		return s.refresh(ctx), nil
	})
	select {
	case r := <-ch:
		return r.Val.(*status.Snapshot)
	case <-ctx.Done():
		return s.store.Get()
	}
}

// EnsureFresh refreshes first if the store is stale, then returns the current
// snapshot. The result is never nil.
func (s *Scheduler) EnsureFresh(ctx context.Context) *status.Snapshot {
	if s.store.IsStale(s.now()) {
		if snap := s.RefreshOnce(ctx); snap != nil {
			return snap
		}
	}
	if snap := s.store.Get(); snap != nil {
		return snap
	}
	return status.NewSnapshot(nil, status.Meta{Timestamp: s.now(), Stale: true})
}

// Run refreshes immediately and then on every interval until ctx is done.
// No overlap with on-demand refreshes. No retries.
func (s *Scheduler) Run(ctx context.Context) {
	s.RefreshOnce(ctx)
	s.Poll(ctx)
}

// Poll refreshes on every interval until ctx is done, without an initial
// refresh. Used when the caller has already run the first refresh.
func (s *Scheduler) Poll(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RefreshOnce(ctx)
		}
	}
}

func (s *Scheduler) refresh(ctx context.Context) *status.Snapshot {
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Timeout)
	defer cancel()

	telemetry, err := s.src.Fetch(fetchCtx, s.cfg.OutletID)
	now := s.now()
	if err != nil {
		return s.degrade(now, fmt.Errorf("fetch: %w", err))
	}

	devices, err := s.normalize(telemetry, now)
	if err != nil {
		return s.degrade(now, err)
	}

	snap := s.store.Set(status.NewSnapshot(devices, status.Meta{
		Timestamp:   now,
		LastSuccess: now,
		CheckedAt:   now,
	}))
	log.Printf("refresh: %d devices, version %d", len(devices), snap.Meta.Version)
	return snap
}

// normalize runs the pipeline, converting a panic into an error so that a
// bad poll degrades the snapshot instead of taking down the process.
func (s *Scheduler) normalize(telemetry []logic.Telemetry, now time.Time) (devices []status.Device, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("normalize: %v", r)
		}
	}()
	return s.norm.Run(telemetry, now), nil
}

// degrade keeps the previous device list with restamped metadata, or installs
// an empty stale snapshot when there is none.
func (s *Scheduler) degrade(now time.Time, err error) *status.Snapshot {
	log.Printf("refresh: %v", err)

	prev := s.store.Get()
	if prev == nil {
		return s.store.Set(status.NewSnapshot(nil, status.Meta{
			Timestamp: now,
			Stale:     true,
			CheckedAt: now,
			LastError: err.Error(),
		}))
	}

	meta := prev.Meta
	meta.Stale = status.Stale(prev, now, s.store.Threshold())
	meta.CheckedAt = now
	meta.LastError = err.Error()
	return s.store.Set(status.NewSnapshot(prev.Devices, meta))
}
