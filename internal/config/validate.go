package config

import (
	"fmt"
	"net/url"
)

// Validate checks configuration correctness without modifying it.
func Validate(cfg *Config) error {
	if cfg.UpstreamURL == "" {
		return fmt.Errorf("upstream url is required")
	}
	u, err := url.Parse(cfg.UpstreamURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("upstream url %q must be absolute", cfg.UpstreamURL)
	}
	if cfg.OutletID == "" {
		return fmt.Errorf("outlet id is required")
	}
	if cfg.HTTPAddr == "" {
		return fmt.Errorf("http address is required")
	}

	positive := []struct {
		name string
		v    int64
	}{
		{"poll interval", int64(cfg.PollInterval)},
		{"fetch timeout", int64(cfg.FetchTimeout)},
		{"stale threshold", int64(cfg.StaleThreshold)},
		{"event queue size", int64(cfg.EventQueueSize)},
	}
	for _, p := range positive {
		if p.v <= 0 {
			return fmt.Errorf("%s must be > 0", p.name)
		}
	}

	nonNegative := []struct {
		name string
		v    int64
	}{
		{"hold window", int64(cfg.HoldWindow)},
		{"start skew limit", int64(cfg.StartSkewLimit)},
		{"heartbeat", int64(cfg.Heartbeat)},
	}
	for _, n := range nonNegative {
		if n.v < 0 {
			return fmt.Errorf("%s must be >= 0", n.name)
		}
	}

	if cfg.FetchTimeout > cfg.PollInterval {
		return fmt.Errorf("fetch timeout %v exceeds poll interval %v", cfg.FetchTimeout, cfg.PollInterval)
	}
	if cfg.MQTTBroker != "" && cfg.MQTTOutboxSize <= 0 {
		return fmt.Errorf("mqtt outbox size must be > 0")
	}
	if cfg.ClickHouseAddr != "" && cfg.ClickHouseDB == "" {
		return fmt.Errorf("clickhouse database is required when clickhouse is enabled")
	}
	return nil
}
