package status

import (
	"encoding/json"
	"time"

	"github.com/RayRama/laundry-monitor-sub001/internal/logic"
)

// SnapshotJSON is the JSON representation of a snapshot for the read API.
type SnapshotJSON struct {
	Devices    []DeviceJSON          `json:"devices"`
	Aggregates map[string]CountsJSON `json:"aggregates"`
	Meta       MetaJSON              `json:"meta"`
}

// DeviceJSON is the JSON representation of one device.
type DeviceJSON struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	Label           string `json:"label"`
	Slot            int    `json:"slot"`
	Status          string `json:"status"`
	UpdatedAt       string `json:"updated_at"`
	ActivationTag   string `json:"activation_tag,omitempty"`
	TimeLeftMs      *int64 `json:"time_left_ms,omitempty"`
	TotalDurationMs *int64 `json:"total_duration_ms,omitempty"`
	ElapsedMs       *int64 `json:"elapsed_ms,omitempty"`
	StartTime       string `json:"start_time,omitempty"`
}

// CountsJSON is the JSON representation of per-status counts.
type CountsJSON struct {
	Ready   int `json:"ready"`
	Running int `json:"running"`
	Offline int `json:"offline"`
	Total   int `json:"total"`
}

// MetaJSON is the JSON representation of snapshot metadata.
type MetaJSON struct {
	Timestamp   string `json:"timestamp"`
	Stale       bool   `json:"stale"`
	Version     uint64 `json:"version"`
	ETag        string `json:"etag"`
	LastSuccess string `json:"last_success,omitempty"`
	CheckedAt   string `json:"checked_at,omitempty"`
	LastError   string `json:"last_error,omitempty"`
}

// StatusJSON is the top-level envelope for lifecycle event payloads.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner summarizes the daemon and fleet state.
type StatusInner struct {
	Event         string                `json:"event,omitempty"`
	Reason        string                `json:"reason,omitempty"`
	UptimeSeconds int64                 `json:"uptime_seconds"`
	StartTime     string                `json:"start_time"`
	Timestamp     string                `json:"timestamp"`
	Devices       int                   `json:"devices"`
	Aggregates    map[string]CountsJSON `json:"aggregates"`
	Stale         bool                  `json:"stale"`
	Version       uint64                `json:"version"`
	LastSuccess   string                `json:"last_success,omitempty"`
	MQTT          *MQTTJSON             `json:"mqtt,omitempty"`
}

// MQTTJSON reports the broker link at the time of a lifecycle event.
type MQTTJSON struct {
	Connected bool `json:"connected"`
	Buffered  int  `json:"buffered"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func buildAggregates(agg Aggregates) map[string]CountsJSON {
	out := make(map[string]CountsJSON, len(agg))
	for typ, c := range agg {
		out[string(typ)] = CountsJSON{
			Ready:   c[logic.StatusReady],
			Running: c[logic.StatusRunning],
			Offline: c[logic.StatusOffline],
			Total:   c.Total(),
		}
	}
	return out
}

// BuildJSON converts a snapshot into its API representation.
func BuildJSON(snap *Snapshot) SnapshotJSON {
	if snap == nil {
		return SnapshotJSON{
			Devices:    []DeviceJSON{},
			Aggregates: buildAggregates(Aggregate(nil)),
			Meta:       MetaJSON{Stale: true, ETag: ETag(nil)},
		}
	}

	devices := make([]DeviceJSON, 0, len(snap.Devices))
	for _, d := range snap.Devices {
		dj := DeviceJSON{
			ID:              d.ID,
			Type:            string(d.Type),
			Label:           d.Label,
			Slot:            d.Slot,
			Status:          string(d.Status),
			UpdatedAt:       formatTime(d.UpdatedAt),
			ActivationTag:   d.ActivationTag,
			TimeLeftMs:      d.TimeLeftMs,
			TotalDurationMs: d.TotalDurationMs,
			ElapsedMs:       d.ElapsedMs,
		}
		if d.StartTime != nil {
			dj.StartTime = formatTime(*d.StartTime)
		}
		devices = append(devices, dj)
	}

	return SnapshotJSON{
		Devices:    devices,
		Aggregates: buildAggregates(snap.Aggregates),
		Meta: MetaJSON{
			Timestamp:   formatTime(snap.Meta.Timestamp),
			Stale:       snap.Meta.Stale,
			Version:     snap.Meta.Version,
			ETag:        ETag(snap),
			LastSuccess: formatTime(snap.Meta.LastSuccess),
			CheckedAt:   formatTime(snap.Meta.CheckedAt),
			LastError:   snap.Meta.LastError,
		},
	}
}

// FormatJSON returns the JSON snapshot for the read API.
func FormatJSON(snap *Snapshot) []byte {
	data, _ := json.MarshalIndent(BuildJSON(snap), "", "  ")
	return data
}

// FormatStatusEvent returns the JSON summary for an MQTT lifecycle event.
// link may be nil when no broker is configured.
func FormatStatusEvent(snap *Snapshot, started, now time.Time, event, reason string, link *MQTTJSON) []byte {
	inner := StatusInner{
		Event:         event,
		Reason:        reason,
		MQTT:          link,
		UptimeSeconds: int64(now.Sub(started).Truncate(time.Second).Seconds()),
		StartTime:     formatTime(started),
		Timestamp:     formatTime(now),
		Stale:         true,
	}
	if snap != nil {
		inner.Devices = len(snap.Devices)
		inner.Aggregates = buildAggregates(snap.Aggregates)
		inner.Stale = snap.Meta.Stale
		inner.Version = snap.Meta.Version
		inner.LastSuccess = formatTime(snap.Meta.LastSuccess)
	} else {
		inner.Aggregates = buildAggregates(Aggregate(nil))
	}

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
