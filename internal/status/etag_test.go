package status

import (
	"testing"
	"time"

	"github.com/RayRama/laundry-monitor-sub001/internal/logic"
)

func TestETagIgnoresVolatileFields(t *testing.T) {
	a := NewSnapshot(testDevices(), Meta{Timestamp: t0, Version: 1})

	devices := testDevices()
	left, elapsed := int64(1000), int64(599000)
	devices[0].TimeLeftMs = &left
	devices[0].ElapsedMs = &elapsed
	devices[0].UpdatedAt = t0.Add(time.Minute)
	devices[1].ActivationTag = "app"
	b := NewSnapshot(devices, Meta{Timestamp: t0.Add(time.Minute), Version: 2, Stale: true})

	if ETag(a) != ETag(b) {
		t.Errorf("ETag changed for volatile fields: %s vs %s", ETag(a), ETag(b))
	}
}

func TestETagIgnoresDeviceOrder(t *testing.T) {
	devices := testDevices()
	reversed := []Device{devices[2], devices[1], devices[0]}

	if ETag(NewSnapshot(devices, Meta{})) != ETag(NewSnapshot(reversed, Meta{})) {
		t.Error("ETag depends on device order")
	}
}

func TestETagChangesWithDisplayFields(t *testing.T) {
	base := ETag(NewSnapshot(testDevices(), Meta{}))

	mutations := map[string]func(d *Device){
		"status": func(d *Device) { d.Status = logic.StatusReady },
		"label":  func(d *Device) { d.Label = "W09" },
		"slot":   func(d *Device) { d.Slot = 4 },
		"type":   func(d *Device) { d.Type = logic.TypeDryer },
		"id":     func(d *Device) { d.ID = "w9" },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			devices := testDevices()
			mutate(&devices[0])
			if ETag(NewSnapshot(devices, Meta{})) == base {
				t.Errorf("ETag unchanged after %s change", name)
			}
		})
	}
}

func TestETagDoesNotModifySnapshot(t *testing.T) {
	devices := testDevices()
	reversed := []Device{devices[2], devices[1], devices[0]}
	snap := NewSnapshot(reversed, Meta{})
	ETag(snap)
	if snap.Devices[0].ID != "d1" {
		t.Error("ETag reordered the snapshot devices")
	}
}

func TestETagFormat(t *testing.T) {
	tag := ETag(nil)
	if len(tag) != 34 || tag[0] != '"' || tag[33] != '"' {
		t.Errorf("unexpected ETag format: %s", tag)
	}
}

func TestMatchETag(t *testing.T) {
	tag := `"abc"`
	tests := []struct {
		header string
		want   bool
	}{
		{`"abc"`, true},
		{`W/"abc"`, true},
		{`"x", "abc"`, true},
		{`*`, true},
		{`"abd"`, false},
		{``, false},
		{`abc`, false},
	}
	for _, tt := range tests {
		if got := MatchETag(tt.header, tag); got != tt.want {
			t.Errorf("MatchETag(%q): got %v, want %v", tt.header, got, tt.want)
		}
	}
}
