package logic

import (
	"testing"
	"time"
)

func TestClassifyOfflineIgnoresCounters(t *testing.T) {
	tests := []struct {
		name     string
		timeLeft int64
		total    int64
	}{
		{"valid counters", 5000, 600000},
		{"zero counters", 0, 0},
		{"corrupt counters", 900000, 600000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Classify(Telemetry{Online: false, TimeLeftMs: tt.timeLeft, TotalDurationMs: tt.total})
			if c.Status != StatusOffline {
				t.Errorf("status: got %s, want OFFLINE", c.Status)
			}
			if c.Reason != "offline flag" {
				t.Errorf("reason: got %q, want %q", c.Reason, "offline flag")
			}
		})
	}
}

func TestClassifyRunningBounds(t *testing.T) {
	maxMs := MaxRunDuration.Milliseconds()
	tests := []struct {
		name     string
		timeLeft int64
		total    int64
		want     Status
	}{
		{"typical run", 5000, 600000, StatusRunning},
		{"time left equals total", 600000, 600000, StatusRunning},
		{"one ms left", 1, 600000, StatusRunning},
		{"total at max", 1000, maxMs, StatusRunning},
		{"total over max", 1000, maxMs + 1, StatusReady},
		{"zero total", 1000, 0, StatusReady},
		{"negative total", 1000, -5, StatusReady},
		{"zero time left", 0, 600000, StatusReady},
		{"negative time left", -1, 600000, StatusReady},
		{"time left over total", 600001, 600000, StatusReady},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Classify(Telemetry{Online: true, TimeLeftMs: tt.timeLeft, TotalDurationMs: tt.total})
			if c.Status != tt.want {
				t.Errorf("status: got %s, want %s (reason %q)", c.Status, tt.want, c.Reason)
			}
		})
	}
}

func TestClassifyDiagnosticRetainsRawFields(t *testing.T) {
	updated := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	c := Classify(Telemetry{
		ID:              "8812",
		Online:          true,
		TimeLeftMs:      900000,
		TotalDurationMs: 600000,
		StateCode:       7,
		ActivationTag:   "qr-scan",
		LastUpdated:     updated,
	})

	if c.Status != StatusReady {
		t.Fatalf("status: got %s, want READY", c.Status)
	}
	d := c.Diagnostic
	if !d.Online || d.TimeLeftMs != 900000 || d.TotalDurationMs != 600000 {
		t.Errorf("counters not retained: %+v", d)
	}
	if d.StateCode != 7 || d.ActivationTag != "qr-scan" {
		t.Errorf("tags not retained: %+v", d)
	}
	if !d.LastUpdated.Equal(updated) {
		t.Errorf("LastUpdated: got %v, want %v", d.LastUpdated, updated)
	}
	if d.ValidCounters {
		t.Error("expected ValidCounters=false")
	}
	if c.Reason != "time left 900000ms exceeds total 600000ms" {
		t.Errorf("unexpected reason: %q", c.Reason)
	}
}

func TestClassifyZeroValueIsReadyWhenOnline(t *testing.T) {
	c := Classify(Telemetry{Online: true})
	if c.Status != StatusReady {
		t.Errorf("status: got %s, want READY", c.Status)
	}
	if c.Reason != "no total duration" {
		t.Errorf("reason: got %q", c.Reason)
	}
}
