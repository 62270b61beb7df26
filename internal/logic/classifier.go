package logic

import (
	"fmt"
	"time"
)

// MaxRunDuration is the longest total duration accepted as a real run.
const MaxRunDuration = 3 * time.Hour

// ValidCounters reports whether the duration counters describe a run in progress.
func ValidCounters(timeLeftMs, totalDurationMs int64) bool {
	return totalDurationMs > 0 &&
		totalDurationMs <= MaxRunDuration.Milliseconds() &&
		timeLeftMs > 0 &&
		timeLeftMs <= totalDurationMs
}

// Classify maps a single reading to a raw status. It keeps no history.
func Classify(t Telemetry) Classification {
	valid := ValidCounters(t.TimeLeftMs, t.TotalDurationMs)
	diag := Diagnostic{
		Online:          t.Online,
		TimeLeftMs:      t.TimeLeftMs,
		TotalDurationMs: t.TotalDurationMs,
		StateCode:       t.StateCode,
		ActivationTag:   t.ActivationTag,
		LastUpdated:     t.LastUpdated,
		ValidCounters:   valid,
	}

	if !t.Online {
		return Classification{Status: StatusOffline, Reason: "offline flag", Diagnostic: diag}
	}
	if valid {
		return Classification{Status: StatusRunning, Reason: "valid run counters", Diagnostic: diag}
	}
	return Classification{Status: StatusReady, Reason: invalidReason(t), Diagnostic: diag}
}

func invalidReason(t Telemetry) string {
	switch {
	case t.TotalDurationMs <= 0:
		return "no total duration"
	case t.TotalDurationMs > MaxRunDuration.Milliseconds():
		return fmt.Sprintf("total duration %dms exceeds %v", t.TotalDurationMs, MaxRunDuration)
	case t.TimeLeftMs <= 0:
		return "no time left"
	default:
		return fmt.Sprintf("time left %dms exceeds total %dms", t.TimeLeftMs, t.TotalDurationMs)
	}
}
