// Package logic contains pure business logic for appliance status tracking.
// This package has NO external dependencies (no HTTP, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// Status represents the normalized operating status of an appliance.
type Status string

const (
	StatusReady   Status = "READY"
	StatusRunning Status = "RUNNING"
	StatusOffline Status = "OFFLINE"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusReady, StatusRunning, StatusOffline}

// DeviceType is the appliance kind.
type DeviceType string

const (
	TypeWasher DeviceType = "washer"
	TypeDryer  DeviceType = "dryer"
)

// DeviceTypes lists every device type in display order.
var DeviceTypes = []DeviceType{TypeWasher, TypeDryer}

// Telemetry is a single validated upstream reading for one device.
// Missing upstream fields arrive here as zero values, which never classify
// as RUNNING.
type Telemetry struct {
	ID              string
	Name            string
	Type            DeviceType
	Online          bool
	TimeLeftMs      int64
	TotalDurationMs int64
	StateCode       int
	ActivationTag   string
	LastUpdated     time.Time
}

// Diagnostic retains the raw fields that produced a classification.
type Diagnostic struct {
	Online          bool      `json:"online"`
	TimeLeftMs      int64     `json:"time_left_ms"`
	TotalDurationMs int64     `json:"total_duration_ms"`
	StateCode       int       `json:"state_code"`
	ActivationTag   string    `json:"activation_tag,omitempty"`
	LastUpdated     time.Time `json:"last_updated"`
	ValidCounters   bool      `json:"valid_counters"`
}

// Classification is the raw (undebounced) status of one reading.
type Classification struct {
	Status     Status
	Reason     string
	Diagnostic Diagnostic
}

// Run describes an in-progress run derived from duration counters.
type Run struct {
	ElapsedMs int64
	StartTime time.Time
}

// Transition is a confirmed status change for one device.
type Transition struct {
	DeviceID string
	From     Status
	To       Status
	At       time.Time
	// Since is when From was confirmed.
	Since time.Time
}

// PreviousState is the context a device was in before a transition.
type PreviousState struct {
	Status    Status     `json:"status"`
	Since     time.Time  `json:"since"`
	StartTime *time.Time `json:"start_time,omitempty"`
	RunMs     int64      `json:"run_ms,omitempty"`
	// ActivationTag is the tag seen while the ended run was in progress.
	ActivationTag string `json:"activation_tag,omitempty"`
}

// TransitionEvent is a confirmed transition enriched for external sinks.
type TransitionEvent struct {
	ID         string
	DeviceID   string
	Label      string
	Type       DeviceType
	From       Status
	To         Status
	At         time.Time
	Reason     string
	Diagnostic Diagnostic
	Previous   PreviousState
}

// CompletedRun reports whether the event ends a run with a known start.
func (e TransitionEvent) CompletedRun() bool {
	return e.From == StatusRunning && e.To != StatusRunning && e.Previous.StartTime != nil
}
