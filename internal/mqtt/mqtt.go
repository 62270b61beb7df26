// Package mqtt publishes transition and lifecycle events to an MQTT broker.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/RayRama/laundry-monitor-sub001/internal/logic"
)

// Topic is the MQTT topic for confirmed device transitions.
const Topic = "laundry/monitor/transitions"

// TopicSystem is the MQTT topic for daemon lifecycle events.
const TopicSystem = "laundry/monitor/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a transition event to the broker.
	Publish(event logic.TransitionEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports the state of the broker link.
type ConnectionStatus interface {
	IsConnected() bool
	// Buffered is the number of messages waiting for a connection.
	Buffered() int
}

// SystemEvent is a daemon lifecycle event (STARTUP, SHUTDOWN, HEARTBEAT).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string
	Reason     string // shutdown signal name
	RawPayload []byte // pre-formatted status summary, used as-is when set
	Retained   bool
}

// Payload is the MQTT message body for a transition.
type Payload struct {
	Transition TransitionPayload `json:"transition"`
}

// TransitionPayload carries one confirmed transition.
type TransitionPayload struct {
	ID         string              `json:"id"`
	DeviceID   string              `json:"device_id"`
	Label      string              `json:"label"`
	Type       string              `json:"type"`
	From       string              `json:"from"`
	To         string              `json:"to"`
	At         string              `json:"at"`
	Reason     string              `json:"reason"`
	Diagnostic logic.Diagnostic    `json:"diagnostic"`
	Previous   logic.PreviousState `json:"previous"`
}

// FormatPayload creates the JSON payload for a transition.
func FormatPayload(event logic.TransitionEvent) ([]byte, error) {
	return json.Marshal(Payload{
		Transition: TransitionPayload{
			ID:         event.ID,
			DeviceID:   event.DeviceID,
			Label:      event.Label,
			Type:       string(event.Type),
			From:       string(event.From),
			To:         string(event.To),
			At:         event.At.UTC().Format(time.RFC3339),
			Reason:     event.Reason,
			Diagnostic: event.Diagnostic,
			Previous:   event.Previous,
		},
	})
}

// SystemPayload is the body for simple events (LWT, RECONNECTED) that carry
// no status summary.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// RawPayload wins when set.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}
	return json.Marshal(SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	})
}
