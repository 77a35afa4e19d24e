// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"errors"
	"time"
)

// DefaultNamespace prefixes every topic.
const DefaultNamespace = "honeybox"

// ReportQoS is used for the periodic readings (at-least-once).
const ReportQoS byte = 1

// ErrNotConnected is returned when a message could not be sent because the
// broker connection is down. The message is kept in the offline buffer.
var ErrNotConnected = errors.New("mqtt: not connected")

// Topics holds the fully qualified topic names under one namespace.
type Topics struct {
	Temp     string
	Humidity string
	Tilt     string
	LidOpen  string
	Status   string
	System   string
}

// NewTopics builds the topic set for namespace.
func NewTopics(namespace string) Topics {
	return Topics{
		Temp:     namespace + "/temp",
		Humidity: namespace + "/humidity",
		Tilt:     namespace + "/tilt",
		LidOpen:  namespace + "/lid_open_in_secs",
		Status:   namespace + "/status",
		System:   namespace + "/system",
	}
}

// Publisher publishes messages to MQTT.
type Publisher interface {
	// Publish sends one value and waits for the broker's acknowledgement.
	// Returns error if publishing fails (should not crash the process).
	Publish(topic, payload string, qos byte) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "RECONNECTED"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	inner := SystemPayloadInner{
		Event:  event.Event,
		Reason: event.Reason,
	}
	if !event.Timestamp.IsZero() {
		inner.Timestamp = event.Timestamp.UTC().Format(time.RFC3339)
	}
	return json.Marshal(SystemPayload{System: inner})
}

// WillPayload is the last-will message the broker publishes if the
// connection drops without a clean disconnect. It carries no timestamp
// since it is registered at connect time.
func WillPayload() []byte {
	data, _ := FormatSystemPayload(SystemEvent{Event: "OFFLINE", Reason: "CONNECTION_LOST"})
	return data
}
