package mqtt

import "sync"

// Message is one value recorded by FakePublisher.
type Message struct {
	Topic   string
	Payload string
	QoS     byte
}

// FakePublisher records published messages for test assertions.
// It is safe for concurrent use.
type FakePublisher struct {
	mu sync.Mutex

	// Messages contains all values that were published.
	Messages []Message

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// PublishError, if set, will be returned by Publish.
	PublishError error

	// TopicErrors fails Publish for individual topics.
	TopicErrors map[string]error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Attempts counts Publish calls, including failed ones.
	Attempts int

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// Publish records the message.
func (f *FakePublisher) Publish(topic, payload string, qos byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Attempts++
	if f.PublishError != nil {
		return f.PublishError
	}
	if err := f.TopicErrors[topic]; err != nil {
		return err
	}

	f.Messages = append(f.Messages, Message{Topic: topic, Payload: payload, QoS: qos})
	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	f.SystemEvents = append(f.SystemEvents, event)

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemPayloads = append(f.SystemPayloads, payload)

	return nil
}

// Snapshot returns a copy of the recorded messages.
func (f *FakePublisher) Snapshot() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Message, len(f.Messages))
	copy(out, f.Messages)
	return out
}

// Last returns the most recent payload published to topic.
func (f *FakePublisher) Last(topic string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.Messages) - 1; i >= 0; i-- {
		if f.Messages[i].Topic == topic {
			return f.Messages[i].Payload, true
		}
	}
	return "", false
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// Reset clears recorded messages and injected errors.
func (f *FakePublisher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Messages = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.Closed = false
	f.PublishError = nil
	f.TopicErrors = nil
	f.PublishSystemError = nil
	f.Attempts = 0
	f.Connected = false
}
