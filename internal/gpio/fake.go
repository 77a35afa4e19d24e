package gpio

import (
	"errors"
	"sync"
)

// FakeContact is a test double that returns scripted contact levels.
type FakeContact struct {
	mu sync.Mutex

	// Samples contains scripted raw levels to return.
	// Each call to Read() consumes the next sample.
	Samples []bool

	// index tracks current position in Samples
	index int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Read()
	ReadError error
}

// NewFakeContact creates a FakeContact with the given samples.
func NewFakeContact(samples []bool) *FakeContact {
	return &FakeContact{Samples: samples}
}

// Read returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeContact) Read() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ReadError != nil {
		return false, f.ReadError
	}

	if len(f.Samples) == 0 {
		return false, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return sample, nil
}

// SetLevel replaces the script with a single repeating level.
func (f *FakeContact) SetLevel(high bool) {
	f.mu.Lock()
	f.Samples = []bool{high}
	f.index = 0
	f.mu.Unlock()
}

// Close marks the reader as closed.
func (f *FakeContact) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// Reset resets the reader to the beginning of samples.
func (f *FakeContact) Reset() {
	f.mu.Lock()
	f.index = 0
	f.Closed = false
	f.mu.Unlock()
}

// FakeActuator records every level written to it.
type FakeActuator struct {
	mu     sync.Mutex
	writes []bool
	closed bool

	// SetError, if set, is returned by Set (the write is still recorded).
	SetError error
}

// NewFakeActuator creates a FakeActuator.
func NewFakeActuator() *FakeActuator {
	return &FakeActuator{}
}

// Set records the level.
func (f *FakeActuator) Set(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, on)
	return f.SetError
}

// Writes returns a copy of all recorded levels.
func (f *FakeActuator) Writes() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]bool, len(f.writes))
	copy(out, f.writes)
	return out
}

// On reports the last written level.
func (f *FakeActuator) On() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.writes) == 0 {
		return false
	}
	return f.writes[len(f.writes)-1]
}

// Close marks the actuator closed.
func (f *FakeActuator) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (f *FakeActuator) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
