// Package sensor reads temperature and humidity from the DHT11 sensor.
package sensor

import (
	"context"
	"errors"

	"github.com/sweeney/honeybox/internal/logic"
)

// ErrRead marks every failed measurement. Callers keep the previous reading.
var ErrRead = errors.New("sensor read failed")

// ErrTimeout is reported (wrapped in ErrRead) when a measurement exceeds its deadline.
var ErrTimeout = errors.New("sensor read timed out")

// Error describes a failed measurement step.
type Error struct {
	Op  string // e.g. "read temperature"
	Err error
}

func (e *Error) Error() string {
	return "sensor " + e.Op + ": " + e.Err.Error()
}

// Unwrap lets errors.Is match both ErrRead and the underlying cause.
func (e *Error) Unwrap() []error {
	return []error{ErrRead, e.Err}
}

// Sampler performs one temperature/humidity measurement.
type Sampler interface {
	// Sample returns a reading with both values set, or an error wrapping
	// ErrRead. It performs no retries.
	Sample(ctx context.Context) (logic.Reading, error)
}
