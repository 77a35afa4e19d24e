// Package logic contains pure business logic for the honeybox monitor.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import (
	"strconv"
	"time"
)

// Reading is one temperature/humidity measurement.
// A nil field means the value has never been read successfully.
type Reading struct {
	Temperature *int  // °C
	Humidity    *uint // % RH
}

// NewReading returns a Reading with both values set.
func NewReading(tempC int, humidity uint) Reading {
	return Reading{Temperature: &tempC, Humidity: &humidity}
}

// LidState is the debounced state of the lid contact.
type LidState struct {
	Open        bool
	OpenedAt    time.Time // zero when closed
	OpenSeconds uint      // always 0 when closed
}

// Status is the health classification published on every report cycle.
type Status string

const (
	StatusOK    Status = "ok"
	StatusWarn  Status = "warn"
	StatusAlert Status = "alert"
)

// AlertKind identifies a buzzer pattern.
type AlertKind string

const (
	AlertCold  AlertKind = "cold"
	AlertWarm  AlertKind = "warm"
	AlertLid   AlertKind = "lid"
	AlertHumid AlertKind = "humid"
)

// Thresholds holds the limits used for alerting and status classification.
type Thresholds struct {
	TempMin    int           // comfort band lower bound, inclusive
	TempMax    int           // comfort band upper bound, inclusive
	RHAlert    uint          // humidity strictly above this alerts
	LidMaxOpen time.Duration // lid open strictly longer than this alerts
}

// DefaultThresholds returns the factory limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		TempMin:    18,
		TempMax:    25,
		RHAlert:    70,
		LidMaxOpen: 60 * time.Second,
	}
}

// NoneValue is the payload used for a reading that is not available.
const NoneValue = "None"

// FormatInt renders an optional integer as a payload string.
func FormatInt(v *int) string {
	if v == nil {
		return NoneValue
	}
	return strconv.Itoa(*v)
}

// FormatUint renders an optional unsigned integer as a payload string.
func FormatUint(v *uint) string {
	if v == nil {
		return NoneValue
	}
	return strconv.FormatUint(uint64(*v), 10)
}
