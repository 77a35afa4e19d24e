// Package alert plays audible buzzer patterns for monitor events.
package alert

import (
	"log"
	"time"

	"github.com/sweeney/honeybox/internal/gpio"
	"github.com/sweeney/honeybox/internal/logic"
)

// Pattern is a train of identical beeps.
type Pattern struct {
	On    time.Duration
	Off   time.Duration
	Count int
}

// Duration is how long the pattern blocks the caller.
func (p Pattern) Duration() time.Duration {
	return time.Duration(p.Count) * (p.On + p.Off)
}

// Patterns maps each alert kind to its beep train.
var Patterns = map[logic.AlertKind]Pattern{
	logic.AlertCold:  {On: 120 * time.Millisecond, Off: 120 * time.Millisecond, Count: 2},
	logic.AlertWarm:  {On: 400 * time.Millisecond, Off: 150 * time.Millisecond, Count: 1},
	logic.AlertLid:   {On: 90 * time.Millisecond, Off: 90 * time.Millisecond, Count: 3},
	logic.AlertHumid: {On: 250 * time.Millisecond, Off: 150 * time.Millisecond, Count: 2},
}

// Signal drives the buzzer. It is meant to be used from a single goroutine.
type Signal struct {
	out   gpio.Actuator
	sleep func(time.Duration)
}

// NewSignal creates a Signal writing to out. sleep may be nil, in which case
// time.Sleep is used.
func NewSignal(out gpio.Actuator, sleep func(time.Duration)) *Signal {
	if sleep == nil {
		sleep = time.Sleep
	}
	return &Signal{out: out, sleep: sleep}
}

// Emit plays the pattern for kind and returns when it has finished.
// Unknown kinds are logged and ignored. Write failures are logged; the
// buzzer is always driven low at the end of each beep.
func (s *Signal) Emit(kind logic.AlertKind) {
	p, ok := Patterns[kind]
	if !ok {
		log.Printf("alert: unknown kind %q", kind)
		return
	}

	for i := 0; i < p.Count; i++ {
		s.set(true)
		s.sleep(p.On)
		s.set(false)
		s.sleep(p.Off)
	}
}

func (s *Signal) set(on bool) {
	if err := s.out.Set(on); err != nil {
		log.Printf("alert: buzzer write error: %v", err)
	}
}
