// Package monitor runs the sampling and alerting cycle: read the sensor,
// debounce the lid contact, publish both into the shared tracker and sound
// the buzzer for any condition out of range.
package monitor

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/sweeney/honeybox/internal/gpio"
	"github.com/sweeney/honeybox/internal/logic"
	"github.com/sweeney/honeybox/internal/sensor"
	"github.com/sweeney/honeybox/internal/status"
)

// Tilt window defaults: 8 reads, 5ms apart.
const (
	DefaultTiltSamples = 8
	DefaultTiltSpacing = 5 * time.Millisecond
)

// State is the lifecycle state of a loop.
type State int32

const (
	Stopped State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

// Emitter plays an alert pattern, blocking until it is done.
type Emitter interface {
	Emit(kind logic.AlertKind)
}

// Config controls one monitor loop.
type Config struct {
	Thresholds  logic.Thresholds
	Lid         logic.LidConfig
	TiltSamples int           // reads per window; <= 0 uses DefaultTiltSamples
	TiltSpacing time.Duration // delay after each read; <= 0 uses DefaultTiltSpacing
}

// Cycle is the outcome of one monitor step.
type Cycle struct {
	Reading   logic.Reading // last good reading, possibly from an earlier cycle
	SensorErr error
	Tilt      bool
	Lid       logic.LidState
	Alerts    []logic.AlertKind
}

// Loop is the monitor state machine. Step and Run must not be called
// concurrently.
type Loop struct {
	sampler sensor.Sampler
	contact gpio.ContactReader
	alerts  Emitter
	tracker *status.Tracker
	lid     *logic.LidTracker
	cfg     Config
	sleep   func(time.Duration)

	reading logic.Reading
	state   atomic.Int32
}

// New creates a monitor loop. sleep paces the tilt window and may be nil,
// in which case time.Sleep is used.
func New(sampler sensor.Sampler, contact gpio.ContactReader, alerts Emitter, tracker *status.Tracker, cfg Config, sleep func(time.Duration)) *Loop {
	if cfg.TiltSamples <= 0 {
		cfg.TiltSamples = DefaultTiltSamples
	}
	if cfg.TiltSpacing <= 0 {
		cfg.TiltSpacing = DefaultTiltSpacing
	}
	if sleep == nil {
		sleep = time.Sleep
	}
	return &Loop{
		sampler: sampler,
		contact: contact,
		alerts:  alerts,
		tracker: tracker,
		lid:     logic.NewLidTracker(cfg.Lid),
		cfg:     cfg,
		sleep:   sleep,
	}
}

// State reports whether Run is active.
func (l *Loop) State() State {
	return State(l.state.Load())
}

// Run executes one cycle immediately, then one per tick, until ctx is
// cancelled. It always returns nil; errors inside a cycle are logged.
func (l *Loop) Run(ctx context.Context, now func() time.Time, tick <-chan time.Time) error {
	l.state.Store(int32(Running))
	defer l.state.Store(int32(Stopped))

	log.Printf("monitor: started")
	l.Step(ctx, now())

	for {
		select {
		case <-ctx.Done():
			log.Printf("monitor: stopped")
			return nil
		case <-tick:
			l.Step(ctx, now())
		}
	}
}

// Step runs one full cycle at time now.
func (l *Loop) Step(ctx context.Context, now time.Time) Cycle {
	var c Cycle

	r, err := l.sampler.Sample(ctx)
	if err != nil {
		log.Printf("monitor: %v", err)
		l.tracker.SetSensorError(err)
		c.SensorErr = err
	} else {
		if !sameReading(l.reading, r) {
			log.Printf("monitor: temp=%sC humidity=%s%%", logic.FormatInt(r.Temperature), logic.FormatUint(r.Humidity))
		}
		l.reading = r
		l.tracker.SetReading(r, now)
	}
	c.Reading = l.reading

	samples := l.collectTilt()
	wasOpen := l.lid.State()
	lid := l.lid.Update(samples, now)
	if lid.Open && !wasOpen.Open {
		log.Printf("monitor: lid opened")
	} else if !lid.Open && wasOpen.Open {
		log.Printf("monitor: lid closed after %ds", int(now.Sub(wasOpen.OpenedAt)/time.Second))
	}
	c.Tilt = l.lid.Active()
	c.Lid = lid
	l.tracker.SetLid(c.Tilt, lid)

	// Evaluated on local values, not re-read from the tracker.
	c.Alerts = logic.Alerts(l.reading, lid, l.cfg.Thresholds)
	for _, kind := range c.Alerts {
		l.alerts.Emit(kind)
	}
	return c
}

// collectTilt reads one window of raw contact levels. Failed reads are left
// out of the window.
func (l *Loop) collectTilt() []bool {
	samples := make([]bool, 0, l.cfg.TiltSamples)
	var lastErr error
	failed := 0
	for i := 0; i < l.cfg.TiltSamples; i++ {
		v, err := l.contact.Read()
		if err != nil {
			lastErr = err
			failed++
		} else {
			samples = append(samples, v)
		}
		l.sleep(l.cfg.TiltSpacing)
	}
	if failed > 0 {
		log.Printf("monitor: tilt read error (%d/%d samples): %v", failed, l.cfg.TiltSamples, lastErr)
	}
	return samples
}

func sameReading(a, b logic.Reading) bool {
	return logic.FormatInt(a.Temperature) == logic.FormatInt(b.Temperature) &&
		logic.FormatUint(a.Humidity) == logic.FormatUint(b.Humidity)
}
