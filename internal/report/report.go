// Package report periodically publishes the shared state to MQTT.
package report

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/sweeney/honeybox/internal/logic"
	"github.com/sweeney/honeybox/internal/monitor"
	"github.com/sweeney/honeybox/internal/mqtt"
	"github.com/sweeney/honeybox/internal/status"
)

// Loop reads a snapshot on every tick and publishes five values.
type Loop struct {
	tracker *status.Tracker
	pub     mqtt.Publisher
	topics  mqtt.Topics
	th      logic.Thresholds

	state atomic.Int32
}

// New creates a report loop.
func New(tracker *status.Tracker, pub mqtt.Publisher, topics mqtt.Topics, th logic.Thresholds) *Loop {
	return &Loop{tracker: tracker, pub: pub, topics: topics, th: th}
}

// State reports whether Run is active.
func (l *Loop) State() monitor.State {
	return monitor.State(l.state.Load())
}

// Run publishes once immediately, then once per tick until ctx is
// cancelled. Delivery failures are logged and never stop the loop.
func (l *Loop) Run(ctx context.Context, tick <-chan time.Time) error {
	l.state.Store(int32(monitor.Running))
	defer l.state.Store(int32(monitor.Stopped))

	log.Printf("report: started")
	l.step()

	for {
		select {
		case <-ctx.Done():
			log.Printf("report: stopped")
			return nil
		case <-tick:
			l.step()
		}
	}
}

func (l *Loop) step() {
	if err := l.Step(); err != nil {
		log.Printf("report: %v", err)
	}
}

// Values is one cycle's worth of payloads.
type Values struct {
	Temp     string
	Humidity string
	Tilt     string
	LidOpen  string
	Status   logic.Status
}

// Collect takes a snapshot and renders the payloads for one cycle.
func (l *Loop) Collect() Values {
	snap := l.tracker.Snapshot()
	tilt := "0"
	if snap.Tilt {
		tilt = "1"
	}
	return Values{
		Temp:     logic.FormatInt(snap.Reading.Temperature),
		Humidity: logic.FormatUint(snap.Reading.Humidity),
		Tilt:     tilt,
		LidOpen:  strconv.FormatUint(uint64(snap.LidOpenSeconds), 10),
		Status:   logic.Classify(snap.Reading, snap.LidOpenSeconds, l.th),
	}
}

// Step publishes one cycle. Every value is attempted; the returned error
// joins the failures, if any.
func (l *Loop) Step() error {
	v := l.Collect()

	msgs := []struct{ topic, payload string }{
		{l.topics.Temp, v.Temp},
		{l.topics.Humidity, v.Humidity},
		{l.topics.Tilt, v.Tilt},
		{l.topics.LidOpen, v.LidOpen},
		{l.topics.Status, string(v.Status)},
	}

	var errs []error
	for _, m := range msgs {
		if err := l.pub.Publish(m.topic, m.payload, mqtt.ReportQoS); err != nil {
			errs = append(errs, fmt.Errorf("publish %s: %w", m.topic, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d of %d values not delivered: %w", len(errs), len(msgs), errors.Join(errs...))
	}

	log.Printf("report: published temp=%s humidity=%s tilt=%s lid_open_secs=%s status=%s",
		v.Temp, v.Humidity, v.Tilt, v.LidOpen, v.Status)
	return nil
}
