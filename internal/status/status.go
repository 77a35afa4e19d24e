// Package status holds the state shared between the monitor and report loops.
// The monitor loop is the only writer of sensor and lid fields; the report
// loop, the HTTP endpoint and system events read value snapshots.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/honeybox/internal/logic"
)

// NetworkInfo contains network state reported by the host's network helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	SampleMs   int64
	ReportMs   int64
	Broker     string
	Namespace  string
	HTTPAddr   string
	Thresholds logic.Thresholds
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Reading        logic.Reading
	Tilt           bool // instantaneous majority verdict of the last window
	LidOpen        bool
	LidOpenSeconds uint
	LastSample     time.Time // zero until the first successful read
	SensorError    string    // last read error, cleared on success
	StartTime      time.Time
	Now            time.Time
	MQTTConnected  bool
	Network        *NetworkInfo
	Config         Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Status classifies the snapshot against the configured thresholds.
func (s Snapshot) Status() logic.Status {
	return logic.Classify(s.Reading, s.LidOpenSeconds, s.Config.Thresholds)
}

// Tracker holds mutable daemon state behind a mutex.
// Every field is read and written only with mu held.
type Tracker struct {
	mu sync.Mutex

	temp, humidity       int
	hasTemp, hasHumidity bool
	tilt                 bool
	lidOpen              bool
	lidOpenSeconds       uint
	lastSample           time.Time
	sensorErr            string
	mqttConnected        bool
	network              *NetworkInfo

	startTime time.Time
	cfg       Config
	now       func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		startTime: startTime,
		cfg:       cfg,
		now:       time.Now,
	}
}

// SetReading stores a successful measurement taken at t.
// Nil fields in r leave the stored value unchanged.
func (t *Tracker) SetReading(r logic.Reading, at time.Time) {
	t.mu.Lock()
	if r.Temperature != nil {
		t.temp = *r.Temperature
		t.hasTemp = true
	}
	if r.Humidity != nil {
		t.humidity = int(*r.Humidity)
		t.hasHumidity = true
	}
	t.lastSample = at
	t.sensorErr = ""
	t.mu.Unlock()
}

// SetSensorError records a failed measurement without touching the reading.
func (t *Tracker) SetSensorError(err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	t.mu.Lock()
	t.sensorErr = msg
	t.mu.Unlock()
}

// SetLid stores the tilt verdict and debounced lid state from one cycle.
func (t *Tracker) SetLid(tilt bool, lid logic.LidState) {
	t.mu.Lock()
	t.tilt = tilt
	t.lidOpen = lid.Open
	t.lidOpenSeconds = lid.OpenSeconds
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.mqttConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	s := Snapshot{
		Tilt:           t.tilt,
		LidOpen:        t.lidOpen,
		LidOpenSeconds: t.lidOpenSeconds,
		LastSample:     t.lastSample,
		SensorError:    t.sensorErr,
		StartTime:      t.startTime,
		MQTTConnected:  t.mqttConnected,
		Network:        t.network,
		Config:         t.cfg,
	}
	temp, humidity := t.temp, t.humidity
	hasTemp, hasHumidity := t.hasTemp, t.hasHumidity
	now := t.now
	t.mu.Unlock()

	// Fresh pointers, so nothing in the snapshot aliases tracker state.
	if hasTemp {
		s.Reading.Temperature = &temp
	}
	if hasHumidity {
		h := uint(humidity)
		s.Reading.Humidity = &h
	}
	s.Now = now()
	return s
}
