package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/sweeney/honeybox/internal/gpio"
	"github.com/sweeney/honeybox/internal/logic"
	"github.com/sweeney/honeybox/internal/monitor"
	"github.com/sweeney/honeybox/internal/mqtt"
	"github.com/sweeney/honeybox/internal/report"
	"github.com/sweeney/honeybox/internal/sensor"
	"github.com/sweeney/honeybox/internal/status"
)

// TestEnvVarNames verifies the env var constants match what pi-helper writes
// to /run/pi-helper.env. If pi-helper changes its var names, this test fails
// and we update the constants, not the other way around.
func TestEnvVarNames(t *testing.T) {
	want := map[string]string{
		"NETWORK_TYPE":        envNetworkType,
		"NETWORK_IP":          envNetworkIP,
		"NETWORK_STATUS":      envNetworkStatus,
		"NETWORK_GATEWAY":     envNetworkGateway,
		"NETWORK_WIFI_STATUS": envNetworkWifiStatus,
		"NETWORK_WIFI_SSID":   envNetworkWifiSSID,
	}
	for canonical, got := range want {
		if got != canonical {
			t.Errorf("env var constant: got %q, want %q", got, canonical)
		}
	}
}

func TestReadNetworkInfoAllSet(t *testing.T) {
	t.Setenv(envNetworkType, "wifi")
	t.Setenv(envNetworkIP, "192.168.1.100")
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkGateway, "192.168.1.1")
	t.Setenv(envNetworkWifiStatus, "connected")
	t.Setenv(envNetworkWifiSSID, "MyNetwork")

	info := readNetworkInfo()
	if info == nil {
		t.Fatal("expected non-nil NetworkInfo")
	}

	want := status.NetworkInfo{
		Type:       "wifi",
		IP:         "192.168.1.100",
		Status:     "connected",
		Gateway:    "192.168.1.1",
		WifiStatus: "connected",
		SSID:       "MyNetwork",
	}
	if *info != want {
		t.Errorf("got %+v, want %+v", *info, want)
	}
}

func TestReadNetworkInfoNoneSet(t *testing.T) {
	t.Setenv(envNetworkStatus, "")
	if info := readNetworkInfo(); info != nil {
		t.Errorf("expected nil when NETWORK_STATUS is unset, got %+v", info)
	}
}

func TestReadNetworkInfoPartial(t *testing.T) {
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkIP, "")

	info := readNetworkInfo()
	if info == nil {
		t.Fatal("expected non-nil NetworkInfo when NETWORK_STATUS is set")
	}
	if info.Status != "connected" {
		t.Errorf("Status: got %q, want %q", info.Status, "connected")
	}
	if info.IP != "" {
		t.Errorf("IP: got %q, want empty", info.IP)
	}
}

// --- runLoop tests ---

// fakeClock returns a function that yields start, start+step, start+2*step, ...
// on successive calls. Only the monitor goroutine and, after it stops,
// runLoop itself call it.
func fakeClock(start time.Time, step time.Duration) func() time.Time {
	n := 0
	return func() time.Time {
		t := start.Add(time.Duration(n) * step)
		n++
		return t
	}
}

type nopEmitter struct{}

func (nopEmitter) Emit(logic.AlertKind) {}

type harness struct {
	sampler *sensor.FakeSampler
	contact *gpio.FakeContact
	pub     *mqtt.FakePublisher
	tracker *status.Tracker
	mon     *monitor.Loop
	rep     *report.Loop
}

func newHarness(results ...sensor.FakeResult) *harness {
	th := logic.DefaultThresholds()
	h := &harness{
		sampler: sensor.NewFakeSampler(results...),
		contact: gpio.NewFakeContact([]bool{false}),
		pub:     mqtt.NewFakePublisher(),
		tracker: status.NewTracker(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), status.Config{Namespace: "honeybox", Thresholds: th}),
	}
	h.mon = monitor.New(h.sampler, h.contact, nopEmitter{}, h.tracker, monitor.Config{Thresholds: th}, func(time.Duration) {})
	h.rep = report.New(h.tracker, h.pub, mqtt.NewTopics("honeybox"), th)
	return h
}

// drive runs runLoop, sends the given ticks in order and then the signal.
func (h *harness) drive(t *testing.T, ticks []string, s os.Signal) error {
	t.Helper()
	sampleTick := make(chan time.Time)
	reportTick := make(chan time.Time)
	statusTick := make(chan time.Time)
	sig := make(chan os.Signal, 1)
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Second)

	errCh := make(chan error, 1)
	go func() {
		errCh <- runLoop(h.mon, h.rep, h.pub, h.pub, h.tracker, clock, sampleTick, reportTick, statusTick, sig)
	}()

	for _, tick := range ticks {
		switch tick {
		case "sample":
			sampleTick <- time.Time{}
		case "report":
			reportTick <- time.Time{}
		case "status":
			statusTick <- time.Time{}
		}
	}
	sig <- s

	select {
	case err := <-errCh:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("runLoop did not return after signal")
		return nil
	}
}

func TestRunLoopShutdownSIGTERM(t *testing.T) {
	h := newHarness(sensor.FakeResult{Reading: logic.NewReading(21, 50)})

	if err := h.drive(t, nil, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if len(h.pub.SystemEvents) != 1 {
		t.Fatalf("expected 1 system event, got %d", len(h.pub.SystemEvents))
	}
	ev := h.pub.SystemEvents[0]
	if ev.Event != "SHUTDOWN" || ev.Reason != "SIGTERM" || !ev.Retained {
		t.Errorf("shutdown event: got %+v", ev)
	}

	var sj status.StatusJSON
	if err := json.Unmarshal(h.pub.SystemPayloads[0], &sj); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if sj.Status.Event != "SHUTDOWN" || sj.Status.Reason != "SIGTERM" {
		t.Errorf("payload event/reason: got %q/%q", sj.Status.Event, sj.Status.Reason)
	}
	// The monitor ran its immediate cycle before stopping.
	if sj.Status.Temperature == nil || *sj.Status.Temperature != 21 {
		t.Errorf("payload temperature: got %v, want 21", sj.Status.Temperature)
	}
}

func TestRunLoopShutdownSIGINT(t *testing.T) {
	h := newHarness(sensor.FakeResult{Reading: logic.NewReading(21, 50)})

	if err := h.drive(t, nil, syscall.SIGINT); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}
	if h.pub.SystemEvents[0].Reason != "SIGINT" {
		t.Errorf("reason: got %q, want SIGINT", h.pub.SystemEvents[0].Reason)
	}
}

func TestRunLoopReportsReadings(t *testing.T) {
	h := newHarness(sensor.FakeResult{Reading: logic.NewReading(12, 75)})

	if err := h.drive(t, []string{"sample", "report"}, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	// The report loop publishes once on start and once for the tick.
	msgs := h.pub.Snapshot()
	if len(msgs) != 10 {
		t.Fatalf("expected 10 report messages, got %d: %+v", len(msgs), msgs)
	}
	want := map[string]string{
		"honeybox/temp":             "12",
		"honeybox/humidity":         "75",
		"honeybox/tilt":             "0",
		"honeybox/lid_open_in_secs": "0",
		"honeybox/status":           "alert",
	}
	for topic, payload := range want {
		got, ok := h.pub.Last(topic)
		if !ok || got != payload {
			t.Errorf("%s: got %q, want %q", topic, got, payload)
		}
	}
	if h.mon.State() != monitor.Stopped || h.rep.State() != monitor.Stopped {
		t.Error("loops should be stopped after shutdown")
	}
}

func TestRunLoopPublishError(t *testing.T) {
	h := newHarness(sensor.FakeResult{Reading: logic.NewReading(21, 50)})
	h.pub.PublishError = errors.New("broker unreachable")
	h.pub.PublishSystemError = errors.New("broker unreachable")

	if err := h.drive(t, []string{"sample", "report", "sample", "report"}, syscall.SIGTERM); err != nil {
		t.Fatalf("publish failures must not stop the daemon: %v", err)
	}
	if h.pub.Attempts != 15 {
		t.Errorf("attempts: got %d, want 15", h.pub.Attempts)
	}
}

func TestRunLoopSensorErrorRecovery(t *testing.T) {
	h := newHarness(
		sensor.FakeResult{Err: errors.New("timeout")},
		sensor.FakeResult{Reading: logic.NewReading(20, 40)},
	)

	// The second sample tick is only received once the recovering cycle has
	// finished, so the report sees its reading.
	if err := h.drive(t, []string{"sample", "sample", "report"}, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}
	if got, _ := h.pub.Last("honeybox/temp"); got != "20" {
		t.Errorf("temp after recovery: got %q, want 20", got)
	}
	if snap := h.tracker.Snapshot(); snap.SensorError != "" {
		t.Errorf("sensor error should clear after a good read, got %q", snap.SensorError)
	}
}

func TestRunLoopTracksConnection(t *testing.T) {
	h := newHarness(sensor.FakeResult{Reading: logic.NewReading(20, 40)})
	h.pub.Connected = true

	if err := h.drive(t, []string{"status"}, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	var sj status.StatusJSON
	if err := json.Unmarshal(h.pub.SystemPayloads[0], &sj); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("shutdown payload should report MQTT connected")
	}
}

func TestSignalString(t *testing.T) {
	tests := map[os.Signal]string{
		syscall.SIGINT:  "SIGINT",
		syscall.SIGTERM: "SIGTERM",
		syscall.SIGHUP:  "UNKNOWN",
	}
	for s, want := range tests {
		if got := signalString(s); got != want {
			t.Errorf("%v: got %q, want %q", s, got, want)
		}
	}
}

func TestCancelOnSignalKeepsSignal(t *testing.T) {
	sig := make(chan os.Signal, 1)
	ctx, stop := cancelOnSignal(sig)
	defer stop()

	sig <- syscall.SIGTERM
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("context not cancelled by signal")
	}
	stop()

	select {
	case s := <-sig:
		if s != syscall.SIGTERM {
			t.Errorf("got %v, want SIGTERM", s)
		}
	default:
		t.Fatal("signal should stay queued for the run loop")
	}
}

func TestCancelOnSignalStopLeavesLaterSignals(t *testing.T) {
	sig := make(chan os.Signal, 1)
	ctx, stop := cancelOnSignal(sig)
	stop()

	if ctx.Err() == nil {
		t.Error("stop should cancel the context")
	}

	// A signal after startup goes straight to the run loop.
	sig <- syscall.SIGINT
	h := newHarness(sensor.FakeResult{Reading: logic.NewReading(21, 50)})
	errCh := make(chan error, 1)
	go func() {
		errCh <- runLoop(h.mon, h.rep, h.pub, h.pub, h.tracker, time.Now, nil, nil, nil, sig)
	}()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("runLoop: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runLoop did not see the queued signal")
	}
	if len(h.pub.SystemEvents) != 1 || h.pub.SystemEvents[0].Reason != "SIGINT" {
		t.Errorf("shutdown events: got %+v", h.pub.SystemEvents)
	}
}

// --- connect retry ---

type fakeConnector struct {
	failures int
	calls    int
	err      error
}

func (c *fakeConnector) Connect(ctx context.Context) error {
	c.calls++
	if c.calls <= c.failures {
		return c.err
	}
	return nil
}

func zeroBackOff() backoff.BackOff { return &backoff.ZeroBackOff{} }

func TestConnectWithRetrySucceeds(t *testing.T) {
	c := &fakeConnector{failures: 3, err: errors.New("connection refused")}

	if err := connectWithRetry(context.Background(), c, 10, zeroBackOff); err != nil {
		t.Fatalf("connectWithRetry: %v", err)
	}
	if c.calls != 4 {
		t.Errorf("calls: got %d, want 4", c.calls)
	}
}

func TestConnectWithRetryGivesUp(t *testing.T) {
	refused := errors.New("connection refused")
	c := &fakeConnector{failures: 100, err: refused}

	err := connectWithRetry(context.Background(), c, 5, zeroBackOff)
	if !errors.Is(err, refused) {
		t.Fatalf("expected last connect error, got %v", err)
	}
	if c.calls != 5 {
		t.Errorf("calls: got %d, want 5", c.calls)
	}
	if !strings.Contains(err.Error(), "5 attempts") {
		t.Errorf("error should count attempts: %v", err)
	}
}

func TestConnectWithRetryCancelled(t *testing.T) {
	c := &fakeConnector{failures: 100, err: errors.New("connection refused")}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := connectWithRetry(ctx, c, 10, zeroBackOff)
	if err == nil {
		t.Fatal("expected error")
	}
	if c.calls > 1 {
		t.Errorf("cancelled context should stop retries, got %d calls", c.calls)
	}
}

// --- print-state ---

func TestPrintOnce(t *testing.T) {
	sampler := sensor.NewFakeSampler(sensor.FakeResult{Reading: logic.NewReading(23, 61)})
	contact := gpio.NewFakeContact([]bool{true})

	var buf bytes.Buffer
	if err := printOnce(&buf, sampler, contact, false); err != nil {
		t.Fatalf("printOnce: %v", err)
	}
	if got, want := buf.String(), "Temp: 23C, Humidity: 61%, Tilt: OPEN\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestPrintOnceSensorError(t *testing.T) {
	sampler := sensor.NewFakeSampler(sensor.FakeResult{Err: errors.New("no device")})
	contact := gpio.NewFakeContact([]bool{false})

	var buf bytes.Buffer
	err := printOnce(&buf, sampler, contact, false)
	if !errors.Is(err, sensor.ErrRead) {
		t.Errorf("expected ErrRead, got %v", err)
	}
}
