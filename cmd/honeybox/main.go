// Command honeybox samples hive temperature, humidity and lid position,
// sounds a local buzzer on alerts and reports state to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/sweeney/honeybox/internal/alert"
	"github.com/sweeney/honeybox/internal/config"
	"github.com/sweeney/honeybox/internal/gpio"
	"github.com/sweeney/honeybox/internal/logic"
	"github.com/sweeney/honeybox/internal/monitor"
	"github.com/sweeney/honeybox/internal/mqtt"
	"github.com/sweeney/honeybox/internal/report"
	"github.com/sweeney/honeybox/internal/sensor"
	"github.com/sweeney/honeybox/internal/status"
	"github.com/sweeney/honeybox/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("fatal: config: %v", err)
	}

	printState := flag.Bool("print-state", false, "Print one sensor and tilt reading and exit")
	cfg.RegisterFlags(flag.CommandLine)
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("fatal: config: %v", err)
	}
	if err := run(cfg, *printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg config.Config, printState bool) error {
	// Initialize hardware
	contact, err := gpio.NewRealContact(cfg.GPIOChip, cfg.PinTilt)
	if err != nil {
		return fmt.Errorf("init tilt contact: %w", err)
	}
	defer contact.Close()

	sampler := sensor.NewIIOSampler(cfg.IIODevice, cfg.SensorTimeout)

	// Print state mode
	if printState {
		return printOnce(os.Stdout, sampler, contact, cfg.TiltActiveLow)
	}

	buzzer, err := gpio.NewRealBuzzer(cfg.GPIOChip, cfg.PinBuzzer)
	if err != nil {
		return fmt.Errorf("init buzzer: %w", err)
	}
	defer buzzer.Close()

	// Initialize MQTT
	publisher := mqtt.NewRealPublisher(mqtt.Options{
		Broker:    cfg.Broker,
		ClientID:  cfg.ClientID,
		Username:  cfg.MQTTUser,
		Password:  cfg.MQTTPassword,
		Namespace: cfg.Namespace,
		QueueLen:  cfg.QueueLen,
	})

	// Registered once for the whole process lifetime; a signal during
	// startup stays queued for runLoop.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	connectCtx, stop := cancelOnSignal(sigCh)
	err = connectWithRetry(connectCtx, publisher, cfg.ConnectRetries, newConnectBackOff)
	stop()
	if err != nil {
		return err
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		SampleMs:   cfg.SampleInterval.Milliseconds(),
		ReportMs:   cfg.ReportInterval.Milliseconds(),
		Broker:     cfg.Broker,
		Namespace:  cfg.Namespace,
		HTTPAddr:   cfg.HTTPAddr,
		Thresholds: cfg.Thresholds,
	})
	tracker.SetMQTTConnected(publisher.IsConnected())
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	// Start HTTP status server
	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTPAddr)
	}

	mon := monitor.New(sampler, contact, alert.NewSignal(buzzer, nil), tracker, monitor.Config{
		Thresholds: cfg.Thresholds,
		Lid: logic.LidConfig{
			ActiveLow:    cfg.TiltActiveLow,
			OpenConfirm:  cfg.LidOpenConfirm,
			CloseConfirm: cfg.LidCloseConfirm,
		},
	}, nil)
	rep := report.New(tracker, publisher, publisher.Topics(), cfg.Thresholds)

	log.Printf("started: sample=%v report=%v broker=%s namespace=%s", cfg.SampleInterval, cfg.ReportInterval, cfg.Broker, cfg.Namespace)

	sampleTicker := time.NewTicker(cfg.SampleInterval)
	defer sampleTicker.Stop()
	reportTicker := time.NewTicker(cfg.ReportInterval)
	defer reportTicker.Stop()
	statusTicker := time.NewTicker(cfg.SampleInterval)
	defer statusTicker.Stop()

	return runLoop(mon, rep, publisher, publisher, tracker, time.Now, sampleTicker.C, reportTicker.C, statusTicker.C, sigCh)
}

// runLoop runs the monitor and report loops until a signal arrives, then
// publishes the SHUTDOWN event once both have stopped.
func runLoop(mon *monitor.Loop, rep *report.Loop, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, now func() time.Time, sampleTick, reportTick, statusTick <-chan time.Time, sig <-chan os.Signal) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return mon.Run(gctx, now, sampleTick)
	})
	g.Go(func() error {
		return rep.Run(gctx, reportTick)
	})

	var signalName string
	g.Go(func() error {
		for {
			select {
			case s := <-sig:
				log.Printf("received %v, shutting down", s)
				signalName = signalString(s)
				cancel()
				return nil
			case <-statusTick:
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			case <-gctx.Done():
				return nil
			}
		}
	})

	if err := g.Wait(); err != nil {
		return err
	}

	event := mqtt.SystemEvent{
		Timestamp: now(),
		Event:     "SHUTDOWN",
		Reason:    signalName,
		Retained:  true,
	}
	if mqttStatus != nil {
		tracker.SetMQTTConnected(mqttStatus.IsConnected())
	}
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	snap := tracker.Snapshot()
	event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
	if err := publisher.PublishSystem(event); err != nil {
		log.Printf("failed to publish shutdown event: %v", err)
	} else {
		log.Printf("published shutdown event")
	}
	return nil
}

// cancelOnSignal returns a context that is cancelled when a signal arrives
// on sig. The signal is put back on sig so later stages still see it. stop
// releases the watcher and returns once it has exited.
func cancelOnSignal(sig chan os.Signal) (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		select {
		case s := <-sig:
			log.Printf("received %v during startup", s)
			select {
			case sig <- s:
			default:
			}
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		cancel()
		<-done
	}
}

func signalString(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

// connector makes a single broker connection attempt.
type connector interface {
	Connect(ctx context.Context) error
}

func newConnectBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0
	return b
}

// connectWithRetry makes up to attempts connection attempts, backing off
// between them. It gives up early when ctx is cancelled.
func connectWithRetry(ctx context.Context, c connector, attempts uint64, newBackOff func() backoff.BackOff) error {
	if attempts == 0 {
		attempts = 1
	}
	b := backoff.WithContext(backoff.WithMaxRetries(newBackOff(), attempts-1), ctx)

	n := uint64(0)
	err := backoff.Retry(func() error {
		n++
		err := c.Connect(ctx)
		if err != nil {
			log.Printf("mqtt: connect attempt %d/%d failed: %v", n, attempts, err)
		}
		return err
	}, b)
	if err != nil {
		return fmt.Errorf("mqtt: giving up after %d attempts: %w", n, err)
	}
	return nil
}

// printOnce prints a single reading and tilt verdict.
func printOnce(w io.Writer, sampler sensor.Sampler, contact gpio.ContactReader, activeLow bool) error {
	r, err := sampler.Sample(context.Background())
	if err != nil {
		return fmt.Errorf("read sensor: %w", err)
	}

	var samples []bool
	for i := 0; i < monitor.DefaultTiltSamples; i++ {
		v, err := contact.Read()
		if err != nil {
			return fmt.Errorf("read tilt: %w", err)
		}
		samples = append(samples, v)
		time.Sleep(monitor.DefaultTiltSpacing)
	}

	fmt.Fprintf(w, "Temp: %sC, Humidity: %s%%, Tilt: %s\n",
		logic.FormatInt(r.Temperature), logic.FormatUint(r.Humidity), tiltString(logic.Majority(samples, activeLow)))
	return nil
}

func tiltString(active bool) string {
	if active {
		return "OPEN"
	}
	return "CLOSED"
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
