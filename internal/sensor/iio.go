package sensor

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sweeney/honeybox/internal/logic"
)

// DefaultIIODevice is where the dht11 kernel overlay exposes the sensor.
const DefaultIIODevice = "/sys/bus/iio/devices/iio:device0"

// DefaultTimeout bounds a single measurement. The DHT11 transaction takes
// well under a second; the driver itself may hang on a disconnected sensor.
const DefaultTimeout = 2 * time.Second

const (
	tempFile     = "in_temp_input"
	humidityFile = "in_humidityrelative_input"
)

// Plausible DHT11/DHT22 output range. Anything outside is a corrupted frame.
const (
	minTempC    = -40
	maxTempC    = 80
	maxHumidity = 100
)

// IIOSampler reads the sensor through the Linux IIO interface of the dht11
// driver. Values are reported in milli-units.
type IIOSampler struct {
	dir      string
	timeout  time.Duration
	readFile func(string) ([]byte, error)
}

// NewIIOSampler creates a sampler for the IIO device directory dir.
// A timeout <= 0 uses DefaultTimeout.
func NewIIOSampler(dir string, timeout time.Duration) *IIOSampler {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &IIOSampler{dir: dir, timeout: timeout, readFile: os.ReadFile}
}

type sampleResult struct {
	reading logic.Reading
	err     error
}

// Sample reads temperature then humidity. The whole transaction is bounded by
// the sampler timeout and by ctx.
func (s *IIOSampler) Sample(ctx context.Context) (logic.Reading, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	// Buffered so an abandoned read can finish without blocking forever.
	done := make(chan sampleResult, 1)
	go func() {
		r, err := s.measure()
		done <- sampleResult{reading: r, err: err}
	}()

	select {
	case res := <-done:
		return res.reading, res.err
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return logic.Reading{}, &Error{Op: "measure", Err: ErrTimeout}
		}
		return logic.Reading{}, &Error{Op: "measure", Err: ctx.Err()}
	}
}

func (s *IIOSampler) measure() (logic.Reading, error) {
	milliC, err := s.readMilli(tempFile)
	if err != nil {
		return logic.Reading{}, &Error{Op: "read temperature", Err: err}
	}
	milliRH, err := s.readMilli(humidityFile)
	if err != nil {
		return logic.Reading{}, &Error{Op: "read humidity", Err: err}
	}

	temp := int(math.Round(float64(milliC) / 1000))
	if temp < minTempC || temp > maxTempC {
		return logic.Reading{}, &Error{Op: "check temperature", Err: fmt.Errorf("%d°C out of range", temp)}
	}
	hum := math.Round(float64(milliRH) / 1000)
	if hum < 0 || hum > maxHumidity {
		return logic.Reading{}, &Error{Op: "check humidity", Err: fmt.Errorf("%.0f%% out of range", hum)}
	}

	return logic.NewReading(temp, uint(hum)), nil
}

func (s *IIOSampler) readMilli(name string) (int64, error) {
	data, err := s.readFile(filepath.Join(s.dir, name))
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	return v, nil
}
