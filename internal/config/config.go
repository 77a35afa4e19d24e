// Package config loads daemon settings from the environment, an optional
// .env file and command-line flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/sweeney/honeybox/internal/gpio"
	"github.com/sweeney/honeybox/internal/logic"
	"github.com/sweeney/honeybox/internal/mqtt"
	"github.com/sweeney/honeybox/internal/sensor"
)

// Env var prefix for every setting.
const envPrefix = "HONEYBOX_"

const (
	defaultBroker          = "tcp://test.mosquitto.org:1883"
	defaultQueueLen        = 10
	defaultOpenConfirm     = 600 * time.Millisecond
	defaultCloseConfirm    = 400 * time.Millisecond
	defaultSampleInterval  = time.Second
	defaultReportInterval  = 5 * time.Second
	defaultConnectRetries  = 10
	defaultHTTPAddr        = ":8080"
	defaultClientIDPrefix  = "honeybox-"
	defaultClientIDRandLen = 8
)

// Config holds runtime configuration for the daemon.
type Config struct {
	Broker       string
	MQTTUser     string
	MQTTPassword string
	ClientID     string
	Namespace    string
	QueueLen     int

	Thresholds      logic.Thresholds
	LidOpenConfirm  time.Duration
	LidCloseConfirm time.Duration
	TiltActiveLow   bool

	PinTilt   int
	PinBuzzer int
	GPIOChip  string
	IIODevice string

	SampleInterval time.Duration
	ReportInterval time.Duration
	SensorTimeout  time.Duration
	ConnectRetries uint64
	HTTPAddr       string // empty disables the status endpoint
}

// Default returns the factory configuration with a fresh client ID.
func Default() Config {
	return Config{
		Broker:          defaultBroker,
		ClientID:        defaultClientIDPrefix + uuid.NewString()[:defaultClientIDRandLen],
		Namespace:       mqtt.DefaultNamespace,
		QueueLen:        defaultQueueLen,
		Thresholds:      logic.DefaultThresholds(),
		LidOpenConfirm:  defaultOpenConfirm,
		LidCloseConfirm: defaultCloseConfirm,
		PinTilt:         gpio.DefaultPinTilt,
		PinBuzzer:       gpio.DefaultPinBuzzer,
		GPIOChip:        gpio.DefaultChip,
		IIODevice:       sensor.DefaultIIODevice,
		SampleInterval:  defaultSampleInterval,
		ReportInterval:  defaultReportInterval,
		SensorTimeout:   sensor.DefaultTimeout,
		ConnectRetries:  defaultConnectRetries,
		HTTPAddr:        defaultHTTPAddr,
	}
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit dotenv path. A missing file is not an
// error; variables already set in the environment win over the file.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load %s: %w", path, err)
	}

	p := parser{}

	p.str("BROKER", &cfg.Broker)
	p.str("MQTT_USER", &cfg.MQTTUser)
	p.str("MQTT_PASSWORD", &cfg.MQTTPassword)
	p.str("CLIENT_ID", &cfg.ClientID)
	p.str("NAMESPACE", &cfg.Namespace)
	p.integer("QUEUE_LEN", &cfg.QueueLen)

	p.integer("TEMP_MIN", &cfg.Thresholds.TempMin)
	p.integer("TEMP_MAX", &cfg.Thresholds.TempMax)
	p.unsigned("RH_ALERT", &cfg.Thresholds.RHAlert)
	p.duration("LID_MAX_OPEN", &cfg.Thresholds.LidMaxOpen)
	p.duration("LID_OPEN_CONFIRM", &cfg.LidOpenConfirm)
	p.duration("LID_CLOSE_CONFIRM", &cfg.LidCloseConfirm)
	p.boolean("TILT_ACTIVE_LOW", &cfg.TiltActiveLow)

	p.integer("PIN_TILT", &cfg.PinTilt)
	p.integer("PIN_BUZZER", &cfg.PinBuzzer)
	p.str("GPIO_CHIP", &cfg.GPIOChip)
	p.str("IIO_DEVICE", &cfg.IIODevice)

	p.duration("SAMPLE_INTERVAL", &cfg.SampleInterval)
	p.duration("REPORT_INTERVAL", &cfg.ReportInterval)
	p.duration("SENSOR_TIMEOUT", &cfg.SensorTimeout)
	p.uint64("CONNECT_RETRIES", &cfg.ConnectRetries)

	// HTTP may be set to empty on purpose.
	if v, ok := os.LookupEnv(envPrefix + "HTTP"); ok {
		cfg.HTTPAddr = strings.TrimSpace(v)
	}

	if err := errors.Join(p.errs...); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// RegisterFlags binds a flag for every setting, using the current values as
// defaults so flags override the environment.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Broker, "broker", c.Broker, "MQTT broker address")
	fs.StringVar(&c.MQTTUser, "mqtt-user", c.MQTTUser, "MQTT username")
	fs.StringVar(&c.MQTTPassword, "mqtt-password", c.MQTTPassword, "MQTT password")
	fs.StringVar(&c.ClientID, "client-id", c.ClientID, "MQTT client ID")
	fs.StringVar(&c.Namespace, "namespace", c.Namespace, "MQTT topic namespace")
	fs.IntVar(&c.QueueLen, "queue-len", c.QueueLen, "Messages kept while the broker is unreachable")

	fs.IntVar(&c.Thresholds.TempMin, "temp-min", c.Thresholds.TempMin, "Lowest comfortable temperature (°C)")
	fs.IntVar(&c.Thresholds.TempMax, "temp-max", c.Thresholds.TempMax, "Highest comfortable temperature (°C)")
	fs.UintVar(&c.Thresholds.RHAlert, "rh-alert", c.Thresholds.RHAlert, "Humidity alert threshold (%)")
	fs.DurationVar(&c.Thresholds.LidMaxOpen, "lid-max-open", c.Thresholds.LidMaxOpen, "Longest the lid may stay open before alerting")
	fs.DurationVar(&c.LidOpenConfirm, "lid-open-confirm", c.LidOpenConfirm, "How long the lid must read open before it counts (0 for immediate)")
	fs.DurationVar(&c.LidCloseConfirm, "lid-close-confirm", c.LidCloseConfirm, "How long the lid must read closed before it counts (0 for immediate)")
	fs.BoolVar(&c.TiltActiveLow, "tilt-active-low", c.TiltActiveLow, "Treat a low tilt contact as lid open")

	fs.IntVar(&c.PinTilt, "pin-tilt", c.PinTilt, "BCM pin number for the tilt contact")
	fs.IntVar(&c.PinBuzzer, "pin-buzzer", c.PinBuzzer, "BCM pin number for the buzzer")
	fs.StringVar(&c.GPIOChip, "gpio-chip", c.GPIOChip, "GPIO character device")
	fs.StringVar(&c.IIODevice, "iio-device", c.IIODevice, "IIO sysfs directory of the DHT11")

	fs.DurationVar(&c.SampleInterval, "sample", c.SampleInterval, "Monitor cycle interval")
	fs.DurationVar(&c.ReportInterval, "report", c.ReportInterval, "Report cycle interval")
	fs.DurationVar(&c.SensorTimeout, "sensor-timeout", c.SensorTimeout, "Sensor read timeout")
	fs.Uint64Var(&c.ConnectRetries, "connect-retries", c.ConnectRetries, "Initial broker connect attempts before giving up")
	fs.StringVar(&c.HTTPAddr, "http", c.HTTPAddr, "HTTP status address (empty to disable)")
}

// Validate checks the combined settings.
func (c Config) Validate() error {
	var errs []error
	if c.Broker == "" {
		errs = append(errs, errors.New("broker is required"))
	}
	if c.ClientID == "" {
		errs = append(errs, errors.New("client id is required"))
	}
	if c.Namespace == "" {
		errs = append(errs, errors.New("namespace is required"))
	} else if strings.ContainsAny(c.Namespace, "+#") {
		errs = append(errs, fmt.Errorf("namespace %q must not contain MQTT wildcards", c.Namespace))
	}
	if c.QueueLen <= 0 {
		errs = append(errs, fmt.Errorf("queue length must be positive, got %d", c.QueueLen))
	}
	if c.Thresholds.TempMin >= c.Thresholds.TempMax {
		errs = append(errs, fmt.Errorf("temp min %d must be below temp max %d", c.Thresholds.TempMin, c.Thresholds.TempMax))
	}
	if c.Thresholds.RHAlert > 100 {
		errs = append(errs, fmt.Errorf("humidity alert %d is above 100%%", c.Thresholds.RHAlert))
	}
	if c.Thresholds.LidMaxOpen < 0 || c.LidOpenConfirm < 0 || c.LidCloseConfirm < 0 {
		errs = append(errs, errors.New("lid durations must not be negative"))
	}
	if c.SampleInterval <= 0 || c.ReportInterval <= 0 {
		errs = append(errs, errors.New("sample and report intervals must be positive"))
	}
	if c.SensorTimeout <= 0 {
		errs = append(errs, errors.New("sensor timeout must be positive"))
	}
	if c.ConnectRetries == 0 {
		errs = append(errs, errors.New("connect retries must be at least 1"))
	}
	return errors.Join(errs...)
}

// parser collects conversion errors so every bad key is reported at once.
type parser struct {
	errs []error
}

func (p *parser) lookup(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(envPrefix + key))
	return v, v != ""
}

func (p *parser) fail(key string, err error) {
	p.errs = append(p.errs, fmt.Errorf("invalid %s%s: %w", envPrefix, key, err))
}

func (p *parser) str(key string, dst *string) {
	if v, ok := p.lookup(key); ok {
		*dst = v
	}
}

func (p *parser) integer(key string, dst *int) {
	v, ok := p.lookup(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, err)
		return
	}
	*dst = n
}

func (p *parser) unsigned(key string, dst *uint) {
	v, ok := p.lookup(key)
	if !ok {
		return
	}
	n, err := strconv.ParseUint(v, 10, 0)
	if err != nil {
		p.fail(key, err)
		return
	}
	*dst = uint(n)
}

func (p *parser) uint64(key string, dst *uint64) {
	v, ok := p.lookup(key)
	if !ok {
		return
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		p.fail(key, err)
		return
	}
	*dst = n
}

func (p *parser) duration(key string, dst *time.Duration) {
	v, ok := p.lookup(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, err)
		return
	}
	*dst = d
}

func (p *parser) boolean(key string, dst *bool) {
	v, ok := p.lookup(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, err)
		return
	}
	*dst = b
}
