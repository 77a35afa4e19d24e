// Package gpio provides the lid contact input and buzzer output with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// ContactReader reads the tilt contact on the lid.
type ContactReader interface {
	// Read returns the raw level of the contact pin (true = high).
	// Polarity is applied later, by the lid tracker.
	Read() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Actuator drives a binary output such as the buzzer.
type Actuator interface {
	// Set drives the output high (on) or low (off).
	Set(on bool) error

	// Close releases GPIO resources, leaving the output off.
	Close() error
}

// Pin definitions (BCM numbering)
const (
	DefaultPinTilt   = 14
	DefaultPinBuzzer = 6
)

// DefaultChip is the GPIO character device used on Raspberry Pi boards.
const DefaultChip = "gpiochip0"
