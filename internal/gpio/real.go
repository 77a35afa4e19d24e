//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealContact reads the tilt contact from actual hardware using Linux GPIO character device.
type RealContact struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRealContact requests the tilt pin as an input with pull-up, matching the
// open-collector tilt switch wiring.
func NewRealContact(chipName string, pin int) (*RealContact, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	line, err := chip.RequestLine(pin, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request tilt pin %d: %w", pin, err)
	}

	return &RealContact{chip: chip, line: line}, nil
}

// Read returns the raw pin level.
func (c *RealContact) Read() (bool, error) {
	v, err := c.line.Value()
	if err != nil {
		return false, fmt.Errorf("read tilt pin: %w", err)
	}
	return v == 1, nil
}

// Close releases the line and chip.
func (c *RealContact) Close() error {
	var errs []error
	if c.line != nil {
		if err := c.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close tilt pin: %w", err))
		}
	}
	if c.chip != nil {
		if err := c.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// RealBuzzer drives the buzzer pin.
type RealBuzzer struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRealBuzzer requests the buzzer pin as an output, initially low.
func NewRealBuzzer(chipName string, pin int) (*RealBuzzer, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	line, err := chip.RequestLine(pin, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request buzzer pin %d: %w", pin, err)
	}

	return &RealBuzzer{chip: chip, line: line}, nil
}

// Set drives the buzzer pin.
func (b *RealBuzzer) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := b.line.SetValue(v); err != nil {
		return fmt.Errorf("set buzzer pin: %w", err)
	}
	return nil
}

// Close silences the buzzer and reconfigures the pin as an input with
// pull-down, matching Pi boot defaults, before releasing it.
func (b *RealBuzzer) Close() error {
	var errs []error
	if b.line != nil {
		if err := b.line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("silence buzzer: %w", err))
		}
		if err := b.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure buzzer pin: %w", err))
		}
		if err := b.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close buzzer pin: %w", err))
		}
	}
	if b.chip != nil {
		if err := b.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
