//go:build !linux

package gpio

import "errors"

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealContact is not available on non-Linux platforms.
type RealContact struct{}

// NewRealContact returns an error on non-Linux platforms.
func NewRealContact(chipName string, pin int) (*RealContact, error) {
	return nil, errUnsupported
}

// Read is not implemented on non-Linux platforms.
func (c *RealContact) Read() (bool, error) {
	return false, errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (c *RealContact) Close() error {
	return nil
}

// RealBuzzer is not available on non-Linux platforms.
type RealBuzzer struct{}

// NewRealBuzzer returns an error on non-Linux platforms.
func NewRealBuzzer(chipName string, pin int) (*RealBuzzer, error) {
	return nil, errUnsupported
}

// Set is not implemented on non-Linux platforms.
func (b *RealBuzzer) Set(on bool) error {
	return errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (b *RealBuzzer) Close() error {
	return nil
}
