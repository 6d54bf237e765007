package serial

import "io"

// Port is an open link to the MCU. The native implementation uses
// github.com/tarm/serial; tests use in-memory pipes.
type Port interface {
	io.ReadWriteCloser

	// Flush discards data buffered in either direction
	Flush() error
}

// Config holds serial port settings
type Config struct {
	// Device path, e.g. "/dev/ttyACM0" or "COM3"
	Device string

	// Ignored by USB CDC, used by UART adapters
	Baud int

	// Read timeout in milliseconds, 0 blocks
	ReadTimeout int
}

// DefaultConfig returns the settings used for the RP2040 USB link
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        250000,
		ReadTimeout: 100,
	}
}
