// Package serial opens the serial port a drquad32 board presents.
package serial

import (
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

// Port is the byte stream the connection layer reads and writes.
type Port interface {
	io.ReadWriteCloser
}

// Config holds serial port settings.
type Config struct {
	// Device path (e.g. "/dev/ttyACM0", "COM3")
	Device string

	// Baud rate (ignored by the USB CDC link, honored on a real UART)
	Baud int

	// ReadTimeout bounds a single Read so the connection's reader can
	// notice shutdown on a quiet port.
	ReadTimeout time.Duration
}

// DefaultConfig returns settings for a board on its default UART.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 100 * time.Millisecond,
	}
}

// Open opens the configured serial port.
func Open(cfg *Config) (Port, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Device, err)
	}

	return port, nil
}
