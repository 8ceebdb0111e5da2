package lib

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

// PenTriggerConfig holds the serial settings of the pen button
type PenTriggerConfig struct {
	PortName    string
	BaudRate    int
	ReadTimeout time.Duration // Bounds how long a stop request waits for a blocked read
}

// DefaultPenTriggerConfig returns the settings for a 9600 baud microcontroller
func DefaultPenTriggerConfig(portName string) PenTriggerConfig {
	return PenTriggerConfig{
		PortName:    portName,
		BaudRate:    9600,
		ReadTimeout: 100 * time.Millisecond,
	}
}

// PenTrigger reads a hand-held pen button from a serial port.
// The device sends '1' or 'd' when the button is pressed, '0' or 'u' when it is
// released, and may forward any keyboard command character.
type PenTrigger struct {
	config PenTriggerConfig
	port   serial.Port
	logger *logrus.Logger
}

// NewPenTrigger creates a pen trigger for the configured port
func NewPenTrigger(config PenTriggerConfig, logger *logrus.Logger) *PenTrigger {
	return &PenTrigger{
		config: config,
		logger: logger,
	}
}

// Connect opens the serial port
func (pt *PenTrigger) Connect() error {
	mode := &serial.Mode{
		BaudRate: pt.config.BaudRate,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(pt.config.PortName, mode)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", pt.config.PortName, err)
	}

	if err := port.SetReadTimeout(pt.config.ReadTimeout); err != nil {
		port.Close()
		return fmt.Errorf("failed to set read timeout: %w", err)
	}

	pt.port = port
	return nil
}

// Close releases the serial port
func (pt *PenTrigger) Close() error {
	if pt.port != nil {
		return pt.port.Close()
	}
	return nil
}

// Run forwards decoded commands to out until ctx is cancelled or the port fails
func (pt *PenTrigger) Run(ctx context.Context, out chan<- Command) error {
	if pt.port == nil {
		return errors.New("pen trigger is not connected")
	}
	return readPenCommands(ctx, pt.port, out, pt.logger)
}

// readPenCommands decodes a byte stream into commands. A zero-length read is a timeout.
func readPenCommands(ctx context.Context, r io.Reader, out chan<- Command, logger *logrus.Logger) error {
	buf := make([]byte, 64)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		n, err := r.Read(buf)
		for _, b := range buf[:n] {
			cmd := DecodePenByte(b)
			if cmd == CmdNone {
				continue
			}
			logger.WithField("command", cmd).Debug("Pen trigger command")

			select {
			case out <- cmd:
			case <-ctx.Done():
				return nil
			}
		}

		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("pen trigger read failed: %w", err)
		}
	}
}

// DecodePenByte maps a byte sent by the pen device to a command
func DecodePenByte(b byte) Command {
	switch b {
	case '1', 'd', 'D':
		return CmdPenDown
	case '0', 'u', 'U':
		return CmdPenUp
	case '\r', '\n', ' ':
		return CmdNone
	}
	return CommandForKey(int(b))
}
