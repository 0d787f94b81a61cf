// Package serialdrv drives the LED matrix through a microcontroller attached
// over USB serial, speaking the ledserial protocol.
package serialdrv

import (
	"io"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"

	"github.com/exor2008/Pleiades/internal/led"
	"github.com/exor2008/Pleiades/ledserial"
)

// ErrTimeout is returned when the controller does not answer in time.
var ErrTimeout = errors.New("timed out waiting for controller")

// Options configures a serial driver.
type Options struct {
	// Device is the serial device path, usually /dev/ttyACM0.
	Device string
	// Baud is the baud rate.
	Baud int
	// Timeout bounds how long a frame waits for its ack.
	Timeout time.Duration
}

// Driver writes frames as SetPackets and waits for each to be acknowledged
// before returning, so the render loop never outruns the controller.
type Driver struct {
	port    io.ReadWriteCloser
	logger  *slog.Logger
	numLEDs int
}

var _ led.Driver = (*Driver)(nil)

// Open opens the serial port and initializes the controller for numLEDs.
func Open(opts Options, numLEDs int, logger *slog.Logger) (*Driver, error) {
	port, err := serial.Open(opts.Device, &serial.Mode{
		BaudRate: opts.Baud,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open serial port")
	}

	if opts.Timeout > 0 {
		if err := port.SetReadTimeout(opts.Timeout); err != nil {
			port.Close()
			return nil, errors.Wrap(err, "failed to set read timeout")
		}
	}

	d, err := New(timeoutPort{port}, numLEDs, logger)
	if err != nil {
		port.Close()
		return nil, err
	}
	return d, nil
}

// New initializes the controller behind port.
func New(port io.ReadWriteCloser, numLEDs int, logger *slog.Logger) (*Driver, error) {
	if numLEDs < 1 || numLEDs > 0xFFFF {
		return nil, errors.Errorf("invalid number of LEDs: %d", numLEDs)
	}

	d := &Driver{
		port:    port,
		logger:  logger,
		numLEDs: numLEDs,
	}

	d.logger.Debug("sending initialize packet", "leds", numLEDs)
	if err := d.roundTrip(ledserial.InitializePacket{NumLEDs: uint16(numLEDs)}); err != nil {
		return nil, errors.Wrap(err, "failed to initialize controller")
	}
	return d, nil
}

// Write sends one frame.
func (d *Driver) Write(rgb []byte) error {
	if len(rgb) != 3*d.numLEDs {
		return errors.Errorf("frame has %d bytes, want %d", len(rgb), 3*d.numLEDs)
	}
	return d.roundTrip(ledserial.SetPacket{Pix: rgb})
}

// Close clears the strip and closes the port.
func (d *Driver) Close() error {
	if err := d.roundTrip(ledserial.ClearPacket{}); err != nil {
		d.logger.Warn("failed to clear LEDs", "error", err)
	}
	return d.port.Close()
}

func (d *Driver) roundTrip(p ledserial.IncomingPacket) error {
	if err := ledserial.WriteIncomingPacket(d.port, p); err != nil {
		return errors.Wrap(err, "failed to write packet")
	}

	for {
		reply, err := ledserial.ReadOutgoingPacket(d.port)
		if err != nil {
			return errors.Wrap(err, "failed to read reply")
		}

		switch reply := reply.(type) {
		case ledserial.AckPacket:
			if reply.IncomingPacketType != p.Type() {
				return errors.Errorf("controller acked %s, want %s", reply.IncomingPacketType, p.Type())
			}
			return nil

		case ledserial.LogPacket:
			d.logger.Info(
				"received log packet from controller",
				"message", reply.Message)

		case ledserial.ErrorPacket:
			d.logger.Warn(
				"received error packet from controller",
				"message", reply.Message)
			return errors.Errorf("controller reported error: %s", reply.Message)

		case ledserial.PanicPacket:
			d.logger.Error(
				"controller unrecoverably panicked",
				"message", reply.Message)
			return errors.Errorf("controller panicked: %s", reply.Message)

		default:
			return errors.Errorf("received unknown packet from controller: %s", reply.Type())
		}
	}
}

// timeoutPort turns the zero-byte read that go.bug.st/serial returns on a
// read timeout into ErrTimeout, which would otherwise spin io.ReadFull.
type timeoutPort struct {
	serial.Port
}

func (p timeoutPort) Read(b []byte) (int, error) {
	n, err := p.Port.Read(b)
	if n == 0 && err == nil && len(b) > 0 {
		return 0, ErrTimeout
	}
	return n, err
}
