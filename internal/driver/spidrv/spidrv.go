// Package spidrv drives WS2812 LEDs directly from an SPI port by NRZ
// encoding the frame.
package spidrv

import (
	"github.com/pkg/errors"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/host/v3"

	"github.com/exor2008/Pleiades/internal/led"
)

// DefaultFreq is the NRZ bit rate WS2812 strips expect.
const DefaultFreq = 2500 * physic.KiloHertz

// Driver is a led.Driver backed by nrzled.
type Driver struct {
	dev    *nrzled.Dev
	closer spi.PortCloser
}

var _ led.Driver = (*Driver)(nil)

// Open initializes the host and opens the named SPI port. An empty name
// opens the first available port.
func Open(name string, numLEDs int, freq physic.Frequency) (*Driver, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "failed to initialize host drivers")
	}

	port, err := spireg.Open(name)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open SPI port")
	}

	d, err := New(port, numLEDs, freq)
	if err != nil {
		port.Close()
		return nil, err
	}
	d.closer = port
	return d, nil
}

// New wraps an already opened port. The caller keeps ownership of port.
func New(port spi.Port, numLEDs int, freq physic.Frequency) (*Driver, error) {
	if freq == 0 {
		freq = DefaultFreq
	}

	dev, err := nrzled.NewSPI(port, &nrzled.Opts{
		NumPixels: numLEDs,
		Channels:  3,
		Freq:      freq,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create nrzled device")
	}
	return &Driver{dev: dev}, nil
}

// Write sends one frame.
func (d *Driver) Write(rgb []byte) error {
	if _, err := d.dev.Write(rgb); err != nil {
		return errors.Wrap(err, "failed to write to nrzled")
	}
	return nil
}

// Close turns the strip off and closes the port if Open opened it.
func (d *Driver) Close() error {
	if err := d.dev.Halt(); err != nil {
		return errors.Wrap(err, "failed to halt nrzled")
	}
	if d.closer != nil {
		return d.closer.Close()
	}
	return nil
}

// String describes the device.
func (d *Driver) String() string {
	return d.dev.String()
}
