// Package sensor reads hand distance from proximity sensors.
package sensor

import (
	"context"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// Proximity is a sensor that reports how close a hand is. Higher readings
// mean a closer hand.
type Proximity interface {
	Distance(ctx context.Context) (uint8, error)
}

// ErrNotReady is returned when the sensor has no fresh reading.
var ErrNotReady = errors.New("proximity reading not ready")

// Address is the fixed I2C address of the APDS-9960.
const Address = 0x39

const (
	regEnable  = 0x80
	regControl = 0x8F
	regConfig2 = 0x90
	regID      = 0x92
	regStatus  = 0x93
	regPData   = 0x9C
)

const (
	enablePON = 1 << 0
	enablePEN = 1 << 2

	statusPValid = 1 << 1

	// LED drive 100mA, proximity gain 1x.
	controlDefault = 0x00
	// LED boost 300%.
	config2Boost = 0x30
)

// APDS9960 is the Broadcom APDS-9960 used in proximity-only mode.
type APDS9960 struct {
	dev i2c.Dev
}

var _ Proximity = (*APDS9960)(nil)

// NewAPDS9960 wraps the sensor on bus. Call Enable before reading.
func NewAPDS9960(bus i2c.Bus) *APDS9960 {
	return &APDS9960{dev: i2c.Dev{Bus: bus, Addr: Address}}
}

// Enable powers the sensor up with the proximity engine on and the IR LED
// boosted.
func (s *APDS9960) Enable() error {
	writes := [][2]byte{
		{regEnable, enablePON | enablePEN},
		{regControl, controlDefault},
		{regConfig2, config2Boost},
	}
	for _, w := range writes {
		if err := s.dev.Tx(w[:], nil); err != nil {
			return errors.Wrapf(err, "failed to write register 0x%02X", w[0])
		}
	}
	return nil
}

// ID reads the device ID register. Genuine parts answer 0xAB.
func (s *APDS9960) ID() (uint8, error) {
	return s.readReg(regID)
}

// Distance returns the proximity reading, or ErrNotReady if the sensor has
// not finished a conversion.
func (s *APDS9960) Distance(ctx context.Context) (uint8, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	status, err := s.readReg(regStatus)
	if err != nil {
		return 0, errors.Wrap(err, "failed to read status")
	}
	if status&statusPValid == 0 {
		return 0, ErrNotReady
	}

	d, err := s.readReg(regPData)
	if err != nil {
		return 0, errors.Wrap(err, "failed to read proximity data")
	}
	return d, nil
}

func (s *APDS9960) readReg(reg byte) (uint8, error) {
	var r [1]byte
	if err := s.dev.Tx([]byte{reg}, r[:]); err != nil {
		return 0, err
	}
	return r[0], nil
}

// Bus is an opened I2C bus.
type Bus = i2c.BusCloser

// OpenBus initializes the host drivers and opens the named I2C bus. An empty
// name opens the first available bus.
func OpenBus(name string) (Bus, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "failed to initialize host drivers")
	}
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open i2c bus")
	}
	return bus, nil
}
