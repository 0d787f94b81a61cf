package pleiades

import (
	"encoding"
	"fmt"
	"io"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	"github.com/exor2008/Pleiades/internal/led"
	"github.com/exor2008/Pleiades/internal/world"
)

// Config is the configuration for the Pleiades daemon.
type Config struct {
	Matrix  MatrixConfig  `toml:"matrix"`
	Driver  DriverConfig  `toml:"driver"`
	Sensor  SensorConfig  `toml:"sensor"`
	Worlds  WorldsConfig  `toml:"worlds"`
	Preview PreviewConfig `toml:"preview"`
}

// MatrixConfig describes the LED grid.
type MatrixConfig struct {
	// Width is the number of columns.
	Width int `toml:"width"`
	// Height is the number of LEDs in each column.
	Height int `toml:"height"`
}

// DriverKind selects where frames go.
type DriverKind string

const (
	// SerialDriver sends frames to a microcontroller over USB serial.
	SerialDriver DriverKind = "serial"
	// SPIDriver drives WS2812 LEDs directly from an SPI port.
	SPIDriver DriverKind = "spi"
	// TerminalDriver draws the matrix in the terminal and reads commands from
	// the keyboard.
	TerminalDriver DriverKind = "term"
	// NoDriver drops frames. Useful with the preview server.
	NoDriver DriverKind = "none"
)

// DriverConfig is the configuration for the LED output.
type DriverConfig struct {
	Kind DriverKind `toml:"kind"`

	// Device is the path to the serial device, usually /dev/ttyACM0.
	Device string `toml:"device"`
	// Baud is the baud rate for the serial connection.
	Baud int `toml:"baud"`
	// Timeout is how long to wait for the controller to ack a frame.
	Timeout TOMLDuration `toml:"timeout"`

	// SPIPort is the periph name of the SPI port. Empty picks the first one.
	SPIPort string `toml:"spi_port"`
	// SPIFreqKHz is the SPI clock in kHz.
	SPIFreqKHz int `toml:"spi_freq_khz"`
}

// SensorKind selects the proximity source.
type SensorKind string

const (
	// APDS9960Sensor reads an APDS-9960 over I2C.
	APDS9960Sensor SensorKind = "apds9960"
	// ReplaySensor plays back a recorded trace file.
	ReplaySensor SensorKind = "replay"
	// NoSensor disables gestures.
	NoSensor SensorKind = "none"
)

// SensorConfig is the configuration for gesture input.
type SensorConfig struct {
	Kind SensorKind `toml:"kind"`
	// Bus is the periph name of the I2C bus. Empty picks the first one.
	Bus string `toml:"bus"`
	// Interval is the sampling period.
	Interval TOMLDuration `toml:"interval"`
	// Trace is the trace file for the replay sensor.
	Trace string `toml:"trace"`
	// Loop restarts the trace when it ends.
	Loop bool `toml:"loop"`
}

// WorldsConfig is the configuration for the generative worlds.
type WorldsConfig struct {
	// Initial is the world shown at startup. "empty" starts powered off.
	// Defaults to fire.
	Initial *world.Kind `toml:"initial,omitempty"`
	// Seed seeds the random generator. Zero picks a time-based seed.
	Seed uint64 `toml:"seed"`
	// OffColor is what the matrix shows while powered off.
	OffColor led.RGBColor `toml:"off_color"`
}

// PreviewConfig is the configuration for the preview server.
type PreviewConfig struct {
	// Listen is the address for /ws and /health. Empty disables the server.
	Listen string `toml:"listen"`
}

const defaultSensorInterval = 10 * time.Millisecond

// Defaults fills unset fields with their default values.
func (c *Config) Defaults() {
	setDefault(&c.Matrix.Width, 16)
	setDefault(&c.Matrix.Height, 16)

	setDefault(&c.Driver.Kind, TerminalDriver)
	setDefault(&c.Driver.Device, "/dev/ttyACM0")
	setDefault(&c.Driver.Baud, 115200)
	setDefault(&c.Driver.Timeout, TOMLDuration(time.Second))
	setDefault(&c.Driver.SPIFreqKHz, 2500)

	setDefault(&c.Sensor.Kind, APDS9960Sensor)
	setDefault(&c.Sensor.Interval, TOMLDuration(defaultSensorInterval))

	if c.Worlds.Initial == nil {
		fire := world.KindFire
		c.Worlds.Initial = &fire
	}
}

func setDefault[T comparable](v *T, def T) {
	var zero T
	if *v == zero {
		*v = def
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Matrix.Width < 2 || c.Matrix.Height < 2 {
		return fmt.Errorf("matrix must be at least 2x2, got %dx%d", c.Matrix.Width, c.Matrix.Height)
	}
	if n := c.NumLEDs(); n > 0xFFFF {
		return fmt.Errorf("matrix has %d LEDs, at most 65535 are supported", n)
	}

	switch c.Driver.Kind {
	case SerialDriver:
		if c.Driver.Device == "" {
			return errors.New("serial driver needs a device")
		}
		if c.Driver.Baud <= 0 {
			return fmt.Errorf("invalid baud rate %d", c.Driver.Baud)
		}
	case SPIDriver:
		if c.Driver.SPIFreqKHz <= 0 {
			return fmt.Errorf("invalid SPI frequency %d kHz", c.Driver.SPIFreqKHz)
		}
	case TerminalDriver, NoDriver:
	default:
		return fmt.Errorf("unknown driver %q", c.Driver.Kind)
	}

	switch c.Sensor.Kind {
	case APDS9960Sensor, NoSensor:
	case ReplaySensor:
		if c.Sensor.Trace == "" {
			return errors.New("replay sensor needs a trace file")
		}
	default:
		return fmt.Errorf("unknown sensor %q", c.Sensor.Kind)
	}
	if c.Sensor.Kind != NoSensor && c.Sensor.Interval <= 0 {
		return errors.New("sensor interval must be positive")
	}

	if c.Worlds.Initial != nil && int(*c.Worlds.Initial) > world.Worlds {
		return fmt.Errorf("unknown initial world %s", *c.Worlds.Initial)
	}

	return nil
}

// InitialWorld returns the world shown at startup.
func (c *Config) InitialWorld() world.Kind {
	if c.Worlds.Initial == nil {
		return world.KindFire
	}
	return *c.Worlds.Initial
}

// NumLEDs returns the number of LEDs in the matrix.
func (c *Config) NumLEDs() int {
	return c.Matrix.Width * c.Matrix.Height
}

// TOMLDuration is a duration that can be parsed from TOML.
type TOMLDuration time.Duration

var (
	_ encoding.TextUnmarshaler = (*TOMLDuration)(nil)
	_ encoding.TextMarshaler   = (*TOMLDuration)(nil)
)

func (d *TOMLDuration) UnmarshalText(text []byte) error {
	duration, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = TOMLDuration(duration)
	return nil
}

func (d TOMLDuration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// ParseConfig parses a configuration from a reader and applies defaults.
// Validation happens in NewDaemon.
func ParseConfig(r io.Reader) (*Config, error) {
	var config Config
	if err := toml.NewDecoder(r).Decode(&config); err != nil {
		return nil, err
	}
	config.Defaults()
	return &config, nil
}
