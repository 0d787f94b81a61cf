// Package pleiades runs the Pleiades installation: an LED matrix showing
// generative worlds that are switched and tuned by hand gestures over a
// proximity sensor.
package pleiades

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"periph.io/x/conn/v3/physic"

	"github.com/exor2008/Pleiades/internal/driver/serialdrv"
	"github.com/exor2008/Pleiades/internal/driver/spidrv"
	"github.com/exor2008/Pleiades/internal/driver/termdrv"
	"github.com/exor2008/Pleiades/internal/gesture"
	"github.com/exor2008/Pleiades/internal/led"
	"github.com/exor2008/Pleiades/internal/noise"
	"github.com/exor2008/Pleiades/internal/pace"
	"github.com/exor2008/Pleiades/internal/preview"
	"github.com/exor2008/Pleiades/internal/sensor"
	"github.com/exor2008/Pleiades/internal/world"
)

// Daemon is the main Pleiades daemon.
type Daemon struct {
	cfg    *Config
	logger *slog.Logger
	queue  *gesture.Queue

	driver led.Driver
	sensor sensor.Proximity
	pace   pace.Factory

	started time.Time
	world   atomic.Uint32
	on      atomic.Bool
	frames  atomic.Uint64
	hub     atomic.Pointer[preview.Hub]
}

// Option configures a Daemon.
type Option func(*Daemon)

// WithDriver makes the daemon write frames to driver instead of the one
// named in the configuration. The daemon closes it when Run returns.
func WithDriver(driver led.Driver) Option {
	return func(d *Daemon) { d.driver = driver }
}

// WithSensor makes the daemon read gestures from s instead of the sensor
// named in the configuration.
func WithSensor(s sensor.Proximity) Option {
	return func(d *Daemon) { d.sensor = s }
}

// WithPace overrides how worlds pace their frames.
func WithPace(f pace.Factory) Option {
	return func(d *Daemon) { d.pace = f }
}

// NewDaemon creates a new Pleiades daemon.
func NewDaemon(cfg *Config, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	d := &Daemon{
		cfg:    cfg,
		logger: logger,
		queue:  gesture.NewQueue(logger.With("component", "queue")),
		pace:   pace.Ticker,

		started: time.Now(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Queue returns the command queue shared by every input.
func (d *Daemon) Queue() *gesture.Queue { return d.queue }

// Status reports what the daemon is showing. It is safe to call from any
// goroutine.
func (d *Daemon) Status() preview.Status {
	s := preview.Status{
		World:   world.Kind(d.world.Load()).String(),
		On:      d.on.Load(),
		Frames:  d.frames.Load(),
		Dropped: d.queue.Dropped(),
		UptimeS: time.Since(d.started).Seconds(),
	}
	if hub := d.hub.Load(); hub != nil {
		s.Clients = hub.Clients()
	}
	return s
}

// Run starts the daemon. It blocks until the given context is canceled, the
// user quits from the terminal, or a task fails.
func (d *Daemon) Run(ctx context.Context) error {
	err := (&internalDaemon{Daemon: d}).run(ctx)
	if errors.Is(err, termdrv.ErrQuit) {
		d.logger.Info("quit requested from terminal")
		return nil
	}
	return err
}

type internalDaemon struct {
	*Daemon
	term    *termdrv.Driver
	closers []io.Closer
}

func (d *internalDaemon) run(ctx context.Context) error {
	defer func() {
		for _, c := range d.closers {
			c.Close()
		}
	}()

	driver, err := d.openDriver()
	if err != nil {
		return err
	}

	var hub *preview.Hub
	if d.cfg.Preview.Listen != "" {
		hub = preview.NewHub(d.layout(), d.logger.With("component", "preview"))
		d.hub.Store(hub)
		driver = led.Tee{driver, hub}
	}

	sink := led.NewMatrix(d.cfg.Matrix.Width, d.cfg.Matrix.Height, driver)
	defer func() {
		if err := sink.Close(); err != nil {
			d.logger.Warn("failed to close driver", "error", err)
		}
	}()

	proximity, err := d.openSensor()
	if err != nil {
		return err
	}

	errg, ctx := errgroup.WithContext(ctx)

	if proximity != nil {
		errg.Go(func() error {
			return d.sensorLoop(ctx, proximity)
		})
	}

	errg.Go(func() error {
		return d.renderLoop(ctx, sink)
	})

	if hub != nil {
		errg.Go(func() error {
			return d.servePreview(ctx, hub)
		})
	}

	if d.term != nil {
		errg.Go(func() error {
			return d.term.Input(ctx, d.queue.Offer)
		})
	}

	return errg.Wait()
}

func (d *internalDaemon) layout() led.Serpentine {
	return led.Serpentine{Width: d.cfg.Matrix.Width, Height: d.cfg.Matrix.Height}
}

func (d *internalDaemon) openDriver() (led.Driver, error) {
	if d.driver != nil {
		return d.driver, nil
	}

	logger := d.logger.With("component", "driver")
	logger.Debug("opening driver", "kind", d.cfg.Driver.Kind)

	switch d.cfg.Driver.Kind {
	case SerialDriver:
		return serialdrv.Open(serialdrv.Options{
			Device:  d.cfg.Driver.Device,
			Baud:    d.cfg.Driver.Baud,
			Timeout: time.Duration(d.cfg.Driver.Timeout),
		}, d.cfg.NumLEDs(), logger)

	case SPIDriver:
		freq := physic.Frequency(d.cfg.Driver.SPIFreqKHz) * physic.KiloHertz
		return spidrv.Open(d.cfg.Driver.SPIPort, d.cfg.NumLEDs(), freq)

	case TerminalDriver:
		term, err := termdrv.Open(d.layout())
		if err != nil {
			return nil, err
		}
		d.term = term
		return term, nil

	default:
		return led.Discard, nil
	}
}

func (d *internalDaemon) openSensor() (sensor.Proximity, error) {
	if d.sensor != nil {
		return d.sensor, nil
	}

	switch d.cfg.Sensor.Kind {
	case APDS9960Sensor:
		bus, err := sensor.OpenBus(d.cfg.Sensor.Bus)
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, bus)

		apds := sensor.NewAPDS9960(bus)
		if err := apds.Enable(); err != nil {
			return nil, errors.Wrap(err, "failed to enable APDS9960")
		}
		return apds, nil

	case ReplaySensor:
		f, err := os.Open(d.cfg.Sensor.Trace)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open trace")
		}
		defer f.Close()

		samples, err := sensor.ParseTrace(f)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse trace %s", d.cfg.Sensor.Trace)
		}
		return sensor.NewReplay(samples, d.cfg.Sensor.Loop), nil

	default:
		return nil, nil
	}
}

// sensorLoop samples the sensor and offers recognized gestures to the
// queue. Read failures are skipped.
func (d *internalDaemon) sensorLoop(ctx context.Context, proximity sensor.Proximity) error {
	logger := d.logger.With("component", "sensor")

	interval := time.Duration(d.cfg.Sensor.Interval)
	if interval <= 0 {
		interval = defaultSensorInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sm := gesture.NewStateMachine()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		dist, err := proximity.Distance(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				logger.Info("sensor trace finished")
				return nil
			}
			logger.Debug("skipping sensor reading", "error", err)
			continue
		}

		sm.Feed(dist)

		if cmd, ok := sm.TakeCommand(); ok {
			logger.Debug("recognized gesture", "command", cmd, "distance", dist)
			d.queue.Offer(cmd)
		}
	}
}

// renderLoop owns the sink and every world. A pending command is applied
// before the tick of the same iteration.
func (d *internalDaemon) renderLoop(ctx context.Context, sink led.Sink) error {
	logger := d.logger.With("component", "render")

	env := world.Env{
		RNG:      noise.NewRNG(d.cfg.Worlds.Seed),
		Pace:     d.pace,
		Logger:   logger,
		OffColor: d.cfg.Worlds.OffColor,
	}

	sw := world.NewSwitch(sink, env, d.cfg.InitialWorld())
	defer sw.Close()
	d.publish(sw)

	for {
		if cmd, ok := d.queue.Poll(); ok {
			sw.Handle(cmd)
			d.publish(sw)
		}

		if err := sw.Step(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("failed to render frame", "world", sw.Kind(), "error", err)
			continue
		}

		d.frames.Add(1)
	}
}

func (d *internalDaemon) publish(sw *world.Switch) {
	d.world.Store(uint32(sw.Kind()))
	d.on.Store(sw.IsOn())
}

func (d *internalDaemon) servePreview(ctx context.Context, hub *preview.Hub) error {
	logger := d.logger.With("component", "preview")

	l, err := net.Listen("tcp", d.cfg.Preview.Listen)
	if err != nil {
		return errors.Wrap(err, "failed to listen for preview")
	}

	srv := &http.Server{
		Handler:           preview.NewMux(hub, d.Status),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Debug("shutting down preview server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving preview", "addr", l.Addr().String())

	if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "preview server failed")
	}
	return ctx.Err()
}
