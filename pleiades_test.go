package pleiades

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exor2008/Pleiades/internal/gesture"
	"github.com/exor2008/Pleiades/internal/sensor"
	"github.com/exor2008/Pleiades/internal/world"
)

// countingDriver counts frames and remembers the last one.
type countingDriver struct {
	mu     sync.Mutex
	frames int
	last   []byte
	closed atomic.Bool
}

func (d *countingDriver) Write(rgb []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.frames++
	d.last = append(d.last[:0], rgb...)
	return nil
}

func (d *countingDriver) Close() error {
	d.closed.Store(true)
	return nil
}

func (d *countingDriver) Frames() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frames
}

// flakyDriver fails the first failures frames and counts the rest.
type flakyDriver struct {
	countingDriver
	failures atomic.Int32
	attempts atomic.Int32
}

func (d *flakyDriver) Write(rgb []byte) error {
	d.attempts.Add(1)
	if d.failures.Add(-1) >= 0 {
		return errors.New("controller not responding")
	}
	return d.countingDriver.Write(rgb)
}

// flakySensor answers every other reading with ErrNotReady.
type flakySensor struct {
	sensor.Proximity
	calls atomic.Int32
}

func (s *flakySensor) Distance(ctx context.Context) (uint8, error) {
	if s.calls.Add(1)%2 == 1 {
		return 0, sensor.ErrNotReady
	}
	return s.Proximity.Distance(ctx)
}

func testConfig() *Config {
	cfg := &Config{
		Matrix: MatrixConfig{Width: 4, Height: 4},
		Driver: DriverConfig{Kind: NoDriver},
		Sensor: SensorConfig{Kind: NoSensor, Interval: TOMLDuration(time.Millisecond)},
		Worlds: WorldsConfig{Seed: 7},
	}
	cfg.Defaults()
	return cfg
}

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func startDaemon(t *testing.T, d *Daemon) (cancel func() error) {
	t.Helper()

	ctx, stop := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- d.Run(ctx) }()

	return func() error {
		stop()
		select {
		case err := <-errCh:
			return err
		case <-time.After(5 * time.Second):
			t.Fatal("daemon did not stop")
			return nil
		}
	}
}

func TestDaemonRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Matrix.Width = 0

	_, err := NewDaemon(cfg, discardLogger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestDaemonRenders(t *testing.T) {
	driver := &countingDriver{}
	d, err := NewDaemon(testConfig(), discardLogger, WithDriver(driver))
	require.NoError(t, err)

	stop := startDaemon(t, d)

	require.Eventually(t, func() bool { return driver.Frames() > 3 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "fire", d.Status().World)
	assert.True(t, d.Status().On)
	assert.NotZero(t, d.Status().Frames)

	assert.ErrorIs(t, stop(), context.Canceled)
	assert.True(t, driver.closed.Load())
	assert.Len(t, driver.last, 4*4*3)
}

func TestDaemonSwitchesOnGesture(t *testing.T) {
	// A hand held over the sensor for six samples, then removed.
	trace := []uint8{0, 80, 80, 80, 80, 80, 80, 0}

	d, err := NewDaemon(testConfig(), discardLogger,
		WithDriver(&countingDriver{}),
		WithSensor(sensor.NewReplay(trace, false)))
	require.NoError(t, err)

	stop := startDaemon(t, d)

	require.Eventually(t, func() bool {
		return d.Status().World == world.KindNorthenLight.String()
	}, 2*time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, stop(), context.Canceled)
}

func TestDaemonSkipsFailedSensorReads(t *testing.T) {
	flaky := &flakySensor{Proximity: sensor.NewReplay([]uint8{0, 80, 80, 80, 80, 80, 80, 0}, false)}

	d, err := NewDaemon(testConfig(), discardLogger,
		WithDriver(&countingDriver{}),
		WithSensor(flaky))
	require.NoError(t, err)

	stop := startDaemon(t, d)

	require.Eventually(t, func() bool {
		return d.Status().World == world.KindNorthenLight.String()
	}, 2*time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, flaky.calls.Load(), int32(16))

	assert.ErrorIs(t, stop(), context.Canceled)
}

func TestDaemonKeepsRenderingAfterFlushErrors(t *testing.T) {
	driver := &flakyDriver{}
	driver.failures.Store(5)

	d, err := NewDaemon(testConfig(), discardLogger, WithDriver(driver))
	require.NoError(t, err)

	stop := startDaemon(t, d)

	require.Eventually(t, func() bool { return driver.Frames() > 3 }, 2*time.Second, 5*time.Millisecond)
	assert.Greater(t, driver.attempts.Load(), int32(5))
	require.Eventually(t, func() bool { return d.Status().Frames > 3 }, 2*time.Second, 5*time.Millisecond)
	assert.LessOrEqual(t, d.Status().Frames, uint64(driver.Frames()), "failed flushes are not counted")

	assert.ErrorIs(t, stop(), context.Canceled)
}

func TestDaemonAppliesQueuedCommands(t *testing.T) {
	d, err := NewDaemon(testConfig(), discardLogger, WithDriver(&countingDriver{}))
	require.NoError(t, err)

	stop := startDaemon(t, d)

	require.True(t, d.Queue().Offer(gesture.Command{Kind: gesture.SwitchPower}))
	require.Eventually(t, func() bool { return !d.Status().On }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "empty", d.Status().World)

	require.Eventually(t, func() bool {
		return d.Queue().Offer(gesture.Command{Kind: gesture.SwitchPower})
	}, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return d.Status().On }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "fire", d.Status().World)

	assert.ErrorIs(t, stop(), context.Canceled)
}

func TestDaemonMissingTrace(t *testing.T) {
	cfg := testConfig()
	cfg.Sensor.Kind = ReplaySensor
	cfg.Sensor.Trace = "testdata/does-not-exist.trace"

	driver := &countingDriver{}
	d, err := NewDaemon(cfg, discardLogger, WithDriver(driver))
	require.NoError(t, err)

	err = d.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open trace")
	assert.True(t, driver.closed.Load())
}

func TestDaemonReplaysTraceFile(t *testing.T) {
	cfg := testConfig()
	cfg.Sensor.Kind = ReplaySensor
	cfg.Sensor.Trace = "testdata/swing.trace"

	d, err := NewDaemon(cfg, discardLogger, WithDriver(&countingDriver{}))
	require.NoError(t, err)

	stop := startDaemon(t, d)

	require.Eventually(t, func() bool {
		return d.Status().World == world.KindNorthenLight.String()
	}, 2*time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, stop(), context.Canceled)
}
