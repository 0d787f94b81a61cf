// Command gesturetrace replays a proximity trace through the gesture state
// machine and prints the commands it recognizes. With --record it instead
// samples a live APDS9960 and prints a trace.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/pflag"

	"github.com/exor2008/Pleiades/internal/gesture"
	"github.com/exor2008/Pleiades/internal/sensor"
)

var (
	verbose  = false
	record   = time.Duration(0)
	bus      = ""
	interval = 10 * time.Millisecond
)

func init() {
	pflag.BoolVarP(&verbose, "verbose", "v", verbose, "print every sample with its state")
	pflag.DurationVarP(&record, "record", "r", record, "record a trace from the sensor for this long")
	pflag.StringVarP(&bus, "bus", "b", bus, "I2C bus to record from")
	pflag.DurationVarP(&interval, "interval", "i", interval, "sampling interval when recording")
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] [trace files...]\n", os.Args[0])
		pflag.PrintDefaults()
	}
}

func main() {
	pflag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	if record > 0 {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()
		return recordTrace(ctx, os.Stdout)
	}

	if pflag.NArg() == 0 {
		return replay(os.Stdout, "stdin", os.Stdin)
	}

	for _, name := range pflag.Args() {
		f, err := os.Open(name)
		if err != nil {
			return fmt.Errorf("failed to open trace: %w", err)
		}
		err = replay(os.Stdout, name, f)
		f.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func replay(w io.Writer, name string, r io.Reader) error {
	samples, err := sensor.ParseTrace(r)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	sm := gesture.NewStateMachine()
	var commands int

	for i, dist := range samples {
		sm.Feed(dist)
		cmd, ok := sm.TakeCommand()

		switch {
		case ok:
			commands++
			fmt.Fprintf(w, "%s:%d\t%d\t%s\t%s\n", name, i, dist, sm.State(), cmd)
		case verbose:
			fmt.Fprintf(w, "%s:%d\t%d\t%s\n", name, i, dist, sm.State())
		}
	}

	fmt.Fprintf(w, "%s: %d samples, %d commands\n", name, len(samples), commands)
	return nil
}

func recordTrace(ctx context.Context, w io.Writer) error {
	b, err := sensor.OpenBus(bus)
	if err != nil {
		return err
	}
	defer b.Close()

	apds := sensor.NewAPDS9960(b)
	if err := apds.Enable(); err != nil {
		return fmt.Errorf("failed to enable sensor: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, record)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	fmt.Fprintf(w, "# recorded %s at %s intervals\n", time.Now().Format(time.RFC3339), interval)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		dist, err := apds.Distance(ctx)
		if err != nil {
			if errors.Is(err, sensor.ErrNotReady) || ctx.Err() != nil {
				continue
			}
			return fmt.Errorf("failed to read sensor: %w", err)
		}
		fmt.Fprintln(w, dist)
	}
}
