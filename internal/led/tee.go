package led

import "github.com/pkg/errors"

// Tee is a Driver that writes every frame to all of its drivers in order.
// A failing driver does not keep the frame from the others; the first error
// is returned.
type Tee []Driver

func (t Tee) Write(rgb []byte) error {
	var first error
	for _, d := range t {
		if err := d.Write(rgb); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close closes every driver and returns the first error.
func (t Tee) Close() error {
	var first error
	for _, d := range t {
		if err := d.Close(); err != nil && first == nil {
			first = errors.Wrap(err, "failed to close driver")
		}
	}
	return first
}

// Discard is a Driver that drops every frame.
var Discard Driver = discard{}

type discard struct{}

func (discard) Write([]byte) error { return nil }
func (discard) Close() error       { return nil }
