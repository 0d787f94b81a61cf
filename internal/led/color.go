package led

import (
	"encoding"
	"encoding/hex"
	"fmt"
	"strings"
)

// RGBColor is a single LED color in R, G, B order.
type RGBColor [3]uint8

var (
	_ encoding.TextUnmarshaler = (*RGBColor)(nil)
	_ encoding.TextMarshaler   = RGBColor{}
)

// Black is the zero color. Writing it turns an LED off.
var Black = RGBColor{}

// RGB creates a color from its three channels.
func RGB(r, g, b uint8) RGBColor {
	return RGBColor{r, g, b}
}

// R returns the red channel.
func (c RGBColor) R() uint8 { return c[0] }

// G returns the green channel.
func (c RGBColor) G() uint8 { return c[1] }

// B returns the blue channel.
func (c RGBColor) B() uint8 { return c[2] }

// String formats the color as a hex triplet, e.g. "#ff8000".
func (c RGBColor) String() string {
	return "#" + hex.EncodeToString(c[:])
}

// MarshalText implements encoding.TextMarshaler.
func (c RGBColor) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText parses a hex triplet with an optional leading '#'.
func (c *RGBColor) UnmarshalText(text []byte) error {
	s := strings.TrimPrefix(string(text), "#")
	if len(s) != 6 {
		return fmt.Errorf("invalid color %q: expected 6 hex digits", text)
	}

	var b [3]byte
	if _, err := hex.Decode(b[:], []byte(s)); err != nil {
		return fmt.Errorf("invalid color %q: %w", text, err)
	}

	*c = b
	return nil
}

// Mix blends a into b by alpha, where alpha 0 yields a and alpha 1 yields b.
// Channels are interpolated linearly and truncated.
func Mix(a, b RGBColor, alpha float64) RGBColor {
	if alpha <= 0 {
		return a
	}
	if alpha >= 1 {
		return b
	}

	var out RGBColor
	for i := range out {
		out[i] = uint8(float64(a[i]) + (float64(b[i])-float64(a[i]))*alpha)
	}
	return out
}

// MixInto blends two frames of equal length into dst.
func MixInto(dst, a, b LEDs, alpha float64) {
	for i := range dst {
		dst[i] = Mix(a[i], b[i], alpha)
	}
}
