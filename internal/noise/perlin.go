package noise

import "github.com/aquilax/go-perlin"

const (
	octaves = 4
	falloff = 2 // amplitude divisor per octave
	lacunar = 2 // frequency multiplier per octave
)

// offset recenters the raw octave sum. Each octave k contributes
// (1+n)/2 scaled by 0.5^(k+1), which sums to 0.46875 plus a quarter of the
// raw fractal noise.
const offset = 0.46875

// Perlin is a 2D fractal noise field whose samples lie roughly in [0, 1] and
// average just under 0.5.
type Perlin struct {
	p *perlin.Perlin
}

// NewPerlin creates a noise field seeded from r.
func (r *RNG) NewPerlin() *Perlin {
	return &Perlin{p: perlin.NewPerlin(falloff, lacunar, octaves, r.Int64())}
}

// Sample returns the noise value at (x, y).
func (p *Perlin) Sample(x, y float64) float64 {
	return offset + p.p.Noise2D(x, y)/4
}
