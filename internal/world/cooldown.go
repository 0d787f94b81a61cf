package world

// CooldownValue is a bounded counter that accepts at most one change every
// cooldown+1 requests. Worlds use it so a burst of Level commands does not
// swing a parameter from one end to the other.
type CooldownValue struct {
	value    int
	min, max int
	cooldown int
	wait     int
}

// NewCooldownValue creates a counter starting at value, clamped to
// [min, max]. The first request is always honored.
func NewCooldownValue(value, min, max, cooldown int) *CooldownValue {
	return &CooldownValue{
		value:    clampInt(value, min, max),
		min:      min,
		max:      max,
		cooldown: cooldown,
	}
}

// Value returns the current value.
func (c *CooldownValue) Value() int { return c.value }

// Up requests an increment and reports whether the value changed.
func (c *CooldownValue) Up() bool { return c.step(+1) }

// Down requests a decrement and reports whether the value changed.
func (c *CooldownValue) Down() bool { return c.step(-1) }

func (c *CooldownValue) step(delta int) bool {
	if c.wait > 0 {
		c.wait--
		return false
	}
	c.wait = c.cooldown

	old := c.value
	c.value = clampInt(c.value+delta, c.min, c.max)
	return c.value != old
}

func clampInt(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
