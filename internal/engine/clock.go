package engine

// Clock numbers the snapshots taken of an engine.
//
// Seq values are strictly increasing for the lifetime of the engine,
// across resets, so a store can order several snapshots sharing one
// engine ID without relying on wall-clock time.
type Clock struct {
	seq int64
}

// NewClockAt creates a clock whose next value is start+1.
func NewClockAt(start int64) *Clock {
	return &Clock{seq: start}
}

// Next advances the clock and returns the new value.
func (c *Clock) Next() int64 {
	c.seq++
	return c.seq
}

// Current returns the last value handed out, 0 if none.
func (c *Clock) Current() int64 {
	return c.seq
}
