// The package counter defines a minimalistic concurrent Float counter
package counter

import (
	"math"
	"sync/atomic"
)

// Float is a floating point counter that can be incremented by many goroutines
// at once. The value is stored as the bits of a float64 and updated with a
// compare-and-swap loop, so no precision is lost to a fixed scale.
type Float struct {
	bits atomic.Uint64
}

// NewFloatCounter() returns a new Float counter set to zero.
func NewFloatCounter() *Float {
	return &Float{}
}

// Add() increases the counter by delta and returns the current value.
func (c *Float) Add(delta float64) float64 {
	if c == nil {
		return 0
	}

	for {
		old := c.bits.Load()
		sum := math.Float64frombits(old) + delta
		if c.bits.CompareAndSwap(old, math.Float64bits(sum)) {
			return sum
		}
	}
}

// Load() returns the current value.
func (c *Float) Load() float64 {
	if c == nil {
		return 0
	}
	return math.Float64frombits(c.bits.Load())
}

// Store() overwrites the current value to val.
func (c *Float) Store(val float64) {
	if c == nil {
		return
	}
	c.bits.Store(math.Float64bits(val))
}
