// Package progress turns raw engine progress signals into the monotonic
// percentages shown to users.
package progress

import "math"

const (
	minPercent = 0.0
	maxPercent = 100.0
)

// Reporter clamps raw engine progress into a non-decreasing sequence in
// [0,100]. It is not safe for concurrent use; the orchestrator serializes
// access under its own lock.
type Reporter struct {
	last float64
}

// NewReporter returns a reporter starting at 0%.
func NewReporter() *Reporter {
	return &Reporter{}
}

// Observe applies the monotonic rule to one raw value and returns the value
// to emit. Values below the last emitted one never regress it, values above
// 100 clamp to 100, and NaN is ignored.
func (r *Reporter) Observe(raw float64) float64 {
	if math.IsNaN(raw) {
		return r.last
	}
	v := math.Min(math.Max(raw, minPercent), maxPercent)
	if v < r.last {
		v = r.last
	}
	r.last = v
	return v
}

// Complete pins progress at 100%, whether or not the engine reported any.
func (r *Reporter) Complete() float64 {
	r.last = maxPercent
	return r.last
}

// Reset starts a new job at 0%.
func (r *Reporter) Reset() {
	r.last = minPercent
}

// Last returns the most recently emitted value.
func (r *Reporter) Last() float64 {
	return r.last
}
