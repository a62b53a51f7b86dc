package progress

// Sampler suppresses repetitive progress output, emitting only when the
// percentage crosses a bucket boundary.
type Sampler struct {
	bucketSize float64
	lastBucket int
}

// NewSampler constructs a sampler with the given bucket size (default 10%).
func NewSampler(bucketSize float64) *Sampler {
	if bucketSize <= 0 {
		bucketSize = 10
	}
	return &Sampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldEmit reports whether percent entered a new bucket.
func (s *Sampler) ShouldEmit(percent float64) bool {
	if s == nil {
		return true
	}
	if percent < 0 {
		return false
	}
	bucket := int(percent / s.bucketSize)
	if percent >= maxPercent {
		bucket = int(maxPercent / s.bucketSize)
	}
	if bucket > s.lastBucket {
		s.lastBucket = bucket
		return true
	}
	return false
}

// Reset clears sampler state for a new job.
func (s *Sampler) Reset() {
	if s == nil {
		return
	}
	s.lastBucket = -1
}
