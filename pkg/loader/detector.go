package loader

// Decision is the detector's verdict after a load cycle
type Decision int

const (
	// Continue means more content may still arrive
	Continue Decision = iota
	// Stop means the feed has converged and loading should end
	Stop
)

// Detector decides when an infinite feed has stopped yielding new
// content. It tracks the page's content height across load cycles: a
// cycle that grows the page resets the stall count, a cycle that
// leaves it unchanged increments it, and reaching the stall limit
// means the feed has converged. A feed that no longer offers a
// load-more control has converged immediately, whatever the count.
type Detector struct {
	maxStalls  int
	stalls     int
	lastHeight int64
	primed     bool
}

// NewDetector creates a detector that tolerates maxStalls consecutive
// heightless cycles before declaring convergence
func NewDetector(maxStalls int) *Detector {
	return &Detector{maxStalls: maxStalls}
}

// Update feeds one cycle's observation to the detector. hasMore
// reports whether the load-more control was still present; height is
// the page's content height after the cycle settled.
func (d *Detector) Update(height int64, hasMore bool) Decision {
	if !hasMore {
		return Stop
	}

	if !d.primed {
		d.primed = true
		d.lastHeight = height
		return Continue
	}

	if height > d.lastHeight {
		d.lastHeight = height
		d.stalls = 0
		return Continue
	}

	return d.stall()
}

// Stall records a cycle that produced no usable observation, such as
// a transient scroll or measurement fault. Faults count against the
// stall limit rather than aborting the term.
func (d *Detector) Stall() Decision {
	return d.stall()
}

func (d *Detector) stall() Decision {
	d.stalls++
	if d.stalls >= d.maxStalls {
		return Stop
	}
	return Continue
}

// Stalls returns the current consecutive stall count
func (d *Detector) Stalls() int {
	return d.stalls
}
