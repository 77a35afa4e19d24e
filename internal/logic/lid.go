package logic

import "time"

// LidConfig controls how raw tilt samples become a lid state.
type LidConfig struct {
	// ActiveLow inverts each raw sample before voting.
	ActiveLow bool
	// OpenConfirm is how long an open verdict must persist before the lid
	// counts as open. Zero commits on the first verdict.
	OpenConfirm time.Duration
	// CloseConfirm is the same for the closed verdict.
	CloseConfirm time.Duration
}

// LidTracker debounces the tilt contact into a stable open/closed state and
// tracks how long the lid has been open.
type LidTracker struct {
	cfg    LidConfig
	state  LidState
	active bool

	// Candidate state that differs from the stable one, and when it was
	// first observed.
	pending      bool
	pendingSince time.Time
}

// NewLidTracker creates a tracker that starts with the lid closed.
func NewLidTracker(cfg LidConfig) *LidTracker {
	return &LidTracker{cfg: cfg}
}

// Majority reduces a window of raw contact samples to a single verdict.
// The window is active when at least half of the (polarity-adjusted) samples
// are high. An empty window is never active.
func Majority(samples []bool, activeLow bool) bool {
	if len(samples) == 0 {
		return false
	}
	ones := 0
	for _, s := range samples {
		if s != activeLow {
			ones++
		}
	}
	return float64(ones)/float64(len(samples)) >= 0.5
}

// Update feeds one window of raw samples taken at now and returns the new
// lid state. An empty window leaves the stable state untouched but still
// refreshes the open duration.
func (t *LidTracker) Update(samples []bool, now time.Time) LidState {
	if len(samples) > 0 {
		t.active = Majority(samples, t.cfg.ActiveLow)
		t.settle(now)
	}

	if t.state.Open {
		d := now.Sub(t.state.OpenedAt)
		if d < 0 {
			d = 0
		}
		t.state.OpenSeconds = uint(d / time.Second)
	} else {
		t.state.OpenSeconds = 0
	}
	return t.state
}

func (t *LidTracker) settle(now time.Time) {
	if t.active == t.state.Open {
		// Back to the stable state, drop any candidate
		t.pending = false
		return
	}

	if !t.pending {
		t.pending = true
		t.pendingSince = now
	}

	confirm := t.cfg.CloseConfirm
	if t.active {
		confirm = t.cfg.OpenConfirm
	}
	if now.Sub(t.pendingSince) < confirm {
		return
	}

	if t.active {
		t.state.Open = true
		t.state.OpenedAt = t.pendingSince
	} else {
		t.state.Open = false
		t.state.OpenedAt = time.Time{}
	}
	t.pending = false
}

// Active returns the instantaneous verdict of the most recent window.
func (t *LidTracker) Active() bool {
	return t.active
}

// State returns the current stable state.
func (t *LidTracker) State() LidState {
	return t.state
}
