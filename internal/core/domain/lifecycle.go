package domain

import (
	"sync"

	"go.trai.ch/zerr"
)

// ScanState is the stage a scan has reached.
type ScanState int

// Scan stages, in the only order they may be visited.
const (
	StateInitialized ScanState = iota
	StateDispatching
	StateSynthesizing
	StateMerging
	StateInferring
	StateFinalized
)

func (s ScanState) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateDispatching:
		return "dispatching"
	case StateSynthesizing:
		return "synthesizing"
	case StateMerging:
		return "merging"
	case StateInferring:
		return "inferring"
	case StateFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// ScanLifecycle tracks the stage of one scan. It is safe for concurrent use so that
// producers and the merging consumer can report progress independently.
type ScanLifecycle struct {
	mu           sync.Mutex
	state        ScanState
	err          error
	onTransition func(from, to ScanState)
}

// NewScanLifecycle returns a lifecycle in StateInitialized. onTransition, if non-nil,
// is called for every step while the lifecycle lock is held.
func NewScanLifecycle(onTransition func(from, to ScanState)) *ScanLifecycle {
	return &ScanLifecycle{onTransition: onTransition}
}

// State returns the current stage.
func (l *ScanLifecycle) State() ScanState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Err returns the error a failed scan was finalized with.
func (l *ScanLifecycle) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Advance moves to next, which must directly follow the current stage.
func (l *ScanLifecycle) Advance(next ScanState) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if next != l.state+1 || l.state == StateFinalized {
		return zerr.With(
			zerr.With(zerr.Wrap(ErrInvalidTransition, "cannot advance scan"), "from", l.state.String()),
			"to", next.String(),
		)
	}
	l.step(next)
	return nil
}

// ReachAtLeast steps through every stage up to target. It is a no-op when the scan
// is already at or past target.
func (l *ScanLifecycle) ReachAtLeast(target ScanState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.state < target {
		l.step(l.state + 1)
	}
}

// Fail finalizes the scan with err from any stage.
func (l *ScanLifecycle) Fail(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == StateFinalized {
		return
	}
	l.err = err
	l.step(StateFinalized)
}

func (l *ScanLifecycle) step(next ScanState) {
	from := l.state
	l.state = next
	if l.onTransition != nil {
		l.onTransition(from, next)
	}
}
