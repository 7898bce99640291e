package models

import "fmt"

// ExecutionMode selects how the scheduler orders stage execution.
type ExecutionMode string

const (
	// ModeSequential runs all four stages one at a time in topological order.
	ModeSequential ExecutionMode = "sequential"
	// ModeParallel dispatches any stage as soon as its dependencies are satisfied.
	ModeParallel ExecutionMode = "parallel"
	// ModeHybrid runs the meter/anomaly fan-out concurrently and everything
	// else sequentially. This is the default mode.
	ModeHybrid ExecutionMode = "hybrid"
)

// Valid returns true if the mode is a known value.
func (m ExecutionMode) Valid() bool {
	switch m {
	case ModeSequential, ModeParallel, ModeHybrid:
		return true
	default:
		return false
	}
}

// ParseMode converts a user-supplied string into an ExecutionMode.
func ParseMode(s string) (ExecutionMode, error) {
	m := ExecutionMode(s)
	if !m.Valid() {
		return "", fmt.Errorf("unknown execution mode %q (want sequential, parallel, or hybrid)", s)
	}
	return m, nil
}
