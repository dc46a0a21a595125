package cascade

import "errors"

var (
	// ErrNotRunning is returned by CalculatePoint outside a running state.
	ErrNotRunning = errors.New("cascade: controller is not running")
	// ErrStopped is returned by Start after a run has stopped; Reset first.
	ErrStopped = errors.New("cascade: run stopped, reset required")
)

type State int32

const (
	StateIdle State = iota
	StateRunningDirect
	StateRunningCalibration
	StateStopped
)

func (s State) Running() bool {
	return s == StateRunningDirect || s == StateRunningCalibration
}

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunningDirect:
		return "running"
	case StateRunningCalibration:
		return "calibrating"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}
