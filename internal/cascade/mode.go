package cascade

import (
	"fmt"

	"github.com/san-kum/motorsim/internal/config"
	"github.com/san-kum/motorsim/internal/control"
	"github.com/san-kum/motorsim/internal/dynamo"
)

// Mode is one of the reachable control configurations. It is resolved once
// per reset from the controller config.
type Mode int

const (
	// ModePosition feeds the live target into the position loop, whose
	// output is the drive voltage.
	ModePosition Mode = iota
	// ModeCascade chains position → velocity → torque → voltage against the
	// live target.
	ModeCascade
	// ModeCalibratePosition runs the full chain against a fixed 180°.
	ModeCalibratePosition
	// ModeCalibrateVelocity runs velocity → torque against half the
	// velocity bound.
	ModeCalibrateVelocity
	// ModeCalibrateTorque runs the torque loop against half the torque
	// bound.
	ModeCalibrateTorque
)

// CalibrationPosition is the fixed setpoint of position calibration, in degrees.
const CalibrationPosition = 180.0

func ResolveMode(c config.ControllerConfig) (Mode, error) {
	switch c.Calibration {
	case control.StagePosition:
		return ModeCalibratePosition, nil
	case control.StageVelocity:
		return ModeCalibrateVelocity, nil
	case control.StageTorque:
		return ModeCalibrateTorque, nil
	case "":
	default:
		return 0, fmt.Errorf("calibration %q: %w", c.Calibration, dynamo.ErrUnknownName)
	}

	switch c.Control {
	case config.ControlPos:
		return ModePosition, nil
	case config.ControlPosVelTrq:
		return ModeCascade, nil
	}
	return 0, fmt.Errorf("control %q: %w", c.Control, dynamo.ErrUnknownName)
}

// Stage is the outermost loop the mode routes through.
func (m Mode) Stage() control.Stage {
	switch m {
	case ModeCalibrateVelocity:
		return control.StageVelocity
	case ModeCalibrateTorque:
		return control.StageTorque
	}
	return control.StagePosition
}

func (m Mode) Calibrating() bool {
	return m >= ModeCalibratePosition
}

func (m Mode) String() string {
	switch m {
	case ModePosition:
		return "pos"
	case ModeCascade:
		return "pos_vel_trq"
	case ModeCalibratePosition:
		return "calibrate-position"
	case ModeCalibrateVelocity:
		return "calibrate-velocity"
	case ModeCalibrateTorque:
		return "calibrate-torque"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}
