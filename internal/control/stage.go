package control

import (
	"fmt"

	"github.com/san-kum/motorsim/internal/dynamo"
)

// Stage identifies a loop of the position → velocity → torque cascade.
type Stage string

const (
	StagePosition Stage = "position"
	StageVelocity Stage = "velocity"
	StageTorque   Stage = "torque"
)

// Stages lists the cascade loops from outermost to innermost.
var Stages = []Stage{StagePosition, StageVelocity, StageTorque}

func ParseStage(s string) (Stage, error) {
	for _, stage := range Stages {
		if string(stage) == s {
			return stage, nil
		}
	}
	return "", fmt.Errorf("stage %q: %w", s, dynamo.ErrUnknownName)
}

func (s Stage) String() string {
	return string(s)
}

// Unit is the unit of the quantity the stage regulates.
func (s Stage) Unit() string {
	switch s {
	case StagePosition:
		return "deg"
	case StageVelocity:
		return "rpm"
	case StageTorque:
		return "N·m"
	}
	return ""
}
