package config

import (
	"sort"

	"github.com/san-kum/motorsim/internal/control"
)

// Presets are complete snapshots built from the defaults.
var Presets = map[string]func() Config{
	"position": func() Config {
		return DefaultConfig()
	},
	"cascade": func() Config {
		cfg := DefaultConfig()
		cfg.Controller.Control = ControlPosVelTrq
		return cfg
	},
	"calibrate-position": func() Config {
		return calibration(control.StagePosition)
	},
	"calibrate-velocity": func() Config {
		return calibration(control.StageVelocity)
	},
	"calibrate-torque": func() Config {
		return calibration(control.StageTorque)
	},
	"rk4-plant": func() Config {
		cfg := DefaultConfig()
		cfg.Plant.Integrator = "rk4"
		return cfg
	},
}

func calibration(stage control.Stage) Config {
	cfg := DefaultConfig()
	cfg.Controller.Calibration = stage
	cfg.Controller.Duration = 1.0
	return cfg
}

// GetPreset returns the named preset and whether it exists.
func GetPreset(name string) (Config, bool) {
	build, ok := Presets[name]
	if !ok {
		return Config{}, false
	}
	return build(), true
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
