package export

import (
	"encoding/json"
	"io"

	"github.com/san-kum/motorsim/internal/cascade"
	"github.com/san-kum/motorsim/internal/config"
	"github.com/san-kum/motorsim/internal/sim"
	"github.com/san-kum/motorsim/internal/telemetry"
)

// Summary describes a finished simulation.
type Summary struct {
	Mode       string             `json:"mode"`
	Integrator string             `json:"integrator"`
	Frequency  float64            `json:"frequency"`
	Duration   float64            `json:"duration"`
	Steps      int                `json:"steps"`
	Finished   bool               `json:"finished"`
	Metrics    map[string]float64 `json:"metrics"`
}

// Document is the JSON form of a simulation result.
type Document struct {
	Summary Summary            `json:"summary"`
	Config  config.Config      `json:"config"`
	Samples []telemetry.Sample `json:"samples"`
}

func NewDocument(result *sim.Result) (Document, error) {
	mode, err := cascade.ResolveMode(result.Config.Controller)
	if err != nil {
		return Document{}, err
	}
	return Document{
		Summary: Summary{
			Mode:       mode.String(),
			Integrator: result.Config.Plant.Integrator,
			Frequency:  result.Config.Controller.Frequency,
			Duration:   float64(result.Steps) / result.Config.Controller.Frequency,
			Steps:      result.Steps,
			Finished:   result.Finished,
			Metrics:    result.Metrics,
		},
		Config:  result.Config,
		Samples: result.Samples,
	}, nil
}

// WriteJSON writes result as one indented document.
func WriteJSON(w io.Writer, result *sim.Result) error {
	doc, err := NewDocument(result)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
