package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/san-kum/motorsim/internal/telemetry"
)

var sampleHeader = []string{"time", "position", "velocity", "voltage", "torque", "setpoint"}

// WriteCSV writes samples with a header row.
func WriteCSV(w io.Writer, samples []telemetry.Sample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(sampleHeader); err != nil {
		return err
	}

	for _, s := range samples {
		row := []string{
			strconv.FormatFloat(s.Time, 'f', 6, 64),
			strconv.FormatFloat(s.Position, 'f', 6, 64),
			strconv.FormatFloat(s.Velocity, 'f', 6, 64),
			strconv.FormatFloat(s.Voltage, 'f', 6, 64),
			strconv.FormatFloat(s.Torque, 'f', 6, 64),
			strconv.FormatFloat(s.Setpoint, 'f', 6, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadCSV parses what WriteCSV produced.
func ReadCSV(r io.Reader) ([]telemetry.Sample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(sampleHeader)

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []telemetry.Sample{}, nil
	}

	samples := make([]telemetry.Sample, 0, len(records)-1)
	for i, record := range records[1:] {
		var vals [6]float64
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", i+1, sampleHeader[j], err)
			}
			vals[j] = v
		}
		samples = append(samples, telemetry.Sample{
			Time:     vals[0],
			Position: vals[1],
			Velocity: vals[2],
			Voltage:  vals[3],
			Torque:   vals[4],
			Setpoint: vals[5],
		})
	}
	return samples, nil
}
