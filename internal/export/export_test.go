package export

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/motorsim/internal/config"
	"github.com/san-kum/motorsim/internal/sim"
	"github.com/san-kum/motorsim/internal/telemetry"
)

func TestCSVRoundTrip(t *testing.T) {
	in := []telemetry.Sample{
		{Time: 0.001, Position: 0.5, Velocity: 12, Voltage: 12, Torque: 0.4, Setpoint: 180},
		{Time: 0.002, Position: 1.5, Velocity: 40, Voltage: 11.9, Torque: 0.38, Setpoint: 180},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, in))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("time,position,velocity,voltage,torque,setpoint\n")))

	out, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestReadCSV(t *testing.T) {
	out, err := ReadCSV(bytes.NewBufferString("time,position,velocity,voltage,torque,setpoint\n"))
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = ReadCSV(bytes.NewBufferString("time,position,velocity,voltage,torque,setpoint\n0.1,x,0,0,0,0\n"))
	assert.ErrorContains(t, err, "position")

	_, err = ReadCSV(bytes.NewBufferString("time,position\n0.1,2\n"))
	assert.Error(t, err)
}

func TestWriteJSON(t *testing.T) {
	cfg, ok := config.GetPreset("calibrate-torque")
	require.True(t, ok)
	result, err := sim.Simulate(context.Background(), cfg, 0.05, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, result))

	var doc struct {
		Summary Summary            `json:"summary"`
		Samples []telemetry.Sample `json:"samples"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, "calibrate-torque", doc.Summary.Mode)
	assert.Equal(t, 50, doc.Summary.Steps)
	assert.InDelta(t, 0.05, doc.Summary.Duration, 1e-12)
	assert.Len(t, doc.Samples, 50)
	assert.Contains(t, doc.Summary.Metrics, "energy")
	assert.Equal(t, 0.25, doc.Samples[0].Setpoint)
}
