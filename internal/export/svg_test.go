package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/motorsim/internal/telemetry"
	"github.com/san-kum/motorsim/internal/viz"
)

func TestCanvasSVG(t *testing.T) {
	c := viz.NewCanvas(2, 1)
	c.Set(0, 0)
	c.Set(3, 3)

	var buf bytes.Buffer
	require.NoError(t, CanvasSVG(&buf, c, 10, "#00ff00"))

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "<circle"))
	assert.Contains(t, out, `cx="5.0" cy="5.0"`)
	assert.Contains(t, out, `cx="35.0" cy="35.0"`)
	assert.Contains(t, out, `width="40" height="40"`)

	assert.Error(t, CanvasSVG(&buf, nil, 1, "#fff"))
}

func TestSeriesSVG(t *testing.T) {
	points := []telemetry.Point{{0, 0}, {0.5, 10}, {1, 5}}

	var buf bytes.Buffer
	require.NoError(t, SeriesSVG(&buf, points, 100, 120, "#ff00ff", "velocity (rpm)"))

	out := buf.String()
	assert.Contains(t, out, "velocity (rpm)")
	assert.Contains(t, out, "M0.0,110.0")
	assert.Contains(t, out, " L50.0,10.0")
	assert.Contains(t, out, " L100.0,60.0")

	assert.Error(t, SeriesSVG(&buf, points[:1], 100, 100, "#fff", ""))
}
