package viz

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/motorsim/internal/cascade"
	"github.com/san-kum/motorsim/internal/config"
	"github.com/san-kum/motorsim/internal/control"
	"github.com/san-kum/motorsim/internal/sim"
	"github.com/san-kum/motorsim/internal/telemetry"
)

type capture struct {
	published []config.Config
	err       error
}

func (c *capture) Publish(cfg config.Config) error {
	c.published = append(c.published, cfg)
	return c.err
}

func (c *capture) last(t *testing.T) config.Config {
	t.Helper()
	require.NotEmpty(t, c.published)
	return c.published[len(c.published)-1]
}

func newTestModel() (Model, *capture, *telemetry.Target) {
	pub := &capture{}
	target := telemetry.NewTarget(180)
	m := NewModel(config.DefaultConfig(), pub, telemetry.NewWindow(), target, func() sim.Status {
		return sim.Status{State: cascade.StateIdle, Mode: cascade.ModePosition}
	})
	return m, pub, target
}

func press(m Model, keys ...tea.KeyMsg) Model {
	for _, k := range keys {
		next, _ := m.Update(k)
		m = next.(Model)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestStartAndStopPublishSnapshots(t *testing.T) {
	m, pub, _ := newTestModel()

	m = press(m, runes("s"))
	cfg := pub.last(t)
	assert.True(t, cfg.Controller.Start)
	assert.Equal(t, control.Stage(""), cfg.Controller.Calibration)

	press(m, runes("x"))
	assert.False(t, pub.last(t).Controller.Start)
	assert.Len(t, pub.published, 2)
}

func TestCalibrationKeys(t *testing.T) {
	for key, stage := range map[string]control.Stage{
		"1": control.StagePosition,
		"2": control.StageVelocity,
		"3": control.StageTorque,
	} {
		m, pub, _ := newTestModel()
		press(m, runes(key))

		cfg := pub.last(t)
		assert.Equal(t, stage, cfg.Controller.Calibration, key)
		assert.True(t, cfg.Controller.Start, key)
	}
}

func TestStartClearsCalibration(t *testing.T) {
	m, pub, _ := newTestModel()
	press(m, runes("2"), runes("s"))
	assert.Equal(t, control.Stage(""), pub.last(t).Controller.Calibration)
}

func TestModeToggle(t *testing.T) {
	m, pub, _ := newTestModel()

	m = press(m, runes("m"))
	assert.Equal(t, config.ControlPosVelTrq, pub.last(t).Controller.Control)

	press(m, runes("m"))
	assert.Equal(t, config.ControlPos, pub.last(t).Controller.Control)
}

func TestTuningScalesSelection(t *testing.T) {
	m, pub, _ := newTestModel()

	m = press(m, tea.KeyMsg{Type: tea.KeyUp})
	assert.InDelta(t, 3*1.05, pub.last(t).Position.Kp, 1e-12)

	// position.ki starts at zero and is nudged off it
	m = press(m, tea.KeyMsg{Type: tea.KeyTab}, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0.001, pub.last(t).Position.Ki)

	// wrap backwards onto motor.k
	m = press(m, tea.KeyMsg{Type: tea.KeyShiftTab}, tea.KeyMsg{Type: tea.KeyShiftTab}, tea.KeyMsg{Type: tea.KeyDown})
	assert.InDelta(t, 0.057*0.95, pub.last(t).Motor.K, 1e-12)
	assert.InDelta(t, 0.057*0.95, m.Config().Motor.K, 1e-12)
}

func TestTargetKeysDoNotPublish(t *testing.T) {
	m, pub, target := newTestModel()

	m = press(m, tea.KeyMsg{Type: tea.KeyRight}, tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, 190.0, target.Get())
	assert.Equal(t, 190.0, m.Config().Controller.Target)

	press(m, tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, 185.0, target.Get())
	assert.Empty(t, pub.published)
}

func TestQuitPublishesEnd(t *testing.T) {
	m, pub, _ := newTestModel()

	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, pub.last(t).Controller.End)
}

func TestViewRendersTelemetry(t *testing.T) {
	m, pub, _ := newTestModel()
	assert.Contains(t, m.View(), "waiting for samples")

	for i := 1; i <= 50; i++ {
		m.window.Append(telemetry.Sample{Time: float64(i) * 0.001, Position: float64(i), Velocity: 10, Voltage: 12}, 5)
	}
	view := m.View()
	assert.Contains(t, view, "IDLE")
	assert.Contains(t, view, "position (deg)")
	assert.Contains(t, view, "50.00°")
	assert.Contains(t, view, "position.kp")

	pub.err = errors.New("link closed")
	m = press(m, runes("s"))
	assert.True(t, strings.Contains(m.View(), "link closed"))
}

func TestCanvasDial(t *testing.T) {
	c := NewCanvas(10, 5)
	c.Dial(0, 90)
	out := c.String()

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 5)
	assert.NotEqual(t, strings.Repeat(string(rune(brailleBlank)), 10), lines[0])

	c.Clear()
	assert.Equal(t, strings.Repeat(string(rune(brailleBlank)), 10), strings.Split(c.String(), "\n")[2])
}

func TestSparkline(t *testing.T) {
	assert.Equal(t, "▁▄█", Sparkline([]float64{0, 0.5, 1}, 3))
	assert.Equal(t, "───", Sparkline(nil, 3))
	assert.Equal(t, "██░░", ProgressBar(0.5, 4))
}
