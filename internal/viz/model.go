package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/motorsim/internal/cascade"
	"github.com/san-kum/motorsim/internal/config"
	"github.com/san-kum/motorsim/internal/control"
	"github.com/san-kum/motorsim/internal/sim"
	"github.com/san-kum/motorsim/internal/telemetry"
)

const (
	frameRate   = time.Second / 30
	targetStep  = 5.0
	graphWidth  = 60
	graphHeight = 6
	dialWidth   = 20
	dialHeight  = 10
)

type frameMsg time.Time

func nextFrame() tea.Cmd {
	return tea.Tick(frameRate, func(t time.Time) tea.Msg { return frameMsg(t) })
}

// Publisher accepts config snapshots for the control loop.
type Publisher interface {
	Publish(cfg config.Config) error
}

// Model is the interactive observer. It never touches the controller
// directly: gains, modes and start/stop travel as full snapshots through the
// publisher, the target through the shared scalar.
type Model struct {
	cfg      config.Config
	link     Publisher
	window   *telemetry.Window
	target   *telemetry.Target
	status   func() sim.Status
	tunables []config.Tunable
	selected int
	theme    int
	styles   styles
	canvas   *Canvas
	width    int
	err      error
}

func NewModel(cfg config.Config, link Publisher, window *telemetry.Window, target *telemetry.Target, status func() sim.Status) Model {
	return Model{
		cfg:      cfg,
		link:     link,
		window:   window,
		target:   target,
		status:   status,
		tunables: config.Tunables(),
		styles:   newStyles(Themes[0]),
		canvas:   NewCanvas(dialWidth, dialHeight),
		width:    graphWidth,
	}
}

// Config returns the snapshot the model last edited.
func (m Model) Config() config.Config {
	return m.cfg
}

func (m Model) Init() tea.Cmd {
	return nextFrame()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = max(20, min(graphWidth, msg.Width-dialWidth-12))
	case frameMsg:
		return m, nextFrame()
	case tea.KeyMsg:
		return m.handleKey(msg.String())
	}
	return m, nil
}

func (m Model) handleKey(key string) (tea.Model, tea.Cmd) {
	c := &m.cfg.Controller
	switch key {
	case "q", "ctrl+c":
		c.End = true
		m.publish()
		return m, tea.Quit
	case "s":
		c.Calibration = ""
		c.Start = true
		m.publish()
	case "x":
		c.Start = false
		m.publish()
	case "1", "2", "3":
		c.Calibration = control.Stages[key[0]-'1']
		c.Start = true
		m.publish()
	case "m":
		if c.Control == config.ControlPos {
			c.Control = config.ControlPosVelTrq
		} else {
			c.Control = config.ControlPos
		}
		m.publish()
	case "tab":
		m.selected = (m.selected + 1) % len(m.tunables)
	case "shift+tab":
		m.selected = (m.selected + len(m.tunables) - 1) % len(m.tunables)
	case "up", "k":
		m.scale(1.05)
	case "down", "j":
		m.scale(0.95)
	case "left", "h":
		c.Target = m.target.Add(-targetStep)
	case "right", "l":
		c.Target = m.target.Add(targetStep)
	case "t":
		m.theme = (m.theme + 1) % len(Themes)
		m.styles = newStyles(Themes[m.theme])
	}
	return m, nil
}

func (m *Model) scale(factor float64) {
	tn := m.tunables[m.selected]
	v := tn.Get(&m.cfg)
	if v == 0 && factor > 1 {
		v = 0.001
	} else {
		v *= factor
	}
	tn.Set(&m.cfg, v)
	m.publish()
}

func (m *Model) publish() {
	m.err = m.link.Publish(m.cfg)
}

func (m Model) View() string {
	st := m.status()
	latest, _ := m.window.Latest()
	target := m.target.Get()

	var header strings.Builder
	header.WriteString(m.styles.header.Render("MOTORSIM") + "  ")
	header.WriteString(m.stateBadge(st.State) + "  ")
	header.WriteString(m.styles.value.Render(st.Mode.String()) + "  ")
	header.WriteString(m.styles.label.Render("integrator") + m.styles.value.Render(m.cfg.Plant.Integrator))

	m.canvas.Clear()
	m.canvas.Dial(latest.Position, target)
	dial := m.styles.panel.Render(m.canvas.String())

	var readout strings.Builder
	rows := []struct {
		label string
		value string
	}{
		{"time", fmt.Sprintf("%.3f s", latest.Time)},
		{"target", fmt.Sprintf("%.1f°", target)},
		{"position", fmt.Sprintf("%.2f°", latest.Position)},
		{"velocity", fmt.Sprintf("%.1f rpm", latest.Velocity)},
		{"voltage", fmt.Sprintf("%.2f V", latest.Voltage)},
		{"torque", fmt.Sprintf("%.4f N·m", latest.Torque)},
	}
	for _, r := range rows {
		readout.WriteString(m.styles.label.Render(r.label) + m.styles.value.Render(r.value) + "\n")
	}
	if st.Mode.Calibrating() {
		frac := latest.Time / m.cfg.Controller.Duration
		readout.WriteString(m.styles.label.Render("calibration") + ProgressBar(frac, 20) + "\n")
	}
	readout.WriteString(m.styles.label.Render("voltage") + Sparkline(values(m.window.Voltages()), 20))

	top := lipgloss.JoinHorizontal(lipgloss.Top, dial, "  ", readout.String())

	graphs := lipgloss.JoinVertical(lipgloss.Left,
		m.plot(m.window.Positions(), "position (deg)"),
		m.plot(m.window.Velocities(), "velocity (rpm)"),
	)

	var params strings.Builder
	for i, tn := range m.tunables {
		line := fmt.Sprintf("%-14s %.6g", tn.Name, tn.Get(&m.cfg))
		if i == m.selected {
			params.WriteString(m.styles.selected.Render("> "+line) + "\n")
		} else {
			params.WriteString("  " + m.styles.value.Render(line) + "\n")
		}
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, graphs, "  ", m.styles.panel.Render(strings.TrimRight(params.String(), "\n")))

	help := m.styles.help.Render("s start · x stop · 1/2/3 calibrate · m mode · tab/↑↓ tune · ←→ target · t theme · q quit")
	parts := []string{header.String(), top, body, help}
	if m.err != nil {
		parts = append(parts, m.styles.err.Render(m.err.Error()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) stateBadge(s cascade.State) string {
	label := strings.ToUpper(s.String())
	switch s {
	case cascade.StateRunningDirect, cascade.StateRunningCalibration:
		return m.styles.running.Render(label)
	case cascade.StateStopped:
		return m.styles.stopped.Render(label)
	}
	return m.styles.idle.Render(label)
}

func (m Model) plot(points []telemetry.Point, caption string) string {
	if len(points) < 2 {
		return m.styles.help.Render(caption + ": waiting for samples")
	}
	chart := asciigraph.Plot(values(points),
		asciigraph.Height(graphHeight),
		asciigraph.Width(m.width),
		asciigraph.Caption(caption),
	)
	return m.styles.graph.Render(chart)
}

func values(points []telemetry.Point) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p[1]
	}
	return out
}
