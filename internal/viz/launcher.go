package viz

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/motorsim/internal/config"
)

var presetInfo = map[string]string{
	"position":           "single position loop",
	"cascade":            "position, velocity and torque loops",
	"calibrate-position": "position loop to 180°, one second",
	"calibrate-velocity": "velocity loop to half the bound",
	"calibrate-torque":   "torque loop to half the bound",
	"rk4-plant":          "position loop, rk4 plant",
}

type launcherState int

const (
	launcherMenu launcherState = iota
	launcherConfig
	launcherDone
)

// Launcher picks a preset and lets the operator edit it before the live
// view starts.
type Launcher struct {
	state   launcherState
	presets []string
	cursor  int
	chosen  string

	cfg     config.Config
	fields  []config.Tunable
	field   int
	editing bool
	editBuf string

	styles styles
}

func NewLauncher() Launcher {
	fields := append([]config.Tunable{{
		Name: "controller.target",
		Get:  func(c *config.Config) float64 { return c.Controller.Target },
		Set:  func(c *config.Config, v float64) { c.Controller.Target = v },
	}}, config.Tunables()...)

	return Launcher{
		presets: config.ListPresets(),
		fields:  fields,
		styles:  newStyles(Themes[0]),
	}
}

// Result returns the edited config once the operator pressed s.
func (l Launcher) Result() (config.Config, bool) {
	return l.cfg, l.state == launcherDone
}

func (l Launcher) Init() tea.Cmd { return nil }

func (l Launcher) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return l, nil
	}
	switch l.state {
	case launcherMenu:
		return l.menuKey(key.String())
	case launcherConfig:
		if l.editing {
			return l.editKey(key.String()), nil
		}
		return l.configKey(key.String())
	}
	return l, nil
}

func (l Launcher) menuKey(key string) (Launcher, tea.Cmd) {
	switch key {
	case "q", "ctrl+c":
		return l, tea.Quit
	case "up", "k":
		if l.cursor > 0 {
			l.cursor--
		}
	case "down", "j":
		if l.cursor < len(l.presets)-1 {
			l.cursor++
		}
	case "enter", " ":
		l.chosen = l.presets[l.cursor]
		l.cfg, _ = config.GetPreset(l.chosen)
		l.field = 0
		l.state = launcherConfig
	}
	return l, nil
}

func (l Launcher) configKey(key string) (Launcher, tea.Cmd) {
	switch key {
	case "ctrl+c":
		return l, tea.Quit
	case "q", "esc":
		l.state = launcherMenu
	case "up", "k":
		if l.field > 0 {
			l.field--
		}
	case "down", "j":
		if l.field < len(l.fields)-1 {
			l.field++
		}
	case "enter", " ":
		l.editing = true
		l.editBuf = strconv.FormatFloat(l.fields[l.field].Get(&l.cfg), 'g', -1, 64)
	case "s":
		if l.cfg.Validate() != nil {
			return l, nil
		}
		l.state = launcherDone
		return l, tea.Quit
	}
	return l, nil
}

func (l Launcher) editKey(key string) Launcher {
	switch key {
	case "enter":
		if v, err := strconv.ParseFloat(l.editBuf, 64); err == nil {
			l.fields[l.field].Set(&l.cfg, v)
		}
		l.editing = false
		l.editBuf = ""
	case "esc":
		l.editing = false
		l.editBuf = ""
	case "backspace":
		if len(l.editBuf) > 0 {
			l.editBuf = l.editBuf[:len(l.editBuf)-1]
		}
	default:
		if len(key) == 1 && strings.ContainsAny(key, "0123456789.-e") {
			l.editBuf += key
		}
	}
	return l
}

func (l Launcher) View() string {
	var b strings.Builder
	b.WriteString("\n" + l.styles.header.Render("  m o t o r s i m  ") + "\n\n")

	switch l.state {
	case launcherMenu:
		for i, name := range l.presets {
			line := fmt.Sprintf("%-20s", name)
			if i == l.cursor {
				b.WriteString("  " + l.styles.selected.Render("▸ "+line) + l.styles.value.Render(presetInfo[name]) + "\n")
			} else {
				b.WriteString("    " + l.styles.value.Render(line) + l.styles.help.Render(presetInfo[name]) + "\n")
			}
		}
		b.WriteString("\n" + l.styles.help.Render("  ↑↓ select   enter configure   q quit") + "\n")

	case launcherConfig:
		b.WriteString("  " + l.styles.selected.Render(l.chosen) + "  " + l.styles.help.Render(presetInfo[l.chosen]) + "\n\n")
		for i, f := range l.fields {
			val := fmt.Sprintf("%12.6g", f.Get(&l.cfg))
			if l.editing && i == l.field {
				val = fmt.Sprintf("%12s", l.editBuf+"▋")
			}
			line := fmt.Sprintf("%-18s%s", f.Name, val)
			if i == l.field {
				b.WriteString("  " + l.styles.selected.Render("▸ "+line) + "\n")
			} else {
				b.WriteString("    " + l.styles.value.Render(line) + "\n")
			}
		}
		if err := l.cfg.Validate(); err != nil {
			b.WriteString("\n  " + l.styles.err.Render(err.Error()) + "\n")
		}
		b.WriteString("\n" + l.styles.help.Render("  ↑↓ select   enter edit   s start   esc back") + "\n")
	}
	return b.String()
}
