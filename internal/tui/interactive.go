package tui

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/loopsim/internal/config"
	"github.com/san-kum/loopsim/internal/dynamo"
	"github.com/san-kum/loopsim/internal/experiment"
)

var (
	cyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	red     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	magenta = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
)

var plantInfo = map[string]string{
	"thermal":     "heat balance",
	"thermal_ext": "heat balance, dielectric",
	"motor":       "speed integrator",
	"spring_mass": "mass-spring-damper",
}

const historyLen = 240

type state int

const (
	stateMenu state = iota
	stateConfig
	stateSim
)

type model struct {
	state    state
	cursor   int
	presets  []string
	selected string
	cfg      *config.Config

	paramNames  []string
	paramCursor int
	editing     bool
	editBuf     string

	run       *dynamo.Run
	running   bool
	paused    bool
	last      dynamo.Sample
	outputs   []float64
	commands  []float64
	err       error
	speed     float64
	lastFrame time.Time
	fps       float64

	width  int
	height int
}

func presetNames() []string {
	var names []string
	for plant, presets := range config.Presets {
		for name := range presets {
			names = append(names, plant+"/"+name)
		}
	}
	sort.Strings(names)
	return names
}

func NewInteractiveApp() *model {
	return &model{
		state:   stateMenu,
		presets: presetNames(),
		speed:   1.0,
		width:   80,
		height:  24,
	}
}

func (m model) Init() tea.Cmd { return nil }

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(16*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		if m.state != stateSim {
			return m, nil
		}
		if m.running && !m.paused && m.run != nil {
			now := time.Now()
			if !m.lastFrame.IsZero() {
				dt := now.Sub(m.lastFrame).Seconds()
				if dt > 0 {
					m.fps = 1.0 / dt
				}
			}
			m.lastFrame = now
			steps := int(m.speed)
			if steps < 1 {
				steps = 1
			}
			for i := 0; i < steps; i++ {
				m.step()
			}
		}
		if m.running {
			return m, tick()
		}
		return m, nil
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch m.state {
	case stateMenu:
		return m.menuKey(msg)
	case stateConfig:
		return m.configKey(msg)
	case stateSim:
		return m.simKey(msg)
	}
	return m, nil
}

func (m model) menuKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.presets)-1 {
			m.cursor++
		}
	case "enter", " ":
		m.selected = m.presets[m.cursor]
		plant, preset, _ := strings.Cut(m.selected, "/")
		m.cfg = config.GetPreset(plant, preset)
		m.state = stateConfig
		m.paramCursor = 0
		m.setParamsForMode()
	}
	return m, nil
}

func (m model) configKey(msg tea.KeyMsg) (model, tea.Cmd) {
	if m.editing {
		switch msg.String() {
		case "enter":
			var val float64
			if _, err := fmt.Sscanf(m.editBuf, "%f", &val); err == nil {
				m.setParam(m.paramNames[m.paramCursor], val)
			}
			m.editing = false
			m.editBuf = ""
		case "esc":
			m.editing = false
			m.editBuf = ""
		case "backspace":
			if len(m.editBuf) > 0 {
				m.editBuf = m.editBuf[:len(m.editBuf)-1]
			}
		default:
			if len(msg.String()) == 1 {
				c := msg.String()[0]
				if (c >= '0' && c <= '9') || c == '.' || c == '-' || c == 'e' {
					m.editBuf += string(c)
				}
			}
		}
		return m, nil
	}

	switch msg.String() {
	case "q", "esc":
		m.state = stateMenu
	case "up", "k":
		if m.paramCursor > 0 {
			m.paramCursor--
		}
	case "down", "j":
		if m.paramCursor < len(m.paramNames)-1 {
			m.paramCursor++
		}
	case "enter", " ":
		m.editing = true
		m.editBuf = fmt.Sprintf("%g", m.param(m.paramNames[m.paramCursor]))
	case "m":
		if m.cfg.Mode == config.ModeClosed {
			m.cfg.Mode = config.ModeOpen
		} else {
			m.cfg.Mode = config.ModeClosed
		}
		m.setParamsForMode()
	case "s":
		m.start()
		m.state = stateSim
		return m, tea.Batch(tea.ClearScreen, tick())
	case "left", "h":
		name := m.paramNames[m.paramCursor]
		m.setParam(name, m.param(name)-nudge(m.param(name)))
	case "right", "l":
		name := m.paramNames[m.paramCursor]
		m.setParam(name, m.param(name)+nudge(m.param(name)))
	}
	return m, nil
}

// nudge is a tenth of the value's order of magnitude.
func nudge(v float64) float64 {
	if v == 0 {
		return 0.1
	}
	return math.Pow(10, math.Floor(math.Log10(math.Abs(v)))) / 10
}

func (m model) simKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		m.running = false
		m.state = stateMenu
		m.reset()
		return m, tea.ClearScreen
	case " ", "p":
		m.paused = !m.paused
	case "r":
		m.start()
		return m, tea.ClearScreen
	case "c":
		m.running = false
		m.state = stateConfig
		m.reset()
		return m, tea.ClearScreen
	case "+", "=":
		m.speed = math.Min(m.speed*2, 64)
	case "-", "_":
		m.speed = math.Max(m.speed/2, 1)
	case "0":
		m.speed = 1.0
	}
	return m, nil
}

func (m *model) setParamsForMode() {
	if m.cfg.Mode == config.ModeClosed {
		m.paramNames = []string{"kp", "ki", "kd", "setpoint", "dt", "duration"}
	} else {
		m.paramNames = []string{"command", "dt", "duration"}
	}
	if m.paramCursor >= len(m.paramNames) {
		m.paramCursor = 0
	}
}

func (m model) param(name string) float64 {
	switch name {
	case "kp":
		return m.cfg.Controller.Kp
	case "ki":
		return m.cfg.Controller.Ki
	case "kd":
		return m.cfg.Controller.Kd
	case "setpoint":
		return m.cfg.Controller.Setpoint
	case "command":
		return m.cfg.Command
	case "dt":
		return m.cfg.Dt
	case "duration":
		return m.cfg.Duration
	}
	return 0
}

func (m *model) setParam(name string, v float64) {
	switch name {
	case "kp":
		m.cfg.Controller.Kp = v
	case "ki":
		m.cfg.Controller.Ki = v
	case "kd":
		m.cfg.Controller.Kd = v
	case "setpoint":
		m.cfg.Controller.Setpoint = v
	case "command":
		m.cfg.Command = v
	case "dt":
		m.cfg.Dt = v
	case "duration":
		m.cfg.Duration = v
	}
}

func (m *model) start() {
	m.outputs = make([]float64, 0, historyLen)
	m.commands = make([]float64, 0, historyLen)
	m.speed = 1.0
	m.lastFrame = time.Time{}
	m.err = nil
	m.run = nil
	m.last = dynamo.Sample{}

	exp, err := experiment.New(m.cfg.Clone())
	if err != nil {
		m.err = err
		return
	}
	spec := exp.RunSpec()
	run, err := spec.Sim.Begin(spec.X0, spec.Config)
	if err != nil {
		m.err = err
		return
	}
	m.run = run
	m.running = true
	m.paused = false
}

func (m *model) reset() {
	m.run = nil
	m.outputs = nil
	m.commands = nil
	m.err = nil
}

func (m *model) step() {
	if m.run.Done() {
		m.paused = true
		return
	}
	sample, err := m.run.Step()
	if err != nil {
		m.err = err
		m.paused = true
		return
	}
	m.last = sample

	m.outputs = append(m.outputs, sample.Output)
	m.commands = append(m.commands, sample.Command)
	if len(m.outputs) > historyLen {
		m.outputs = m.outputs[1:]
		m.commands = m.commands[1:]
	}
}

func (m model) View() string {
	switch m.state {
	case stateMenu:
		return m.viewMenu()
	case stateConfig:
		return m.viewConfig()
	case stateSim:
		return m.viewSim()
	}
	return ""
}

func (m model) viewMenu() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(dimmer.Render("    ╺━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n")
	b.WriteString("           " + cyan.Render("l o o p s i m") + "\n")
	b.WriteString(dimmer.Render("    ╺━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n")
	b.WriteString("\n")

	for i, name := range m.presets {
		plant, _, _ := strings.Cut(name, "/")
		desc := plantInfo[plant]
		if i == m.cursor {
			b.WriteString("      " + cyan.Render("▸ ") + white.Render(fmt.Sprintf("%-22s", name)) + dim.Render(desc) + "\n")
		} else {
			b.WriteString("        " + dim.Render(fmt.Sprintf("%-22s", name)) + dimmer.Render(desc) + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(dim.Render("      ↑↓ select   enter configure   q quit") + "\n")

	return b.String()
}

func (m model) viewConfig() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString("      " + cyan.Render(m.selected) + "  " + dim.Render(m.cfg.Mode+" loop") + "\n")
	b.WriteString(dimmer.Render("      "+strings.Repeat("─", 30)) + "\n\n")

	for i, name := range m.paramNames {
		val := fmt.Sprintf("%10.4g", m.param(name))
		if m.editing && i == m.paramCursor {
			val = fmt.Sprintf("%10s", m.editBuf+"▋")
		}
		if i == m.paramCursor {
			b.WriteString("      " + cyan.Render("▸ ") + white.Render(fmt.Sprintf("%-10s", name)) + magenta.Render(val) + "\n")
		} else {
			b.WriteString("        " + dim.Render(fmt.Sprintf("%-10s", name)) + dim.Render(val) + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(dim.Render("      ↑↓ select  ←→ adjust  enter edit  m mode  s start  esc back") + "\n")

	return b.String()
}

func (m model) viewSim() string {
	var b strings.Builder

	statusIcon := green.Render("●")
	statusText := green.Render("running")
	switch {
	case m.err != nil:
		statusIcon = red.Render("✕")
		statusText = red.Render("stopped")
	case m.run != nil && m.run.Done():
		statusIcon = cyan.Render("■")
		statusText = cyan.Render("done")
	case m.paused:
		statusIcon = yellow.Render("○")
		statusText = yellow.Render("paused")
	}
	b.WriteString(fmt.Sprintf("\n   %s %s  %s\n",
		statusIcon, cyan.Render(m.selected), statusText))

	if m.run == nil {
		if m.err != nil {
			b.WriteString("\n   " + red.Render(m.err.Error()) + "\n")
		}
		b.WriteString("\n" + dim.Render("   c config  q quit") + "\n")
		return b.String()
	}

	progress := float64(m.run.Tick()) / float64(m.run.Steps())
	barWidth := 36
	filled := int(progress * float64(barWidth))
	timeStr := fmt.Sprintf("%.1fs/%.0fs", m.run.Time(), m.cfg.Duration)
	bar := cyan.Render(strings.Repeat("━", filled)) + dimmer.Render(strings.Repeat("─", barWidth-filled))
	b.WriteString(fmt.Sprintf("   %s %s  %s  %s\n\n", bar, dim.Render(timeStr),
		dim.Render(fmt.Sprintf("x%.0f", m.speed)), dim.Render(fmt.Sprintf("%.0ffps", m.fps))))

	if len(m.outputs) > 1 {
		b.WriteString(m.chart() + "\n")
	}

	b.WriteString(fmt.Sprintf("\n   %s%s  %s%s",
		dim.Render("y="), white.Render(fmt.Sprintf("%.3f", m.last.Output)),
		dim.Render("u="), white.Render(fmt.Sprintf("%.3f", m.last.Command))))
	if m.cfg.Mode == config.ModeClosed {
		b.WriteString(fmt.Sprintf("  %s%s", dim.Render("e="),
			magenta.Render(fmt.Sprintf("%.3f", m.cfg.Controller.Setpoint-m.last.Output))))
	}
	b.WriteString("\n")

	if len(m.commands) > 1 {
		b.WriteString(fmt.Sprintf("   %s %s\n", dim.Render("u"), yellow.Render(sparkline(m.commands, 40))))
	}
	if m.err != nil {
		b.WriteString("\n   " + red.Render(m.err.Error()) + "\n")
	}

	b.WriteString("\n" + dim.Render("   space pause  ±speed  r restart  c config  q quit") + "\n")

	return b.String()
}

func (m model) chart() string {
	w := m.width - 16
	if w < 40 {
		w = 40
	}
	h := m.height - 14
	if h < 8 {
		h = 8
	}

	series := [][]float64{m.outputs}
	colors := []asciigraph.AnsiColor{asciigraph.Aqua}
	if m.cfg.Mode == config.ModeClosed {
		ref := make([]float64, len(m.outputs))
		for i := range ref {
			ref[i] = m.cfg.Controller.Setpoint
		}
		series = append(series, ref)
		colors = append(colors, asciigraph.DarkGray)
	}

	return asciigraph.PlotMany(series,
		asciigraph.Height(h),
		asciigraph.Width(w),
		asciigraph.Offset(3),
		asciigraph.SeriesColors(colors...),
	)
}

func sparkline(data []float64, width int) string {
	if len(data) == 0 {
		return ""
	}
	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	minVal, maxVal := data[0], data[0]
	for _, v := range data {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	rang := maxVal - minVal
	if rang == 0 {
		rang = 1
	}
	step := len(data) / width
	if step < 1 {
		step = 1
	}
	var sb strings.Builder
	for i := 0; i < width && i*step < len(data); i++ {
		v := data[i*step]
		idx := int((v - minVal) / rang * 7)
		if idx > 7 {
			idx = 7
		}
		if idx < 0 {
			idx = 0
		}
		sb.WriteRune(chars[idx])
	}
	return sb.String()
}

func RunInteractive() error {
	p := tea.NewProgram(NewInteractiveApp(), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
