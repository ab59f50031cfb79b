package viz

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/ufosim/internal/control"
	"github.com/san-kum/ufosim/internal/dynamo"
	"github.com/san-kum/ufosim/internal/sim"
	"github.com/san-kum/ufosim/internal/tuner"
)

const (
	canvasWidth     = 60
	canvasHeight    = 20
	historyCapacity = 300
	trailCapacity   = 40
	frameRate       = 30
	tuneTimeout     = 90 * time.Second
)

var paramKeys = []string{"Kp", "Ki", "Kd"}

// Additive step per key press for each gain.
var paramSteps = map[string]float64{"Kp": 0.1, "Ki": 0.01, "Kd": 0.05}

type TickMsg time.Time

type tunedMsg struct {
	proposal *tuner.Proposal
	err      error
}

// Options configures a live session.
type Options struct {
	Dt       float64
	ThetaRef float64
	ULimit   float64
	State    sim.State
	Gains    control.Gains
	Theme    string
	// Tuner answers the t key. Nil falls back to the heuristic.
	Tuner tuner.Proposer
	Style tuner.Style
}

// Model drives sim.Step once per frame, the way the browser animation loop
// calls /control. Fetching gains runs in a command so the loop never waits
// on the tuner.
type Model struct {
	opts      Options
	state     sim.State
	gains     control.Gains
	t         float64
	e, u      float64
	canvas    *Canvas
	trail     []struct{ x, y int }
	thetaHist []float64
	uHist     []float64
	selected  int
	theme     int
	styles    styles
	tuning    bool
	message   string
	showHelp  bool
}

func NewModel(opts Options) Model {
	if opts.Tuner == nil {
		opts.Tuner = tuner.NewHeuristic()
	}
	if opts.Style == "" {
		opts.Style = tuner.StyleAgentTool
	}
	theme := ThemeIndex(opts.Theme)
	return Model{
		opts:      opts,
		state:     opts.State,
		gains:     opts.Gains,
		canvas:    NewCanvas(canvasWidth, canvasHeight),
		trail:     make([]struct{ x, y int }, 0, trailCapacity),
		thetaHist: make([]float64, 0, historyCapacity),
		uHist:     make([]float64, 0, historyCapacity),
		theme:     theme,
		styles:    newStyles(Themes[theme]),
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles input events and steps the simulation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.state.Paused = !m.state.Paused
		case "r":
			m.reset()
		case "t":
			if !m.tuning {
				m.tuning = true
				m.message = "asking tuner..."
				return m, m.tune()
			}
		case "tab":
			m.selected = (m.selected + 1) % len(paramKeys)
		case "up", "k":
			m.adjustParam(1)
		case "down", "j":
			m.adjustParam(-1)
		case "n":
			m.theme = (m.theme + 1) % len(Themes)
			m.styles = newStyles(Themes[m.theme])
		case "?":
			m.showHelp = !m.showHelp
		}
	case tunedMsg:
		m.tuning = false
		m.applyProposal(msg)
	case TickMsg:
		m.step()
		return m, tick()
	}
	return m, nil
}

func (m *Model) step() {
	m.trackHistory(m.state.Theta)

	next, e, u := sim.Step(m.opts.Dt, m.state, m.gains, m.opts.ThetaRef, m.opts.ULimit)
	m.state, m.e, m.u = next, e, u
	if !next.Paused {
		m.t += math.Max(m.opts.Dt, sim.MinDt)
	}

	m.uHist = append(m.uHist, u)
	if len(m.uHist) > historyCapacity {
		m.uHist = m.uHist[1:]
	}

	if dynamo.IsFinite(next.Theta) {
		x, y := m.rimPoint(next.Theta)
		m.trail = append(m.trail, struct{ x, y int }{x, y})
		if len(m.trail) > trailCapacity {
			m.trail = m.trail[1:]
		}
	}
}

func (m *Model) trackHistory(theta float64) {
	m.thetaHist = append(m.thetaHist, theta)
	if len(m.thetaHist) > historyCapacity {
		m.thetaHist = m.thetaHist[1:]
	}
}

func (m *Model) adjustParam(dir float64) {
	key := paramKeys[m.selected]
	val := m.gains.GetParams()[key] + dir*paramSteps[key]
	if err := m.gains.SetParam(key, val); err != nil {
		m.message = err.Error()
		return
	}
	m.gains.Note = "manual"
}

// tune asks the tuner for gains for the session's initial disturbance.
func (m Model) tune() tea.Cmd {
	p, req := m.opts.Tuner, tuner.Request{
		Dt:     m.opts.Dt,
		Theta0: m.opts.State.Theta,
		Style:  m.opts.Style,
		Mode:   tuner.ModeStructured,
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), tuneTimeout)
		defer cancel()
		prop, err := p.Propose(ctx, req)
		return tunedMsg{proposal: prop, err: err}
	}
}

func (m *Model) applyProposal(msg tunedMsg) {
	switch {
	case msg.err != nil:
		m.message = "tune failed: " + msg.err.Error()
	case msg.proposal.Kind != tuner.KindGains:
		m.message = "tuner answered with text, gains unchanged"
	default:
		m.gains = msg.proposal.Gains
		m.message = fmt.Sprintf("gains from %s", msg.proposal.Meta.Source)
		if msg.proposal.Meta.ToolCalled {
			m.message += " (tool)"
		}
	}
}

// reset restores the initial state and gains.
func (m *Model) reset() {
	m.state = m.opts.State
	m.gains = m.opts.Gains
	m.t, m.e, m.u = 0, 0, 0
	m.trail = m.trail[:0]
	m.thetaHist = m.thetaHist[:0]
	m.uHist = m.uHist[:0]
	m.message = ""
}

// View renders the TUI interface.
func (m Model) View() string {
	st := m.styles
	m.draw()

	var s strings.Builder
	s.WriteString(st.header.Render("UFO ATTITUDE") + "\n")
	if m.state.Paused {
		s.WriteString(st.paused.Render("PAUSED") + "\n\n")
	} else {
		s.WriteString(st.running.Render("RUNNING") + "\n\n")
	}

	if len(m.thetaHist) > 1 {
		chart := asciigraph.Plot(m.thetaHist, asciigraph.Height(5), asciigraph.Width(32), asciigraph.Caption("theta [rad]"))
		s.WriteString(st.graph.Render(chart) + "\n")
	}
	if len(m.uHist) > 1 {
		chart := asciigraph.Plot(m.uHist, asciigraph.Height(3), asciigraph.Width(32), asciigraph.Caption("u"))
		s.WriteString(st.graph.Render(chart) + "\n")
	}

	for _, row := range []struct {
		label string
		v     float64
		unit  string
	}{
		{"time", m.t, "s"},
		{"theta", m.state.Theta, "rad"},
		{"omega", m.state.Omega, "rad/s"},
		{"error", m.e, "rad"},
		{"u", m.u, ""},
		{"integ", m.state.Integ, ""},
	} {
		s.WriteString(st.label.Render(row.label) + st.value.Render(fmt.Sprintf("%+.3f %s", row.v, row.unit)) + "\n")
	}

	s.WriteString("\nGAINS\n")
	params := m.gains.GetParams()
	for i, k := range paramKeys {
		line := fmt.Sprintf("%-3s %s %.3f", k, gainBar(k, params[k]), params[k])
		if i == m.selected {
			s.WriteString(st.active.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + st.label.Render(line) + "\n")
		}
	}

	if m.message != "" {
		s.WriteString("\n" + st.warn.Render(m.message) + "\n")
	}
	s.WriteString(st.help.Render("SP:Pause R:Reset T:Tune Q:Quit\nTab:Gain ↑↓:Adjust N:Theme ?:Help"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top,
		st.canvas.Render(m.canvas.String()),
		st.stats.Render(s.String()))
	if m.showHelp {
		return helpText + "\n" + mainView
	}
	return mainView
}

const helpText = `
  Space     pause or resume the plant (the controller keeps running)
  R         reset state and gains
  T         ask the tuner for gains
  Tab       select gain
  Up/K      raise selected gain
  Down/J    lower selected gain
  N         next theme
  Q         quit
`

func gainBar(key string, v float64) string {
	hi := map[string]float64{"Kp": control.KpMax, "Ki": control.KiMax, "Kd": control.KdMax}[key]
	const barWidth = 12
	filled := int(math.Round(control.Clamp(v/hi, 0, 1) * barWidth))
	return "[" + strings.Repeat("=", filled) + strings.Repeat("-", barWidth-filled) + "]"
}

const saucerHalf = 36.0

// project maps a point given along and above the saucer axis to canvas dots.
func (m *Model) project(theta, along, up float64) (int, int) {
	cw, ch := m.canvas.Pixels()
	c, s := math.Cos(theta), math.Sin(theta)
	return cw/2 + int(math.Round(along*c-up*s)), ch/2 - int(math.Round(along*s+up*c))
}

func (m *Model) rimPoint(theta float64) (int, int) {
	return m.project(theta, saucerHalf, 0)
}

// draw renders the saucer tilted by theta, with a thrust plume whose length
// follows the control signal.
func (m *Model) draw() {
	m.canvas.Clear()
	cw, ch := m.canvas.Pixels()

	// reference horizon
	for x := 0; x < cw; x += 4 {
		m.canvas.Set(x, ch/2)
	}

	theta := m.state.Theta
	if !dynamo.IsFinite(theta) {
		return
	}
	at := func(along, up float64) (int, int) { return m.project(theta, along, up) }

	lx, ly := at(-saucerHalf, 0)
	rx, ry := at(saucerHalf, 0)
	m.canvas.DrawLine(lx, ly, rx, ry)
	blx, bly := at(-saucerHalf*0.6, -5)
	brx, bry := at(saucerHalf*0.6, -5)
	m.canvas.DrawLine(lx, ly, blx, bly)
	m.canvas.DrawLine(rx, ry, brx, bry)
	m.canvas.DrawLine(blx, bly, brx, bry)
	m.canvas.DrawArc(cw/2, ch/2, 12, theta, theta+math.Pi)

	// Positive u raises theta: plume under the right rim.
	plume := control.Clamp(m.u/math.Max(m.opts.ULimit, 1e-9), -1, 1) * 14
	if plume != 0 {
		along := saucerHalf * 0.8
		if plume < 0 {
			along = -along
		}
		px, py := at(along, -3)
		ex, ey := at(along, -3-math.Abs(plume))
		m.canvas.DrawLine(px, py, ex, ey)
	}

	for _, pt := range m.trail {
		m.canvas.Set(pt.x, pt.y)
	}
}
