package viz

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/ufosim/internal/control"
	"github.com/san-kum/ufosim/internal/sim"
	"github.com/san-kum/ufosim/internal/tuner"
)

func testOptions() Options {
	return Options{
		Dt:     0.05,
		ULimit: sim.DefaultULimit,
		State:  sim.State{Theta: 3},
		Gains:  control.Gains{Kp: 2, Ki: 0.05, Kd: 0.9},
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	mm, ok := next.(Model)
	if !ok {
		t.Fatalf("expected Model, got %T", next)
	}
	return mm, cmd
}

func TestCanvas(t *testing.T) {
	c := NewCanvas(4, 2)
	if w, h := c.Pixels(); w != 8 || h != 8 {
		t.Errorf("expected 8x8 pixels, got %dx%d", w, h)
	}

	c.Set(0, 0)
	c.Set(3, 5)
	c.Set(-1, 2)
	c.Set(100, 100)
	if !c.IsSet(0, 0) || !c.IsSet(3, 5) || c.IsSet(1, 1) {
		t.Error("unexpected pixel state")
	}
	if c.Grid[0][0] != 0x2801 {
		t.Errorf("expected dot 1, got %U", c.Grid[0][0])
	}

	c.Clear()
	c.DrawLine(0, 0, 7, 7)
	for i := 0; i < 8; i++ {
		if !c.IsSet(i, i) {
			t.Errorf("diagonal pixel (%d,%d) not set", i, i)
		}
	}
	if lines := strings.Split(strings.TrimSuffix(c.String(), "\n"), "\n"); len(lines) != 2 {
		t.Errorf("expected 2 rows, got %d", len(lines))
	}
}

func TestTickStepsSimulator(t *testing.T) {
	m := NewModel(testOptions())

	m, cmd := update(t, m, TickMsg{})
	if cmd == nil {
		t.Error("tick should schedule the next frame")
	}
	want, e, u := sim.Step(0.05, sim.State{Theta: 3}, control.Gains{Kp: 2, Ki: 0.05, Kd: 0.9}, 0, sim.DefaultULimit)
	if m.state != want || m.e != e || m.u != u {
		t.Errorf("expected %+v e=%v u=%v, got %+v e=%v u=%v", want, e, u, m.state, m.e, m.u)
	}
	if m.t != 0.05 {
		t.Errorf("expected t=0.05, got %v", m.t)
	}
	if len(m.thetaHist) != 1 || len(m.uHist) != 1 || len(m.trail) != 1 {
		t.Error("expected one history entry per tick")
	}
}

func TestPauseFreezesPlant(t *testing.T) {
	m := NewModel(testOptions())
	m, _ = update(t, m, key(" "))
	if !m.state.Paused {
		t.Fatal("space should pause")
	}

	m, _ = update(t, m, TickMsg{})
	if m.state.Theta != 3 || m.state.Omega != 0 {
		t.Errorf("plant moved while paused: %+v", m.state)
	}
	if m.t != 0 {
		t.Errorf("clock advanced while paused: %v", m.t)
	}
	if m.state.EPrev != -3 {
		t.Errorf("controller bookkeeping should still run, e_prev=%v", m.state.EPrev)
	}
}

func TestAdjustGains(t *testing.T) {
	m := NewModel(testOptions())

	m, _ = update(t, m, key("up"))
	if m.gains.Kp != 2.1 {
		t.Errorf("expected kp 2.1, got %v", m.gains.Kp)
	}

	m, _ = update(t, m, key("tab"))
	for i := 0; i < 10; i++ {
		m, _ = update(t, m, key("down"))
	}
	if m.gains.Ki != control.KiMin {
		t.Errorf("expected ki clamped to %v, got %v", control.KiMin, m.gains.Ki)
	}
	if m.gains.Kd != 0.9 {
		t.Error("unselected gain changed")
	}

	m, _ = update(t, m, key("r"))
	if m.gains != testOptions().Gains || m.state != testOptions().State {
		t.Error("reset should restore initial gains and state")
	}
}

type stubProposer struct {
	prop *tuner.Proposal
	err  error
}

func (s stubProposer) Propose(ctx context.Context, req tuner.Request) (*tuner.Proposal, error) {
	return s.prop, s.err
}

func TestTuneKey(t *testing.T) {
	m := NewModel(testOptions())

	m, cmd := update(t, m, key("t"))
	if cmd == nil || !m.tuning {
		t.Fatal("t should start a tune command")
	}
	if _, again := update(t, m, key("t")); again != nil {
		t.Error("second t while tuning should be ignored")
	}

	m, _ = update(t, m, cmd())
	if m.tuning {
		t.Error("tuning flag not cleared")
	}
	if m.gains != control.Heuristic(3, 0.05) {
		t.Errorf("expected heuristic gains, got %+v", m.gains)
	}
}

func TestTuneFailures(t *testing.T) {
	opts := testOptions()
	opts.Tuner = stubProposer{err: errors.New("offline")}
	m := NewModel(opts)

	m, cmd := update(t, m, key("t"))
	m, _ = update(t, m, cmd())
	if m.gains != opts.Gains || !strings.Contains(m.message, "offline") {
		t.Errorf("failed tune should keep gains, got %+v %q", m.gains, m.message)
	}

	opts.Tuner = stubProposer{prop: &tuner.Proposal{Kind: tuner.KindRawText, Raw: "try kp=3"}}
	m = NewModel(opts)
	m, cmd = update(t, m, key("t"))
	m, _ = update(t, m, cmd())
	if m.gains != opts.Gains {
		t.Error("raw proposal should not change gains")
	}
}

func TestViewRenders(t *testing.T) {
	m := NewModel(testOptions())
	for i := 0; i < 5; i++ {
		m, _ = update(t, m, TickMsg{})
	}

	out := m.View()
	for _, want := range []string{"UFO ATTITUDE", "RUNNING", "Kp", "theta"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}

	m, _ = update(t, m, key("n"))
	if m.theme != 1 {
		t.Errorf("expected theme 1, got %d", m.theme)
	}
}

func TestQuit(t *testing.T) {
	_, cmd := update(t, NewModel(testOptions()), key("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}
