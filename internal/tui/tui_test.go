package tui

import (
	"bytes"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/loopsim/internal/dynamo"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m model, keys ...string) model {
	for _, k := range keys {
		next, _ := m.Update(key(k))
		m = next.(model)
	}
	return m
}

func TestMenuToSim(t *testing.T) {
	m := *NewInteractiveApp()
	if len(m.presets) == 0 {
		t.Fatal("no presets listed")
	}

	m = press(m, "enter")
	if m.state != stateConfig || m.cfg == nil {
		t.Fatalf("expected config state, got %v", m.state)
	}

	m = press(m, "s")
	if m.state != stateSim || m.run == nil {
		t.Fatalf("expected a started run, err=%v", m.err)
	}

	for i := 0; i < 10; i++ {
		m.step()
	}
	if m.run.Tick() != 10 || len(m.outputs) != 10 {
		t.Errorf("expected 10 ticks, got %d", m.run.Tick())
	}
	if !strings.Contains(m.View(), m.selected) {
		t.Error("sim view should name the preset")
	}
}

func TestConfigEdit(t *testing.T) {
	m := *NewInteractiveApp()
	m = press(m, "enter")

	m = press(m, "enter")
	m.editBuf = ""
	m = press(m, "4", ".", "5", "enter")

	if got := m.param(m.paramNames[0]); got != 4.5 {
		t.Errorf("expected 4.5, got %f", got)
	}
}

func TestStartInvalidConfig(t *testing.T) {
	m := *NewInteractiveApp()
	m = press(m, "enter")
	m.setParam("dt", 0)

	m = press(m, "s")
	if m.err == nil || m.run != nil {
		t.Error("expected start to fail for zero dt")
	}
	if !strings.Contains(m.View(), "stopped") {
		t.Error("expected stopped status")
	}
}

func TestNudge(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{0, 0.1},
		{1, 0.1},
		{200, 10},
		{0.05, 0.001},
	}
	for _, tt := range tests {
		if got := nudge(tt.in); got < tt.want*0.999 || got > tt.want*1.001 {
			t.Errorf("nudge(%g) = %g, want %g", tt.in, got, tt.want)
		}
	}
}

func TestLiveRenderer(t *testing.T) {
	var buf bytes.Buffer
	sp := 10.0
	r := NewLiveRenderer(&buf, "motor", &sp, 1000)

	r.OnStep(dynamo.State{0}, 0, 5, 0)
	r.OnStep(dynamo.State{5}, 5, 5, 1)
	frame := r.Frame(dynamo.State{5}, 5, 5, 1)

	if !strings.Contains(frame, "motor") || !strings.Contains(frame, "x0=5.000") {
		t.Errorf("unexpected frame:\n%s", frame)
	}
	if !strings.Contains(frame, "|") {
		t.Error("expected setpoint mark on gauge")
	}
	if buf.Len() == 0 {
		t.Error("expected at least one frame written")
	}
}
