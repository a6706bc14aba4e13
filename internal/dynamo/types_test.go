package dynamo

import (
	"math"
	"testing"
)

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		state State
		valid bool
	}{
		{"empty", State{}, true},
		{"normal", State{1.0, 2.0, 3.0}, true},
		{"zeros", State{0.0, 0.0}, true},
		{"with NaN", State{1.0, math.NaN()}, false},
		{"with +Inf", State{1.0, math.Inf(1)}, false},
		{"with -Inf", State{1.0, math.Inf(-1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestState_Norm(t *testing.T) {
	tests := []struct {
		state    State
		expected float64
	}{
		{State{3, 4}, 5.0},
		{State{1, 0}, 1.0},
		{State{0, 0}, 0.0},
		{State{1, 1, 1, 1}, 2.0},
	}

	for _, tt := range tests {
		if got := tt.state.Norm(); math.Abs(got-tt.expected) > 1e-10 {
			t.Errorf("Norm(%v) = %v, want %v", tt.state, got, tt.expected)
		}
	}
}

func TestState_CloneIsIndependent(t *testing.T) {
	a := State{1, 2}
	b := a.Clone()
	b[0] = 9

	if a[0] != 1 {
		t.Errorf("clone shares storage with original: %v", a)
	}
	if d := b.Sub(a); d[0] != 8 || d[1] != 0 {
		t.Errorf("Sub failed: got %v", d)
	}
}

func TestConfig_Steps(t *testing.T) {
	tests := []struct {
		dt, duration float64
		steps        int
	}{
		{0.1, 10, 100},
		{0.01, 5, 500},
		{0.3, 0.9, 3},
		{0.1, 0.05, 1},
	}

	for _, tt := range tests {
		cfg := Config{Dt: tt.dt, Duration: tt.duration}
		if got := cfg.Steps(); got != tt.steps {
			t.Errorf("Steps(dt=%g, duration=%g) = %d, want %d", tt.dt, tt.duration, got, tt.steps)
		}
	}
}

func TestResult_Tail(t *testing.T) {
	r := newResult(10)
	for i := 0; i < 10; i++ {
		r.append(Sample{Time: float64(i), Output: float64(i), State: State{float64(i)}})
	}

	tail := r.Tail(0.1)
	if len(tail) != 1 || tail[0] != 9 {
		t.Errorf("Tail(0.1) = %v, want [9]", tail)
	}
	if got := r.Tail(0.25); len(got) != 3 {
		t.Errorf("Tail(0.25) should round up to 3 samples, got %d", len(got))
	}
	if got := r.Tail(2); len(got) != 10 {
		t.Errorf("Tail(2) should be capped at the record length, got %d", len(got))
	}

	s := r.Sample(4)
	if s.Time != 4 || s.State[0] != 4 {
		t.Errorf("Sample(4) = %+v", s)
	}
}
