package tui

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/loopsim/internal/dynamo"
)

const (
	gaugeWidth  = 50
	chartHeight = 12
	chartWidth  = 70
	clearScreen = "\033[2J\033[H"
	hideCursor  = "\033[?25l"
	showCursor  = "\033[?25h"
)

// LiveRenderer is a dynamo.Observer that redraws a terminal frame at most
// frameRate times per second: output gauge, command and recent history.
type LiveRenderer struct {
	out       io.Writer
	plant     string
	setpoint  *float64
	frameRate int
	lastFrame time.Time
	history   []float64
}

func NewLiveRenderer(out io.Writer, plant string, setpoint *float64, frameRate int) *LiveRenderer {
	if frameRate <= 0 {
		frameRate = 30
	}
	return &LiveRenderer{
		out:       out,
		plant:     plant,
		setpoint:  setpoint,
		frameRate: frameRate,
		history:   make([]float64, 0, chartWidth),
	}
}

func (r *LiveRenderer) OnStep(x dynamo.State, output, u float64, t float64) {
	r.history = append(r.history, output)
	if len(r.history) > chartWidth {
		r.history = r.history[1:]
	}

	if time.Since(r.lastFrame) < time.Second/time.Duration(r.frameRate) {
		return
	}
	r.lastFrame = time.Now()

	fmt.Fprint(r.out, r.Frame(x, output, u, t))
}

// Frame renders one frame without the rate limit.
func (r *LiveRenderer) Frame(x dynamo.State, output, u float64, t float64) string {
	var b strings.Builder
	b.WriteString(clearScreen)
	b.WriteString(fmt.Sprintf("  %s  t=%.2fs\n", r.plant, t))
	b.WriteString("  " + strings.Repeat("-", gaugeWidth+20) + "\n")

	b.WriteString("  y " + r.gauge(output) + fmt.Sprintf(" %.3f", output))
	if r.setpoint != nil {
		b.WriteString(fmt.Sprintf("  (sp %.3f, e %.3f)", *r.setpoint, *r.setpoint-output))
	}
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  u %.3f\n\n", u))

	if len(r.history) > 1 {
		b.WriteString(asciigraph.Plot(r.history,
			asciigraph.Height(chartHeight),
			asciigraph.Width(chartWidth),
			asciigraph.Offset(4),
		))
		b.WriteString("\n")
	}

	stateStr := "  "
	for i, v := range x {
		if i >= 4 {
			break
		}
		stateStr += fmt.Sprintf("x%d=%.3f ", i, v)
	}
	b.WriteString(stateStr + "\n")
	return b.String()
}

// gauge fills proportionally to output relative to the larger of the
// setpoint and the largest output seen so far.
func (r *LiveRenderer) gauge(output float64) string {
	scale := 0.0
	if r.setpoint != nil {
		scale = math.Abs(*r.setpoint)
	}
	for _, v := range r.history {
		scale = math.Max(scale, math.Abs(v))
	}
	if scale == 0 {
		scale = 1
	}

	filled := int(math.Abs(output) / scale * gaugeWidth)
	if filled > gaugeWidth {
		filled = gaugeWidth
	}
	bar := []rune(strings.Repeat("#", filled) + strings.Repeat(".", gaugeWidth-filled))
	if r.setpoint != nil {
		mark := int(math.Abs(*r.setpoint) / scale * (gaugeWidth - 1))
		bar[mark] = '|'
	}
	return "[" + string(bar) + "]"
}

func (r *LiveRenderer) Start() { fmt.Fprint(r.out, hideCursor) }
func (r *LiveRenderer) Stop()  { fmt.Fprint(r.out, showCursor) }
