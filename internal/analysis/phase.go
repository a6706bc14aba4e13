package analysis

import (
	"fmt"
	"strings"

	"github.com/san-kum/loopsim/internal/dynamo"
)

type Point struct {
	X, Y float64
}

// PhasePortrait holds the trajectory of two state components.
type PhasePortrait struct {
	XIndex, YIndex int
	Points         []Point
}

// FromResult builds a portrait from the recorded states of a run, followed by
// the final state.
func FromResult(result *dynamo.Result, xIdx, yIdx int) (*PhasePortrait, error) {
	if result == nil || len(result.States) == 0 {
		return nil, fmt.Errorf("empty record")
	}
	dim := len(result.States[0])
	if xIdx < 0 || yIdx < 0 || xIdx >= dim || yIdx >= dim {
		return nil, fmt.Errorf("%w: indices (%d, %d) for %d-component state",
			dynamo.ErrDimensionMismatch, xIdx, yIdx, dim)
	}

	portrait := &PhasePortrait{
		XIndex: xIdx,
		YIndex: yIdx,
		Points: make([]Point, 0, len(result.States)+1),
	}
	for _, x := range result.States {
		portrait.Points = append(portrait.Points, Point{X: x[xIdx], Y: x[yIdx]})
	}
	if len(result.Final) == dim {
		portrait.Points = append(portrait.Points, Point{X: result.Final[xIdx], Y: result.Final[yIdx]})
	}
	return portrait, nil
}

func (p *PhasePortrait) bounds() (minX, maxX, minY, maxY float64) {
	minX, maxX = p.Points[0].X, p.Points[0].X
	minY, maxY = p.Points[0].Y, p.Points[0].Y
	for _, pt := range p.Points {
		if pt.X < minX {
			minX = pt.X
		}
		if pt.X > maxX {
			maxX = pt.X
		}
		if pt.Y < minY {
			minY = pt.Y
		}
		if pt.Y > maxY {
			maxY = pt.Y
		}
	}
	return
}

// ASCII renders the portrait on a width x height character grid with axes
// drawn where zero is visible.
func (p *PhasePortrait) ASCII(width, height int) string {
	if p == nil || len(p.Points) == 0 || width < 2 || height < 2 {
		return ""
	}

	minX, maxX, minY, maxY := p.bounds()

	// 10% padding
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	toCell := func(x, y float64) (row, col int) {
		col = int((x - minX) / rangeX * float64(width-1))
		row = height - 1 - int((y-minY)/rangeY*float64(height-1))
		return row, col
	}

	for _, pt := range p.Points {
		row, col := toCell(pt.X, pt.Y)
		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = '•'
		}
	}

	if minX <= 0 && maxX >= 0 {
		_, col := toCell(0, 0)
		for row := 0; row < height; row++ {
			if canvas[row][col] == ' ' {
				canvas[row][col] = '│'
			}
		}
	}
	if minY <= 0 && maxY >= 0 {
		row, _ := toCell(0, 0)
		for col := 0; col < width; col++ {
			if canvas[row][col] == ' ' {
				canvas[row][col] = '─'
			}
		}
	}

	last := p.Points[len(p.Points)-1]
	if row, col := toCell(last.X, last.Y); row >= 0 && row < height && col >= 0 && col < width {
		canvas[row][col] = '◆'
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
