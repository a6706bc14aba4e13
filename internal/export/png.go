package export

import (
	"bufio"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/san-kum/loopsim/internal/dynamo"
)

const (
	DefaultWidthIn  = 8.0
	DefaultHeightIn = 5.0
	DefaultDPI      = 150
)

var (
	outputColor   = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	commandColor  = color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff}
	setpointColor = color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}
)

// PlotOptions selects what goes on a time-series plot besides the output.
type PlotOptions struct {
	Title       string
	OutputLabel string
	// ShowCommand adds the controller command as a second line.
	ShowCommand bool
	// Setpoint draws a dashed reference line when non-nil.
	Setpoint *float64
}

func TimeSeriesPlot(result *dynamo.Result, opts PlotOptions) (*plot.Plot, error) {
	if result == nil || result.Len() == 0 {
		return nil, fmt.Errorf("empty record")
	}

	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = opts.OutputLabel
	if p.Y.Label.Text == "" {
		p.Y.Label.Text = "output"
	}
	p.Add(plotter.NewGrid())

	output, err := plotter.NewLine(series(result.Times, result.Outputs))
	if err != nil {
		return nil, err
	}
	output.LineStyle.Width = vg.Points(1.5)
	output.LineStyle.Color = outputColor
	p.Add(output)
	p.Legend.Add("output", output)

	if opts.ShowCommand {
		command, err := plotter.NewLine(series(result.Times, result.Commands))
		if err != nil {
			return nil, err
		}
		command.LineStyle.Color = commandColor
		p.Add(command)
		p.Legend.Add("command", command)
	}

	if opts.Setpoint != nil {
		sp := *opts.Setpoint
		first, last := result.Times[0], result.Times[result.Len()-1]
		ref, err := plotter.NewLine(plotter.XYs{{X: first, Y: sp}, {X: last, Y: sp}})
		if err != nil {
			return nil, err
		}
		ref.LineStyle.Color = setpointColor
		ref.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
		p.Add(ref)
		p.Legend.Add("setpoint", ref)
	}

	p.Legend.Top = true
	return p, nil
}

func series(xs, ys []float64) plotter.XYs {
	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i].X = xs[i]
		pts[i].Y = ys[i]
	}
	return pts
}

func WritePNG(w io.Writer, p *plot.Plot, widthIn, heightIn float64) error {
	c := vgimg.NewWith(
		vgimg.UseWH(vg.Length(widthIn)*vg.Inch, vg.Length(heightIn)*vg.Inch),
		vgimg.UseDPI(DefaultDPI),
	)
	p.Draw(draw.New(c))

	bw := bufio.NewWriter(w)
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(bw); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return bw.Flush()
}

func SavePNG(path string, result *dynamo.Result, opts PlotOptions) error {
	p, err := TimeSeriesPlot(result, opts)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return WritePNG(f, p, DefaultWidthIn, DefaultHeightIn)
}
