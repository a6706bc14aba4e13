package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/loopsim/internal/analysis"
	"github.com/san-kum/loopsim/internal/dynamo"
)

func sampleResult() *dynamo.Result {
	r := &dynamo.Result{Metrics: map[string]float64{}}
	for i := 0; i < 50; i++ {
		t := float64(i) * 0.1
		y := 20 + 3*t
		r.Times = append(r.Times, t)
		r.Outputs = append(r.Outputs, y)
		r.Commands = append(r.Commands, 30-t)
		r.States = append(r.States, dynamo.State{y})
	}
	return r
}

func TestWritePNG(t *testing.T) {
	sp := 30.0
	p, err := TimeSeriesPlot(sampleResult(), PlotOptions{Title: "thermal", ShowCommand: true, Setpoint: &sp})
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := WritePNG(&buf, p, 4, 3); err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
		t.Error("output is not a PNG")
	}
}

func TestSavePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plots", "run.png")
	if err := SavePNG(path, sampleResult(), PlotOptions{}); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() == 0 {
		t.Error("empty png")
	}
}

func TestTimeSeriesPlot_Empty(t *testing.T) {
	if _, err := TimeSeriesPlot(&dynamo.Result{}, PlotOptions{}); err == nil {
		t.Error("expected error for empty record")
	}
}

func TestOutputToSVG(t *testing.T) {
	svg := OutputToSVG(sampleResult(), 400, 200, "#00ff00")

	if !strings.HasPrefix(svg, "<?xml") || !strings.HasSuffix(svg, "</svg>") {
		t.Error("malformed svg document")
	}
	if n := strings.Count(svg, " L"); n != 49 {
		t.Errorf("expected 49 line segments, got %d", n)
	}
	if !strings.Contains(svg, `stroke="#00ff00"`) {
		t.Error("stroke color missing")
	}
}

func TestPolylineToSVG_TooShort(t *testing.T) {
	if PolylineToSVG([]analysis.Point{{X: 0, Y: 0}}, 10, 10, "#fff") != "" {
		t.Error("single point should render nothing")
	}
}
