package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/san-kum/loopsim/internal/config"
	"github.com/san-kum/loopsim/internal/dynamo"
	"github.com/san-kum/loopsim/internal/experiment"
)

func runPreset(t *testing.T, plant, preset string) (*config.Config, *dynamo.Result) {
	t.Helper()
	cfg := config.GetPreset(plant, preset)
	exp, err := experiment.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	result, err := exp.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return cfg, result
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	cfg, result := runPreset(t, "spring_mass", "closed")

	runID, err := st.Save(cfg, result)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !strings.HasPrefix(runID, "spring_mass_") {
		t.Errorf("unexpected run id %q", runID)
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Plant != "spring_mass" || meta.Mode != config.ModeClosed {
		t.Errorf("unexpected plant/mode: %s/%s", meta.Plant, meta.Mode)
	}
	if meta.Gains == nil || meta.Gains.Kp != 50 {
		t.Errorf("gains not stored: %+v", meta.Gains)
	}
	if meta.Steps != result.Len() {
		t.Errorf("expected %d steps, got %d", result.Len(), meta.Steps)
	}
	if meta.Metrics["iae"] != result.Metrics["iae"] {
		t.Errorf("expected iae %f, got %f", result.Metrics["iae"], meta.Metrics["iae"])
	}

	loaded, err := st.LoadRecord(runID)
	if err != nil {
		t.Fatalf("load record failed: %v", err)
	}
	if !reflect.DeepEqual(loaded.Times, result.Times) {
		t.Error("times not round-tripped exactly")
	}
	if !reflect.DeepEqual(loaded.Outputs, result.Outputs) {
		t.Error("outputs not round-tripped exactly")
	}
	if len(loaded.States) != len(result.States) || len(loaded.States[0]) != 2 {
		t.Fatalf("unexpected states shape")
	}
	if loaded.States[10][1] != result.States[10][1] {
		t.Errorf("velocity mismatch: %f vs %f", loaded.States[10][1], result.States[10][1])
	}
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list on missing dir failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs, got %d", len(runs))
	}

	if err := st.Init(); err != nil {
		t.Fatal(err)
	}
	cfgA, resA := runPreset(t, "thermal", "open")
	cfgB, resB := runPreset(t, "motor", "open")
	idA, err := st.Save(cfgA, resA)
	if err != nil {
		t.Fatal(err)
	}
	idB, err := st.Save(cfgB, resB)
	if err != nil {
		t.Fatal(err)
	}

	runs, err = st.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != idA || runs[1].ID != idB {
		t.Errorf("expected runs in save order, got %s, %s", runs[0].ID, runs[1].ID)
	}
	if runs[0].Command != 30 || runs[0].Gains != nil {
		t.Errorf("open loop metadata should carry the command only: %+v", runs[0])
	}
}

func TestLoad_Missing(t *testing.T) {
	st := New(t.TempDir())
	if _, err := st.Load("nope"); err == nil {
		t.Error("expected error")
	}
	if _, err := st.LoadRecord("nope"); err == nil {
		t.Error("expected error")
	}
}

func TestNewMetadataDropsNonFinite(t *testing.T) {
	result := &dynamo.Result{Metrics: map[string]float64{"iae": math.Inf(1), "overshoot": 2}}
	meta := NewMetadata(config.DefaultConfig(), result)
	if _, ok := meta.Metrics["iae"]; ok {
		t.Error("infinite metric should be dropped")
	}
	if meta.Metrics["overshoot"] != 2 {
		t.Error("finite metric should be kept")
	}
}

func TestExportJSON(t *testing.T) {
	cfg, result := runPreset(t, "motor", "open")

	var buf bytes.Buffer
	if err := ExportJSON(&buf, NewMetadata(cfg, result), result); err != nil {
		t.Fatal(err)
	}

	var data ExportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if data.Plant != "motor" || len(data.Times) != 100 || len(data.States) != 100 {
		t.Errorf("unexpected export: plant=%s samples=%d", data.Plant, len(data.Times))
	}
	if math.Abs(data.Final[0]-20) > 1e-9 {
		t.Errorf("expected final speed 20, got %f", data.Final[0])
	}
}

func TestWriteCSVHeader(t *testing.T) {
	_, result := runPreset(t, "spring_mass", "open")

	var buf bytes.Buffer
	if err := WriteCSV(&buf, result); err != nil {
		t.Fatal(err)
	}
	first := strings.SplitN(buf.String(), "\n", 2)[0]
	if first != "time,output,command,x0,x1" {
		t.Errorf("unexpected header %q", first)
	}
}

func TestReadCSV_Invalid(t *testing.T) {
	if _, err := ReadCSV(strings.NewReader("time,output,command\n0,abc,1\n")); err == nil {
		t.Error("expected parse error")
	}

	empty, err := ReadCSV(strings.NewReader("time,output,command\n"))
	if err != nil {
		t.Fatal(err)
	}
	if empty.Len() != 0 {
		t.Error("expected empty record")
	}
}
