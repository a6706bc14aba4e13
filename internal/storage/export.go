package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/san-kum/loopsim/internal/dynamo"
)

type ExportData struct {
	RunMetadata
	Times    []float64   `json:"times"`
	Outputs  []float64   `json:"outputs"`
	Commands []float64   `json:"commands"`
	States   [][]float64 `json:"states"`
	Final    []float64   `json:"final,omitempty"`
}

func ExportJSON(w io.Writer, meta RunMetadata, result *dynamo.Result) error {
	data := ExportData{
		RunMetadata: meta,
		Times:       result.Times,
		Outputs:     result.Outputs,
		Commands:    result.Commands,
		States:      make([][]float64, len(result.States)),
		Final:       result.Final,
	}
	for i, s := range result.States {
		data.States[i] = s
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteCSV writes one row per sample: time, output, command, x0..xn.
func WriteCSV(w io.Writer, result *dynamo.Result) error {
	cw := csv.NewWriter(w)

	header := []string{"time", "output", "command"}
	if len(result.States) > 0 {
		for i := range result.States[0] {
			header = append(header, fmt.Sprintf("x%d", i))
		}
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for i := 0; i < result.Len(); i++ {
		row := []string{
			formatFloat(result.Times[i]),
			formatFloat(result.Outputs[i]),
			formatFloat(result.Commands[i]),
		}
		for _, val := range result.States[i] {
			row = append(row, formatFloat(val))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func ReadCSV(r io.Reader) (*dynamo.Result, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}

	result := &dynamo.Result{Metrics: make(map[string]float64)}
	if len(records) < 2 {
		return result, nil
	}

	for i, record := range records[1:] {
		if len(record) < 3 {
			return nil, fmt.Errorf("row %d: expected at least 3 columns, got %d", i+1, len(record))
		}
		vals := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %d: %w", i+1, j, err)
			}
			vals[j] = v
		}
		result.Times = append(result.Times, vals[0])
		result.Outputs = append(result.Outputs, vals[1])
		result.Commands = append(result.Commands, vals[2])
		result.States = append(result.States, dynamo.State(vals[3:]))
	}
	result.StepsTaken = len(result.Times)
	return result, nil
}
