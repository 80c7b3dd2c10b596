package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/san-kum/mmst/internal/sim"
)

// Recording is a time series of trajectory samples.
type Recording struct {
	Times       []float64   `json:"times"`
	Energies    []float64   `json:"energies"`
	Populations [][]float64 `json:"populations"`
	Positions   [][]float64 `json:"positions"`
}

func (r *Recording) Len() int { return len(r.Times) }

func (r *Recording) Add(s sim.Sample) {
	r.Times = append(r.Times, s.Time)
	r.Energies = append(r.Energies, s.Energy)
	r.Populations = append(r.Populations, append([]float64(nil), s.Populations...))
	r.Positions = append(r.Positions, append([]float64(nil), s.Positions...))
}

// Population returns the time series of state i.
func (r *Recording) Population(i int) []float64 {
	out := make([]float64, len(r.Populations))
	for k, p := range r.Populations {
		out[k] = p[i]
	}
	return out
}

func (r *Recording) writeCSV(w *csv.Writer) error {
	if r.Len() == 0 {
		return nil
	}

	header := []string{"time", "energy"}
	for i := range r.Populations[0] {
		header = append(header, fmt.Sprintf("P%d", i))
	}
	for k := range r.Positions[0] {
		header = append(header, fmt.Sprintf("R%d", k))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	format := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	for i := range r.Times {
		row := make([]string, 0, len(header))
		row = append(row, format(r.Times[i]), format(r.Energies[i]))
		for _, v := range r.Populations[i] {
			row = append(row, format(v))
		}
		for _, v := range r.Positions[i] {
			row = append(row, format(v))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// Recorder is a sim.Observer that keeps every Every-th sample.
type Recorder struct {
	Every int
	rec   Recording
	seen  int
}

func NewRecorder(every int) *Recorder {
	if every < 1 {
		every = 1
	}
	return &Recorder{Every: every}
}

func (r *Recorder) OnStep(s sim.Sample) {
	if r.seen%r.Every == 0 {
		r.rec.Add(s)
	}
	r.seen++
}

func (r *Recorder) Recording() *Recording { return &r.rec }

type exportData struct {
	Meta RunMetadata `json:"meta"`
	*Recording
}

// ExportJSON writes a run's metadata and samples as one JSON document.
func ExportJSON(w io.Writer, meta RunMetadata, rec *Recording) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(exportData{Meta: meta, Recording: rec})
}
