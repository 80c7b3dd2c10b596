package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Store keeps one directory per run holding metadata.json and states.csv.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID           string             `json:"id"`
	Model        string             `json:"model"`
	Timestamp    time.Time          `json:"timestamp"`
	Seed         int64              `json:"seed"`
	Dt           float64            `json:"dt"`
	Steps        int                `json:"steps"`
	Scheme       string             `json:"scheme"`
	Startup      string             `json:"startup,omitempty"`
	NumStates    int                `json:"num_states"`
	InitialState int                `json:"initial_state"`
	ZeroPoint    float64            `json:"zero_point"`
	Sampling     string             `json:"sampling"`
	Metrics      map[string]float64 `json:"metrics"`
}

const (
	metadataFile = "metadata.json"
	statesFile   = "states.csv"
)

// Save writes meta and rec under a new run directory and returns its ID.
// meta.ID and meta.Timestamp are filled in.
func (s *Store) Save(meta RunMetadata, rec *Recording) (string, error) {
	now := time.Now()
	runID := fmt.Sprintf("%s_%s_%d", meta.Model, meta.Scheme, now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta.ID = runID
	meta.Timestamp = now

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, statesFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	if err := rec.writeCSV(w); err != nil {
		return "", err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return runID, nil
}

// List returns the metadata of every readable run, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

// LoadRecording reads back the samples of a run.
func (s *Store) LoadRecording(runID string) (*Recording, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, statesFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	if len(records) == 0 {
		return &Recording{}, nil
	}

	header := records[0]
	numStates, numDOF := 0, 0
	for _, col := range header {
		switch {
		case strings.HasPrefix(col, "P"):
			numStates++
		case strings.HasPrefix(col, "R"):
			numDOF++
		}
	}
	if len(header) != 2+numStates+numDOF {
		return nil, fmt.Errorf("run %s: unexpected header %v", runID, header)
	}

	rec := &Recording{}
	for i, record := range records[1:] {
		if len(record) != len(header) {
			return nil, fmt.Errorf("run %s: row %d has %d fields, want %d", runID, i+1, len(record), len(header))
		}
		vals := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("run %s: row %d: %w", runID, i+1, err)
			}
			vals[j] = v
		}
		rec.Times = append(rec.Times, vals[0])
		rec.Energies = append(rec.Energies, vals[1])
		rec.Populations = append(rec.Populations, vals[2:2+numStates])
		rec.Positions = append(rec.Positions, vals[2+numStates:])
	}
	return rec, nil
}
