// Package outputters holds the report-producing consumers a model run can
// carry: on-disk run archives, terminal rendering, and Prometheus metrics.
package outputters

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/tidewatch/driftsim/internal/sim"
	"github.com/tidewatch/driftsim/internal/spill"
)

// RunMetadata describes one archived run.
type RunMetadata struct {
	ID        string    `json:"id"`
	Scenario  string    `json:"scenario"`
	Timestamp time.Time `json:"timestamp"`
	StartTime time.Time `json:"start_time"`
	Uncertain bool      `json:"uncertain"`
	NumSpills int       `json:"num_spills"`
	NumSteps  int       `json:"num_steps"`
}

// RunStore archives each run under its own directory: a metadata.json plus
// one positions CSV per step. The final step's report carries the run
// directory under "output_filename".
type RunStore struct {
	baseDir  string
	scenario string

	runID  string
	runDir string
	spills *spill.Pair
	steps  int
}

// NewRunStore archives runs under baseDir; scenario names the run family
// in the metadata.
func NewRunStore(baseDir, scenario string) *RunStore {
	return &RunStore{baseDir: baseDir, scenario: scenario}
}

// ID returns a stable identifier for the outputter collection.
func (s *RunStore) ID() string { return "run-store:" + s.baseDir }

// PrepareForModelRun creates the run directory and writes its metadata.
func (s *RunStore) PrepareForModelRun(startTime time.Time, _ sim.ResultCache, uncertain bool, spills *spill.Pair) error {
	s.runID = fmt.Sprintf("%s_%d", s.scenario, time.Now().Unix())
	s.runDir = filepath.Join(s.baseDir, s.runID)
	s.spills = spills
	s.steps = 0

	if err := os.MkdirAll(s.runDir, 0o755); err != nil {
		return fmt.Errorf("outputters: create run dir: %w", err)
	}
	meta := RunMetadata{
		ID:        s.runID,
		Scenario:  s.scenario,
		Timestamp: time.Now(),
		StartTime: startTime,
		Uncertain: uncertain,
		NumSpills: spills.LenSpills(),
	}
	return s.writeMetadata(meta)
}

func (s *RunStore) writeMetadata(meta RunMetadata) error {
	f, err := os.Create(filepath.Join(s.runDir, "metadata.json"))
	if err != nil {
		return fmt.Errorf("outputters: create metadata: %w", err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return fmt.Errorf("outputters: encode metadata: %w", err)
	}
	return nil
}

func (s *RunStore) PrepareForModelStep(time.Duration, time.Time) error { return nil }

func (s *RunStore) ModelStepIsDone() {}

// WriteOutput appends one positions CSV for the step. The final step also
// refreshes the step count in metadata.json and reports the run directory.
func (s *RunStore) WriteOutput(step int, isFinal bool) (sim.Report, error) {
	path := filepath.Join(s.runDir, fmt.Sprintf("step_%04d.csv", step))
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("outputters: create step file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"branch", "lon", "lat", "z", "status"}); err != nil {
		return nil, fmt.Errorf("outputters: write step header: %w", err)
	}
	for _, c := range s.spills.Items() {
		branch := "certain"
		if c.Uncertain {
			branch = "uncertain"
		}
		for i := range c.Positions {
			row := []string{
				branch,
				strconv.FormatFloat(c.Positions[i].Lon, 'f', 6, 64),
				strconv.FormatFloat(c.Positions[i].Lat, 'f', 6, 64),
				strconv.FormatFloat(c.Positions[i].Z, 'f', 6, 64),
				strconv.Itoa(int(c.Statuses[i])),
			}
			if err := w.Write(row); err != nil {
				return nil, fmt.Errorf("outputters: write step row: %w", err)
			}
		}
	}
	s.steps++

	if !isFinal {
		return nil, nil
	}
	meta, err := s.LoadRun(s.runID)
	if err != nil {
		return nil, err
	}
	meta.NumSteps = s.steps
	if err := s.writeMetadata(*meta); err != nil {
		return nil, err
	}
	return sim.Report{"output_filename": s.runDir}, nil
}

// Rewind forgets the in-progress run; the next run gets a fresh directory.
func (s *RunStore) Rewind() {
	s.runID = ""
	s.runDir = ""
	s.steps = 0
}

// List returns the metadata of every archived run.
func (s *RunStore) List() ([]RunMetadata, error) {
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
		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name(), "metadata.json"))
		if err != nil {
			continue
		}
		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		runs = append(runs, meta)
	}
	return runs, nil
}

// LoadRun reads one archived run's metadata.
func (s *RunStore) LoadRun(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadStep reads back one step's positions, all branches interleaved in
// file order.
func (s *RunStore) LoadStep(runID string, step int) ([]spill.Point, []spill.Status, error) {
	path := filepath.Join(s.baseDir, runID, fmt.Sprintf("step_%04d.csv", step))
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("outputters: read step file: %w", err)
	}
	positions := make([]spill.Point, 0, len(records))
	statuses := make([]spill.Status, 0, len(records))
	for i, rec := range records {
		if i == 0 || len(rec) != 5 {
			continue
		}
		lon, err1 := strconv.ParseFloat(rec[1], 64)
		lat, err2 := strconv.ParseFloat(rec[2], 64)
		z, err3 := strconv.ParseFloat(rec[3], 64)
		status, err4 := strconv.Atoi(rec[4])
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			continue
		}
		positions = append(positions, spill.Point{Lon: lon, Lat: lat, Z: z})
		statuses = append(statuses, spill.Status(status))
	}
	return positions, statuses, nil
}
