package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/san-kum/ibflow/internal/grid"
	"github.com/san-kum/ibflow/internal/ib"
	"github.com/san-kum/ibflow/internal/solver"
	"github.com/san-kum/ibflow/internal/viz"
)

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
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Timestamp time.Time `json:"timestamp"`
	Grid      [3]int    `json:"grid"`
	Dt        float64   `json:"dt"`
	Steps     int       `json:"steps"`
	Variables []string  `json:"variables"`
	Anomalies int       `json:"anomalies"`

	Metrics map[string]float64 `json:"metrics,omitempty"`
}

// Save writes one completed run under a fresh directory: metadata.json,
// per-variable centerline profiles, and sampled anomalies.
func (s *Store) Save(label string, sol *solver.Solver, variables []string, dt float64, res *solver.Result, metrics map[string]float64) (string, error) {
	runID := fmt.Sprintf("%s_%d", label, time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	g := sol.Grid()
	meta := RunMetadata{
		ID:        runID,
		Label:     label,
		Timestamp: time.Now(),
		Grid:      [3]int{g.NX, g.NY, g.NZ},
		Dt:        dt,
		Steps:     res.StepsTaken,
		Variables: variables,
		Anomalies: res.Anomalies.Total(),
		Metrics:   metrics,
	}

	metaPath := filepath.Join(runDir, "metadata.json")
	metaFile, err := os.Create(metaPath)
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	if err := s.writeProfiles(runDir, sol, variables); err != nil {
		return "", err
	}
	if err := s.writeAnomalies(runDir, res.Anomalies); err != nil {
		return "", err
	}

	return runID, nil
}

// writeProfiles dumps the vertical centerline of every variable, one
// column per variable.
func (s *Store) writeProfiles(runDir string, sol *solver.Solver, variables []string) error {
	csvFile, err := os.Create(filepath.Join(runDir, "profiles.csv"))
	if err != nil {
		return err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	defer w.Flush()

	header := append([]string{"k"}, variables...)
	if err := w.Write(header); err != nil {
		return err
	}

	g := sol.Grid()
	ci := g.Halo + g.NX/2
	cj := g.Halo + g.NY/2

	profiles := make([][]float64, len(variables))
	for i, name := range variables {
		profiles[i] = viz.Profile(sol.Field(name), g, grid.Z, ci, cj, 0)
	}

	for k := 0; k < g.NZ; k++ {
		row := []string{strconv.Itoa(k)}
		for i := range variables {
			row = append(row, strconv.FormatFloat(profiles[i][k], 'f', 6, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) writeAnomalies(runDir string, rep *ib.Report) error {
	csvFile, err := os.Create(filepath.Join(runDir, "anomalies.csv"))
	if err != nil {
		return err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	defer w.Flush()

	if err := w.Write([]string{"variable", "cell", "reason"}); err != nil {
		return err
	}
	if rep == nil {
		return nil
	}
	for _, a := range rep.Samples() {
		if err := w.Write([]string{a.Variable, strconv.Itoa(a.Cell), a.Reason}); err != nil {
			return err
		}
	}
	return nil
}

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

		metaPath := filepath.Join(s.baseDir, entry.Name(), "metadata.json")
		data, err := os.ReadFile(metaPath)
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

func (s *Store) Load(runID string) (*RunMetadata, error) {
	metaPath := filepath.Join(s.baseDir, runID, "metadata.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadProfile reads one variable's saved centerline back out of
// profiles.csv.
func (s *Store) LoadProfile(runID, variable string) ([]float64, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "profiles.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []float64{}, nil
	}

	col := -1
	for i, name := range records[0] {
		if name == variable {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("storage: run %s has no profile for %q", runID, variable)
	}

	out := make([]float64, 0, len(records)-1)
	for _, record := range records[1:] {
		if col >= len(record) {
			continue
		}
		v, err := strconv.ParseFloat(record[col], 64)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}
