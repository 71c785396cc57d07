package state

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/mitchellh/go-homedir"
)

// maxRememberedViews bounds the view file; the oldest entries are dropped first.
const maxRememberedViews = 200

// ViewState is the remembered viewport of one directory.
type ViewState struct {
	Dir        string
	Scale      float64
	TranslateX float64
	TranslateY float64
	Timestamp  time.Time
}

// ViewStore keeps the last view of every browsed directory in a CSV file so
// both frontends reopen a directory where the user left it.
type ViewStore struct {
	stateDir  string
	stateFile string
}

// DefaultViewStorePath returns ~/.config/rescale/space_views.csv.
func DefaultViewStorePath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".config", "rescale", "space_views.csv"), nil
}

// NewViewStore creates a store backed by the file at path.
func NewViewStore(path string) (*ViewStore, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	stateDir := filepath.Dir(absPath)
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	return &ViewStore{
		stateDir:  stateDir,
		stateFile: filepath.Base(absPath),
	}, nil
}

// Path returns the full path to the state file.
func (vs *ViewStore) Path() string {
	return filepath.Join(vs.stateDir, vs.stateFile)
}

// Load reads every remembered view. A missing file is an empty store.
func (vs *ViewStore) Load() ([]ViewState, error) {
	file, err := os.Open(vs.Path())
	if os.IsNotExist(err) {
		return []ViewState{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open state file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	// Skip header if present
	startIdx := 0
	if len(records) > 0 && len(records[0]) > 0 && records[0][0] == "Dir" {
		startIdx = 1
	}

	views := make([]ViewState, 0, len(records)-startIdx)
	for _, record := range records[startIdx:] {
		if len(record) < 5 {
			continue // Skip invalid records
		}
		scale, err1 := strconv.ParseFloat(record[1], 64)
		tx, err2 := strconv.ParseFloat(record[2], 64)
		ty, err3 := strconv.ParseFloat(record[3], 64)
		if err1 != nil || err2 != nil || err3 != nil || scale <= 0 {
			continue
		}
		timestamp, _ := time.Parse(time.RFC3339, record[4])

		views = append(views, ViewState{
			Dir:        record[0],
			Scale:      scale,
			TranslateX: tx,
			TranslateY: ty,
			Timestamp:  timestamp,
		})
	}
	return views, nil
}

// Save replaces the file with views, newest first, keeping at most
// maxRememberedViews entries.
func (vs *ViewStore) Save(views []ViewState) error {
	sorted := append([]ViewState(nil), views...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp.After(sorted[j].Timestamp) })
	if len(sorted) > maxRememberedViews {
		sorted = sorted[:maxRememberedViews]
	}

	// Temporary file + rename so a crash never leaves half a file
	tmpPath := vs.Path() + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create state file: %w", err)
	}

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"Dir", "Scale", "TranslateX", "TranslateY", "Timestamp"}); err != nil {
		file.Close()
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, v := range sorted {
		record := []string{
			v.Dir,
			strconv.FormatFloat(v.Scale, 'g', -1, 64),
			strconv.FormatFloat(v.TranslateX, 'g', -1, 64),
			strconv.FormatFloat(v.TranslateY, 'g', -1, 64),
			v.Timestamp.Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			file.Close()
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		file.Close()
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmpPath, vs.Path()); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save state file: %w", err)
	}
	return nil
}

// Update updates or adds the view of v.Dir.
func (vs *ViewStore) Update(v ViewState) error {
	views, err := vs.Load()
	if err != nil {
		return err
	}

	found := false
	for i, existing := range views {
		if existing.Dir == v.Dir {
			views[i] = v
			found = true
			break
		}
	}
	if !found {
		views = append(views, v)
	}

	return vs.Save(views)
}

// Get returns the remembered view of dir.
func (vs *ViewStore) Get(dir string) (ViewState, bool, error) {
	views, err := vs.Load()
	if err != nil {
		return ViewState{}, false, err
	}
	for _, v := range views {
		if v.Dir == dir {
			return v, true, nil
		}
	}
	return ViewState{}, false, nil
}
