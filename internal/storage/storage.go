package storage

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"

	"github.com/pfrederiksen/topdog/internal/entry"
)

// Snapshot file names
const (
	TopDogsJSON           = "top-dogs.json"
	TopDogsCSV            = "top-dogs.csv"
	GlobalLeaderboardJSON = "global-leaderboard.json"
	GlobalLeaderboardCSV  = "global-leaderboard.csv"
	ContestGoalsJSON      = "contest-goals.json"
	ContestGoalsCSV       = "contest-goals.csv"
)

// ErrNoSnapshot is returned when a snapshot file has not been written yet
var ErrNoSnapshot = errors.New("no snapshot")

// Storage handles persistence of crawl snapshots
type Storage struct {
	dataDir string
}

// New creates a new Storage instance rooted at dataDir
func New(dataDir string) (*Storage, error) {
	if strings.HasPrefix(dataDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, dataDir[2:])
	}
	if dataDir == "" {
		dataDir = "."
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	return &Storage{dataDir: dataDir}, nil
}

// Dir returns the snapshot directory
func (s *Storage) Dir() string {
	return s.dataDir
}

// Path returns the full path of a snapshot file
func (s *Storage) Path(name string) string {
	return filepath.Join(s.dataDir, name)
}

// Snapshot is everything one cycle publishes
type Snapshot struct {
	Ranked      []*entry.Entrant
	Leaderboard []*entry.Entrant
	Goals       []*entry.ContestGoal
}

// publishOrder is the rename order of the snapshot files. top-dogs.json goes
// last: it is what the next cycle reconciles from, so a rename failure part
// way through leaves it at the previous cycle and the next successful publish
// rewrites every file.
var publishOrder = []string{
	GlobalLeaderboardCSV,
	GlobalLeaderboardJSON,
	ContestGoalsCSV,
	ContestGoalsJSON,
	TopDogsCSV,
	TopDogsJSON,
}

// Publish encodes and writes all snapshot files. Every file is staged before
// any is renamed into place, so an encoding or write error leaves the previous
// snapshot as it was. Each rename is atomic, but the set is not: if a rename
// fails, the files before it in publishOrder already hold the new cycle.
func (s *Storage) Publish(snap *Snapshot) error {
	files, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}

	pending := make([]*renameio.PendingFile, 0, len(publishOrder))
	defer func() {
		for _, pf := range pending {
			pf.Cleanup() // nolint:errcheck
		}
	}()

	for _, name := range publishOrder {
		pf, err := s.stage(name, files[name])
		if err != nil {
			return err
		}
		pending = append(pending, pf)
	}

	for i, pf := range pending {
		if err := pf.CloseAtomicallyReplace(); err != nil {
			return fmt.Errorf("publishing %s: %w", publishOrder[i], err)
		}
	}
	return nil
}

// stage writes data to a pending file that will replace name
func (s *Storage) stage(name string, data []byte) (*renameio.PendingFile, error) {
	pf, err := renameio.NewPendingFile(s.Path(name),
		renameio.WithTempDir(s.dataDir),
		renameio.WithStaticPermissions(0644),
	)
	if err != nil {
		return nil, fmt.Errorf("creating temp file for %s: %w", name, err)
	}
	if _, err := pf.Write(data); err != nil {
		pf.Cleanup() // nolint:errcheck
		return nil, fmt.Errorf("writing %s: %w", name, err)
	}
	return pf, nil
}

func encodeSnapshot(snap *Snapshot) (map[string][]byte, error) {
	ranked := nonNilEntrants(snap.Ranked)
	top := nonNilEntrants(snap.Leaderboard)
	goals := snap.Goals
	if goals == nil {
		goals = []*entry.ContestGoal{}
	}

	files := make(map[string][]byte, len(publishOrder))
	add := func(name string, data []byte, err error) error {
		if err != nil {
			return fmt.Errorf("encoding %s: %w", name, err)
		}
		files[name] = data
		return nil
	}

	data, err := encodeJSON(ranked)
	if err := add(TopDogsJSON, data, err); err != nil {
		return nil, err
	}
	data, err = encodeEntrantCSV(ranked)
	if err := add(TopDogsCSV, data, err); err != nil {
		return nil, err
	}
	data, err = encodeJSON(top)
	if err := add(GlobalLeaderboardJSON, data, err); err != nil {
		return nil, err
	}
	data, err = encodeEntrantCSV(top)
	if err := add(GlobalLeaderboardCSV, data, err); err != nil {
		return nil, err
	}
	data, err = encodeJSON(goals)
	if err := add(ContestGoalsJSON, data, err); err != nil {
		return nil, err
	}
	data, err = encodeGoalCSV(goals)
	if err := add(ContestGoalsCSV, data, err); err != nil {
		return nil, err
	}

	return files, nil
}

func nonNilEntrants(in []*entry.Entrant) []*entry.Entrant {
	if in == nil {
		return []*entry.Entrant{}
	}
	return in
}

func encodeJSON(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeEntrantCSV(entrants []*entry.Entrant) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(entry.EntrantCSVHeader); err != nil {
		return nil, err
	}
	for _, e := range entrants {
		if err := w.Write(e.CSVRecord()); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func encodeGoalCSV(goals []*entry.ContestGoal) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(entry.ContestCSVHeader); err != nil {
		return nil, err
	}
	for _, g := range goals {
		if err := w.Write(g.CSVRecord()); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// LoadEntrants reads the entrant list of the last published snapshot.
// It returns ErrNoSnapshot if no snapshot has been published yet.
func (s *Storage) LoadEntrants() ([]*entry.Entrant, error) {
	data, err := s.ReadFile(TopDogsJSON)
	if err != nil {
		return nil, err
	}

	var entrants []*entry.Entrant
	if err := json.Unmarshal(data, &entrants); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", TopDogsJSON, err)
	}
	return entrants, nil
}

// ReadFile returns the raw contents of a snapshot file
func (s *Storage) ReadFile(name string) ([]byte, error) {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("reading %s: %w", name, ErrNoSnapshot)
		}
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return data, nil
}
