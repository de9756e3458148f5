// Package results persists trial records for one run and supports resuming
// a partially completed set of trials.
package results

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spachava753/convobench/internal/models"
)

// Info describes the run a results file belongs to. Resuming requires the
// identifying fields to match; NumTrials may grow across resumes.
type Info struct {
	RunID            string    `json:"run_id"`
	Domain           string    `json:"domain"`
	NumTrials        int       `json:"num_trials"`
	MaxSteps         int       `json:"max_steps"`
	MaxErrors        int       `json:"max_errors"`
	SuccessThreshold float64   `json:"success_threshold"`
	CreatedAt        time.Time `json:"created_at"`
}

// File is the serialized layout: run metadata plus one record per executed
// (task, trial) pair.
type File struct {
	Info    Info                 `json:"info"`
	Records []models.TrialRecord `json:"records"`
}

// Key addresses a trial record by its stable identity, not arrival order.
type Key struct {
	TaskID string
	Trial  int
}

// Store accumulates trial records and writes them to disk after every
// append, so an interrupted run loses at most the in-flight trials.
type Store struct {
	mu      sync.Mutex
	path    string // empty means in-memory only
	info    Info
	records map[Key]models.TrialRecord
}

// Open creates a store for the given run. If path names an existing results
// file with a compatible configuration, its records are loaded and the run
// resumes; an incompatible file is an error rather than silent overwrite.
// An empty path yields an in-memory store without persistence.
func Open(path string, cfg models.RunConfig) (*Store, error) {
	info := Info{
		RunID:            uuid.NewString(),
		Domain:           cfg.Domain,
		NumTrials:        cfg.NumTrials,
		MaxSteps:         cfg.MaxSteps,
		MaxErrors:        cfg.MaxErrors,
		SuccessThreshold: cfg.SuccessThreshold,
		CreatedAt:        time.Now().UTC(),
	}

	s := &Store{
		path:    path,
		info:    info,
		records: make(map[Key]models.TrialRecord),
	}

	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading results file: %w", err)
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing results file %s: %w", path, err)
	}

	if f.Info.Domain != info.Domain {
		return nil, fmt.Errorf("results file %s is for domain %q, not %q", path, f.Info.Domain, info.Domain)
	}
	if f.Info.MaxSteps != info.MaxSteps || f.Info.MaxErrors != info.MaxErrors {
		return nil, fmt.Errorf("results file %s was produced with different limits (max_steps %d, max_errors %d)",
			path, f.Info.MaxSteps, f.Info.MaxErrors)
	}

	// Keep the original run identity; only the trial count may grow.
	s.info = f.Info
	if info.NumTrials > s.info.NumTrials {
		s.info.NumTrials = info.NumTrials
	}

	for _, rec := range f.Records {
		s.records[Key{TaskID: rec.TaskID, Trial: rec.Trial}] = rec
	}

	return s, nil
}

// Info returns the run metadata.
func (s *Store) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// Completed returns the set of (task, trial) pairs that already have a
// record. The runner skips these on resume.
func (s *Store) Completed() map[Key]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	done := make(map[Key]bool, len(s.records))
	for k := range s.records {
		done[k] = true
	}
	return done
}

// Get returns the record for a key, if present.
func (s *Store) Get(k Key) (models.TrialRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[k]
	return rec, ok
}

// Append records a completed trial and flushes to disk. Appending a key that
// already has a record is a programming error: completed trials are never
// re-run or overwritten.
func (s *Store) Append(rec models.TrialRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := Key{TaskID: rec.TaskID, Trial: rec.Trial}
	if _, exists := s.records[k]; exists {
		return fmt.Errorf("record for task %s trial %d already exists", rec.TaskID, rec.Trial)
	}
	s.records[k] = rec

	return s.flushLocked()
}

// Records returns all records sorted by (task id, trial index).
func (s *Store) Records() []models.TrialRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLocked()
}

func (s *Store) sortedLocked() []models.TrialRecord {
	out := make([]models.TrialRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TaskID != out[j].TaskID {
			return out[i].TaskID < out[j].TaskID
		}
		return out[i].Trial < out[j].Trial
	})
	return out
}

// flushLocked writes the file atomically (temp file + rename) so a crash
// mid-write never corrupts previously recorded trials.
func (s *Store) flushLocked() error {
	if s.path == "" {
		return nil
	}

	f := File{Info: s.info, Records: s.sortedLocked()}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating results directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".results-*.json")
	if err != nil {
		return fmt.Errorf("creating temp results file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing results: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing results file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing results file: %w", err)
	}
	return nil
}
