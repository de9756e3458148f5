package results_test

import (
	"path/filepath"
	"testing"

	"github.com/spachava753/convobench/internal/models"
	"github.com/spachava753/convobench/internal/results"
)

func testConfig() models.RunConfig {
	return models.RunConfig{
		Domain:           "airline",
		NumTrials:        3,
		MaxSteps:         200,
		MaxErrors:        10,
		SuccessThreshold: 1.0,
	}
}

func record(taskID string, trial int, reward float64) models.TrialRecord {
	return models.TrialRecord{
		TaskID:      taskID,
		Trial:       trial,
		Reward:      models.Reward{Value: reward},
		Termination: models.TermUserEnd,
	}
}

func TestStoreInMemory(t *testing.T) {
	s, err := results.Open("", testConfig())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if err := s.Append(record("t1", 0, 1.0)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	rec, ok := s.Get(results.Key{TaskID: "t1", Trial: 0})
	if !ok {
		t.Fatal("record not found")
	}
	if rec.Reward.Value != 1.0 {
		t.Errorf("unexpected reward: %f", rec.Reward.Value)
	}
}

func TestStoreDuplicateAppend(t *testing.T) {
	s, err := results.Open("", testConfig())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if err := s.Append(record("t1", 0, 1.0)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := s.Append(record("t1", 0, 0.0)); err == nil {
		t.Fatal("expected error appending duplicate key")
	}

	// The original record is untouched.
	rec, _ := s.Get(results.Key{TaskID: "t1", Trial: 0})
	if rec.Reward.Value != 1.0 {
		t.Errorf("duplicate append overwrote record: %f", rec.Reward.Value)
	}
}

func TestStoreResume(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "results.json")
	cfg := testConfig()

	s, err := results.Open(path, cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	runID := s.Info().RunID

	if err := s.Append(record("t1", 0, 1.0)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := s.Append(record("t1", 2, 0.0)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	// Reopen with a larger trial count, as a resumed run would.
	cfg.NumTrials = 5
	s2, err := results.Open(path, cfg)
	if err != nil {
		t.Fatalf("reopening store: %v", err)
	}

	if s2.Info().RunID != runID {
		t.Errorf("resume changed run id: %s vs %s", s2.Info().RunID, runID)
	}
	if s2.Info().NumTrials != 5 {
		t.Errorf("expected trial count to grow to 5, got %d", s2.Info().NumTrials)
	}

	completed := s2.Completed()
	if len(completed) != 2 {
		t.Fatalf("expected 2 completed trials, got %d", len(completed))
	}
	if !completed[results.Key{TaskID: "t1", Trial: 0}] || !completed[results.Key{TaskID: "t1", Trial: 2}] {
		t.Errorf("unexpected completed set: %v", completed)
	}
}

func TestStoreRejectsIncompatibleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")

	s, err := results.Open(path, testConfig())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := s.Append(record("t1", 0, 1.0)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	other := testConfig()
	other.Domain = "retail"
	if _, err := results.Open(path, other); err == nil {
		t.Fatal("expected error reopening with different domain")
	}

	limits := testConfig()
	limits.MaxSteps = 50
	if _, err := results.Open(path, limits); err == nil {
		t.Fatal("expected error reopening with different limits")
	}
}

func TestStoreRecordsSorted(t *testing.T) {
	s, err := results.Open("", testConfig())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	for _, rec := range []models.TrialRecord{
		record("t2", 1, 1.0),
		record("t1", 1, 1.0),
		record("t2", 0, 1.0),
		record("t1", 0, 1.0),
	} {
		if err := s.Append(rec); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	recs := s.Records()
	want := []results.Key{
		{TaskID: "t1", Trial: 0},
		{TaskID: "t1", Trial: 1},
		{TaskID: "t2", Trial: 0},
		{TaskID: "t2", Trial: 1},
	}
	for i, k := range want {
		if recs[i].TaskID != k.TaskID || recs[i].Trial != k.Trial {
			t.Errorf("record %d: expected %v, got %s/%d", i, k, recs[i].TaskID, recs[i].Trial)
		}
	}
}
