package executor_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spachava753/convobench/internal/actor"
	"github.com/spachava753/convobench/internal/domain/airline"
	"github.com/spachava753/convobench/internal/executor"
	"github.com/spachava753/convobench/internal/models"
	"github.com/spachava753/convobench/internal/results"
)

func testRunConfig() models.RunConfig {
	return models.RunConfig{
		Domain:           "airline",
		NumTrials:        1,
		MaxSteps:         50,
		MaxErrors:        5,
		MaxConcurrency:   4,
		SuccessThreshold: 1.0,
	}
}

// panicking is an agent that blows up, simulating an infrastructure fault.
type panicking struct{}

func (panicking) ProduceTurn(context.Context, []models.Message) (actor.TurnOutcome, error) {
	panic("backend exploded")
}

func TestRunnerOracleEndToEnd(t *testing.T) {
	provider, err := airline.New()
	if err != nil {
		t.Fatalf("loading airline domain: %v", err)
	}

	cfg := testRunConfig()
	cfg.NumTrials = 2

	runner := executor.NewRunner(cfg, provider, executor.OracleActors)
	result, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	wantTrials := len(provider.Tasks()) * cfg.NumTrials
	if result.TotalTrials != wantTrials {
		t.Errorf("expected %d trials, got %d", wantTrials, result.TotalTrials)
	}
	if result.FailedTrials != 0 {
		t.Errorf("expected no failed trials, got %d", result.FailedTrials)
	}

	// The oracle actors execute every task's ground truth exactly, so each
	// trial must earn full reward.
	if result.MeanReward != 1.0 {
		t.Errorf("expected mean reward 1.0, got %f", result.MeanReward)
	}
	if result.PassHatK != 1.0 {
		t.Errorf("expected pass^k 1.0, got %f", result.PassHatK)
	}
	for id, summary := range result.Tasks {
		if !summary.PassAllK {
			t.Errorf("task %s did not pass all trials: %+v", id, summary)
		}
	}
}

func TestRunnerResume(t *testing.T) {
	provider, err := airline.New()
	if err != nil {
		t.Fatalf("loading airline domain: %v", err)
	}

	path := filepath.Join(t.TempDir(), "results.json")

	cfg := testRunConfig()
	cfg.TaskIDs = []string{"airline_003"}
	cfg.NumTrials = 3
	cfg.SaveTo = path

	first, err := executor.NewRunner(cfg, provider, executor.OracleActors).Run(context.Background())
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if first.TotalTrials != 3 || first.ResumedTrials != 0 {
		t.Fatalf("unexpected first run: %+v", first)
	}

	// Raising the trial count and re-running executes only the missing
	// trial indexes.
	cfg.NumTrials = 5
	second, err := executor.NewRunner(cfg, provider, executor.OracleActors).Run(context.Background())
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if second.ResumedTrials != 3 {
		t.Errorf("expected 3 resumed trials, got %d", second.ResumedTrials)
	}
	if second.TotalTrials != 5 {
		t.Errorf("expected 5 total trials, got %d", second.TotalTrials)
	}
	if second.RunID != first.RunID {
		t.Errorf("resume changed run id: %s vs %s", second.RunID, first.RunID)
	}

	// The results file holds exactly trials 0 through 4.
	store, err := results.Open(path, cfg)
	if err != nil {
		t.Fatalf("reopening results: %v", err)
	}
	recs := store.Records()
	if len(recs) != 5 {
		t.Fatalf("expected 5 records, got %d", len(recs))
	}
	for i, rec := range recs {
		if rec.TaskID != "airline_003" || rec.Trial != i {
			t.Errorf("record %d: unexpected identity %s/%d", i, rec.TaskID, rec.Trial)
		}
	}
}

func TestRunnerFaultIsolation(t *testing.T) {
	provider, err := airline.New()
	if err != nil {
		t.Fatalf("loading airline domain: %v", err)
	}

	cfg := testRunConfig()
	cfg.TaskIDs = []string{"airline_002", "airline_003"}

	// The agent for airline_002 panics; its sibling trial must be
	// unaffected.
	factory := func(task models.Task) (actor.Actor, actor.Actor) {
		if task.ID == "airline_002" {
			return panicking{}, &actor.OracleUser{Task: task}
		}
		return executor.OracleActors(task)
	}

	result, err := executor.NewRunner(cfg, provider, factory).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.FailedTrials != 1 || result.CompletedTrials != 1 {
		t.Fatalf("expected 1 failed and 1 completed trial, got %+v", result)
	}

	bad := result.Tasks["airline_002"]
	if bad.FailedTrials != 1 || bad.PassAllK {
		t.Errorf("faulted task not recorded as failed: %+v", bad)
	}
	good := result.Tasks["airline_003"]
	if !good.PassAllK || good.MeanReward != 1.0 {
		t.Errorf("healthy task affected by sibling fault: %+v", good)
	}
	if result.PassHatK != 0.5 {
		t.Errorf("expected pass^k 0.5, got %f", result.PassHatK)
	}
}

func TestRunnerFaultRecord(t *testing.T) {
	provider, err := airline.New()
	if err != nil {
		t.Fatalf("loading airline domain: %v", err)
	}

	path := filepath.Join(t.TempDir(), "results.json")
	cfg := testRunConfig()
	cfg.TaskIDs = []string{"airline_003"}
	cfg.SaveTo = path

	factory := func(task models.Task) (actor.Actor, actor.Actor) {
		return panicking{}, &actor.OracleUser{Task: task}
	}

	if _, err := executor.NewRunner(cfg, provider, factory).Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	store, err := results.Open(path, cfg)
	if err != nil {
		t.Fatalf("reopening results: %v", err)
	}
	rec, ok := store.Get(results.Key{TaskID: "airline_003", Trial: 0})
	if !ok {
		t.Fatal("faulted trial has no record")
	}
	if rec.Termination != models.TermFault {
		t.Errorf("expected fault termination, got %s", rec.Termination)
	}
	if rec.Error == nil || rec.Error.Type != models.ErrTrialPanic {
		t.Errorf("expected trial_panic error, got %+v", rec.Error)
	}
	if rec.Reward.Value != 0.0 {
		t.Errorf("faulted trial must not earn reward, got %f", rec.Reward.Value)
	}
}

func TestRunnerUnknownTask(t *testing.T) {
	provider, err := airline.New()
	if err != nil {
		t.Fatalf("loading airline domain: %v", err)
	}

	cfg := testRunConfig()
	cfg.TaskIDs = []string{"airline_999"}

	if _, err := executor.NewRunner(cfg, provider, executor.OracleActors).Run(context.Background()); err == nil {
		t.Fatal("expected error for unknown task id")
	}
}
