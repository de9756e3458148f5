// Package executor runs k independent trials per task under bounded
// concurrency and aggregates rewards into a pass^k verdict.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/spachava753/convobench/internal/actor"
	"github.com/spachava753/convobench/internal/domain"
	"github.com/spachava753/convobench/internal/evaluator"
	"github.com/spachava753/convobench/internal/models"
	"github.com/spachava753/convobench/internal/results"
	"github.com/spachava753/convobench/internal/sim"
	"github.com/spachava753/convobench/internal/tools"
)

// ActorFactory builds the agent and user actors for one task. The returned
// actors must be stateless so they can serve concurrent trials of the task.
type ActorFactory func(task models.Task) (agent actor.Actor, user actor.Actor)

// OracleActors is the default factory: a perfect scripted agent and a
// minimal user, both driven by the task itself. Useful for validating
// domains end to end without a model backend.
func OracleActors(task models.Task) (actor.Actor, actor.Actor) {
	return &actor.OracleAgent{Task: task}, &actor.OracleUser{Task: task}
}

// Runner coordinates the execution of all trials in a run.
type Runner struct {
	cfg      models.RunConfig
	provider domain.Provider
	actors   ActorFactory
	exec     *tools.Executor
	eval     *evaluator.Evaluator
}

// NewRunner creates a runner for one domain. The tool executor and
// evaluator are built once and shared read-only across trials.
func NewRunner(cfg models.RunConfig, provider domain.Provider, actors ActorFactory) *Runner {
	exec := tools.NewExecutor(provider.Tools())
	return &Runner{
		cfg:      cfg,
		provider: provider,
		actors:   actors,
		exec:     exec,
		eval:     evaluator.New(exec.MutatingTools()),
	}
}

// trialUnit is one (task, trial-index) pair awaiting execution.
type trialUnit struct {
	task  models.Task
	trial int
}

// Run executes all requested trials, skipping any already recorded in the
// results file, and returns aggregate metrics. Every requested (task, trial)
// pair has a record when Run returns nil; a missing record is an error, not
// a silent gap.
func (r *Runner) Run(ctx context.Context) (*models.RunResult, error) {
	startTime := time.Now()

	tasks, err := r.selectTasks()
	if err != nil {
		return nil, err
	}

	store, err := results.Open(r.cfg.SaveTo, r.cfg)
	if err != nil {
		return nil, fmt.Errorf("opening results store: %w", err)
	}

	// Build the work list, skipping completed (task, trial) pairs so a
	// resumed run only executes the missing indexes.
	completed := store.Completed()
	var units []trialUnit
	resumed := 0
	for _, task := range tasks {
		for trial := 0; trial < r.cfg.NumTrials; trial++ {
			if completed[results.Key{TaskID: task.ID, Trial: trial}] {
				resumed++
				continue
			}
			units = append(units, trialUnit{task: task, trial: trial})
		}
	}

	slog.Info("starting run",
		"run_id", store.Info().RunID,
		"domain", r.provider.Name(),
		"tasks", len(tasks),
		"trials_per_task", r.cfg.NumTrials,
		"to_execute", len(units),
		"resumed", resumed)

	g, gctx := errgroup.WithContext(ctx)
	limit := r.cfg.MaxConcurrency
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)

	for _, unit := range units {
		unit := unit
		g.Go(func() error {
			rec := r.runTrial(gctx, unit.task, unit.trial)
			if err := store.Append(rec); err != nil {
				return fmt.Errorf("recording task %s trial %d: %w", unit.task.ID, unit.trial, err)
			}
			slog.Info("trial finished",
				"task", rec.TaskID,
				"trial", rec.Trial,
				"reward", rec.Reward.Value,
				"termination", rec.Termination)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return r.aggregate(store, tasks, startTime, resumed)
}

// selectTasks resolves the configured task subset against the domain.
func (r *Runner) selectTasks() ([]models.Task, error) {
	all := r.provider.Tasks()
	if len(r.cfg.TaskIDs) == 0 {
		return all, nil
	}

	byID := make(map[string]models.Task, len(all))
	for _, t := range all {
		byID[t.ID] = t
	}

	var out []models.Task
	for _, id := range r.cfg.TaskIDs {
		t, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("task %q not found in domain %s", id, r.provider.Name())
		}
		out = append(out, t)
	}
	return out, nil
}

// runTrial executes a single trial from a fresh domain state and always
// produces a record: infrastructure faults are captured on the record rather
// than propagated, so one bad trial never takes down its siblings.
func (r *Runner) runTrial(ctx context.Context, task models.Task, trial int) (rec models.TrialRecord) {
	rec = models.TrialRecord{
		TaskID:    task.ID,
		Trial:     trial,
		StartedAt: time.Now().UTC(),
	}

	defer func() {
		if p := recover(); p != nil {
			rec.Termination = models.TermFault
			rec.Error = &models.TrialError{
				Type:    models.ErrTrialPanic,
				Message: fmt.Sprintf("trial panicked: %v", p),
			}
		}
		rec.EndedAt = time.Now().UTC()
		rec.DurationSec = rec.EndedAt.Sub(rec.StartedAt).Seconds()
	}()

	if r.cfg.TrialTimeoutSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(r.cfg.TrialTimeoutSec*float64(time.Second)))
		defer cancel()
	}

	state, err := r.provider.NewState(ctx)
	if err != nil {
		rec.Termination = models.TermFault
		rec.Error = &models.TrialError{
			Type:    models.ErrStateInit,
			Message: err.Error(),
		}
		rec.Reward = r.eval.Evaluate(nil, nil, task)
		return rec
	}

	agent, user := r.actors(task)
	session := &sim.Session{
		Agent:        agent,
		User:         user,
		Executor:     r.exec,
		State:        state,
		MaxSteps:     r.cfg.MaxSteps,
		MaxErrors:    r.cfg.MaxErrors,
		ActorTimeout: secs(r.cfg.ActorTimeoutSec),
		ToolTimeout:  secs(r.cfg.ToolTimeoutSec),
	}

	res, err := session.Run(ctx)
	if err != nil {
		rec.Termination = models.TermFault
		rec.Error = &models.TrialError{
			Type:    models.ErrInternalError,
			Message: err.Error(),
		}
		return rec
	}

	rec.Transcript = res.Transcript
	rec.Termination = res.Reason

	snapshot, err := state.Snapshot()
	if err != nil {
		slog.Warn("snapshotting final state failed", "task", task.ID, "trial", trial, "error", err)
	} else {
		rec.FinalState = snapshot
	}

	// Failed and truncated trials are still scored on the partial
	// transcript and state.
	rec.Reward = r.eval.Evaluate(rec.Transcript, rec.FinalState, task)
	return rec
}

// aggregate folds all requested records into run-level metrics.
func (r *Runner) aggregate(store *results.Store, tasks []models.Task, startTime time.Time, resumed int) (*models.RunResult, error) {
	info := store.Info()
	result := &models.RunResult{
		RunID:         info.RunID,
		Domain:        r.provider.Name(),
		ResumedTrials: resumed,
		StartedAt:     startTime,
		EndedAt:       time.Now(),
		Tasks:         make(map[string]models.TaskSummary, len(tasks)),
	}
	result.TotalDurationSec = result.EndedAt.Sub(result.StartedAt).Seconds()

	threshold := r.cfg.SuccessThreshold
	var totalReward float64
	passTasks := 0

	for _, task := range tasks {
		summary := models.TaskSummary{TaskID: task.ID, PassAllK: true}
		for trial := 0; trial < r.cfg.NumTrials; trial++ {
			rec, ok := store.Get(results.Key{TaskID: task.ID, Trial: trial})
			if !ok {
				return nil, fmt.Errorf("no record for task %s trial %d", task.ID, trial)
			}
			summary.Trials++
			result.TotalTrials++
			if rec.Error != nil {
				summary.FailedTrials++
				result.FailedTrials++
			} else {
				summary.CompletedTrials++
				result.CompletedTrials++
			}
			summary.MeanReward += rec.Reward.Value
			totalReward += rec.Reward.Value
			if rec.Reward.Value < threshold {
				summary.PassAllK = false
			}
		}
		if summary.Trials > 0 {
			summary.MeanReward /= float64(summary.Trials)
		}
		if summary.PassAllK {
			passTasks++
		}
		result.Tasks[task.ID] = summary
	}

	if result.TotalTrials > 0 {
		result.MeanReward = totalReward / float64(result.TotalTrials)
	}
	if len(tasks) > 0 {
		result.PassHatK = float64(passTasks) / float64(len(tasks))
	}

	return result, nil
}

func secs(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
