package models

import (
	"encoding/json"
	"time"
)

// TerminationReason records why a trial's conversation loop stopped.
type TerminationReason string

const (
	// TermUserEnd means the user actor signaled the conversation is over.
	TermUserEnd TerminationReason = "user_end"
	// TermAgentTransfer means the agent actor escalated to a human.
	TermAgentTransfer TerminationReason = "agent_transfer"
	// TermMaxSteps means the step budget was exhausted.
	TermMaxSteps TerminationReason = "max_steps_exceeded"
	// TermAborted means the consecutive-error budget was exhausted.
	TermAborted TerminationReason = "aborted"
	// TermTimeout means the trial-level wall-clock budget expired.
	TermTimeout TerminationReason = "timeout"
	// TermFault means trial infrastructure failed (e.g. a panic); the
	// record carries the fault in Error.
	TermFault TerminationReason = "fault"
)

// Reward is the evaluator's verdict for one trial. Computed once per trial
// and immutable thereafter. Component scores are nil when the task declares
// no criteria of that kind.
type Reward struct {
	Value          float64  `json:"value"`
	ActionMatch    *float64 `json:"action_match,omitempty"`
	StateAssertion *float64 `json:"state_assertion,omitempty"`
	Communication  *float64 `json:"communication,omitempty"`
}

// TrialError describes a trial-level infrastructure fault.
type TrialError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
}

// TrialRecord is the unit of output: one per executed (task, trial) pair.
// Records are addressed by (TaskID, Trial), never by arrival order.
type TrialRecord struct {
	TaskID      string            `json:"task_id"`
	Trial       int               `json:"trial"`
	Transcript  []Message         `json:"transcript"`
	FinalState  json.RawMessage   `json:"final_state,omitempty"`
	Reward      Reward            `json:"reward"`
	Termination TerminationReason `json:"termination"`
	Error       *TrialError       `json:"error,omitempty"`
	StartedAt   time.Time         `json:"started_at"`
	EndedAt     time.Time         `json:"ended_at"`
	DurationSec float64           `json:"duration_sec"`
}

// TaskSummary aggregates the trials of one task.
type TaskSummary struct {
	TaskID          string  `json:"task_id"`
	Trials          int     `json:"trials"`
	CompletedTrials int     `json:"completed_trials"`
	FailedTrials    int     `json:"failed_trials"`
	MeanReward      float64 `json:"mean_reward"`
	// PassAllK is true iff every trial of this task reached the
	// success threshold.
	PassAllK bool `json:"pass_all_k"`
}

// RunResult contains aggregate metrics across all trials of a run.
type RunResult struct {
	RunID            string                 `json:"run_id"`
	Domain           string                 `json:"domain"`
	TotalTrials      int                    `json:"total_trials"`
	CompletedTrials  int                    `json:"completed_trials"`
	FailedTrials     int                    `json:"failed_trials"`
	ResumedTrials    int                    `json:"resumed_trials"`
	MeanReward       float64                `json:"mean_reward"`
	// PassHatK is the fraction of tasks whose k trials all reached the
	// success threshold.
	PassHatK         float64                `json:"pass_hat_k"`
	TotalDurationSec float64                `json:"total_duration_sec"`
	StartedAt        time.Time              `json:"started_at"`
	EndedAt          time.Time              `json:"ended_at"`
	Tasks            map[string]TaskSummary `json:"tasks"`
}
