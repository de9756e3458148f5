package models

// RunConfig represents the parsed run.yaml configuration.
type RunConfig struct {
	Name   string `yaml:"name,omitempty" json:"name,omitempty"`
	Domain string `yaml:"domain" json:"domain"`

	// DomainDir loads the domain's data files from a directory instead of
	// the copy built into the binary. The loaded manifest must still name
	// the configured Domain.
	DomainDir string `yaml:"domain_dir,omitempty" json:"domain_dir,omitempty"`

	// TaskIDs restricts the run to a subset of the domain's tasks.
	// Empty means all tasks.
	TaskIDs []string `yaml:"task_ids,omitempty" json:"task_ids,omitempty"`

	// NumTrials is k: independent trials per task.
	NumTrials int `yaml:"num_trials" json:"num_trials"`

	MaxSteps  int `yaml:"max_steps" json:"max_steps"`
	MaxErrors int `yaml:"max_errors" json:"max_errors"`

	// MaxConcurrency bounds the number of in-flight trials.
	MaxConcurrency int `yaml:"max_concurrency" json:"max_concurrency"`

	ActorTimeoutSec float64 `yaml:"actor_timeout_sec" json:"actor_timeout_sec"`
	ToolTimeoutSec  float64 `yaml:"tool_timeout_sec" json:"tool_timeout_sec"`
	TrialTimeoutSec float64 `yaml:"trial_timeout_sec" json:"trial_timeout_sec"`

	// SuccessThreshold is the minimum reward for a trial to count as a
	// pass when computing pass^k.
	SuccessThreshold float64 `yaml:"success_threshold" json:"success_threshold"`

	// SaveTo is the results file path. Empty disables persistence
	// (and therefore resume).
	SaveTo string `yaml:"save_to,omitempty" json:"save_to,omitempty"`
}
