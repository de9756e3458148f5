package models

// Task is one scripted customer-service scenario. Tasks are immutable: they
// are created by the domain provider and never modified during a run.
type Task struct {
	ID string `json:"id"`

	// Instructions is the user simulator's private goal, in natural language.
	// The user actor may only reveal information contained here.
	Instructions string `json:"instructions"`

	// Criteria holds the ground truth the evaluator scores against.
	// Nil means the task has no automated criteria and any completed
	// trial scores 1.0.
	Criteria *EvaluationCriteria `json:"evaluation_criteria,omitempty"`
}

// EvaluationCriteria is the ground truth attached to a task.
type EvaluationCriteria struct {
	// Actions is the required sequence of mutating tool calls.
	Actions []Action `json:"actions,omitempty"`

	// Ordered makes action matching sensitive to dependency order.
	// When false (the default) actions are matched as a multiset.
	Ordered bool `json:"ordered,omitempty"`

	// Assertions are predicates evaluated against the final domain state.
	Assertions []Assertion `json:"assertions,omitempty"`

	// CommunicateInfo lists values that must appear verbatim in the
	// agent's natural-language messages.
	CommunicateInfo []string `json:"communicate_info,omitempty"`

	// Combination declares how sub-scores combine into the trial reward.
	// Nil means all declared sub-scores must pass (product).
	Combination *RewardExpr `json:"combination,omitempty"`
}

// Action is one required mutating tool call with its required arguments.
type Action struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Assertion is a predicate over the final domain-state snapshot: the value at
// the dotted Path must equal Equals.
type Assertion struct {
	Path   string `json:"path"`
	Equals any    `json:"equals"`
}

// RewardComponent names one evaluator sub-score.
type RewardComponent string

const (
	ComponentActionMatch    RewardComponent = "action_match"
	ComponentStateAssertion RewardComponent = "state_assertion"
	ComponentCommunication  RewardComponent = "communication"
)

// RewardOp selects how reward terms combine.
type RewardOp string

const (
	// OpAllOf multiplies the terms: every sub-score must be 1.0.
	OpAllOf RewardOp = "all_of"
	// OpWeightedSum averages the terms by weight.
	OpWeightedSum RewardOp = "weighted_sum"
)

// RewardExpr is a small tagged-variant expression the evaluator interprets
// generically, so per-task composition rules need no domain special-casing.
type RewardExpr struct {
	Op    RewardOp     `json:"op"`
	Terms []RewardTerm `json:"terms"`
}

// RewardTerm references one sub-score, with an optional weight used by
// weighted-sum composition.
type RewardTerm struct {
	Component RewardComponent `json:"component"`
	Weight    float64         `json:"weight,omitempty"`
}
