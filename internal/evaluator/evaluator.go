// Package evaluator scores a completed trial against its task's ground
// truth. Evaluation is a pure function of (transcript, final state, task):
// re-evaluating the same completed trial returns an identical Reward.
package evaluator

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/spachava753/convobench/internal/models"
)

// Evaluator computes rewards. It carries only the immutable set of mutating
// tool names, so one instance is safely shared across concurrent trials.
type Evaluator struct {
	mutating map[string]bool
}

// New creates an evaluator. mutating is the set of tool names whose
// successful calls count as actions.
func New(mutating map[string]bool) *Evaluator {
	m := make(map[string]bool, len(mutating))
	for k, v := range mutating {
		m[k] = v
	}
	return &Evaluator{mutating: m}
}

// Evaluate scores one trial. Partial trials (aborted, out of steps, timed
// out) are scored on whatever transcript and state exist; the termination
// reason itself never zeroes the reward.
func (e *Evaluator) Evaluate(transcript []models.Message, finalState json.RawMessage, task models.Task) models.Reward {
	if task.Criteria == nil {
		return models.Reward{Value: 1.0}
	}
	c := task.Criteria

	var reward models.Reward
	if len(c.Actions) > 0 {
		score := e.actionMatch(transcript, c)
		reward.ActionMatch = &score
	}
	if len(c.Assertions) > 0 {
		score := stateAssertion(finalState, c.Assertions)
		reward.StateAssertion = &score
	}
	if len(c.CommunicateInfo) > 0 {
		score := communication(transcript, c.CommunicateInfo)
		reward.Communication = &score
	}

	reward.Value = combine(reward, c.Combination)
	return reward
}

// actionMatch checks the executed mutating tool calls against the required
// actions. Matching is order-insensitive multiset matching unless the task
// declares Ordered, in which case the required actions must appear as a
// subsequence of the executed calls.
func (e *Evaluator) actionMatch(transcript []models.Message, c *models.EvaluationCriteria) float64 {
	executed := e.executedActions(transcript)

	if c.Ordered {
		next := 0
		for _, got := range executed {
			if next < len(c.Actions) && actionEqual(c.Actions[next], got) {
				next++
			}
		}
		if next == len(c.Actions) {
			return 1.0
		}
		return 0.0
	}

	used := make([]bool, len(executed))
	for _, want := range c.Actions {
		found := false
		for i, got := range executed {
			if !used[i] && actionEqual(want, got) {
				used[i] = true
				found = true
				break
			}
		}
		if !found {
			return 0.0
		}
	}
	return 1.0
}

// executedActions extracts the mutating tool calls that actually applied:
// agent-requested calls whose tool result succeeded, in execution order.
func (e *Evaluator) executedActions(transcript []models.Message) []models.Action {
	succeeded := make(map[string]bool)
	for _, m := range transcript {
		if m.Role == models.RoleTool && m.ToolResult != nil && m.ToolResult.OK() {
			succeeded[m.ToolResult.CallID] = true
		}
	}

	var out []models.Action
	for _, m := range transcript {
		if m.Role != models.RoleAgent {
			continue
		}
		for _, call := range m.ToolCalls {
			if e.mutating[call.Name] && succeeded[call.ID] {
				out = append(out, models.Action{Name: call.Name, Arguments: call.Arguments})
			}
		}
	}
	return out
}

// actionEqual compares name and arguments, with both argument maps
// canonicalized through JSON so numeric types do not matter.
func actionEqual(want, got models.Action) bool {
	if want.Name != got.Name {
		return false
	}
	return reflect.DeepEqual(canonical(want.Arguments), canonical(got.Arguments))
}

func canonical(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

// stateAssertion evaluates every declared predicate against the final state
// snapshot; all must hold.
func stateAssertion(finalState json.RawMessage, assertions []models.Assertion) float64 {
	if len(finalState) == 0 {
		return 0.0
	}
	var state any
	if err := json.Unmarshal(finalState, &state); err != nil {
		return 0.0
	}
	for _, a := range assertions {
		got, err := lookupPath(state, a.Path)
		if err != nil {
			return 0.0
		}
		if !reflect.DeepEqual(canonical(got), canonical(a.Equals)) {
			return 0.0
		}
	}
	return 1.0
}

// lookupPath resolves a dotted path (e.g. "reservations.K7GH2P.cabin")
// through nested JSON objects.
func lookupPath(state any, path string) (any, error) {
	cur := state
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("path %s: %q is not an object", path, part)
		}
		cur, ok = obj[part]
		if !ok {
			return nil, fmt.Errorf("path %s: key %q not found", path, part)
		}
	}
	return cur, nil
}

// communication checks that every required information item appears in the
// agent's natural-language messages. Matching is case-insensitive exact
// containment, not semantic similarity.
func communication(transcript []models.Message, required []string) float64 {
	var b strings.Builder
	for _, m := range transcript {
		if m.Role == models.RoleAgent && m.Content != "" {
			b.WriteString(strings.ToLower(m.Content))
			b.WriteString("\n")
		}
	}
	said := b.String()
	for _, item := range required {
		if !strings.Contains(said, strings.ToLower(item)) {
			return 0.0
		}
	}
	return 1.0
}

// combine folds the computed sub-scores into the trial reward using the
// task's composition expression. With no expression, every computed
// sub-score must pass (product).
func combine(r models.Reward, expr *models.RewardExpr) float64 {
	score := func(c models.RewardComponent) *float64 {
		switch c {
		case models.ComponentActionMatch:
			return r.ActionMatch
		case models.ComponentStateAssertion:
			return r.StateAssertion
		case models.ComponentCommunication:
			return r.Communication
		}
		return nil
	}

	if expr == nil {
		v := 1.0
		for _, s := range []*float64{r.ActionMatch, r.StateAssertion, r.Communication} {
			if s != nil {
				v *= *s
			}
		}
		return v
	}

	switch expr.Op {
	case models.OpWeightedSum:
		var sum, weights float64
		for _, term := range expr.Terms {
			s := score(term.Component)
			if s == nil {
				continue
			}
			w := term.Weight
			if w == 0 {
				w = 1.0
			}
			sum += w * *s
			weights += w
		}
		if weights == 0 {
			return 0.0
		}
		return sum / weights
	default: // OpAllOf
		v := 1.0
		for _, term := range expr.Terms {
			if s := score(term.Component); s != nil {
				v *= *s
			}
		}
		return v
	}
}
