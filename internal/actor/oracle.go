package actor

import (
	"context"
	"fmt"
	"strings"

	"github.com/spachava753/convobench/internal/models"
)

// OracleAgent plays a perfect agent for one task: it issues the task's
// ground-truth actions one call per turn, then closes with a message
// containing every required information item. Useful for validating domains
// and as a live stand-in when no model backend is wired.
type OracleAgent struct {
	Task models.Task
}

// ProduceTurn emits the next unissued ground-truth action, or the closing
// message once all actions are done.
func (o *OracleAgent) ProduceTurn(_ context.Context, transcript []models.Message) (TurnOutcome, error) {
	var actions []models.Action
	var info []string
	if o.Task.Criteria != nil {
		actions = o.Task.Criteria.Actions
		info = o.Task.Criteria.CommunicateInfo
	}

	// Position = number of agent tool-call turns already taken.
	issued := 0
	for _, m := range transcript {
		if m.Role == models.RoleAgent && len(m.ToolCalls) > 0 {
			issued++
		}
	}

	if issued < len(actions) {
		a := actions[issued]
		return TurnOutcome{
			ToolCalls: []models.ToolCall{{
				ID:        fmt.Sprintf("call_%d", issued),
				Name:      a.Name,
				Arguments: a.Arguments,
			}},
		}, nil
	}

	content := "All done."
	if len(info) > 0 {
		content = "To confirm: " + strings.Join(info, "; ") + "."
	}
	return TurnOutcome{Content: content}, nil
}

// OracleUser opens with the task instructions and ends the conversation as
// soon as the agent replies with a plain message.
type OracleUser struct {
	Task models.Task
}

// ProduceTurn states the goal on the first turn and signals completion after.
func (o *OracleUser) ProduceTurn(_ context.Context, transcript []models.Message) (TurnOutcome, error) {
	if countRole(transcript, models.RoleUser) == 0 {
		return TurnOutcome{Content: o.Task.Instructions}, nil
	}
	return TurnOutcome{Content: "Thanks, that is everything.", Signal: SignalUserDone}, nil
}
