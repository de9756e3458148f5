// Package actor defines the turn-producer contract shared by the agent and
// user sides of a simulated conversation.
package actor

import (
	"context"

	"github.com/spachava753/convobench/internal/models"
)

// Signal is an actor's terminal marker.
type Signal string

const (
	// SignalNone means the conversation continues.
	SignalNone Signal = ""
	// SignalUserDone means the user is satisfied or has given up.
	SignalUserDone Signal = "user_done"
	// SignalTransfer means the agent is handing off to a human.
	SignalTransfer Signal = "transfer"
)

// TurnOutcome is one actor contribution: a natural-language message, one or
// more tool calls, or a terminal signal (optionally with final content).
type TurnOutcome struct {
	Content   string
	ToolCalls []models.ToolCall
	Signal    Signal
}

// Actor produces the next contribution given the conversation so far.
//
// Implementations must be stateless across trials: all conversational memory
// lives in the transcript, so one Actor instance may serve many concurrent
// trials. Blocking work must respect ctx; a deadline hit is reported as an
// error and counted against the trial's error budget by the caller.
type Actor interface {
	ProduceTurn(ctx context.Context, transcript []models.Message) (TurnOutcome, error)
}

// countRole returns how many transcript messages carry the given role. It is
// how stateless actors recover their own turn index.
func countRole(transcript []models.Message, role models.Role) int {
	n := 0
	for _, m := range transcript {
		if m.Role == role {
			n++
		}
	}
	return n
}
