package actor

import (
	"context"

	"github.com/spachava753/convobench/internal/models"
)

// Scripted replays a fixed sequence of turn outcomes. It derives its
// position from the transcript (the count of its own messages so far), so a
// single instance can be reused across trials and retried after failures.
type Scripted struct {
	// Role is the transcript role this actor plays.
	Role models.Role

	// Steps are replayed in order, one per own-role message already in
	// the transcript.
	Steps []TurnOutcome

	// Exhausted is returned once Steps run out. The zero value continues
	// the conversation with an empty message; set a terminal signal to
	// end it.
	Exhausted TurnOutcome
}

// ProduceTurn replays the step at the current position.
func (s *Scripted) ProduceTurn(_ context.Context, transcript []models.Message) (TurnOutcome, error) {
	idx := countRole(transcript, s.Role)
	if idx >= len(s.Steps) {
		return s.Exhausted, nil
	}
	return s.Steps[idx], nil
}
