package actor_test

import (
	"context"
	"strings"
	"testing"

	"github.com/spachava753/convobench/internal/actor"
	"github.com/spachava753/convobench/internal/models"
)

func TestScriptedDerivesPositionFromTranscript(t *testing.T) {
	s := &actor.Scripted{
		Role: models.RoleUser,
		Steps: []actor.TurnOutcome{
			{Content: "first"},
			{Content: "second"},
		},
		Exhausted: actor.TurnOutcome{Signal: actor.SignalUserDone},
	}

	ctx := context.Background()

	out, err := s.ProduceTurn(ctx, nil)
	if err != nil {
		t.Fatalf("ProduceTurn failed: %v", err)
	}
	if out.Content != "first" {
		t.Errorf("expected first step, got %q", out.Content)
	}

	// Only own-role messages advance the position.
	transcript := []models.Message{
		{Role: models.RoleUser, Content: "first"},
		{Role: models.RoleAgent, Content: "reply"},
		{Role: models.RoleTool},
	}
	out, _ = s.ProduceTurn(ctx, transcript)
	if out.Content != "second" {
		t.Errorf("expected second step, got %q", out.Content)
	}

	transcript = append(transcript, models.Message{Role: models.RoleUser, Content: "second"})
	out, _ = s.ProduceTurn(ctx, transcript)
	if out.Signal != actor.SignalUserDone {
		t.Errorf("expected exhausted signal, got %q", out.Signal)
	}

	// Re-asking for the same position returns the same step, so a failed
	// turn can be retried without drift.
	again, _ := s.ProduceTurn(ctx, transcript[:1])
	if again.Content != "second" {
		t.Errorf("expected replay of second step, got %q", again.Content)
	}
}

func TestOracleAgentReplaysActions(t *testing.T) {
	task := models.Task{
		ID: "t",
		Criteria: &models.EvaluationCriteria{
			Actions: []models.Action{
				{Name: "cancel_reservation", Arguments: map[string]any{"reservation_id": "EHGLP3"}},
				{Name: "send_certificate", Arguments: map[string]any{"user_id": "u", "amount": 50}},
			},
			CommunicateInfo: []string{"refund", "certificate"},
		},
	}
	agent := &actor.OracleAgent{Task: task}
	ctx := context.Background()

	out, err := agent.ProduceTurn(ctx, nil)
	if err != nil {
		t.Fatalf("ProduceTurn failed: %v", err)
	}
	if len(out.ToolCalls) != 1 || out.ToolCalls[0].Name != "cancel_reservation" {
		t.Fatalf("expected first action, got %+v", out.ToolCalls)
	}

	transcript := []models.Message{
		{Role: models.RoleAgent, ToolCalls: out.ToolCalls},
		{Role: models.RoleTool},
	}
	out, _ = agent.ProduceTurn(ctx, transcript)
	if len(out.ToolCalls) != 1 || out.ToolCalls[0].Name != "send_certificate" {
		t.Fatalf("expected second action, got %+v", out.ToolCalls)
	}

	transcript = append(transcript,
		models.Message{Role: models.RoleAgent, ToolCalls: out.ToolCalls},
		models.Message{Role: models.RoleTool})
	out, _ = agent.ProduceTurn(ctx, transcript)
	if len(out.ToolCalls) != 0 {
		t.Fatalf("expected closing message, got calls %+v", out.ToolCalls)
	}
	for _, item := range task.Criteria.CommunicateInfo {
		if !strings.Contains(out.Content, item) {
			t.Errorf("closing message missing %q: %q", item, out.Content)
		}
	}
}

func TestOracleUser(t *testing.T) {
	task := models.Task{ID: "t", Instructions: "You want to cancel reservation EHGLP3."}
	user := &actor.OracleUser{Task: task}
	ctx := context.Background()

	out, err := user.ProduceTurn(ctx, nil)
	if err != nil {
		t.Fatalf("ProduceTurn failed: %v", err)
	}
	if out.Content != task.Instructions {
		t.Errorf("expected instructions as opener, got %q", out.Content)
	}
	if out.Signal != actor.SignalNone {
		t.Errorf("opener must not end the conversation")
	}

	transcript := []models.Message{
		{Role: models.RoleUser, Content: out.Content},
		{Role: models.RoleAgent, Content: "Done."},
	}
	out, _ = user.ProduceTurn(ctx, transcript)
	if out.Signal != actor.SignalUserDone {
		t.Errorf("expected user_done after agent reply, got %q", out.Signal)
	}
}
