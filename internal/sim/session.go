// Package sim drives one conversation among an agent actor, a user actor,
// and the tool executor to a terminal state.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spachava753/convobench/internal/actor"
	"github.com/spachava753/convobench/internal/domain"
	"github.com/spachava753/convobench/internal/models"
	"github.com/spachava753/convobench/internal/tools"
)

// phase is the orchestration state. terminated is represented by returning
// from Run with a reason rather than by a phase value, so it is absorbing by
// construction.
type phase int

const (
	phaseUser phase = iota
	phaseAgent
	phaseTools
)

// Session runs a single trial's conversation loop. It owns its State for the
// duration of the run; nothing else may touch it. Actors and the executor
// are shared, read-only collaborators.
type Session struct {
	Agent    actor.Actor
	User     actor.Actor
	Executor *tools.Executor
	State    domain.State

	// MaxSteps bounds the total number of turns, where a turn is one
	// actor invocation or one tool-execution batch.
	MaxSteps int

	// MaxErrors bounds consecutive failures (actor invocation failures
	// and failed tool results). Any fully successful turn resets the
	// counter.
	MaxErrors int

	// ActorTimeout and ToolTimeout bound individual calls. Zero means
	// no per-call deadline.
	ActorTimeout time.Duration
	ToolTimeout  time.Duration
}

// Result is a completed conversation.
type Result struct {
	Transcript []models.Message
	Reason     models.TerminationReason
}

// Run executes the turn loop until a terminal state. The transcript is
// append-only and totally ordered: messages are appended in exactly
// turn-execution order and never revised. Run only fails on a nil
// collaborator; conversational failures terminate with a reason instead.
func (s *Session) Run(ctx context.Context) (Result, error) {
	if s.Agent == nil || s.User == nil || s.Executor == nil {
		return Result{}, fmt.Errorf("session requires agent, user, and executor")
	}

	var transcript []models.Message
	appendMsg := func(m models.Message) {
		m.Ordinal = len(transcript)
		transcript = append(transcript, m)
	}

	steps := 0
	consecErrors := 0
	var pending []models.ToolCall

	// The user opens the conversation.
	state := phaseUser

	for {
		if ctx.Err() != nil {
			return Result{Transcript: transcript, Reason: models.TermTimeout}, nil
		}

		switch state {
		case phaseUser:
			out, err := s.invokeActor(ctx, s.User, transcript)
			steps++
			if err != nil {
				if ctx.Err() != nil {
					return Result{Transcript: transcript, Reason: models.TermTimeout}, nil
				}
				consecErrors++
				appendMsg(models.Message{
					Role:    models.RoleSystem,
					Content: fmt.Sprintf("user actor failure: %s", err),
				})
				break
			}
			consecErrors = 0
			appendMsg(models.Message{Role: models.RoleUser, Content: out.Content})
			if out.Signal == actor.SignalUserDone {
				return Result{Transcript: transcript, Reason: models.TermUserEnd}, nil
			}
			state = phaseAgent

		case phaseAgent:
			out, err := s.invokeActor(ctx, s.Agent, transcript)
			steps++
			if err != nil {
				if ctx.Err() != nil {
					return Result{Transcript: transcript, Reason: models.TermTimeout}, nil
				}
				consecErrors++
				appendMsg(models.Message{
					Role:    models.RoleSystem,
					Content: fmt.Sprintf("agent actor failure: %s", err),
				})
				break
			}
			consecErrors = 0
			appendMsg(models.Message{
				Role:      models.RoleAgent,
				Content:   out.Content,
				ToolCalls: out.ToolCalls,
			})
			if out.Signal == actor.SignalTransfer {
				return Result{Transcript: transcript, Reason: models.TermAgentTransfer}, nil
			}
			if len(out.ToolCalls) > 0 {
				pending = out.ToolCalls
				state = phaseTools
			} else {
				state = phaseUser
			}

		case phaseTools:
			// One batch is one step. Calls execute serially in
			// request order; every result lands in the transcript.
			failed := 0
			for _, call := range pending {
				res := s.executeTool(ctx, call)
				if !res.OK() {
					failed++
					slog.Debug("tool call failed",
						"tool", call.Name,
						"failure", res.Failure.Type)
				}
				appendMsg(models.ToolResultMessage(res))
			}
			pending = nil
			steps++
			if failed > 0 {
				consecErrors += failed
			} else {
				consecErrors = 0
			}
			// The agent reacts to the results.
			state = phaseAgent
		}

		if s.MaxErrors > 0 && consecErrors >= s.MaxErrors {
			return Result{Transcript: transcript, Reason: models.TermAborted}, nil
		}
		if s.MaxSteps > 0 && steps >= s.MaxSteps {
			return Result{Transcript: transcript, Reason: models.TermMaxSteps}, nil
		}
	}
}

// invokeActor runs one actor turn under the per-call deadline.
func (s *Session) invokeActor(ctx context.Context, a actor.Actor, transcript []models.Message) (actor.TurnOutcome, error) {
	if s.ActorTimeout > 0 {
		callCtx, cancel := context.WithTimeout(ctx, s.ActorTimeout)
		defer cancel()
		ctx = callCtx
	}
	return a.ProduceTurn(ctx, transcript)
}

// executeTool runs one tool call under the per-call deadline.
func (s *Session) executeTool(ctx context.Context, call models.ToolCall) models.ToolResult {
	if s.ToolTimeout > 0 {
		callCtx, cancel := context.WithTimeout(ctx, s.ToolTimeout)
		defer cancel()
		ctx = callCtx
	}
	return s.Executor.Execute(ctx, s.State, call)
}
