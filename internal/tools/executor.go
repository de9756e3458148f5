// Package tools executes tool calls against domain state. It is the only
// path by which domain state may change.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spachava753/convobench/internal/domain"
	"github.com/spachava753/convobench/internal/models"
)

// Executor validates and applies tool calls. Its tool table is immutable
// after construction and safe to share across concurrent trials; all mutable
// state lives in the domain.State passed to Execute.
type Executor struct {
	tools map[string]domain.Tool
}

// NewExecutor creates an executor over the given tool set.
func NewExecutor(ts []domain.Tool) *Executor {
	m := make(map[string]domain.Tool, len(ts))
	for _, t := range ts {
		m[t.Name] = t
	}
	return &Executor{tools: m}
}

// Lookup returns the named tool.
func (e *Executor) Lookup(name string) (domain.Tool, bool) {
	t, ok := e.tools[name]
	return t, ok
}

// MutatingTools returns the set of tool names with side effects.
func (e *Executor) MutatingTools() map[string]bool {
	m := make(map[string]bool)
	for name, t := range e.tools {
		if t.Mutating {
			m[name] = true
		}
	}
	return m
}

// Execute runs a single tool call against st. It never returns an error:
// every failure mode is converted to a typed ToolResult failure so the agent
// can react to it. Arguments are schema-validated before the handler runs,
// so an invalid call never touches state.
func (e *Executor) Execute(ctx context.Context, st domain.State, call models.ToolCall) (result models.ToolResult) {
	result = models.ToolResult{CallID: call.ID, Name: call.Name}

	defer func() {
		if r := recover(); r != nil {
			result.Content = nil
			result.Failure = &models.ToolFailure{
				Type:    models.FailInternalError,
				Message: fmt.Sprintf("tool %s panicked: %v", call.Name, r),
			}
		}
	}()

	tool, ok := e.tools[call.Name]
	if !ok {
		result.Failure = &models.ToolFailure{
			Type:    models.FailNotFound,
			Message: fmt.Sprintf("no such tool: %s", call.Name),
		}
		return result
	}

	args, err := normalizeArguments(call.Arguments)
	if err != nil {
		result.Failure = &models.ToolFailure{
			Type:    models.FailInvalidArguments,
			Message: err.Error(),
		}
		return result
	}

	if tool.Parameters != nil {
		if err := tool.Parameters.VisitJSON(args); err != nil {
			result.Failure = &models.ToolFailure{
				Type:    models.FailInvalidArguments,
				Message: err.Error(),
			}
			return result
		}
	}

	payload, err := tool.Handler(ctx, st, args)
	if err != nil {
		result.Failure = &models.ToolFailure{
			Type:    failureType(err),
			Message: err.Error(),
		}
		return result
	}

	content, err := json.Marshal(payload)
	if err != nil {
		result.Failure = &models.ToolFailure{
			Type:    models.FailInternalError,
			Message: fmt.Sprintf("encoding tool payload: %s", err),
		}
		return result
	}

	result.Content = content
	return result
}

// failureType maps handler errors onto the failure taxonomy.
func failureType(err error) models.FailureType {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return models.FailNotFound
	case errors.Is(err, domain.ErrPrecondition):
		return models.FailPreconditionViolated
	case errors.Is(err, domain.ErrInvalidArguments):
		return models.FailInvalidArguments
	default:
		return models.FailInternalError
	}
}

// normalizeArguments round-trips arguments through JSON so that schema
// validation and ground-truth comparison see canonical types (float64
// numbers, map[string]any objects) regardless of how the call was built.
func normalizeArguments(args map[string]any) (map[string]any, error) {
	if args == nil {
		return map[string]any{}, nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("encoding arguments: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decoding arguments: %w", err)
	}
	return out, nil
}
