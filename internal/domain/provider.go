package domain

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/spachava753/convobench/internal/models"
)

// Sentinel errors tool handlers wrap to signal typed failures. The tool
// executor maps them onto ToolResult failure types.
var (
	// ErrNotFound means a referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrPrecondition means a domain policy precondition is unmet; the
	// handler must not have mutated state.
	ErrPrecondition = errors.New("precondition violated")
	// ErrInvalidArguments means arguments passed schema validation but are
	// semantically malformed (e.g. an unknown enum value).
	ErrInvalidArguments = errors.New("invalid arguments")
)

// State is the mutable backing store a trial operates over. A State instance
// is owned exclusively by one trial for its entire lifetime and is mutated
// only through successful mutating tool calls.
type State interface {
	// Snapshot serializes the current state deterministically, for the
	// evaluator's assertions and the trial record.
	Snapshot() (json.RawMessage, error)
}

// Tool is a schema-validated callable operation over domain state.
type Tool struct {
	Name        string
	Description string

	// Mutating marks tools with side effects. Query tools must not
	// modify state.
	Mutating bool

	// Parameters is the argument schema validated before the handler runs.
	Parameters *openapi3.Schema

	// Handler applies the call. It must either fully apply or, on error,
	// leave state untouched.
	Handler func(ctx context.Context, st State, args map[string]any) (any, error)
}

// Provider supplies everything needed to run tasks in one domain: fresh
// state per trial, the task set, the callable tools, and the policy text.
// Date-shifted domain variants are just additional providers registered
// under their own names.
type Provider interface {
	Name() string

	// NewState constructs a fresh domain state from the seed data.
	// Each trial gets its own instance; no state leaks across trials.
	NewState(ctx context.Context) (State, error)

	Tasks() []models.Task
	Tools() []Tool

	// Policy returns the domain's natural-language rulebook.
	Policy() string
}
