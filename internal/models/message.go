package models

import "encoding/json"

// Role identifies the author of a transcript message.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
	RoleAgent  Role = "agent"
	RoleTool   Role = "tool"
)

// Message is one entry in a trial transcript. The transcript is append-only:
// once a message is appended it is never mutated or reordered.
type Message struct {
	// Ordinal is the zero-based position of this message in the transcript.
	Ordinal    int         `json:"ordinal"`
	Role       Role        `json:"role"`
	Content    string      `json:"content,omitempty"`
	ToolCalls  []ToolCall  `json:"tool_calls,omitempty"`
	ToolResult *ToolResult `json:"tool_result,omitempty"`
}

// ToolCall is a request by the agent to invoke a named tool.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// FailureType categorizes a failed tool execution.
type FailureType string

const (
	FailInvalidArguments     FailureType = "invalid_arguments"
	FailPreconditionViolated FailureType = "precondition_violated"
	FailNotFound             FailureType = "not_found"
	FailInternalError        FailureType = "internal_error"
)

// ToolResult is the outcome of executing one tool call. Either Content is set
// (success) or Failure is set, never both.
type ToolResult struct {
	CallID  string          `json:"call_id"`
	Name    string          `json:"name"`
	Content json.RawMessage `json:"content,omitempty"`
	Failure *ToolFailure    `json:"failure,omitempty"`
}

// ToolFailure describes why a tool call did not apply.
type ToolFailure struct {
	Type    FailureType `json:"type"`
	Message string      `json:"message"`
}

// OK reports whether the tool call succeeded.
func (r ToolResult) OK() bool {
	return r.Failure == nil
}

// ToolResultMessage converts a tool result to a transcript message.
func ToolResultMessage(result ToolResult) Message {
	return Message{
		Role:       RoleTool,
		ToolResult: &result,
	}
}
