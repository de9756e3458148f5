package tools_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/spachava753/convobench/internal/domain"
	"github.com/spachava753/convobench/internal/models"
	"github.com/spachava753/convobench/internal/tools"
)

// counter is a minimal domain state for executor tests.
type counter struct {
	n int
}

func (c *counter) Snapshot() (json.RawMessage, error) {
	return json.Marshal(map[string]int{"n": c.n})
}

func testTools() []domain.Tool {
	incrSchema := openapi3.NewObjectSchema().
		WithProperty("by", openapi3.NewIntegerSchema().WithMin(1))
	incrSchema.Required = []string{"by"}

	return []domain.Tool{
		{
			Name:       "incr",
			Mutating:   true,
			Parameters: incrSchema,
			Handler: func(_ context.Context, st domain.State, args map[string]any) (any, error) {
				c := st.(*counter)
				by := int(args["by"].(float64))
				if c.n+by > 10 {
					return nil, fmt.Errorf("%w: counter capped at 10", domain.ErrPrecondition)
				}
				c.n += by
				return map[string]int{"n": c.n}, nil
			},
		},
		{
			Name: "peek",
			Handler: func(_ context.Context, st domain.State, _ map[string]any) (any, error) {
				return map[string]int{"n": st.(*counter).n}, nil
			},
		},
		{
			Name: "explode",
			Handler: func(_ context.Context, _ domain.State, _ map[string]any) (any, error) {
				panic("boom")
			},
		},
	}
}

func TestExecuteSuccess(t *testing.T) {
	exec := tools.NewExecutor(testTools())
	st := &counter{}

	res := exec.Execute(context.Background(), st, models.ToolCall{
		ID:        "call_0",
		Name:      "incr",
		Arguments: map[string]any{"by": 3},
	})

	if !res.OK() {
		t.Fatalf("expected success, got failure: %+v", res.Failure)
	}
	if res.CallID != "call_0" || res.Name != "incr" {
		t.Errorf("result identity mismatch: %+v", res)
	}
	if st.n != 3 {
		t.Errorf("expected counter 3, got %d", st.n)
	}

	var payload map[string]int
	if err := json.Unmarshal(res.Content, &payload); err != nil {
		t.Fatalf("decoding result content: %v", err)
	}
	if payload["n"] != 3 {
		t.Errorf("expected payload n=3, got %d", payload["n"])
	}
}

func TestExecuteUnknownTool(t *testing.T) {
	exec := tools.NewExecutor(testTools())

	res := exec.Execute(context.Background(), &counter{}, models.ToolCall{ID: "c", Name: "nope"})
	if res.OK() {
		t.Fatal("expected failure for unknown tool")
	}
	if res.Failure.Type != models.FailNotFound {
		t.Errorf("expected not_found, got %s", res.Failure.Type)
	}
}

func TestExecuteSchemaValidation(t *testing.T) {
	exec := tools.NewExecutor(testTools())
	st := &counter{n: 5}

	cases := []struct {
		name string
		args map[string]any
	}{
		{"missing required", map[string]any{}},
		{"wrong type", map[string]any{"by": "three"}},
		{"below minimum", map[string]any{"by": 0}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := exec.Execute(context.Background(), st, models.ToolCall{
				ID:        "c",
				Name:      "incr",
				Arguments: tc.args,
			})
			if res.OK() {
				t.Fatal("expected validation failure")
			}
			if res.Failure.Type != models.FailInvalidArguments {
				t.Errorf("expected invalid_arguments, got %s", res.Failure.Type)
			}
			if st.n != 5 {
				t.Errorf("state mutated by invalid call: n=%d", st.n)
			}
		})
	}
}

func TestExecutePreconditionLeavesStateUntouched(t *testing.T) {
	exec := tools.NewExecutor(testTools())
	st := &counter{n: 9}

	res := exec.Execute(context.Background(), st, models.ToolCall{
		ID:        "c",
		Name:      "incr",
		Arguments: map[string]any{"by": 5},
	})

	if res.OK() {
		t.Fatal("expected precondition failure")
	}
	if res.Failure.Type != models.FailPreconditionViolated {
		t.Errorf("expected precondition_violated, got %s", res.Failure.Type)
	}
	if st.n != 9 {
		t.Errorf("state mutated by rejected call: n=%d", st.n)
	}
}

func TestExecuteRecoversPanic(t *testing.T) {
	exec := tools.NewExecutor(testTools())

	res := exec.Execute(context.Background(), &counter{}, models.ToolCall{ID: "c", Name: "explode"})
	if res.OK() {
		t.Fatal("expected failure from panicking tool")
	}
	if res.Failure.Type != models.FailInternalError {
		t.Errorf("expected internal_error, got %s", res.Failure.Type)
	}
	if res.Content != nil {
		t.Errorf("failed result must not carry content")
	}
}

func TestMutatingTools(t *testing.T) {
	exec := tools.NewExecutor(testTools())

	m := exec.MutatingTools()
	if !m["incr"] {
		t.Error("incr should be mutating")
	}
	if m["peek"] || m["explode"] {
		t.Errorf("unexpected mutating tools: %v", m)
	}
}
