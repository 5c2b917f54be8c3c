package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/akwn2/dnd-ai-tutorial/internal/capability"
	"github.com/akwn2/dnd-ai-tutorial/internal/inference"
	"github.com/akwn2/dnd-ai-tutorial/internal/model"
)

// Strategy decides how a function is executed by the loop.
type Strategy int

const (
	// Direct runs the function on the loop's goroutine. For handlers that block on I/O.
	Direct Strategy = iota
	// Offloaded runs the function on its own goroutine. For synchronous CPU-bound handlers.
	Offloaded
)

type FunctionDeclaration struct {
	Name             string
	Description      string
	ParametersSchema any
	ResponseSchema   any
	Strategy         Strategy
	FunctionCall     FunctionCallFn
}

// FunctionCallFn implements a tool. A result that is not a JSON object is wrapped as {"output": result}.
type FunctionCallFn func(ctx context.Context, args map[string]any) (any, error)

type outcome struct {
	value any
	err   error
}

// execute runs one tool call and always produces a response payload.
// Handlers run detached from ctx cancellation so a dispatched call completes.
func (a *Agent) execute(ctx context.Context, call model.ToolCall, logger *slog.Logger) map[string]any {
	logger = logger.With("tool", call.Name)

	fd, exists := a.functionsMap[call.Name]
	if !exists {
		logger.Warn("model called an unknown tool")
		return errorResponse(fmt.Errorf("function %s not found", call.Name))
	}

	args := call.Args
	if args == nil {
		args = map[string]any{}
	}
	toolCtx := context.WithoutCancel(ctx)

	var out outcome
	switch fd.Strategy {
	case Offloaded:
		done := make(chan outcome, 1)
		go func() {
			done <- invoke(toolCtx, fd.FunctionCall, args)
		}()
		select {
		case out = <-done:
		case <-ctx.Done():
			return errorResponse(ctx.Err())
		}
	default:
		out = invoke(toolCtx, fd.FunctionCall, args)
	}

	if out.err != nil {
		logger.Warn("tool failed", "error", out.err)
		return errorResponse(out.err)
	}

	response, err := normalizeOutput(out.value)
	if err != nil {
		logger.Warn("tool output not serializable", "error", err)
		return errorResponse(err)
	}
	return response
}

func invoke(ctx context.Context, fn FunctionCallFn, args map[string]any) (out outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = outcome{err: fmt.Errorf("panic: %v", r)}
		}
	}()
	value, err := fn(ctx, args)
	return outcome{value: value, err: err}
}

// normalizeOutput turns a handler result into the JSON object a tool result must be.
func normalizeOutput(v any) (map[string]any, error) {
	if m, ok := v.(map[string]any); ok {
		return m, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, err
	}
	if m, ok := decoded.(map[string]any); ok {
		return m, nil
	}
	return map[string]any{"output": decoded}, nil
}

// errorResponse is the structured payload of a failed tool call, relayed to the model.
func errorResponse(err error) map[string]any {
	var (
		inputErr    *capability.UserInputError
		parseErr    *capability.GenerationParseError
		unavailable *inference.BackendUnavailableError
	)
	switch {
	case errors.As(err, &inputErr):
		return map[string]any{"error": inputErr.Message}
	case errors.As(err, &parseErr):
		return map[string]any{
			"error": parseErr.Error(),
			"raw":   parseErr.Raw,
		}
	case errors.As(err, &unavailable):
		return map[string]any{"error": "the service behind this tool is temporarily unavailable"}
	default:
		return map[string]any{"error": err.Error()}
	}
}
