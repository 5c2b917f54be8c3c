// Package inferencetest provides a scripted inference.Backend for tests.
package inferencetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/akwn2/dnd-ai-tutorial/internal/inference"
	"github.com/akwn2/dnd-ai-tutorial/internal/model"
)

// Step produces the response for one Generate call.
type Step func(req inference.Request) (*inference.Response, error)

// Backend replays Steps in order and records every request.
// When the script is exhausted the Fallback step is used, if set.
type Backend struct {
	mu       sync.Mutex
	steps    []Step
	Fallback Step
	Requests []inference.Request
}

// NewBackend creates a Backend with the given script.
func NewBackend(steps ...Step) *Backend {
	return &Backend{steps: steps}
}

func (b *Backend) Generate(ctx context.Context, req inference.Request) (*inference.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.Requests = append(b.Requests, req)
	var step Step
	if len(b.steps) > 0 {
		step, b.steps = b.steps[0], b.steps[1:]
	} else {
		step = b.Fallback
	}
	b.mu.Unlock()

	if step == nil {
		return nil, &inference.BackendUnavailableError{Op: "generate content", Err: fmt.Errorf("script exhausted")}
	}
	return step(req)
}

// CallCount returns the number of Generate calls so far.
func (b *Backend) CallCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Requests)
}

// Text answers with a single text part.
func Text(text string) Step {
	return func(inference.Request) (*inference.Response, error) {
		return &inference.Response{Parts: []model.Part{model.TextPart(text)}}, nil
	}
}

// Calls answers with one tool-call part per call.
func Calls(calls ...model.ToolCall) Step {
	return func(inference.Request) (*inference.Response, error) {
		parts := make([]model.Part, 0, len(calls))
		for i := range calls {
			call := calls[i]
			parts = append(parts, model.Part{ToolCall: &call})
		}
		return &inference.Response{Parts: parts}, nil
	}
}

// Fail answers with err.
func Fail(err error) Step {
	return func(inference.Request) (*inference.Response, error) {
		return nil, err
	}
}

// Unavailable answers with a BackendUnavailableError.
func Unavailable() Step {
	return Fail(&inference.BackendUnavailableError{Op: "generate content", Err: fmt.Errorf("connection refused")})
}
