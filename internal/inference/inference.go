// Package inference defines the boundary to the language-model backend.
package inference

import (
	"context"
	"errors"
	"fmt"

	"github.com/akwn2/dnd-ai-tutorial/internal/model"
)

// UnavailableMessage is the degraded-service reply shown when the backend cannot answer.
const UnavailableMessage = "The assistant is temporarily unavailable. Please try again in a moment."

// ErrEmptyResponse is reported when the backend returns neither text nor tool calls.
var ErrEmptyResponse = errors.New("backend returned an empty response")

// ToolSpec declares a tool the model may call.
type ToolSpec struct {
	Name        string
	Description string
	// Parameters is a JSON-schema document describing the call arguments.
	Parameters any
	// Response optionally describes the tool result.
	Response any
}

// Request is a single round trip to the backend.
type Request struct {
	System   string
	Messages []model.Message
	Tools    []ToolSpec

	// JSONSchema constrains the answer to a JSON document matching the schema.
	JSONSchema any
	// Enum constrains the answer to exactly one of the labels.
	Enum []string

	Temperature *float32
}

// Response holds the text and tool-call parts produced by the model, in order.
type Response struct {
	Parts []model.Part
}

// Text concatenates the text parts of the response.
func (r *Response) Text() string {
	return model.Message{Parts: r.Parts}.Text()
}

// ToolCalls returns the tool calls requested by the model.
func (r *Response) ToolCalls() []model.ToolCall {
	return model.Message{Parts: r.Parts}.ToolCalls()
}

// Backend generates model output for a request.
type Backend interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// BackendUnavailableError reports that the inference or retrieval backend could not serve a call.
type BackendUnavailableError struct {
	Op  string
	Err error
}

func (e *BackendUnavailableError) Error() string {
	return fmt.Sprintf("backend unavailable: %s: %v", e.Op, e.Err)
}

func (e *BackendUnavailableError) Unwrap() error {
	return e.Err
}

// IsUnavailable reports whether err is, or wraps, a BackendUnavailableError.
func IsUnavailable(err error) bool {
	var target *BackendUnavailableError
	return errors.As(err, &target)
}

// Float32 returns a pointer to v, for Request.Temperature.
func Float32(v float32) *float32 {
	return &v
}
