// Package router classifies requests into a single capability and serves the
// single-shot, classify-then-dispatch conversation variant.
package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/akwn2/dnd-ai-tutorial/internal/inference"
	"github.com/akwn2/dnd-ai-tutorial/internal/model"
)

const routingInstruction = `You route requests for a tabletop RPG Game Master assistant.
Choose the single capability that best serves the request:
- character_generator: create a non-player character
- encounter_generator: build a combat encounter
- dice_resolver: roll dice given in notation such as 2d6 or 1d20+3
- lore_keeper: answer a question about the campaign world and its lore
- general_response: anything else
If the request asks for several things, choose the primary one.`

// ClassificationError reports that the backend failed to pick a valid route.
// Label holds the out-of-enum answer, if any.
type ClassificationError struct {
	Label string
	Err   error
}

func (e *ClassificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("router: classify: %v", e.Err)
	}
	return fmt.Sprintf("router: classify: unknown route %q", e.Label)
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}

// Router picks the capability for a request.
type Router struct {
	backend inference.Backend
}

func New(backend inference.Backend) *Router {
	return &Router{backend: backend}
}

// Classify returns the route for text. On failure it returns RouteGeneralResponse
// together with a *ClassificationError, so the result is always a valid route.
func (r *Router) Classify(ctx context.Context, text string) (model.Route, error) {
	labels := make([]string, 0, len(model.Routes()))
	for _, route := range model.Routes() {
		labels = append(labels, route.String())
	}

	resp, err := r.backend.Generate(ctx, inference.Request{
		System:      routingInstruction,
		Messages:    []model.Message{model.NewTextMessage(model.RoleUser, text)},
		Enum:        labels,
		Temperature: inference.Float32(0),
	})
	if err != nil {
		return model.RouteGeneralResponse, &ClassificationError{Err: err}
	}

	label := strings.Trim(strings.ToLower(strings.TrimSpace(resp.Text())), `"'`)
	route := model.Route(label)
	if !route.Valid() {
		return model.RouteGeneralResponse, &ClassificationError{Label: label}
	}
	return route, nil
}
