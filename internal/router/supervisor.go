package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/akwn2/dnd-ai-tutorial/internal/capability"
	"github.com/akwn2/dnd-ai-tutorial/internal/history"
	"github.com/akwn2/dnd-ai-tutorial/internal/inference"
	"github.com/akwn2/dnd-ai-tutorial/internal/model"
	"github.com/akwn2/dnd-ai-tutorial/internal/repository"
)

const (
	generalResponsePrefix = "I don't have the skill to answer that question yet, but without that extra information, I would answer it like this:\n\n"
	noDiceNotation        = "I couldn't find a valid dice notation. Please use a format like '2d6' or '1d20+3'."
)

// Handlers are the capabilities the Supervisor dispatches to.
type Handlers struct {
	Characters *capability.CharacterGenerator
	Encounters *capability.EncounterGenerator
	Dice       *capability.DiceResolver
	Lore       *capability.LoreKeeper
}

// Supervisor answers each request with exactly one capability chosen by the Router.
// Transcripts use the human and ai roles.
type Supervisor struct {
	router   *Router
	backend  inference.Backend
	store    repository.TranscriptStore
	handlers Handlers
	logger   *slog.Logger
}

func NewSupervisor(router *Router, backend inference.Backend, store repository.TranscriptStore, handlers Handlers, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		router:   router,
		backend:  backend,
		store:    store,
		handlers: handlers,
		logger:   logger,
	}
}

// Send runs one user turn and returns the persisted human and ai messages.
func (s *Supervisor) Send(ctx context.Context, sessionID string, prompt string) ([]model.Message, error) {
	return s.SendStream(ctx, sessionID, prompt, nil)
}

// SendStream is Send that also hands each message to emit once persisted.
func (s *Supervisor) SendStream(ctx context.Context, sessionID string, prompt string, emit func(model.Message)) ([]model.Message, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("router: prompt is required")
	}
	logger := s.logger.With("session_id", sessionID)

	stored, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("router: load history: %w", err)
	}

	var produced []model.Message
	persist := func(msg model.Message) error {
		saved, err := s.store.Append(context.WithoutCancel(ctx), sessionID, msg)
		if err != nil {
			return fmt.Errorf("router: append %s message: %w", msg.Role, err)
		}
		produced = append(produced, saved)
		if emit != nil {
			emit(saved)
		}
		return nil
	}

	humanMsg := model.NewTextMessage(model.RoleHuman, prompt)
	if err := persist(humanMsg); err != nil {
		return nil, err
	}

	route, err := s.router.Classify(ctx, prompt)
	if err != nil {
		logger.Warn("classification failed, falling back", "route", route, "error", err)
	}
	logger.Info("routed request", "route", route)

	conversation := append(history.Filter(stored), humanMsg)
	answer, dispatchErr := s.dispatch(ctx, route, prompt, conversation)
	if dispatchErr != nil {
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			logger.Warn("turn deadline exceeded", "route", route, "error", dispatchErr)
			if !inference.IsUnavailable(dispatchErr) {
				dispatchErr = &inference.BackendUnavailableError{Op: "generate content", Err: dispatchErr}
			}
		case ctx.Err() != nil:
			return produced, fmt.Errorf("router: turn cancelled: %w", dispatchErr)
		default:
			logger.Error("capability failed", "route", route, "error", dispatchErr)
		}
		answer = failureAnswer(route, dispatchErr)
	}

	if err := persist(model.NewTextMessage(model.RoleAI, answer)); err != nil {
		return produced, err
	}
	if inference.IsUnavailable(dispatchErr) {
		return produced, fmt.Errorf("router: %w", dispatchErr)
	}
	return produced, nil
}

// GetSession returns the persisted transcript.
func (s *Supervisor) GetSession(ctx context.Context, sessionID string) ([]model.Message, error) {
	messages, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("router: get session: %w", err)
	}
	return messages, nil
}

func (s *Supervisor) dispatch(ctx context.Context, route model.Route, prompt string, conversation []model.Message) (string, error) {
	switch route {
	case model.RouteCharacterGenerator:
		c, err := s.handlers.Characters.Generate(ctx, prompt)
		if err != nil {
			return "", err
		}
		return capability.RenderCharacter(c), nil

	case model.RouteEncounterGenerator:
		e, err := s.handlers.Encounters.Generate(ctx, prompt)
		if err != nil {
			return "", err
		}
		return capability.RenderEncounter(e), nil

	case model.RouteDiceResolver:
		notation, ok := capability.ExtractNotation(prompt)
		if !ok {
			return noDiceNotation, nil
		}
		return s.handlers.Dice.Resolve(notation), nil

	case model.RouteLoreKeeper:
		return s.handlers.Lore.Ask(ctx, prompt)

	default:
		return s.generalResponse(ctx, conversation)
	}
}

func (s *Supervisor) generalResponse(ctx context.Context, conversation []model.Message) (string, error) {
	resp, err := s.backend.Generate(ctx, inference.Request{
		Messages:    conversation,
		Temperature: inference.Float32(0.7),
	})
	if err != nil {
		return "", fmt.Errorf("router: general response: %w", err)
	}
	return generalResponsePrefix + strings.TrimSpace(resp.Text()), nil
}

// failureAnswer turns a capability error into the reply shown to the user.
func failureAnswer(route model.Route, err error) string {
	var (
		inputErr *capability.UserInputError
		parseErr *capability.GenerationParseError
	)
	switch {
	case errors.As(err, &inputErr):
		return inputErr.Message
	case inference.IsUnavailable(err):
		return inference.UnavailableMessage
	case errors.As(err, &parseErr):
		return fmt.Sprintf("An error occurred while generating the %s: the result did not match the expected format. Please try again.", parseErr.Artifact)
	default:
		return fmt.Sprintf("Something went wrong while handling your request (%s). Please try again.", route)
	}
}
