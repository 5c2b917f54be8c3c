package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/akwn2/dnd-ai-tutorial/internal/history"
	"github.com/akwn2/dnd-ai-tutorial/internal/inference"
	"github.com/akwn2/dnd-ai-tutorial/internal/model"
	"github.com/akwn2/dnd-ai-tutorial/internal/repository"
)

const (
	// IterationLimitMessage is persisted when the model keeps calling tools past the iteration cap.
	IterationLimitMessage = "I'm sorry, I couldn't finish that request. Please try asking in a different way."

	defaultMaxIterations = 8
)

// ErrEmptyPrompt is returned when the user sends nothing to answer.
var ErrEmptyPrompt = errors.New("agent: prompt is required")

// Agent runs the tool-calling loop: ask the model, execute requested tools,
// feed their results back, repeat until the model answers in text.
type Agent struct {
	backend           inference.Backend
	store             repository.TranscriptStore
	systemInstruction string
	maxIterations     int
	logger            *slog.Logger

	functionsMap map[string]*FunctionDeclaration
	order        []string
}

// Option configures an Agent.
type Option func(*Agent)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithMaxIterations caps the model round trips of a single turn.
func WithMaxIterations(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxIterations = n
		}
	}
}

func New(backend inference.Backend, store repository.TranscriptStore, systemInstruction string, opts ...Option) *Agent {
	a := &Agent{
		backend:           backend,
		store:             store,
		systemInstruction: systemInstruction,
		maxIterations:     defaultMaxIterations,
		logger:            slog.Default(),
		functionsMap:      make(map[string]*FunctionDeclaration),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Agent) AddFunctionCall(functionDeclaration *FunctionDeclaration) error {
	if functionDeclaration == nil {
		return fmt.Errorf("function declaration cannot be nil")
	}

	if functionDeclaration.Name == "" {
		return fmt.Errorf("function name cannot be empty")
	}

	if functionDeclaration.FunctionCall == nil {
		return fmt.Errorf("function call implementation cannot be nil")
	}

	if _, exists := a.functionsMap[functionDeclaration.Name]; exists {
		return fmt.Errorf("function %s already declared", functionDeclaration.Name)
	}

	a.functionsMap[functionDeclaration.Name] = functionDeclaration
	a.order = append(a.order, functionDeclaration.Name)

	return nil
}

func (a *Agent) getTools() []inference.ToolSpec {
	tools := make([]inference.ToolSpec, 0, len(a.order))
	for _, name := range a.order {
		fd := a.functionsMap[name]
		tools = append(tools, inference.ToolSpec{
			Name:        fd.Name,
			Description: fd.Description,
			Parameters:  fd.ParametersSchema,
			Response:    fd.ResponseSchema,
		})
	}
	return tools
}

// Send runs one user turn and returns every message persisted during it, in order.
func (a *Agent) Send(ctx context.Context, sessionID string, prompt string) ([]model.Message, error) {
	return a.SendStream(ctx, sessionID, prompt, nil)
}

// SendStream is Send that also hands each message to emit as soon as it is persisted.
//
// When the backend fails, a degraded-service message is persisted and the
// returned error wraps *inference.BackendUnavailableError. The same happens when
// the ctx deadline expires. When ctx is cancelled the tool call in flight
// completes but its result is discarded and nothing more is persisted.
func (a *Agent) SendStream(ctx context.Context, sessionID string, prompt string, emit func(model.Message)) ([]model.Message, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}

	stored, err := a.store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("agent: load history: %w", err)
	}

	t := &turn{
		agent:     a,
		sessionID: sessionID,
		emit:      emit,
		logger:    a.logger.With("session_id", sessionID),
		context:   history.Filter(stored),
	}

	userMsg, err := t.persist(ctx, model.NewTextMessage(model.RoleUser, prompt))
	if err != nil {
		return nil, err
	}
	t.context = append(t.context, userMsg)

	if err := t.run(ctx); err != nil {
		return t.produced, err
	}
	return t.produced, nil
}

// GetSession returns the full persisted transcript, tool calls included.
func (a *Agent) GetSession(ctx context.Context, sessionID string) ([]model.Message, error) {
	messages, err := a.store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("agent: get session: %w", err)
	}
	return messages, nil
}

// turn holds the state of one Send call.
type turn struct {
	agent     *Agent
	sessionID string
	emit      func(model.Message)
	logger    *slog.Logger

	// context is the replay-safe conversation sent to the model. It never holds tool calls.
	context  []model.Message
	produced []model.Message
}

func (t *turn) persist(ctx context.Context, msg model.Message) (model.Message, error) {
	// Writes outlive the turn deadline so a finished step is never lost.
	saved, err := t.agent.store.Append(context.WithoutCancel(ctx), t.sessionID, msg)
	if err != nil {
		return model.Message{}, fmt.Errorf("agent: append %s message: %w", msg.Role, err)
	}
	t.produced = append(t.produced, saved)
	if t.emit != nil {
		t.emit(saved)
	}
	return saved, nil
}

func (t *turn) run(ctx context.Context) error {
	a := t.agent
	tools := a.getTools()

	for iteration := 1; iteration <= a.maxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return t.interrupted(ctx, err)
		}

		resp, err := a.backend.Generate(ctx, inference.Request{
			System:   a.systemInstruction,
			Messages: t.context,
			Tools:    tools,
		})
		if err != nil {
			return t.fail(ctx, err)
		}

		calls := resp.ToolCalls()
		if len(calls) == 0 {
			text := strings.TrimSpace(resp.Text())
			if text == "" {
				return t.fail(ctx, inference.ErrEmptyResponse)
			}
			_, err := t.persist(ctx, model.NewTextMessage(model.RoleModel, text))
			return err
		}

		t.logger.Info("model requested tools", "iteration", iteration, "count", len(calls))

		callMsg, err := t.persist(ctx, toolCallMessage(resp.Parts))
		if err != nil {
			return err
		}
		t.context = append(t.context, history.Filter([]model.Message{callMsg})...)

		results := make([]model.Part, 0, len(calls))
		for _, call := range callMsg.ToolCalls() {
			if err := ctx.Err(); err != nil {
				return t.interrupted(ctx, err)
			}
			response := a.execute(ctx, call, t.logger)
			if err := ctx.Err(); err != nil {
				return t.interrupted(ctx, err)
			}
			results = append(results, model.Part{ToolResult: &model.ToolResult{
				ID:       call.ID,
				Name:     call.Name,
				Response: response,
			}})
		}

		resultMsg, err := t.persist(ctx, model.Message{Role: model.RoleUser, Parts: results})
		if err != nil {
			return err
		}
		t.context = append(t.context, resultMsg)
	}

	t.logger.Warn("iteration limit reached", "max_iterations", a.maxIterations)
	_, err := t.persist(ctx, model.NewTextMessage(model.RoleModel, IterationLimitMessage))
	return err
}

// fail records a degraded-service reply so the failed turn still ends with a visible answer.
func (t *turn) fail(ctx context.Context, cause error) error {
	if ctx.Err() != nil {
		return t.interrupted(ctx, cause)
	}
	t.logger.Error("backend unavailable", "error", cause)
	return t.degrade(ctx, cause)
}

// interrupted ends a turn whose context is done. A caller that went away gets
// nothing more persisted; an expired deadline still gets a visible reply.
func (t *turn) interrupted(ctx context.Context, cause error) error {
	if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("agent: turn cancelled: %w", cause)
	}
	t.logger.Warn("turn deadline exceeded", "error", cause)
	return t.degrade(ctx, cause)
}

func (t *turn) degrade(ctx context.Context, cause error) error {
	var unavailable *inference.BackendUnavailableError
	if !errors.As(cause, &unavailable) {
		unavailable = &inference.BackendUnavailableError{Op: "generate content", Err: cause}
	}

	if _, err := t.persist(ctx, model.NewTextMessage(model.RoleModel, inference.UnavailableMessage)); err != nil {
		return errors.Join(unavailable, err)
	}
	return fmt.Errorf("agent: %w", unavailable)
}

// toolCallMessage keeps the model's parts in order and gives every call an ID.
func toolCallMessage(parts []model.Part) model.Message {
	out := make([]model.Part, 0, len(parts))
	for _, p := range parts {
		if p.ToolCall != nil {
			call := *p.ToolCall
			if call.ID == "" {
				call.ID = uuid.NewString()
			}
			p = model.Part{ToolCall: &call}
		}
		out = append(out, p)
	}
	return model.Message{Role: model.RoleModel, Parts: out}
}
