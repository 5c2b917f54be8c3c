package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Roles used by the tool-calling orchestrator.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Roles used by the single-shot routed orchestrator.
const (
	RoleHuman = "human"
	RoleAI    = "ai"
)

// ErrInvalidMessage is returned when a message does not satisfy the transcript schema.
var ErrInvalidMessage = errors.New("invalid message")

// ToolCall represents a tool invocation requested by the model.
type ToolCall struct {
	ID   string         `json:"id,omitempty"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// ToolResult represents the outcome of a tool invocation, relayed back to the model.
type ToolResult struct {
	ID       string         `json:"id,omitempty"`
	Name     string         `json:"name"`
	Response map[string]any `json:"response,omitempty"`
}

// PartKind identifies which variant of a Part is populated.
type PartKind int

const (
	PartEmpty PartKind = iota
	PartText
	PartToolCall
	PartToolResult
)

// Part is a single typed fragment of a message.
// Exactly one of ToolCall or ToolResult may be set; Text may accompany a ToolResult.
type Part struct {
	Text       string      `json:"text,omitempty"`
	ToolCall   *ToolCall   `json:"tool_call,omitempty"`
	ToolResult *ToolResult `json:"tool_result,omitempty"`
}

// Kind reports the variant of the part. Tool variants take precedence over text.
func (p Part) Kind() PartKind {
	switch {
	case p.ToolCall != nil:
		return PartToolCall
	case p.ToolResult != nil:
		return PartToolResult
	case p.Text != "":
		return PartText
	default:
		return PartEmpty
	}
}

func (p Part) validate() error {
	if p.ToolCall != nil && p.ToolResult != nil {
		return fmt.Errorf("%w: part carries both a tool call and a tool result", ErrInvalidMessage)
	}
	if p.ToolCall != nil && p.Text != "" {
		return fmt.Errorf("%w: tool call part carries text", ErrInvalidMessage)
	}

	switch p.Kind() {
	case PartEmpty:
		return fmt.Errorf("%w: empty part", ErrInvalidMessage)
	case PartToolCall:
		if p.ToolCall.Name == "" {
			return fmt.Errorf("%w: tool call without name", ErrInvalidMessage)
		}
	case PartToolResult:
		if p.ToolResult.Name == "" {
			return fmt.Errorf("%w: tool result without name", ErrInvalidMessage)
		}
	}

	return nil
}

// TextPart builds a text part.
func TextPart(text string) Part {
	return Part{Text: text}
}

// Message is one entry of a session transcript.
type Message struct {
	ID        string    `json:"id,omitempty"`
	SessionID string    `json:"session_id"`
	Sequence  int64     `json:"sequence"`
	Role      string    `json:"role"`
	Parts     []Part    `json:"parts"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTextMessage builds a single-part text message.
func NewTextMessage(role, text string) Message {
	return Message{Role: role, Parts: []Part{TextPart(text)}}
}

// Text concatenates the text parts of the message.
func (m Message) Text() string {
	var b strings.Builder
	for _, p := range m.Parts {
		if p.ToolCall != nil || p.Text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(p.Text)
	}
	return b.String()
}

// ToolCalls returns the tool calls requested in this message, in order.
func (m Message) ToolCalls() []ToolCall {
	var calls []ToolCall
	for _, p := range m.Parts {
		if p.ToolCall != nil {
			calls = append(calls, *p.ToolCall)
		}
	}
	return calls
}

// Validate checks the message against the transcript schema.
// The session and sequence are assigned by the store and not checked here.
func (m Message) Validate() error {
	switch m.Role {
	case RoleUser, RoleModel, RoleHuman, RoleAI:
	default:
		return fmt.Errorf("%w: unknown role %q", ErrInvalidMessage, m.Role)
	}

	if len(m.Parts) == 0 {
		return fmt.Errorf("%w: message has no parts", ErrInvalidMessage)
	}

	for i, p := range m.Parts {
		if err := p.validate(); err != nil {
			return fmt.Errorf("part %d: %w", i, err)
		}
		if p.ToolCall != nil && m.Role != RoleModel {
			return fmt.Errorf("%w: tool call emitted by role %q", ErrInvalidMessage, m.Role)
		}
		if p.ToolResult != nil && m.Role != RoleUser {
			return fmt.Errorf("%w: tool result emitted by role %q", ErrInvalidMessage, m.Role)
		}
	}

	return nil
}
