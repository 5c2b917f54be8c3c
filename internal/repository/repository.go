package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/akwn2/dnd-ai-tutorial/internal/model"
)

// TranscriptStore defines persistence operations for session transcripts.
// The log is append-only: there is no update or delete.
type TranscriptStore interface {
	// Append durably stores msg at the end of the session transcript and
	// returns it with its assigned ID, sequence and timestamp.
	Append(ctx context.Context, sessionID string, msg model.Message) (model.Message, error)

	// Load returns the session transcript in ascending sequence order.
	// An unknown session yields an empty slice, not an error.
	Load(ctx context.Context, sessionID string) ([]model.Message, error)

	Close() error
}

// prepare normalizes a message before it is written.
func prepare(sessionID string, msg model.Message) (model.Message, []byte, error) {
	if strings.TrimSpace(sessionID) == "" {
		return model.Message{}, nil, fmt.Errorf("%w: session id is required", model.ErrInvalidMessage)
	}

	msg.SessionID = sessionID
	msg.Parts = compactParts(msg.Parts)
	if err := msg.Validate(); err != nil {
		return model.Message{}, nil, err
	}

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	encoded, err := json.Marshal(msg.Parts)
	if err != nil {
		return model.Message{}, nil, fmt.Errorf("encode parts: %w", err)
	}

	return msg, encoded, nil
}

// decodeParts restores the tagged parts of a stored row and validates the result.
func decodeParts(msg *model.Message, raw string) error {
	var parts []model.Part
	if err := json.Unmarshal([]byte(raw), &parts); err != nil {
		return fmt.Errorf("%w: decode parts of message %s: %v", model.ErrInvalidMessage, msg.ID, err)
	}
	msg.Parts = compactParts(parts)
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("message %s: %w", msg.ID, err)
	}
	return nil
}

func compactParts(parts []model.Part) []model.Part {
	out := make([]model.Part, 0, len(parts))
	for _, p := range parts {
		if p.Kind() == model.PartEmpty {
			continue
		}
		out = append(out, p)
	}
	return out
}
