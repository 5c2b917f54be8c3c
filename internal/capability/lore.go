package capability

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/akwn2/dnd-ai-tutorial/internal/inference"
	"github.com/akwn2/dnd-ai-tutorial/internal/model"
	"github.com/akwn2/dnd-ai-tutorial/internal/retrieval"
)

const (
	// LoreUnavailable is answered when there is no knowledge base to search.
	LoreUnavailable = "The Lore Keeper's knowledge base is not available right now."
	// LoreUnknown is answered when no passage relates to the question.
	LoreUnknown = "I don't have that information in the campaign lore."

	defaultLoreTopK = 4
)

// LoreKeeper answers campaign questions from retrieved lore passages only.
type LoreKeeper struct {
	backend   inference.Backend
	retriever retrieval.Retriever
	topK      int
	logger    *slog.Logger
}

// NewLoreKeeper creates a LoreKeeper. A nil retriever makes every answer LoreUnavailable.
func NewLoreKeeper(backend inference.Backend, retriever retrieval.Retriever, topK int, logger *slog.Logger) *LoreKeeper {
	if topK <= 0 {
		topK = defaultLoreTopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LoreKeeper{backend: backend, retriever: retriever, topK: topK, logger: logger}
}

// Ask answers question. Retrieval problems degrade to LoreUnavailable instead of failing,
// and an empty retrieval answers LoreUnknown without consulting the model.
func (l *LoreKeeper) Ask(ctx context.Context, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", &UserInputError{Message: "Please ask the Lore Keeper a question about the campaign."}
	}
	if l.retriever == nil {
		return LoreUnavailable, nil
	}

	passages, err := l.retriever.Search(ctx, question, l.topK)
	if err != nil {
		l.logger.Warn("lore retrieval failed", "error", err)
		return LoreUnavailable, nil
	}
	if len(passages) == 0 {
		return LoreUnknown, nil
	}

	resp, err := l.backend.Generate(ctx, inference.Request{
		Messages: []model.Message{model.NewTextMessage(model.RoleUser, lorePrompt(question, passages))},
	})
	if err != nil {
		return "", fmt.Errorf("capability: ask lore keeper: %w", err)
	}

	answer := strings.TrimSpace(resp.Text())
	if answer == "" {
		return LoreUnknown, nil
	}
	return answer, nil
}
