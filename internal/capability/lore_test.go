package capability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akwn2/dnd-ai-tutorial/internal/inference"
	"github.com/akwn2/dnd-ai-tutorial/internal/inference/inferencetest"
	"github.com/akwn2/dnd-ai-tutorial/internal/retrieval"
)

type retrieverFunc func(ctx context.Context, query string, topK int) ([]string, error)

func (f retrieverFunc) Search(ctx context.Context, query string, topK int) ([]string, error) {
	return f(ctx, query, topK)
}

func TestLoreKeeperNoPassages(t *testing.T) {
	backend := inferencetest.NewBackend(inferencetest.Text("Invented lore"))
	keeper := NewLoreKeeper(backend, retrieverFunc(func(context.Context, string, int) ([]string, error) {
		return nil, nil
	}), 3, nil)

	answer, err := keeper.Ask(context.Background(), "Who rules the Iron Citadel?")
	require.NoError(t, err)
	assert.Contains(t, answer, "don't have that information")
	assert.Zero(t, backend.CallCount())
}

func TestLoreKeeperNotConfigured(t *testing.T) {
	backend := inferencetest.NewBackend()

	answer, err := NewLoreKeeper(backend, nil, 0, nil).Ask(context.Background(), "Who is the lich?")
	require.NoError(t, err)
	assert.Equal(t, LoreUnavailable, answer)

	failing := retrieverFunc(func(context.Context, string, int) ([]string, error) {
		return nil, retrieval.ErrNotConfigured
	})
	answer, err = NewLoreKeeper(backend, failing, 0, nil).Ask(context.Background(), "Who is the lich?")
	require.NoError(t, err)
	assert.Equal(t, LoreUnavailable, answer)
	assert.Zero(t, backend.CallCount())
}

func TestLoreKeeperAnswersFromPassages(t *testing.T) {
	backend := inferencetest.NewBackend(inferencetest.Text("Szass Tam commands the undead of Thay."))
	var gotTopK int
	keeper := NewLoreKeeper(backend, retrieverFunc(func(_ context.Context, _ string, topK int) ([]string, error) {
		gotTopK = topK
		return []string{"The lich Szass Tam commands an undead army in Thay."}, nil
	}), 0, nil)

	answer, err := keeper.Ask(context.Background(), "Who commands the undead army?")
	require.NoError(t, err)
	assert.Equal(t, "Szass Tam commands the undead of Thay.", answer)
	assert.Equal(t, defaultLoreTopK, gotTopK)

	require.Len(t, backend.Requests, 1)
	prompt := backend.Requests[0].Messages[0].Text()
	assert.Contains(t, prompt, "The lich Szass Tam commands an undead army in Thay.")
	assert.Contains(t, prompt, "Who commands the undead army?")
	assert.Contains(t, prompt, "don't have that information")
}

func TestLoreKeeperBackendUnavailable(t *testing.T) {
	keeper := NewLoreKeeper(inferencetest.NewBackend(inferencetest.Unavailable()), retrieverFunc(func(context.Context, string, int) ([]string, error) {
		return []string{"passage"}, nil
	}), 2, nil)

	_, err := keeper.Ask(context.Background(), "question")
	assert.True(t, inference.IsUnavailable(err))
}

func TestLoreKeeperEmptyQuestion(t *testing.T) {
	_, err := NewLoreKeeper(inferencetest.NewBackend(), nil, 0, nil).Ask(context.Background(), "")
	var inputErr *UserInputError
	assert.True(t, errors.As(err, &inputErr))
}
