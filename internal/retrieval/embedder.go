package retrieval

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"google.golang.org/genai"

	"github.com/akwn2/dnd-ai-tutorial/internal/inference"
)

const defaultEmbeddingDim = 512

// Embedder turns texts into vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// HashEmbedder embeds text locally with feature hashing, no external model.
type HashEmbedder struct {
	Dim int
}

func (h HashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	dim := h.Dim
	if dim <= 0 {
		dim = defaultEmbeddingDim
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = hashEmbed(text, dim)
	}
	return out, nil
}

func hashEmbed(text string, dim int) []float32 {
	vec := make([]float32, dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, word := range words {
		h := fnv.New32a()
		h.Write([]byte(word))
		vec[int(h.Sum32()%uint32(dim))]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm = math.Sqrt(norm); norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec
}

// maxEmbedBatch is the most contents the Gemini batch embed endpoint accepts per request.
const maxEmbedBatch = 100

type embedFunc func(ctx context.Context, model string, contents []*genai.Content) (*genai.EmbedContentResponse, error)

// GeminiEmbedder embeds text with a Gemini embedding model.
type GeminiEmbedder struct {
	embed embedFunc
	model string
}

// NewGeminiEmbedder creates a GeminiEmbedder for the given embedding model, e.g. "gemini-embedding-001".
func NewGeminiEmbedder(client *genai.Client, model string) *GeminiEmbedder {
	return &GeminiEmbedder{
		embed: func(ctx context.Context, model string, contents []*genai.Content) (*genai.EmbedContentResponse, error) {
			return client.Models.EmbedContent(ctx, model, contents, nil)
		},
		model: model,
	}
}

// Embed sends texts in batches of at most maxEmbedBatch and returns vectors in input order.
func (g *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxEmbedBatch {
		end := min(start+maxEmbedBatch, len(texts))
		vectors, err := g.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (g *GeminiEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		contents = append(contents, &genai.Content{Parts: []*genai.Part{{Text: t}}})
	}

	resp, err := g.embed(ctx, g.model, contents)
	if err != nil {
		return nil, &inference.BackendUnavailableError{Op: "embed content", Err: err}
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("retrieval: expected %d embeddings, got %d", len(texts), len(resp.Embeddings))
	}

	out := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		if e == nil {
			return nil, fmt.Errorf("retrieval: embedding %d missing", i)
		}
		out[i] = e.Values
	}
	return out, nil
}
