// Package retrieval indexes campaign lore documents and serves passage search.
package retrieval

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
)

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
)

// ErrNotConfigured is returned by retrievers that have no knowledge base to search.
var ErrNotConfigured = errors.New("knowledge base not configured")

// Retriever returns the passages most relevant to a query, best first.
type Retriever interface {
	Search(ctx context.Context, query string, topK int) ([]string, error)
}

// Document is a text chunk paired with its embedding vector.
type Document struct {
	Filename  string
	Text      string
	Embedding []float32
}

// Index is an in-memory vector index over lore documents.
type Index struct {
	embedder Embedder
	logger   *slog.Logger

	mu   sync.RWMutex
	docs []Document
}

// NewIndex creates an empty Index. A nil embedder selects HashEmbedder.
func NewIndex(embedder Embedder, logger *slog.Logger) *Index {
	if embedder == nil {
		embedder = HashEmbedder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Index{embedder: embedder, logger: logger}
}

// Len reports the number of indexed chunks.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.docs)
}

// LoadDir embeds all .txt, .md and .pdf files from dir.
// Returns without error if the directory is empty or does not exist.
func (x *Index) LoadDir(ctx context.Context, dir string) error {
	chunks, err := loadChunks(dir)
	if err != nil {
		return fmt.Errorf("retrieval: load chunks: %w", err)
	}

	if len(chunks) == 0 {
		x.logger.Warn("no lore documents found, search will return no results", "dir", dir)
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.text
	}
	vectors, err := x.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("retrieval: embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("retrieval: embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	x.mu.Lock()
	for i, c := range chunks {
		x.docs = append(x.docs, Document{
			Filename:  c.filename,
			Text:      c.text,
			Embedding: vectors[i],
		})
	}
	total := len(x.docs)
	x.mu.Unlock()

	x.logger.Info("indexed lore documents", "dir", dir, "chunks", len(chunks), "total", total)
	return nil
}

// Add indexes raw passages under a synthetic filename.
func (x *Index) Add(ctx context.Context, filename string, passages ...string) error {
	vectors, err := x.embedder.Embed(ctx, passages)
	if err != nil {
		return fmt.Errorf("retrieval: embed passages: %w", err)
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	for i, p := range passages {
		x.docs = append(x.docs, Document{Filename: filename, Text: p, Embedding: vectors[i]})
	}
	return nil
}

// Search returns the topK most similar passages for the query.
func (x *Index) Search(ctx context.Context, query string, topK int) ([]string, error) {
	x.mu.RLock()
	docs := x.docs
	x.mu.RUnlock()

	if len(docs) == 0 || topK <= 0 {
		return nil, nil
	}

	vectors, err := x.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("retrieval: embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("retrieval: embedder returned %d vectors for the query", len(vectors))
	}
	queryVec := vectors[0]

	type scored struct {
		doc   Document
		score float32
	}

	results := make([]scored, 0, len(docs))
	for _, doc := range docs {
		score := cosineSimilarity(queryVec, doc.Embedding)
		if score <= 0 {
			continue
		}
		results = append(results, scored{doc: doc, score: score})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].score > results[j].score })

	if topK > len(results) {
		topK = len(results)
	}

	out := make([]string, topK)
	for i := range out {
		out[i] = results[i].doc.Text
	}
	return out, nil
}

type chunk struct {
	filename string
	text     string
}

func loadChunks(dir string) ([]chunk, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var chunks []chunk
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))

		var text string
		switch ext {
		case ".txt", ".md":
			data, err := os.ReadFile(filepath.Join(dir, name))
			if err != nil {
				return nil, err
			}
			text = string(data)
		case ".pdf":
			var err error
			text, err = readPDF(filepath.Join(dir, name))
			if err != nil {
				return nil, fmt.Errorf("read pdf %q: %w", name, err)
			}
		default:
			continue
		}

		for _, c := range chunkText(text, defaultChunkSize, defaultChunkOverlap) {
			chunks = append(chunks, chunk{filename: name, text: c})
		}
	}

	return chunks, nil
}

// chunkText splits text into windows of size runes, each overlapping the previous by overlap runes.
func chunkText(text string, size, overlap int) []string {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil
	}

	runes := []rune(strings.ReplaceAll(text, "\r\n", "\n"))
	var chunks []string
	for start := 0; start < len(runes); start += size - overlap {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		if c := strings.TrimSpace(string(runes[start:end])); c != "" {
			chunks = append(chunks, c)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}

func readPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return float32(dot / denom)
}
