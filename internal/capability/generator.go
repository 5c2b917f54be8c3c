package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/akwn2/dnd-ai-tutorial/internal/inference"
	"github.com/akwn2/dnd-ai-tutorial/internal/model"
)

const generationTemperature = 0.7

// CharacterGenerator creates non-player characters from a free-text prompt.
type CharacterGenerator struct {
	backend inference.Backend
}

func NewCharacterGenerator(backend inference.Backend) *CharacterGenerator {
	return &CharacterGenerator{backend: backend}
}

// Generate asks the backend for a character matching prompt.
// Output that does not fit the schema yields a *GenerationParseError; nothing is retried.
func (g *CharacterGenerator) Generate(ctx context.Context, prompt string) (model.Character, error) {
	if strings.TrimSpace(prompt) == "" {
		return model.Character{}, &UserInputError{Message: "Please describe the character you want, e.g. 'an Orc blacksmith'."}
	}
	return generate[model.Character](ctx, g.backend, "character", characterPrompt(prompt), CharacterSchema())
}

// EncounterGenerator creates combat encounters from a free-text prompt.
type EncounterGenerator struct {
	backend inference.Backend
}

func NewEncounterGenerator(backend inference.Backend) *EncounterGenerator {
	return &EncounterGenerator{backend: backend}
}

// Generate asks the backend for an encounter matching prompt.
func (g *EncounterGenerator) Generate(ctx context.Context, prompt string) (model.Encounter, error) {
	if strings.TrimSpace(prompt) == "" {
		return model.Encounter{}, &UserInputError{Message: "Please describe the encounter you want, e.g. 'goblins ambush on a forest road'."}
	}
	return generate[model.Encounter](ctx, g.backend, "encounter", encounterPrompt(prompt), EncounterSchema())
}

type artifact interface {
	Validate() error
}

func generate[T artifact](ctx context.Context, backend inference.Backend, kind, prompt string, schema any) (T, error) {
	var out T

	resp, err := backend.Generate(ctx, inference.Request{
		Messages:    []model.Message{model.NewTextMessage(model.RoleUser, prompt)},
		JSONSchema:  schema,
		Temperature: inference.Float32(generationTemperature),
	})
	if err != nil {
		return out, fmt.Errorf("capability: generate %s: %w", kind, err)
	}

	raw := resp.Text()
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &out); err != nil {
		return out, &GenerationParseError{Artifact: kind, Raw: raw, Err: err}
	}
	if err := out.Validate(); err != nil {
		return out, &GenerationParseError{Artifact: kind, Raw: raw, Err: err}
	}
	return out, nil
}

// stripCodeFence removes a surrounding markdown code fence such as ```json ... ```.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
