package capability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akwn2/dnd-ai-tutorial/internal/inference"
	"github.com/akwn2/dnd-ai-tutorial/internal/inference/inferencetest"
	"github.com/akwn2/dnd-ai-tutorial/internal/model"
)

const orcJSON = "```json\n" + `{
  "name": "Grokka Ironhand",
  "race": "Orc",
  "vocation": "Blacksmith",
  "personality": "Gruff but fair, hums war songs while working",
  "backstory": "Left her clan after refusing to forge weapons for a raid.",
  "motivations": "Wants to prove orcs can build as well as destroy.",
  "role_in_story": "quest giver"
}` + "\n```"

func TestCharacterGeneratorOrcBlacksmith(t *testing.T) {
	backend := inferencetest.NewBackend(inferencetest.Text(orcJSON))
	gen := NewCharacterGenerator(backend)

	c, err := gen.Generate(context.Background(), "Generate an Orc blacksmith NPC")
	require.NoError(t, err)
	assert.Contains(t, c.Race, "Orc")
	assert.Equal(t, "Blacksmith", c.Vocation)
	assert.Equal(t, model.CharacterRoleQuestGiver, c.Role)

	require.Len(t, backend.Requests, 1)
	req := backend.Requests[0]
	assert.NotNil(t, req.JSONSchema)
	require.Len(t, req.Messages, 1)
	assert.Contains(t, req.Messages[0].Text(), "Orc blacksmith")

	rendered := RenderCharacter(c)
	assert.Contains(t, rendered, "**Name:** Grokka Ironhand")
	assert.Contains(t, rendered, "**Role in Story:** Quest Giver")
}

func TestCharacterGeneratorParseError(t *testing.T) {
	cases := map[string]string{
		"not json":       "Sorry, I cannot help with that.",
		"missing fields": `{"name": "Bob"}`,
		"unknown role":   `{"name":"a","race":"b","vocation":"c","personality":"d","backstory":"e","motivations":"f","role_in_story":"villain"}`,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			gen := NewCharacterGenerator(inferencetest.NewBackend(inferencetest.Text(raw)))

			_, err := gen.Generate(context.Background(), "a dwarf")
			var parseErr *GenerationParseError
			require.ErrorAs(t, err, &parseErr)
			assert.Equal(t, raw, parseErr.Raw)
			assert.Equal(t, "character", parseErr.Artifact)
		})
	}
}

func TestCharacterGeneratorNoRetry(t *testing.T) {
	backend := inferencetest.NewBackend(inferencetest.Text("garbage"), inferencetest.Text(orcJSON))

	_, err := NewCharacterGenerator(backend).Generate(context.Background(), "an orc")
	require.Error(t, err)
	assert.Equal(t, 1, backend.CallCount())
}

func TestCharacterGeneratorBackendUnavailable(t *testing.T) {
	gen := NewCharacterGenerator(inferencetest.NewBackend(inferencetest.Unavailable()))

	_, err := gen.Generate(context.Background(), "an elf")
	assert.True(t, inference.IsUnavailable(err))
}

func TestCharacterGeneratorEmptyPrompt(t *testing.T) {
	backend := inferencetest.NewBackend()

	_, err := NewCharacterGenerator(backend).Generate(context.Background(), "  ")
	var inputErr *UserInputError
	require.True(t, errors.As(err, &inputErr))
	assert.Zero(t, backend.CallCount())
}

func TestEncounterGenerator(t *testing.T) {
	raw := `{
  "title": "Ambush at Miller's Ford",
  "description": "Goblins leap from the reeds.",
  "monsters": [
    {"name": "Goblin", "challenge_rating": "1/4", "description": "Sneaky archer"},
    {"name": "Bugbear", "challenge_rating": 1, "description": "Brutal leader"}
  ],
  "tactics": "Archers fire from cover while the bugbear charges.",
  "terrain": "A shallow river crossing with thick reeds."
}`
	gen := NewEncounterGenerator(inferencetest.NewBackend(inferencetest.Text(raw)))

	e, err := gen.Generate(context.Background(), "goblin ambush at a river")
	require.NoError(t, err)
	require.Len(t, e.Monsters, 2)
	assert.Equal(t, model.ChallengeRating("1"), e.Monsters[1].ChallengeRating)

	rendered := RenderEncounter(e)
	assert.Contains(t, rendered, "### Ambush at Miller's Ford")
	assert.Contains(t, rendered, "- **Goblin** (CR 1/4): Sneaky archer")
	assert.Contains(t, rendered, "**Terrain:** A shallow river crossing")
}

func TestEncounterGeneratorParseError(t *testing.T) {
	raw := `{"title": "Empty", "description": "Nothing here", "monsters": [], "tactics": "none", "terrain": "void"}`
	gen := NewEncounterGenerator(inferencetest.NewBackend(inferencetest.Text(raw)))

	_, err := gen.Generate(context.Background(), "an empty room")
	var parseErr *GenerationParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, raw, parseErr.Raw)
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("```json{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("  {\"a\":1}  "))
}
