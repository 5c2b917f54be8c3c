package capability

import (
	"fmt"
	"strings"

	"github.com/akwn2/dnd-ai-tutorial/internal/model"
)

const characterPromptTemplate = `You are a creative and experienced TTRPG Game Master. Your task is to generate a detailed Non-Player Character (NPC) based on a user's prompt. The NPC should be interesting and suitable for a fantasy campaign.

The user's prompt is: '%s'

The NPC should have the following attributes:
- A memorable and unique name.
- A defined race (e.g., Human, Elf, Dwarf, Goblin, Orc, Halfling). If the prompt names a race, use it.
- A vocation or profession.
- A distinct personality that's more than a single word.
- A concise backstory.
- Clear motivations that drive their actions.
- A role in the story, one of: %s.

Output ONLY a JSON object with the keys "name", "race", "vocation", "personality", "backstory", "motivations" and "role_in_story". No commentary and no code fences.`

const encounterPromptTemplate = `You are a creative and experienced TTRPG Game Master. Your task is to generate a detailed combat encounter based on a user's prompt. The encounter should be interesting, challenging, and suitable for a fantasy campaign.

The user's prompt is: '%s'

The encounter should have the following attributes:
- A title for the encounter.
- A short, evocative description of the scene.
- A list of monsters involved, including their names, challenge ratings (e.g., "1/2"), and a brief description.
- Recommended tactics for the monsters to use.
- A description of the terrain where the encounter takes place.

Output ONLY a JSON object with the keys "title", "description", "monsters", "tactics" and "terrain". Each monster is an object with "name", "challenge_rating" and "description". No commentary and no code fences.`

const lorePromptTemplate = `You are a TTRPG Game Master assistant. Use only the following pieces of context from the campaign's lore documents to answer the user's question.
If the context does not contain the answer, say that you don't have that information. Do not try to make up an answer.

Context:
%s

Question: %s`

func characterPrompt(prompt string) string {
	roles := make([]string, 0, len(model.CharacterRoles()))
	for _, r := range model.CharacterRoles() {
		roles = append(roles, "'"+string(r)+"'")
	}
	return fmt.Sprintf(characterPromptTemplate, prompt, strings.Join(roles, ", "))
}

func encounterPrompt(prompt string) string {
	return fmt.Sprintf(encounterPromptTemplate, prompt)
}

func lorePrompt(question string, passages []string) string {
	return fmt.Sprintf(lorePromptTemplate, strings.Join(passages, "\n\n---\n\n"), question)
}

func stringProperty(description string) map[string]any {
	return map[string]any{
		"type":        "string",
		"description": description,
	}
}

// CharacterSchema is the JSON schema of a generated character.
func CharacterSchema() map[string]any {
	roles := make([]string, 0, len(model.CharacterRoles()))
	for _, r := range model.CharacterRoles() {
		roles = append(roles, string(r))
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":        stringProperty("A memorable and unique name"),
			"race":        stringProperty("The character's race, e.g. Human, Elf, Orc"),
			"vocation":    stringProperty("The character's vocation or profession"),
			"personality": stringProperty("A distinct personality"),
			"backstory":   stringProperty("A concise backstory"),
			"motivations": stringProperty("What drives the character"),
			"role_in_story": map[string]any{
				"type": "string",
				"enum": roles,
			},
		},
		"required": []string{"name", "race", "vocation", "personality", "backstory", "motivations", "role_in_story"},
	}
}

// EncounterSchema is the JSON schema of a generated encounter.
func EncounterSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":       stringProperty("A title for the encounter"),
			"description": stringProperty("A short, evocative description of the scene"),
			"monsters": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name":             stringProperty("The monster's name"),
						"challenge_rating": stringProperty("Challenge rating, e.g. 1/2 or 5"),
						"description":      stringProperty("A brief description"),
					},
					"required": []string{"name", "challenge_rating", "description"},
				},
			},
			"tactics": stringProperty("Recommended tactics for the monsters"),
			"terrain": stringProperty("The terrain where the encounter takes place"),
		},
		"required": []string{"title", "description", "monsters", "tactics", "terrain"},
	}
}
