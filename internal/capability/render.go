package capability

import (
	"fmt"
	"strings"

	"github.com/akwn2/dnd-ai-tutorial/internal/model"
)

// RenderCharacter formats a character as markdown for the chat transcript.
func RenderCharacter(c model.Character) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Name:** %s\n\n", c.Name)
	fmt.Fprintf(&b, "**Race:** %s\n\n", c.Race)
	fmt.Fprintf(&b, "**Vocation:** %s\n\n", c.Vocation)
	fmt.Fprintf(&b, "**Personality:** %s\n\n", c.Personality)
	fmt.Fprintf(&b, "**Backstory:** %s\n\n", c.Backstory)
	fmt.Fprintf(&b, "**Motivations:** %s\n\n", c.Motivations)
	fmt.Fprintf(&b, "**Role in Story:** %s", c.Role.Title())
	return b.String()
}

// RenderEncounter formats an encounter as markdown for the chat transcript.
func RenderEncounter(e model.Encounter) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### %s\n\n", e.Title)
	fmt.Fprintf(&b, "%s\n\n", e.Description)
	b.WriteString("**Monsters:**\n")
	for _, m := range e.Monsters {
		fmt.Fprintf(&b, "- **%s** (CR %s): %s\n", m.Name, m.ChallengeRating, m.Description)
	}
	fmt.Fprintf(&b, "\n**Tactics:** %s\n\n", e.Tactics)
	fmt.Fprintf(&b, "**Terrain:** %s", e.Terrain)
	return b.String()
}
