package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// CharacterRole is the narrative role a generated character plays.
type CharacterRole string

const (
	CharacterRoleAlly         CharacterRole = "ally"
	CharacterRoleEnemy        CharacterRole = "enemy"
	CharacterRoleQuestGiver   CharacterRole = "quest_giver"
	CharacterRoleNeutralParty CharacterRole = "neutral_party"
	CharacterRoleRedHerring   CharacterRole = "red_herring"
)

// CharacterRoles returns the closed set of character roles.
func CharacterRoles() []CharacterRole {
	return []CharacterRole{
		CharacterRoleAlly,
		CharacterRoleEnemy,
		CharacterRoleQuestGiver,
		CharacterRoleNeutralParty,
		CharacterRoleRedHerring,
	}
}

// ParseCharacterRole accepts "quest giver", "Quest-Giver" and "quest_giver" alike.
func ParseCharacterRole(s string) (CharacterRole, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)
	for _, r := range CharacterRoles() {
		if CharacterRole(normalized) == r {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown character role %q", s)
}

// Title renders the role for display, e.g. "Quest Giver".
func (r CharacterRole) Title() string {
	words := strings.Split(string(r), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// Character is a generated non-player character.
type Character struct {
	Name        string        `json:"name"`
	Race        string        `json:"race"`
	Vocation    string        `json:"vocation"`
	Personality string        `json:"personality"`
	Backstory   string        `json:"backstory"`
	Motivations string        `json:"motivations"`
	Role        CharacterRole `json:"role_in_story"`
}

// UnmarshalJSON normalizes the role while decoding.
func (c *Character) UnmarshalJSON(data []byte) error {
	type alias Character
	var raw struct {
		alias
		Role string `json:"role_in_story"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = Character(raw.alias)
	c.Role = ""
	if raw.Role != "" {
		role, err := ParseCharacterRole(raw.Role)
		if err != nil {
			return err
		}
		c.Role = role
	}
	return nil
}

// Validate checks that every field required by the character schema is present.
func (c Character) Validate() error {
	required := map[string]string{
		"name":        c.Name,
		"race":        c.Race,
		"vocation":    c.Vocation,
		"personality": c.Personality,
		"backstory":   c.Backstory,
		"motivations": c.Motivations,
	}
	for _, field := range []string{"name", "race", "vocation", "personality", "backstory", "motivations"} {
		if strings.TrimSpace(required[field]) == "" {
			return fmt.Errorf("character: missing %s", field)
		}
	}
	if _, err := ParseCharacterRole(string(c.Role)); err != nil {
		return fmt.Errorf("character: %w", err)
	}
	return nil
}

// ChallengeRating accepts both "1/2" and 5 from model output.
type ChallengeRating string

func (cr *ChallengeRating) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*cr = ChallengeRating(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("challenge rating must be a string or number: %w", err)
	}
	if f, err := n.Float64(); err == nil {
		*cr = ChallengeRating(strconv.FormatFloat(f, 'f', -1, 64))
		return nil
	}
	*cr = ChallengeRating(n.String())
	return nil
}

// Monster is a single combatant of an encounter.
type Monster struct {
	Name            string          `json:"name"`
	ChallengeRating ChallengeRating `json:"challenge_rating"`
	Description     string          `json:"description"`
}

// Encounter is a generated combat encounter.
type Encounter struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Monsters    []Monster `json:"monsters"`
	Tactics     string    `json:"tactics"`
	Terrain     string    `json:"terrain"`
}

// Validate checks that every field required by the encounter schema is present.
func (e Encounter) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("encounter: missing title")
	}
	if strings.TrimSpace(e.Description) == "" {
		return fmt.Errorf("encounter: missing description")
	}
	if len(e.Monsters) == 0 {
		return fmt.Errorf("encounter: no monsters")
	}
	for i, m := range e.Monsters {
		if strings.TrimSpace(m.Name) == "" {
			return fmt.Errorf("encounter: monster %d: missing name", i)
		}
		if strings.TrimSpace(string(m.ChallengeRating)) == "" {
			return fmt.Errorf("encounter: monster %d: missing challenge_rating", i)
		}
	}
	if strings.TrimSpace(e.Tactics) == "" {
		return fmt.Errorf("encounter: missing tactics")
	}
	if strings.TrimSpace(e.Terrain) == "" {
		return fmt.Errorf("encounter: missing terrain")
	}
	return nil
}
