package capability

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Bounds keep every total within int range.
const (
	maxDice     = 1000
	maxSides    = 1_000_000
	maxModifier = 1_000_000
)

// DiceFormatHint is the user-facing message for malformed notation.
const DiceFormatHint = "Invalid dice format. Please use a format like '2d6' or '1d20+3'."

var (
	diceNotation = regexp.MustCompile(`^(\d+)d(\d+)([+-]\d+)?$`)
	diceInText   = regexp.MustCompile(`\b\d+d\d+(?:\s*[+-]\s*\d+)?\b`)
)

// DiceRoll is the outcome of resolving dice notation.
type DiceRoll struct {
	Notation string `json:"notation"`
	NumDice  int    `json:"num_dice"`
	NumSides int    `json:"num_sides"`
	Modifier int    `json:"modifier"`
	Rolls    []int  `json:"rolls"`
	Total    int    `json:"total"`
}

// String renders the roll, e.g. "Rolled [3, 5] + 3 = 11".
func (r DiceRoll) String() string {
	rolls := make([]string, len(r.Rolls))
	for i, v := range r.Rolls {
		rolls[i] = strconv.Itoa(v)
	}
	out := fmt.Sprintf("Rolled [%s]", strings.Join(rolls, ", "))
	switch {
	case r.Modifier > 0:
		out += fmt.Sprintf(" + %d", r.Modifier)
	case r.Modifier < 0:
		out += fmt.Sprintf(" - %d", -r.Modifier)
	}
	return fmt.Sprintf("%s = %d", out, r.Total)
}

// DiceResolver rolls dice notation such as "2d6" or "1d20+5".
type DiceResolver struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewDiceResolver creates a DiceResolver. A nil rng is seeded from the clock.
func NewDiceResolver(rng *rand.Rand) *DiceResolver {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	return &DiceResolver{rng: rng}
}

// Roll parses notation and rolls it. Malformed notation yields a *UserInputError.
func (d *DiceResolver) Roll(notation string) (DiceRoll, error) {
	normalized := strings.ToLower(strings.TrimSpace(notation))
	normalized = strings.Join(strings.Fields(normalized), "")

	m := diceNotation.FindStringSubmatch(normalized)
	if m == nil {
		return DiceRoll{}, &UserInputError{Message: DiceFormatHint}
	}

	numDice, err1 := strconv.Atoi(m[1])
	numSides, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil || numDice <= 0 || numSides <= 0 || numSides > maxSides {
		return DiceRoll{}, &UserInputError{Message: DiceFormatHint}
	}
	if numDice > maxDice {
		return DiceRoll{}, &UserInputError{Message: fmt.Sprintf("That's too many dice. Please roll at most %d at once.", maxDice)}
	}

	modifier := 0
	if m[3] != "" {
		mod, err := strconv.Atoi(m[3])
		if err != nil || mod > maxModifier || mod < -maxModifier {
			return DiceRoll{}, &UserInputError{Message: DiceFormatHint}
		}
		modifier = mod
	}

	roll := DiceRoll{
		Notation: normalized,
		NumDice:  numDice,
		NumSides: numSides,
		Modifier: modifier,
		Rolls:    make([]int, numDice),
	}

	d.mu.Lock()
	for i := range roll.Rolls {
		roll.Rolls[i] = d.rng.IntN(numSides) + 1
	}
	d.mu.Unlock()

	for _, v := range roll.Rolls {
		roll.Total += v
	}
	roll.Total += modifier

	return roll, nil
}

// Resolve rolls notation and returns the rendered result or the user-facing error message.
func (d *DiceResolver) Resolve(notation string) string {
	roll, err := d.Roll(notation)
	if err != nil {
		return err.Error()
	}
	return roll.String()
}

// ExtractNotation finds the first dice expression in free text, e.g. "roll 2d6+3 please".
func ExtractNotation(text string) (string, bool) {
	found := diceInText.FindString(strings.ToLower(text))
	if found == "" {
		return "", false
	}
	return strings.Join(strings.Fields(found), ""), true
}
