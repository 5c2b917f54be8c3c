package functions

import (
	"context"

	"github.com/akwn2/dnd-ai-tutorial/internal/agent"
	"github.com/akwn2/dnd-ai-tutorial/internal/capability"
)

// CreateDiceFunctionDeclaration returns the roll_dice tool. Malformed notation is
// answered with a friendly error result rather than failing the turn.
func CreateDiceFunctionDeclaration(d *capability.DiceResolver) *agent.FunctionDeclaration {
	return &agent.FunctionDeclaration{
		Name:        "roll_dice",
		Description: "Rolls dice. Input should be a standard dice notation string (e.g., '2d6', '1d20+5').",
		ParametersSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"dice_string": map[string]any{
					"type":        "string",
					"description": "Dice notation such as 2d6 or 1d20+5",
				},
			},
			"required": []string{"dice_string"},
		},
		ResponseSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"rolls":    map[string]any{"type": "array", "items": map[string]any{"type": "integer"}},
				"modifier": map[string]any{"type": "integer"},
				"total":    map[string]any{"type": "integer"},
				"result":   map[string]any{"type": "string", "description": "The roll in words, e.g. Rolled [3, 5] + 3 = 11"},
			},
		},
		Strategy: agent.Offloaded,
		FunctionCall: func(_ context.Context, args map[string]any) (any, error) {
			notation, _ := args["dice_string"].(string)

			roll, err := d.Roll(notation)
			if err != nil {
				return nil, err
			}

			return map[string]any{
				"rolls":    roll.Rolls,
				"modifier": roll.Modifier,
				"total":    roll.Total,
				"result":   roll.String(),
			}, nil
		},
	}
}
