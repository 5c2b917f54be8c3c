package functions

import (
	"context"
	"fmt"

	"github.com/akwn2/dnd-ai-tutorial/internal/agent"
	"github.com/akwn2/dnd-ai-tutorial/internal/capability"
)

// CreateLoreFunctionDeclaration returns an agent tool that answers campaign
// questions from the indexed lore documents.
func CreateLoreFunctionDeclaration(k *capability.LoreKeeper) *agent.FunctionDeclaration {
	return &agent.FunctionDeclaration{
		Name:             "ask_lore_keeper",
		Description:      "Answers questions about campaign lore. Input should be the user's question.",
		ParametersSchema: promptParameters("The question about the campaign world"),
		ResponseSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"output": map[string]any{
					"type":        "string",
					"description": "The Lore Keeper's answer",
				},
			},
		},
		FunctionCall: func(ctx context.Context, args map[string]any) (any, error) {
			question, err := stringArg(args, "prompt")
			if err != nil {
				return nil, fmt.Errorf("ask_lore_keeper: %w", err)
			}
			return k.Ask(ctx, question)
		},
	}
}
