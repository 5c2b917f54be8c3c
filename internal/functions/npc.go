package functions

import (
	"context"
	"fmt"

	"github.com/akwn2/dnd-ai-tutorial/internal/agent"
	"github.com/akwn2/dnd-ai-tutorial/internal/capability"
)

func CreateNPCFunctionDeclaration(g *capability.CharacterGenerator) *agent.FunctionDeclaration {
	return &agent.FunctionDeclaration{
		Name:             "generate_npc",
		Description:      "Generates a non-player character (NPC). Input should be a descriptive prompt.",
		ParametersSchema: promptParameters("What kind of character to create, e.g. 'an Orc blacksmith with a grudge'"),
		ResponseSchema:   capability.CharacterSchema(),
		FunctionCall: func(ctx context.Context, args map[string]any) (any, error) {
			prompt, err := stringArg(args, "prompt")
			if err != nil {
				return nil, fmt.Errorf("generate_npc: %w", err)
			}
			return g.Generate(ctx, prompt)
		},
	}
}
