package functions

import (
	"context"
	"fmt"

	"github.com/akwn2/dnd-ai-tutorial/internal/agent"
	"github.com/akwn2/dnd-ai-tutorial/internal/capability"
)

func CreateEncounterFunctionDeclaration(g *capability.EncounterGenerator) *agent.FunctionDeclaration {
	return &agent.FunctionDeclaration{
		Name:             "generate_encounter",
		Description:      "Generates a combat encounter. Input should be a descriptive prompt.",
		ParametersSchema: promptParameters("The situation to build an encounter for, e.g. 'a goblin ambush on a forest road'"),
		ResponseSchema:   capability.EncounterSchema(),
		FunctionCall: func(ctx context.Context, args map[string]any) (any, error) {
			prompt, err := stringArg(args, "prompt")
			if err != nil {
				return nil, fmt.Errorf("generate_encounter: %w", err)
			}
			return g.Generate(ctx, prompt)
		},
	}
}
