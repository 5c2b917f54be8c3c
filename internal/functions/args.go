// Package functions declares the tools the model can call.
package functions

import "fmt"

func stringArg(args map[string]any, name string) (string, error) {
	v, ok := args[name].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("%s argument is required", name)
	}
	return v, nil
}

func promptParameters(description string) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"prompt": map[string]any{
				"type":        "string",
				"description": description,
			},
		},
		"required": []string{"prompt"},
	}
}
