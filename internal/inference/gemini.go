package inference

import (
	"context"
	"time"

	"google.golang.org/genai"

	"github.com/akwn2/dnd-ai-tutorial/internal/model"
)

const enumMIMEType = "text/x.enum"

// Gemini is a Backend served by the Gemini API through google.golang.org/genai.
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGemini creates a Gemini backend. A zero timeout leaves calls bounded only by ctx.
func NewGemini(client *genai.Client, model string, timeout time.Duration) *Gemini {
	return &Gemini{
		client:  client,
		model:   model,
		timeout: timeout,
	}
}

func (g *Gemini) Generate(ctx context.Context, req Request) (*Response, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, toGenAIContents(req.Messages), generateConfig(req))
	if err != nil {
		return nil, &BackendUnavailableError{Op: "generate content", Err: err}
	}

	parts := fromGenAIResponse(resp)
	if len(parts) == 0 {
		return nil, &BackendUnavailableError{Op: "generate content", Err: ErrEmptyResponse}
	}

	return &Response{Parts: parts}, nil
}

func generateConfig(req Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature: req.Temperature,
	}

	if req.System != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		}
	}

	if len(req.Tools) > 0 {
		cfg.Tools = getTools(req.Tools)
	}

	switch {
	case len(req.Enum) > 0:
		cfg.ResponseMIMEType = enumMIMEType
		cfg.ResponseSchema = &genai.Schema{
			Type: genai.TypeString,
			Enum: req.Enum,
		}
	case req.JSONSchema != nil:
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseJsonSchema = req.JSONSchema
	}

	return cfg
}

func getTools(specs []ToolSpec) []*genai.Tool {
	functions := make([]*genai.FunctionDeclaration, 0, len(specs))
	for _, spec := range specs {
		functions = append(functions, &genai.FunctionDeclaration{
			Name:                 spec.Name,
			Description:          spec.Description,
			ParametersJsonSchema: spec.Parameters,
			ResponseJsonSchema:   spec.Response,
		})
	}

	return []*genai.Tool{
		{
			FunctionDeclarations: functions,
		},
	}
}

func genAIRole(role string) string {
	switch role {
	case model.RoleModel, model.RoleAI:
		return genai.RoleModel
	default:
		return genai.RoleUser
	}
}

// toGenAIContents converts transcript messages into genai history.
func toGenAIContents(messages []model.Message) []*genai.Content {
	result := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		gc := &genai.Content{Role: genAIRole(m.Role), Parts: make([]*genai.Part, 0, len(m.Parts))}
		for _, p := range m.Parts {
			if p.Text != "" {
				gc.Parts = append(gc.Parts, &genai.Part{Text: p.Text})
			}
			if p.ToolCall != nil {
				gc.Parts = append(gc.Parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{
						ID:   p.ToolCall.ID,
						Name: p.ToolCall.Name,
						Args: p.ToolCall.Args,
					},
				})
			}
			if p.ToolResult != nil {
				gc.Parts = append(gc.Parts, &genai.Part{
					FunctionResponse: &genai.FunctionResponse{
						ID:       p.ToolResult.ID,
						Name:     p.ToolResult.Name,
						Response: p.ToolResult.Response,
					},
				})
			}
		}
		if len(gc.Parts) > 0 {
			result = append(result, gc)
		}
	}
	return result
}

// fromGenAIResponse extracts the text and function-call parts of the first usable candidate.
func fromGenAIResponse(resp *genai.GenerateContentResponse) []model.Part {
	if resp == nil {
		return nil
	}

	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}

		parts := make([]model.Part, 0, len(candidate.Content.Parts))
		for _, p := range candidate.Content.Parts {
			if p == nil || p.Thought {
				continue
			}
			switch {
			case p.FunctionCall != nil:
				parts = append(parts, model.Part{
					ToolCall: &model.ToolCall{
						ID:   p.FunctionCall.ID,
						Name: p.FunctionCall.Name,
						Args: p.FunctionCall.Args,
					},
				})
			case p.Text != "":
				parts = append(parts, model.TextPart(p.Text))
			}
		}
		if len(parts) > 0 {
			return parts
		}
	}

	return nil
}
