package inference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/akwn2/dnd-ai-tutorial/internal/model"
)

func TestToGenAIContentsMapsRolesAndParts(t *testing.T) {
	contents := toGenAIContents([]model.Message{
		model.NewTextMessage(model.RoleHuman, "hi"),
		model.NewTextMessage(model.RoleAI, "hello"),
		{Role: model.RoleUser, Parts: []model.Part{
			{ToolResult: &model.ToolResult{ID: "c1", Name: "roll_dice", Response: map[string]any{"total": 7}}},
		}},
		{Role: model.RoleModel, Parts: []model.Part{
			{ToolCall: &model.ToolCall{ID: "c2", Name: "generate_npc", Args: map[string]any{"prompt": "orc"}}},
		}},
		{Role: model.RoleUser},
	})

	require.Len(t, contents, 4)
	assert.Equal(t, genai.RoleUser, contents[0].Role)
	assert.Equal(t, genai.RoleModel, contents[1].Role)
	assert.Equal(t, "hello", contents[1].Parts[0].Text)

	require.NotNil(t, contents[2].Parts[0].FunctionResponse)
	assert.Equal(t, "c1", contents[2].Parts[0].FunctionResponse.ID)
	assert.Equal(t, "roll_dice", contents[2].Parts[0].FunctionResponse.Name)

	require.NotNil(t, contents[3].Parts[0].FunctionCall)
	assert.Equal(t, "orc", contents[3].Parts[0].FunctionCall.Args["prompt"])
}

func TestFromGenAIResponseSkipsEmptyCandidates(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			nil,
			{Content: &genai.Content{Parts: []*genai.Part{{Text: "hidden", Thought: true}}}},
			{Content: &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{
				{Text: "Let me roll."},
				{FunctionCall: &genai.FunctionCall{ID: "c1", Name: "roll_dice", Args: map[string]any{"dice_string": "1d20"}}},
			}}},
		},
	}

	parts := fromGenAIResponse(resp)
	require.Len(t, parts, 2)
	assert.Equal(t, "Let me roll.", parts[0].Text)
	require.NotNil(t, parts[1].ToolCall)
	assert.Equal(t, "roll_dice", parts[1].ToolCall.Name)

	assert.Empty(t, fromGenAIResponse(nil))
	assert.Empty(t, fromGenAIResponse(&genai.GenerateContentResponse{}))
}

func TestGenerateConfig(t *testing.T) {
	cfg := generateConfig(Request{
		System: "be brief",
		Tools:  []ToolSpec{{Name: "roll_dice", Description: "Rolls dice.", Parameters: map[string]any{"type": "object"}}},
	})
	require.NotNil(t, cfg.SystemInstruction)
	assert.Equal(t, "be brief", cfg.SystemInstruction.Parts[0].Text)
	require.Len(t, cfg.Tools, 1)
	assert.Equal(t, "roll_dice", cfg.Tools[0].FunctionDeclarations[0].Name)
	assert.Empty(t, cfg.ResponseMIMEType)

	cfg = generateConfig(Request{Enum: []string{"a", "b"}})
	assert.Equal(t, enumMIMEType, cfg.ResponseMIMEType)
	require.NotNil(t, cfg.ResponseSchema)
	assert.Equal(t, []string{"a", "b"}, cfg.ResponseSchema.Enum)

	schema := map[string]any{"type": "object"}
	cfg = generateConfig(Request{JSONSchema: schema, Temperature: Float32(0)})
	assert.Equal(t, "application/json", cfg.ResponseMIMEType)
	assert.Equal(t, schema, cfg.ResponseJsonSchema)
	require.NotNil(t, cfg.Temperature)
	assert.Zero(t, *cfg.Temperature)
}

func TestBackendUnavailableError(t *testing.T) {
	err := error(&BackendUnavailableError{Op: "generate content", Err: ErrEmptyResponse})
	assert.True(t, IsUnavailable(err))
	assert.ErrorIs(t, err, ErrEmptyResponse)
	assert.Contains(t, err.Error(), "generate content")
	assert.False(t, IsUnavailable(ErrEmptyResponse))
}
