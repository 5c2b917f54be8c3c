package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/akwn2/dnd-ai-tutorial/internal/capability"
	"github.com/akwn2/dnd-ai-tutorial/internal/inference"
)

// ToolRequest is the request body of the standalone capability endpoints.
type ToolRequest struct {
	Prompt string `json:"prompt"`
}

func bindPrompt(c echo.Context) (string, error) {
	var req ToolRequest
	if err := c.Bind(&req); err != nil {
		return "", err
	}
	return req.Prompt, nil
}

// capabilityError maps a capability failure to a response.
func (h *Handler) capabilityError(c echo.Context, tool string, err error) error {
	var (
		inputErr *capability.UserInputError
		parseErr *capability.GenerationParseError
	)
	switch {
	case errors.As(err, &inputErr):
		return errorJSON(c, http.StatusBadRequest, inputErr.Message)
	case inference.IsUnavailable(err):
		h.logger.Warn("capability degraded", "tool", tool, "error", err)
		return errorJSON(c, http.StatusServiceUnavailable, inference.UnavailableMessage)
	case errors.As(err, &parseErr):
		h.logger.Warn("generation did not match schema", "tool", tool, "error", err)
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": parseErr.Error(),
			"raw":   parseErr.Raw,
		})
	default:
		h.logger.Error("capability failed", "tool", tool, "error", err)
		return errorJSON(c, http.StatusInternalServerError, "failed to run "+tool)
	}
}

// GenerateNPC generates a non-player character.
// POST /generate_npc
func (h *Handler) GenerateNPC(c echo.Context) error {
	prompt, err := bindPrompt(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}

	ctx, cancel := h.turnContext(c.Request().Context())
	defer cancel()

	character, err := h.tools.Characters.Generate(ctx, prompt)
	if err != nil {
		return h.capabilityError(c, "generate_npc", err)
	}
	return c.JSON(http.StatusOK, character)
}

// GenerateEncounter generates a combat encounter.
// POST /generate_encounter
func (h *Handler) GenerateEncounter(c echo.Context) error {
	prompt, err := bindPrompt(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}

	ctx, cancel := h.turnContext(c.Request().Context())
	defer cancel()

	encounter, err := h.tools.Encounters.Generate(ctx, prompt)
	if err != nil {
		return h.capabilityError(c, "generate_encounter", err)
	}
	return c.JSON(http.StatusOK, encounter)
}

// RollDice rolls dice notation, found either as the whole prompt or inside it.
// Malformed notation is answered with a friendly result, not an error status.
// POST /roll_dice
func (h *Handler) RollDice(c echo.Context) error {
	prompt, err := bindPrompt(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}

	notation := prompt
	if found, ok := capability.ExtractNotation(prompt); ok {
		notation = found
	}

	roll, err := h.tools.Dice.Roll(notation)
	if err != nil {
		var inputErr *capability.UserInputError
		if errors.As(err, &inputErr) {
			return c.JSON(http.StatusOK, map[string]string{"result": inputErr.Message})
		}
		return h.capabilityError(c, "roll_dice", err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"rolls":    roll.Rolls,
		"modifier": roll.Modifier,
		"total":    roll.Total,
		"result":   roll.String(),
	})
}

// AskLoreKeeper answers a question about the campaign lore.
// POST /ask_lore_keeper
func (h *Handler) AskLoreKeeper(c echo.Context) error {
	prompt, err := bindPrompt(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}

	ctx, cancel := h.turnContext(c.Request().Context())
	defer cancel()

	answer, err := h.tools.Lore.Ask(ctx, prompt)
	if err != nil {
		return h.capabilityError(c, "ask_lore_keeper", err)
	}
	return c.JSON(http.StatusOK, map[string]string{"answer": answer})
}
