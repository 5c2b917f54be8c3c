package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/akwn2/dnd-ai-tutorial/internal/inference"
	"github.com/akwn2/dnd-ai-tutorial/internal/model"
)

// ChatRequest is the request to run one conversation turn.
type ChatRequest struct {
	Prompt   string `json:"prompt"`
	ThreadID string `json:"thread_id"`
}

// Root confirms the API is running.
// GET /
func (h *Handler) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"message": "Game Master Assistant API is running!"})
}

// Chat runs one conversation turn. The answer is read back through History.
// POST /chat
func (h *Handler) Chat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.ThreadID) == "" {
		return errorJSON(c, http.StatusBadRequest, "thread_id is required")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return errorJSON(c, http.StatusBadRequest, "prompt is required")
	}

	ctx, cancel := h.turnContext(c.Request().Context())
	defer cancel()

	if _, err := h.orchestrator.SendStream(ctx, req.ThreadID, req.Prompt, nil); err != nil {
		if inference.IsUnavailable(err) {
			h.logger.Warn("chat degraded", "session_id", req.ThreadID, "error", err)
			return errorJSON(c, http.StatusServiceUnavailable, inference.UnavailableMessage)
		}
		h.logger.Error("chat failed", "session_id", req.ThreadID, "error", err)
		return errorJSON(c, http.StatusInternalServerError, "failed to process chat")
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// History returns the full transcript of a thread.
// GET /history/:thread_id
func (h *Handler) History(c echo.Context) error {
	threadID := c.Param("thread_id")
	if strings.TrimSpace(threadID) == "" {
		return errorJSON(c, http.StatusBadRequest, "thread_id is required")
	}

	messages, err := h.orchestrator.GetSession(c.Request().Context(), threadID)
	if err != nil {
		h.logger.Error("load history failed", "session_id", threadID, "error", err)
		return errorJSON(c, http.StatusInternalServerError, "failed to load history")
	}
	if messages == nil {
		messages = []model.Message{}
	}

	return c.JSON(http.StatusOK, map[string]any{"messages": messages})
}
