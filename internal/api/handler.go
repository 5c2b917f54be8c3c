// Package api exposes the assistant over HTTP and WebSocket.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/akwn2/dnd-ai-tutorial/internal/capability"
	"github.com/akwn2/dnd-ai-tutorial/internal/model"
)

// Orchestrator runs conversation turns. Both the tool-calling agent and the
// routed supervisor satisfy it.
type Orchestrator interface {
	SendStream(ctx context.Context, sessionID string, prompt string, emit func(model.Message)) ([]model.Message, error)
	GetSession(ctx context.Context, sessionID string) ([]model.Message, error)
}

// Tools are the capabilities exposed as standalone endpoints.
type Tools struct {
	Characters *capability.CharacterGenerator
	Encounters *capability.EncounterGenerator
	Dice       *capability.DiceResolver
	Lore       *capability.LoreKeeper
}

// Handler serves the API routes.
type Handler struct {
	orchestrator   Orchestrator
	tools          Tools
	logger         *slog.Logger
	requestTimeout time.Duration
	pongWait       time.Duration
	upgrader       websocket.Upgrader
}

// NewHandler creates a Handler. A zero requestTimeout leaves turns bounded only by the client.
func NewHandler(orchestrator Orchestrator, tools Tools, logger *slog.Logger, requestTimeout time.Duration) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		orchestrator:   orchestrator,
		tools:          tools,
		logger:         logger,
		requestTimeout: requestTimeout,
		pongWait:       pongWait,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// RegisterRoutes registers all routes on e.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Root)
	e.POST("/chat", h.Chat)
	e.GET("/history/:thread_id", h.History)
	e.GET("/ws/chat", h.ChatStream)

	e.POST("/generate_npc", h.GenerateNPC)
	e.POST("/generate_encounter", h.GenerateEncounter)
	e.POST("/roll_dice", h.RollDice)
	e.POST("/ask_lore_keeper", h.AskLoreKeeper)
}

func (h *Handler) turnContext(parent context.Context) (context.Context, context.CancelFunc) {
	if h.requestTimeout > 0 {
		return context.WithTimeout(parent, h.requestTimeout)
	}
	return context.WithCancel(parent)
}

func errorJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"error": msg})
}
