package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/akwn2/dnd-ai-tutorial/internal/inference"
	"github.com/akwn2/dnd-ai-tutorial/internal/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait        = 60 * time.Second
	maxMessageSize  = 64 * 1024
	sendBuffer      = 32
	maxPendingTurns = 8
)

// Stream event types.
const (
	EventMessage = "message"
	EventDone    = "done"
	EventError   = "error"
)

// StreamRequest is a prompt sent by the client over the chat socket.
type StreamRequest struct {
	Prompt string `json:"prompt"`
}

// StreamEvent is pushed to the client for every persisted message and at the end of a turn.
type StreamEvent struct {
	Type    string         `json:"type"`
	Message *model.Message `json:"message,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// ChatStream runs conversation turns over a WebSocket, pushing each message as it is persisted.
// Turns run one at a time on their own goroutine so the read pump keeps serving pongs.
// GET /ws/chat?thread_id=...
func (h *Handler) ChatStream(c echo.Context) error {
	threadID := strings.TrimSpace(c.QueryParam("thread_id"))
	if threadID == "" {
		return errorJSON(c, http.StatusBadRequest, "thread_id is required")
	}

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return nil
	}

	conn := newStreamConn(ws, h.pongWait)
	go conn.writePump()

	prompts := make(chan string, maxPendingTurns)
	turnsDone := make(chan struct{})
	go func() {
		defer close(turnsDone)
		for prompt := range prompts {
			h.streamTurn(conn, threadID, prompt)
		}
	}()

	h.readPump(conn, threadID, prompts)

	// Closing the connection cancels the turn in flight.
	conn.close()
	close(prompts)
	<-turnsDone
	return nil
}

func (h *Handler) readPump(conn *streamConn, threadID string, prompts chan<- string) {
	logger := h.logger.With("session_id", threadID)

	conn.ws.SetReadLimit(maxMessageSize)
	_ = conn.ws.SetReadDeadline(time.Now().Add(conn.pongWait))
	conn.ws.SetPongHandler(func(string) error {
		return conn.ws.SetReadDeadline(time.Now().Add(conn.pongWait))
	})

	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("websocket read failed", "error", err)
			}
			return
		}

		var req StreamRequest
		if err := json.Unmarshal(data, &req); err != nil || strings.TrimSpace(req.Prompt) == "" {
			conn.send(StreamEvent{Type: EventError, Error: "expected {\"prompt\": \"...\"}"})
			continue
		}

		select {
		case prompts <- req.Prompt:
		default:
			conn.send(StreamEvent{Type: EventError, Error: "too many pending prompts"})
		}
	}
}

func (h *Handler) streamTurn(conn *streamConn, threadID, prompt string) {
	ctx, cancel := h.turnContext(context.Background())
	defer cancel()
	go func() {
		select {
		case <-conn.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	_, err := h.orchestrator.SendStream(ctx, threadID, prompt, func(m model.Message) {
		conn.send(StreamEvent{Type: EventMessage, Message: &m})
	})
	switch {
	case err == nil:
		conn.send(StreamEvent{Type: EventDone})
	case inference.IsUnavailable(err):
		conn.send(StreamEvent{Type: EventError, Error: inference.UnavailableMessage})
	default:
		h.logger.Error("stream turn failed", "session_id", threadID, "error", err)
		conn.send(StreamEvent{Type: EventError, Error: "failed to process chat"})
	}
}

// streamConn serializes writes to a websocket through a single writer goroutine.
type streamConn struct {
	ws       *websocket.Conn
	pongWait time.Duration
	outbound chan []byte
	done     chan struct{}
	once     sync.Once
}

func newStreamConn(ws *websocket.Conn, pongWait time.Duration) *streamConn {
	return &streamConn{
		ws:       ws,
		pongWait: pongWait,
		outbound: make(chan []byte, sendBuffer),
		done:     make(chan struct{}),
	}
}

func (c *streamConn) send(event StreamEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	select {
	case c.outbound <- data:
	case <-c.done:
	}
}

func (c *streamConn) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

func (c *streamConn) writePump() {
	ticker := time.NewTicker(c.pongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case data := <-c.outbound:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			return
		}
	}
}
