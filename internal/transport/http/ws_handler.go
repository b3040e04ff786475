package http

import (
	"context"
	"encoding/json"
	"net/http"

	"dentallearn/internal/app"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WSHandler pushes the caller's leaderboard view whenever weekly points move.
type WSHandler struct {
	service  *app.Gamification
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewWSHandler(service *app.Gamification, log *zap.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeLeaderboard upgrades the request and streams leaderboard views for
// userID until the client goes away. A {"type":"refresh"} message forces a
// fresh view.
func (h *WSHandler) ServeLeaderboard(w http.ResponseWriter, r *http.Request, userID string, window int) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Info("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx := r.Context()
	updates, cancel := h.service.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	refresh := make(chan struct{}, 1)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// single writer; gorilla connections do not support concurrent writes
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write error", zap.Error(err), zap.String(userIDKey, userID))
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case _, ok := <-updates:
				if !ok {
					return
				}
			case <-refresh:
			case <-closeSignals:
				return
			}
			select {
			case send <- h.view(ctx, userID, window):
			case <-closeSignals:
				return
			}
		}
	}()

	send <- h.view(ctx, userID, window)

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "refresh":
			select {
			case refresh <- struct{}{}:
			default:
			}
		default:
			select {
			case send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}:
			case <-writerDone:
			}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) view(ctx context.Context, userID string, window int) outboundMessage[any] {
	view, err := h.service.Leaderboard(ctx, userID, window)
	if err != nil {
		h.log.Error("failed to build leaderboard view", zap.Error(err), zap.String(userIDKey, userID))
		return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "leaderboard unavailable"}}
	}
	return outboundMessage[any]{Type: "leaderboard", Payload: view}
}
