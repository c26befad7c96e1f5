package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Jayem09/coduxa-sub000/internal/auth"
	"github.com/Jayem09/coduxa-sub000/internal/server"
	httperrors "github.com/Jayem09/coduxa-sub000/pkg/http/errors"
	ws "github.com/Jayem09/coduxa-sub000/pkg/http/ws"
)

// WSHandler streams session events to the candidate over WebSocket.
type WSHandler struct {
	service *Service
	hub     *ws.Hub
	tokens  auth.TokenValidator
	logger  zerolog.Logger
}

// NewWSHandler creates a session WebSocket handler.
func NewWSHandler(service *Service, hub *ws.Hub, tokens auth.TokenValidator, logger zerolog.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		hub:     hub,
		tokens:  tokens,
		logger:  logger.With().Str("component", "session_ws").Logger(),
	}
}

// HandleWebSocket handles GET /ws/sessions/{sessionID}?token=...
func (h *WSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// browsers cannot set headers on the upgrade request
	token := r.URL.Query().Get("token")
	if token == "" {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "Missing token")
		return
	}

	claims, err := h.tokens.ValidateAccessToken(token)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket token validation failed")
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "Invalid token")
		return
	}

	sessionID := r.PathValue("sessionID")
	userID := claims.UserID()
	if _, err := h.service.View(r.Context(), sessionID, userID); err != nil {
		NewHTTPHandlers(h.service, h.logger).respondErr(w, err)
		return
	}

	conn, err := server.WSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	h.HandleConnection(conn, sessionID, userID)
}

// HandleConnection serves an upgraded connection until the peer leaves.
func (h *WSHandler) HandleConnection(conn *websocket.Conn, sessionID, userID string) {
	wsConn := ws.NewConnection(conn, h.logger.With().Str("user_id", userID).Logger())
	h.hub.RegisterConnection(userID, wsConn)
	h.hub.JoinSession(sessionID, userID)

	go wsConn.WritePump()

	if err := h.sendState(context.Background(), sessionID, userID); err != nil {
		h.logger.Warn().Err(err).Str("session_id", sessionID).Msg("initial state push failed")
	}

	wsConn.ReadPump(func(msg ws.Message) error {
		return h.handleMessage(context.Background(), sessionID, userID, msg)
	})

	h.hub.UnregisterConnection(userID, wsConn)
}

func (h *WSHandler) handleMessage(ctx context.Context, sessionID, userID string, msg ws.Message) error {
	switch msg.Type {
	case ws.TypeRequestState:
		var req ws.RequestStatePayload
		if len(msg.Payload) > 0 {
			if err := json.Unmarshal(msg.Payload, &req); err != nil {
				return h.sendError(userID, httperrors.ErrCodeInvalidPayload, "Invalid request_state payload")
			}
		}
		if req.SessionID != "" && req.SessionID != sessionID {
			return h.sendError(userID, httperrors.ErrCodeNotSessionOwner, "Connection is bound to another session")
		}
		return h.sendState(ctx, sessionID, userID)
	case ws.TypePing:
		return h.hub.SendToUser(userID, ws.Message{Type: ws.TypePong, RequestID: msg.RequestID})
	default:
		return h.sendError(userID, httperrors.ErrCodeUnknownMessageType, fmt.Sprintf("Unknown message type: %s", msg.Type))
	}
}

func (h *WSHandler) sendState(ctx context.Context, sessionID, userID string) error {
	view, err := h.service.View(ctx, sessionID, userID)
	if err != nil {
		return h.sendError(userID, httperrors.ErrCodeSessionNotFound, err.Error())
	}
	answered := make([]string, 0, len(view.Answers))
	for _, q := range view.Questions {
		if _, ok := view.Answers[q.ID]; ok {
			answered = append(answered, q.ID)
		}
	}
	msg, err := ws.NewMessage(ws.TypeSessionState, ws.SessionStatePayload{
		SessionID:        view.SessionID,
		Status:           string(view.Status),
		CurrentIndex:     view.CurrentIndex,
		Accessible:       view.Accessible,
		Answered:         answered,
		Flagged:          view.Flagged,
		RemainingSeconds: view.RemainingSeconds,
	})
	if err != nil {
		return err
	}
	return h.hub.SendToUser(userID, msg)
}

func (h *WSHandler) sendError(userID, code, message string) error {
	msg, err := ws.NewMessage(ws.TypeError, ws.ErrorPayload{Code: code, Message: message})
	if err != nil {
		return err
	}
	return h.hub.SendToUser(userID, msg)
}
