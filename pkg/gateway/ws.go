package gateway

import (
	"net/http"

	"github.com/gorilla/websocket"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Frame types on the conversation socket.
const (
	frameAsk    = "ask"
	frameAnswer = "answer"
	frameError  = "error"
)

type wsFrame struct {
	Type               string   `json:"type"`
	SessionID          string   `json:"session_id,omitempty"`
	Question           string   `json:"question,omitempty"`
	Reply              string   `json:"reply,omitempty"`
	SuggestedQuestions []string `json:"suggested_questions,omitempty"`
	Error              string   `json:"error,omitempty"`
}

// handleWebSocket upgrades the connection and serves ask frames until the
// client disconnects. Each ask frame carries its own session id so one
// socket can drive several sessions.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.shuttingDown() {
		http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to upgrade connection")
		return
	}

	clientID, _ := gonanoid.New()
	logger := s.logger.With().Str("client_id", clientID).Logger()
	logger.Info().Str("ip", r.RemoteAddr).Msg("client connected")

	defer func() {
		conn.Close()
		logger.Info().Msg("client disconnected")
	}()

	for {
		var frame wsFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn().Err(err).Msg("read error")
			}
			return
		}

		switch frame.Type {
		case frameAsk:
			resp := s.answerFrame(r, frame)
			if err := conn.WriteJSON(resp); err != nil {
				logger.Warn().Err(err).Msg("write error")
				return
			}
		default:
			_ = conn.WriteJSON(wsFrame{
				Type:      frameError,
				SessionID: frame.SessionID,
				Error:     "unknown frame type: " + frame.Type,
			})
		}
	}
}

func (s *Server) answerFrame(r *http.Request, frame wsFrame) wsFrame {
	answer, err := s.service.Ask(r.Context(), frame.SessionID, frame.Question)
	if err != nil {
		return wsFrame{
			Type:      frameError,
			SessionID: frame.SessionID,
			Error:     err.Error(),
		}
	}
	return wsFrame{
		Type:               frameAnswer,
		SessionID:          frame.SessionID,
		Reply:              answer.Reply,
		SuggestedQuestions: answer.SuggestedQuestions,
	}
}
