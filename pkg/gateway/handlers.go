package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/labelsense/labelsense/pkg/advisor"
	"github.com/labelsense/labelsense/pkg/analysis"
	"github.com/labelsense/labelsense/pkg/store"
)

// sessionHeader carries the session id on follow-up requests.
const sessionHeader = "X-Session-Id"

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id"`
}

type analyzeResponse struct {
	SessionID string             `json:"session_id"`
	Artifacts analysis.Artifacts `json:"artifacts"`
}

type askRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Question  string `json:"question"`
}

type askResponse struct {
	SessionID          string   `json:"session_id"`
	Reply              string   `json:"reply"`
	SuggestedQuestions []string `json:"suggested_questions"`
}

type sessionResponse struct {
	advisor.Overview
	History []store.HistoryEntry `json:"history,omitempty"`
}

func requestID() string {
	id, err := gonanoid.New()
	if err != nil {
		return "unknown"
	}
	return id
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// statusFor maps domain errors onto HTTP statuses. Validation problems are
// the caller's fault, an unreadable image is a semantic rejection, and a
// failed answer stage is an upstream failure.
func statusFor(err error) int {
	var stageErr *analysis.StageError
	switch {
	case errors.Is(err, advisor.ErrEmptyQuestion),
		errors.Is(err, analysis.ErrEmptyImage),
		errors.Is(err, analysis.ErrUnsupportedMediaType):
		return http.StatusBadRequest
	case errors.Is(err, advisor.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, analysis.ErrImageUnreadable):
		return http.StatusUnprocessableEntity
	case errors.As(err, &stageErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, reqID string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("request_id", reqID).Msg("request failed")
	} else {
		s.logger.Debug().Err(err).Str("request_id", reqID).Msg("request rejected")
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), RequestID: reqID})
}

// handleAnalyses accepts one label image as multipart form data under the
// "image" field and starts an analysis session.
func (s *Server) handleAnalyses(w http.ResponseWriter, r *http.Request) {
	reqID := requestID()

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.shuttingDown() {
		http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	file, header, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing image field", RequestID: reqID})
		return
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "failed to read image", RequestID: reqID})
		return
	}

	mediaType := header.Header.Get("Content-Type")
	if mediaType == "" || mediaType == "application/octet-stream" {
		mediaType = http.DetectContentType(image)
	}

	s.logger.Info().
		Str("request_id", reqID).
		Str("media_type", mediaType).
		Int("bytes", len(image)).
		Msg("analysis requested")

	sess, err := s.service.AnalyzeImage(r.Context(), image, mediaType)
	if err != nil {
		s.writeError(w, reqID, err)
		return
	}

	w.Header().Set(sessionHeader, sess.ID)
	writeJSON(w, http.StatusCreated, analyzeResponse{
		SessionID: sess.ID,
		Artifacts: sess.Artifacts,
	})
}

// handleAsk answers one follow-up question. The session id comes from the
// X-Session-Id header, with the request body as a fallback.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	reqID := requestID()

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body", RequestID: reqID})
		return
	}

	sessionID := r.Header.Get(sessionHeader)
	if sessionID == "" {
		sessionID = req.SessionID
	}

	answer, err := s.service.Ask(r.Context(), sessionID, req.Question)
	if err != nil {
		s.writeError(w, reqID, err)
		return
	}

	writeJSON(w, http.StatusOK, askResponse{
		SessionID:          sessionID,
		Reply:              answer.Reply,
		SuggestedQuestions: answer.SuggestedQuestions,
	})
}

// handleSession serves and deletes sessions addressed by the X-Session-Id
// header. GET returns the overview, or the full history with ?full=true.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	reqID := requestID()

	sessionID := r.Header.Get(sessionHeader)
	if sessionID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing " + sessionHeader + " header", RequestID: reqID})
		return
	}

	switch r.Method {
	case http.MethodGet:
		overview, err := s.service.SessionSummary(r.Context(), sessionID)
		if err != nil {
			s.writeError(w, reqID, err)
			return
		}
		resp := sessionResponse{Overview: overview}
		if strings.EqualFold(r.URL.Query().Get("full"), "true") {
			sess, err := s.service.Session(r.Context(), sessionID)
			if err != nil {
				s.writeError(w, reqID, err)
				return
			}
			resp.History = sess.History
		}
		writeJSON(w, http.StatusOK, resp)

	case http.MethodDelete:
		if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
			s.writeError(w, reqID, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
