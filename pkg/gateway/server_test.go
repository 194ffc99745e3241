package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labelsense/labelsense/pkg/advisor"
	"github.com/labelsense/labelsense/pkg/analysis"
	"github.com/labelsense/labelsense/pkg/store"
)

type stubService struct {
	session    *store.Session
	analyzeErr error

	answer analysis.Answer
	askErr error

	overview   advisor.Overview
	summaryErr error

	deleteErr error
	deleted   []string

	lastMediaType string
	lastQuestion  string
	lastSessionID string
}

func (s *stubService) AnalyzeImage(ctx context.Context, image []byte, mediaType string) (*store.Session, error) {
	s.lastMediaType = mediaType
	if s.analyzeErr != nil {
		return nil, s.analyzeErr
	}
	return s.session, nil
}

func (s *stubService) Ask(ctx context.Context, sessionID, question string) (analysis.Answer, error) {
	s.lastSessionID = sessionID
	s.lastQuestion = question
	if s.askErr != nil {
		return analysis.Answer{}, s.askErr
	}
	return s.answer, nil
}

func (s *stubService) SessionSummary(ctx context.Context, sessionID string) (advisor.Overview, error) {
	if s.summaryErr != nil {
		return advisor.Overview{}, s.summaryErr
	}
	return s.overview, nil
}

func (s *stubService) Session(ctx context.Context, sessionID string) (*store.Session, error) {
	if s.session == nil {
		return nil, advisor.ErrSessionNotFound
	}
	return s.session, nil
}

func (s *stubService) DeleteSession(ctx context.Context, sessionID string) error {
	s.deleted = append(s.deleted, sessionID)
	return s.deleteErr
}

func newTestServer(t *testing.T, svc Service) *Server {
	t.Helper()
	srv, err := NewServer(Config{
		Port:    18080,
		Service: svc,
		Logger:  zerolog.Nop(),
	})
	require.NoError(t, err)
	return srv
}

func multipartImage(t *testing.T, field, filename, contentType string, payload []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestNewServer_Validation(t *testing.T) {
	_, err := NewServer(Config{Port: 0, Service: &stubService{}})
	assert.Error(t, err)

	_, err = NewServer(Config{Port: 8080})
	assert.Error(t, err)
}

func TestHandleAnalyses_Success(t *testing.T) {
	svc := &stubService{
		session: &store.Session{
			ID: "sess-1",
			Artifacts: analysis.Artifacts{
				Extraction: analysis.Extraction{ProductName: "Oat Crisp"},
				Summary:    analysis.Summary{Verdict: analysis.VerdictFavorable, HealthScore: 70},
			},
		},
	}
	srv := newTestServer(t, svc)

	body, contentType := multipartImage(t, "image", "label.png", "image/png", []byte("fake-png"))
	req := httptest.NewRequest(http.MethodPost, "/v1/analyses", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "sess-1", rec.Header().Get(sessionHeader))
	assert.Equal(t, "image/png", svc.lastMediaType)

	var resp analyzeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "sess-1", resp.SessionID)
	assert.Equal(t, "Oat Crisp", resp.Artifacts.Extraction.ProductName)
}

func TestHandleAnalyses_MissingImage(t *testing.T) {
	srv := newTestServer(t, &stubService{})

	body, contentType := multipartImage(t, "photo", "label.png", "image/png", []byte("fake"))
	req := httptest.NewRequest(http.MethodPost, "/v1/analyses", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleAnalyses_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unreadable image", analysis.ErrImageUnreadable, http.StatusUnprocessableEntity},
		{"unsupported media type", analysis.ErrUnsupportedMediaType, http.StatusBadRequest},
		{"empty image", analysis.ErrEmptyImage, http.StatusBadRequest},
		{"stage failure", &analysis.StageError{Stage: analysis.StageExtract, Reason: "timeout"}, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &stubService{analyzeErr: tt.err})

			body, contentType := multipartImage(t, "image", "label.png", "image/png", []byte("fake"))
			req := httptest.NewRequest(http.MethodPost, "/v1/analyses", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()

			srv.Handler().ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestHandleAsk_Success(t *testing.T) {
	svc := &stubService{
		answer: analysis.Answer{
			Reply:              "Mostly whole grains.",
			SuggestedQuestions: []string{"Any allergens?"},
		},
	}
	srv := newTestServer(t, svc)

	payload, _ := json.Marshal(askRequest{Question: "What is it made of?"})
	req := httptest.NewRequest(http.MethodPost, "/v1/ask", bytes.NewReader(payload))
	req.Header.Set(sessionHeader, "sess-1")
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sess-1", svc.lastSessionID)
	assert.Equal(t, "What is it made of?", svc.lastQuestion)

	var resp askResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Mostly whole grains.", resp.Reply)
	assert.Equal(t, []string{"Any allergens?"}, resp.SuggestedQuestions)
}

func TestHandleAsk_SessionIDFromBodyFallback(t *testing.T) {
	svc := &stubService{answer: analysis.Answer{Reply: "ok"}}
	srv := newTestServer(t, svc)

	payload, _ := json.Marshal(askRequest{SessionID: "sess-body", Question: "q"})
	req := httptest.NewRequest(http.MethodPost, "/v1/ask", bytes.NewReader(payload))
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sess-body", svc.lastSessionID)
}

func TestHandleAsk_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"empty question", advisor.ErrEmptyQuestion, http.StatusBadRequest},
		{"unknown session", advisor.ErrSessionNotFound, http.StatusNotFound},
		{"respond failure", &analysis.StageError{Stage: analysis.StageRespond, Reason: "timeout"}, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &stubService{askErr: tt.err})

			payload, _ := json.Marshal(askRequest{Question: "q"})
			req := httptest.NewRequest(http.MethodPost, "/v1/ask", bytes.NewReader(payload))
			req.Header.Set(sessionHeader, "sess-1")
			rec := httptest.NewRecorder()

			srv.Handler().ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestHandleSession_Get(t *testing.T) {
	svc := &stubService{
		overview: advisor.Overview{
			SessionID:    "sess-1",
			ProductName:  "Oat Crisp",
			Verdict:      analysis.VerdictFavorable,
			HealthScore:  70,
			MessageCount: 4,
			CreatedAt:    time.Now(),
		},
	}
	srv := newTestServer(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/v1/session", nil)
	req.Header.Set(sessionHeader, "sess-1")
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Oat Crisp", resp.ProductName)
	assert.Equal(t, 4, resp.MessageCount)
	assert.Empty(t, resp.History)
}

func TestHandleSession_GetFullIncludesHistory(t *testing.T) {
	svc := &stubService{
		overview: advisor.Overview{SessionID: "sess-1", ProductName: "Oat Crisp"},
		session: &store.Session{
			ID: "sess-1",
			History: []store.HistoryEntry{
				{Role: store.RoleUser, Content: "q1"},
				{Role: store.RoleAssistant, Content: "a1"},
			},
		},
	}
	srv := newTestServer(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/v1/session?full=true", nil)
	req.Header.Set(sessionHeader, "sess-1")
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.History, 2)
	assert.Equal(t, "q1", resp.History[0].Content)
}

func TestHandleSession_MissingHeader(t *testing.T) {
	srv := newTestServer(t, &stubService{})

	req := httptest.NewRequest(http.MethodGet, "/v1/session", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSession_Delete(t *testing.T) {
	svc := &stubService{}
	srv := newTestServer(t, svc)

	req := httptest.NewRequest(http.MethodDelete, "/v1/session", nil)
	req.Header.Set(sessionHeader, "sess-1")
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"sess-1"}, svc.deleted)
}

func TestHandleSession_DeleteUnknown(t *testing.T) {
	srv := newTestServer(t, &stubService{deleteErr: advisor.ErrSessionNotFound})

	req := httptest.NewRequest(http.MethodDelete, "/v1/session", nil)
	req.Header.Set(sessionHeader, "missing")
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, &stubService{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "ok"))
}
