// Package advisor coordinates the analysis pipeline and the session store
// into the label Q&A surface exposed by the gateway.
package advisor

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/labelsense/labelsense/internal/metrics"
	"github.com/labelsense/labelsense/pkg/analysis"
	"github.com/labelsense/labelsense/pkg/store"
	"github.com/labelsense/labelsense/pkg/vision"
)

// Pipeline is the slice of the analyzer the advisor needs. It exists so
// tests can script stage outcomes without a live model provider.
type Pipeline interface {
	Analyze(ctx context.Context, image []byte, mediaType string) (analysis.Artifacts, error)
	Respond(ctx context.Context, artifacts analysis.Artifacts, history []vision.Turn, question string) (analysis.Answer, error)
}

// Overview is the lightweight session view served by the gateway.
type Overview struct {
	SessionID      string    `json:"session_id"`
	ProductName    string    `json:"product_name"`
	Brand          string    `json:"brand,omitempty"`
	Verdict        string    `json:"verdict"`
	HealthScore    int       `json:"health_score"`
	Degraded       bool      `json:"degraded"`
	MessageCount   int       `json:"message_count"`
	CreatedAt      time.Time `json:"created_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
}

// Advisor owns the session lifecycle around the four pipeline stages.
type Advisor struct {
	pipeline Pipeline
	sessions store.Store
	logger   zerolog.Logger
	metrics  *metrics.Metrics
}

// New builds an advisor. Metrics may be nil.
func New(pipeline Pipeline, sessions store.Store, logger zerolog.Logger, m *metrics.Metrics) *Advisor {
	return &Advisor{
		pipeline: pipeline,
		sessions: sessions,
		logger:   logger.With().Str("component", "advisor").Logger(),
		metrics:  m,
	}
}

// AnalyzeImage runs the full pipeline over one label image and, only when
// every stage resolved, commits the artifacts into a new session. A failed
// run leaves no session behind.
func (a *Advisor) AnalyzeImage(ctx context.Context, image []byte, mediaType string) (*store.Session, error) {
	artifacts, err := a.pipeline.Analyze(ctx, image, mediaType)
	if err != nil {
		return nil, err
	}

	sess, err := a.sessions.Create(ctx, artifacts)
	if err != nil {
		return nil, err
	}

	a.logger.Info().
		Str("session_id", sess.ID).
		Str("product", artifacts.Extraction.ProductName).
		Str("verdict", artifacts.Summary.Verdict).
		Msg("analysis session created")

	return sess, nil
}

// Ask answers a follow-up question against an existing session. The question
// is validated before any session or model work happens. The user turn is
// recorded before the model call so a failed call still shows the attempt in
// history; the assistant turn is recorded only on success.
func (a *Advisor) Ask(ctx context.Context, sessionID, question string) (analysis.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return analysis.Answer{}, ErrEmptyQuestion
	}

	sess, ok := a.sessions.Get(ctx, sessionID)
	if !ok {
		return analysis.Answer{}, ErrSessionNotFound
	}

	if a.metrics != nil {
		a.metrics.QuestionsTotal.Inc()
	}

	history := toTurns(sess.History)

	if _, ok := a.sessions.AppendHistory(ctx, sessionID, store.RoleUser, question); !ok {
		return analysis.Answer{}, ErrSessionNotFound
	}

	answer, err := a.pipeline.Respond(ctx, sess.Artifacts, history, question)
	if err != nil {
		if a.metrics != nil {
			a.metrics.QuestionErrorsTotal.Inc()
		}
		return analysis.Answer{}, err
	}

	if _, ok := a.sessions.AppendHistory(ctx, sessionID, store.RoleAssistant, answer.Reply); !ok {
		return analysis.Answer{}, ErrSessionNotFound
	}

	return answer, nil
}

// SessionSummary returns the session overview.
func (a *Advisor) SessionSummary(ctx context.Context, sessionID string) (Overview, error) {
	sess, ok := a.sessions.Get(ctx, sessionID)
	if !ok {
		return Overview{}, ErrSessionNotFound
	}

	return Overview{
		SessionID:      sess.ID,
		ProductName:    sess.Artifacts.Extraction.ProductName,
		Brand:          sess.Artifacts.Extraction.Brand,
		Verdict:        sess.Artifacts.Summary.Verdict,
		HealthScore:    sess.Artifacts.Summary.HealthScore,
		Degraded:       sess.Artifacts.Enrichment.Degraded || sess.Artifacts.Summary.Degraded,
		MessageCount:   len(sess.History),
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
	}, nil
}

// Session returns the full session, history included.
func (a *Advisor) Session(ctx context.Context, sessionID string) (*store.Session, error) {
	sess, ok := a.sessions.Get(ctx, sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// DeleteSession removes a session.
func (a *Advisor) DeleteSession(ctx context.Context, sessionID string) error {
	if !a.sessions.Delete(ctx, sessionID) {
		return ErrSessionNotFound
	}
	return nil
}

func toTurns(entries []store.HistoryEntry) []vision.Turn {
	turns := make([]vision.Turn, 0, len(entries))
	for _, e := range entries {
		turns = append(turns, vision.Turn{Role: e.Role, Content: e.Content})
	}
	return turns
}
