package advisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labelsense/labelsense/pkg/analysis"
	"github.com/labelsense/labelsense/pkg/store"
	"github.com/labelsense/labelsense/pkg/vision"
)

type stubPipeline struct {
	artifacts  analysis.Artifacts
	analyzeErr error

	answer      analysis.Answer
	respondErr  error
	respondN    int
	lastHistory []vision.Turn
	lastQ       string
}

func (p *stubPipeline) Analyze(ctx context.Context, image []byte, mediaType string) (analysis.Artifacts, error) {
	if p.analyzeErr != nil {
		return analysis.Artifacts{}, p.analyzeErr
	}
	return p.artifacts, nil
}

func (p *stubPipeline) Respond(ctx context.Context, artifacts analysis.Artifacts, history []vision.Turn, question string) (analysis.Answer, error) {
	p.respondN++
	p.lastHistory = history
	p.lastQ = question
	if p.respondErr != nil {
		return analysis.Answer{}, p.respondErr
	}
	return p.answer, nil
}

func oatCrispArtifacts() analysis.Artifacts {
	return analysis.Artifacts{
		Extraction: analysis.Extraction{
			ProductName: "Oat Crisp",
			Brand:       "Morning Mills",
			Ingredients: []string{"oats", "sugar", "salt"},
		},
		Enrichment: analysis.DegradedEnrichment(),
		Summary: analysis.Summary{
			Verdict:     analysis.VerdictCaution,
			HealthScore: 55,
		},
	}
}

func newTestAdvisor(t *testing.T, p *stubPipeline) (*Advisor, *store.MemoryStore) {
	t.Helper()
	sessions := store.NewMemoryStore(store.Config{
		TTL:          30 * time.Minute,
		HistoryLimit: 10,
	}, zerolog.Nop(), nil)
	return New(p, sessions, zerolog.Nop(), nil), sessions
}

func TestAdvisor_AnalyzeImageCreatesSession(t *testing.T) {
	p := &stubPipeline{artifacts: oatCrispArtifacts()}
	adv, sessions := newTestAdvisor(t, p)

	sess, err := adv.AnalyzeImage(context.Background(), []byte("img"), "image/png")
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)
	assert.Equal(t, "Oat Crisp", sess.Artifacts.Extraction.ProductName)
	assert.True(t, sess.Artifacts.Enrichment.Degraded)
	assert.Empty(t, sess.History)
	assert.Equal(t, 1, sessions.Len())
}

func TestAdvisor_AnalyzeImageFailureLeavesNoSession(t *testing.T) {
	p := &stubPipeline{analyzeErr: analysis.ErrImageUnreadable}
	adv, sessions := newTestAdvisor(t, p)

	sess, err := adv.AnalyzeImage(context.Background(), []byte("img"), "image/png")
	require.ErrorIs(t, err, analysis.ErrImageUnreadable)
	assert.Nil(t, sess)
	assert.Equal(t, 0, sessions.Len())
}

func TestAdvisor_AskRecordsBothTurns(t *testing.T) {
	p := &stubPipeline{
		artifacts: oatCrispArtifacts(),
		answer:    analysis.Answer{Reply: "It contains added sugar.", SuggestedQuestions: []string{"How much sugar?"}},
	}
	adv, _ := newTestAdvisor(t, p)
	ctx := context.Background()

	sess, err := adv.AnalyzeImage(ctx, []byte("img"), "image/png")
	require.NoError(t, err)

	answer, err := adv.Ask(ctx, sess.ID, "Is this healthy?")
	require.NoError(t, err)
	assert.Equal(t, "It contains added sugar.", answer.Reply)
	assert.Equal(t, "Is this healthy?", p.lastQ)
	assert.Empty(t, p.lastHistory)

	got, err := adv.Session(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, got.History, 2)
	assert.Equal(t, store.RoleUser, got.History[0].Role)
	assert.Equal(t, "Is this healthy?", got.History[0].Content)
	assert.Equal(t, store.RoleAssistant, got.History[1].Role)
	assert.Equal(t, "It contains added sugar.", got.History[1].Content)
}

func TestAdvisor_AskPassesPriorHistory(t *testing.T) {
	p := &stubPipeline{
		artifacts: oatCrispArtifacts(),
		answer:    analysis.Answer{Reply: "Yes."},
	}
	adv, _ := newTestAdvisor(t, p)
	ctx := context.Background()

	sess, err := adv.AnalyzeImage(ctx, []byte("img"), "image/png")
	require.NoError(t, err)

	_, err = adv.Ask(ctx, sess.ID, "first question")
	require.NoError(t, err)
	_, err = adv.Ask(ctx, sess.ID, "second question")
	require.NoError(t, err)

	require.Len(t, p.lastHistory, 2)
	assert.Equal(t, vision.RoleUser, p.lastHistory[0].Role)
	assert.Equal(t, "first question", p.lastHistory[0].Content)
	assert.Equal(t, vision.RoleAssistant, p.lastHistory[1].Role)
	assert.Equal(t, "Yes.", p.lastHistory[1].Content)
}

func TestAdvisor_AskEmptyQuestion(t *testing.T) {
	p := &stubPipeline{artifacts: oatCrispArtifacts(), answer: analysis.Answer{Reply: "ok"}}
	adv, _ := newTestAdvisor(t, p)
	ctx := context.Background()

	sess, err := adv.AnalyzeImage(ctx, []byte("img"), "image/png")
	require.NoError(t, err)

	_, err = adv.Ask(ctx, sess.ID, "   \t\n")
	require.ErrorIs(t, err, ErrEmptyQuestion)
	assert.Zero(t, p.respondN)

	got, err := adv.Session(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, got.History)
}

func TestAdvisor_AskUnknownSession(t *testing.T) {
	p := &stubPipeline{answer: analysis.Answer{Reply: "ok"}}
	adv, _ := newTestAdvisor(t, p)

	_, err := adv.Ask(context.Background(), "no-such-id", "valid question")
	require.ErrorIs(t, err, ErrSessionNotFound)
	assert.Zero(t, p.respondN)
}

func TestAdvisor_AskRespondFailureKeepsUserTurn(t *testing.T) {
	p := &stubPipeline{
		artifacts:  oatCrispArtifacts(),
		respondErr: errors.New("upstream unavailable"),
	}
	adv, _ := newTestAdvisor(t, p)
	ctx := context.Background()

	sess, err := adv.AnalyzeImage(ctx, []byte("img"), "image/png")
	require.NoError(t, err)

	_, err = adv.Ask(ctx, sess.ID, "Is this healthy?")
	require.Error(t, err)

	got, err := adv.Session(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, got.History, 1)
	assert.Equal(t, store.RoleUser, got.History[0].Role)
}

func TestAdvisor_SessionSummary(t *testing.T) {
	p := &stubPipeline{artifacts: oatCrispArtifacts(), answer: analysis.Answer{Reply: "ok"}}
	adv, _ := newTestAdvisor(t, p)
	ctx := context.Background()

	sess, err := adv.AnalyzeImage(ctx, []byte("img"), "image/png")
	require.NoError(t, err)

	_, err = adv.Ask(ctx, sess.ID, "anything")
	require.NoError(t, err)

	overview, err := adv.SessionSummary(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, overview.SessionID)
	assert.Equal(t, "Oat Crisp", overview.ProductName)
	assert.Equal(t, "Morning Mills", overview.Brand)
	assert.Equal(t, analysis.VerdictCaution, overview.Verdict)
	assert.Equal(t, 55, overview.HealthScore)
	assert.True(t, overview.Degraded)
	assert.Equal(t, 2, overview.MessageCount)
	assert.False(t, overview.CreatedAt.IsZero())
}

func TestAdvisor_SessionSummaryUnknown(t *testing.T) {
	adv, _ := newTestAdvisor(t, &stubPipeline{})

	_, err := adv.SessionSummary(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestAdvisor_DeleteSession(t *testing.T) {
	p := &stubPipeline{artifacts: oatCrispArtifacts()}
	adv, sessions := newTestAdvisor(t, p)
	ctx := context.Background()

	sess, err := adv.AnalyzeImage(ctx, []byte("img"), "image/png")
	require.NoError(t, err)

	require.NoError(t, adv.DeleteSession(ctx, sess.ID))
	assert.Equal(t, 0, sessions.Len())

	assert.ErrorIs(t, adv.DeleteSession(ctx, sess.ID), ErrSessionNotFound)
	_, err = adv.SessionSummary(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
