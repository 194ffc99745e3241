package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/labelsense/labelsense/internal/metrics"
	"github.com/labelsense/labelsense/pkg/coerce"
	"github.com/labelsense/labelsense/pkg/vision"
)

const respondSystemPrompt = `You are a food label assistant. You help consumers understand a product they photographed.
Ground every answer in the provided label extraction and ingredient analysis. Do not invent label contents.`

// Respond answers one follow-up question grounded on the session artifacts
// and the bounded conversation history. Provider failure is surfaced to the
// caller; a parse failure degrades to the raw model text as the answer with
// a fixed set of suggested questions.
func (a *Analyzer) Respond(ctx context.Context, artifacts Artifacts, history []vision.Turn, question string) (Answer, error) {
	start := time.Now()

	extractionJSON, err := json.Marshal(artifacts.Extraction)
	if err != nil {
		return Answer{}, &StageError{Stage: StageRespond, Reason: "failed to encode extraction", Err: err}
	}
	enrichmentJSON, err := json.Marshal(artifacts.Enrichment)
	if err != nil {
		return Answer{}, &StageError{Stage: StageRespond, Reason: "failed to encode enrichment", Err: err}
	}

	prompt, err := a.prompts.Render(StageRespond, map[string]any{
		"ExtractionJSON": string(extractionJSON),
		"EnrichmentJSON": string(enrichmentJSON),
		"Question":       question,
	})
	if err != nil {
		return Answer{}, &StageError{Stage: StageRespond, Reason: "failed to render prompt", Err: err}
	}

	resp, err := a.provider.Complete(ctx, vision.Request{
		Model:        a.cfg.Model,
		SystemPrompt: respondSystemPrompt,
		Prompt:       prompt,
		History:      history,
		Temperature:  a.cfg.Temperature,
		MaxTokens:    a.cfg.MaxTokens,
	})
	if err != nil {
		a.metrics.ObserveStage(StageRespond, metrics.StatusError, time.Since(start))
		return Answer{}, &StageError{Stage: StageRespond, Reason: "model invocation failed", Err: err}
	}

	var answer Answer
	if err := coerce.Decode(resp.Content, answerSchema, &answer); err != nil {
		var parseErr *coerce.ParseError
		if !errors.As(err, &parseErr) {
			a.metrics.ObserveStage(StageRespond, metrics.StatusError, time.Since(start))
			return Answer{}, &StageError{Stage: StageRespond, Reason: "unparseable answer", Err: err}
		}

		// Free text is an acceptable degraded success for a direct question.
		a.metrics.ObserveStage(StageRespond, metrics.StatusDegraded, time.Since(start))
		a.logger.Debug().Str("reason", parseErr.Reason).Msg("Answer parse failed, using raw model text")
		return Answer{
			Reply:              strings.TrimSpace(parseErr.Raw),
			SuggestedQuestions: DefaultSuggestedQuestions(),
		}, nil
	}

	if answer.SuggestedQuestions == nil {
		answer.SuggestedQuestions = []string{}
	}

	a.metrics.ObserveStage(StageRespond, metrics.StatusOK, time.Since(start))
	return answer, nil
}
