// Package analysis implements the staged reasoning pipeline that turns one
// product label image into structured artifacts, and answers follow-up
// questions grounded on them.
//
// Failure policy is asymmetric on purpose: extraction and respond fail hard,
// enrichment and summary always degrade to fixed substitutes so the pipeline
// delivers a verdict in some form.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/labelsense/labelsense/internal/metrics"
	"github.com/labelsense/labelsense/pkg/coerce"
	"github.com/labelsense/labelsense/pkg/vision"
)

// ErrImageUnreadable is returned when the model declares the uploaded image
// is not a readable product label. Terminal: no session is created.
var ErrImageUnreadable = errors.New("image not recognized as a product label")

// ErrUnsupportedMediaType is returned for uploads outside the allow-list.
var ErrUnsupportedMediaType = errors.New("unsupported image media type")

// ErrEmptyImage is returned for an empty upload payload.
var ErrEmptyImage = errors.New("image payload is empty")

// StageError reports a failed stage invocation with the raw model output
// kept for diagnostics.
type StageError struct {
	Stage     string
	Reason    string
	RawDetail string
	Err       error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %s", e.Stage, e.Reason)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Config holds analyzer tunables.
type Config struct {
	Model             string
	Temperature       float64
	MaxTokens         int
	IngredientLimit   int      // ingredients passed to the enrich prompt
	AllowedMediaTypes []string // upload allow-list
}

// Analyzer runs the reasoning stages against a vision provider.
type Analyzer struct {
	provider vision.Provider
	prompts  *PromptLibrary
	cfg      Config
	logger   zerolog.Logger
	metrics  *metrics.Metrics
}

// NewAnalyzer creates an analyzer. metrics may be nil.
func NewAnalyzer(provider vision.Provider, prompts *PromptLibrary, cfg Config, logger zerolog.Logger, m *metrics.Metrics) *Analyzer {
	return &Analyzer{
		provider: provider,
		prompts:  prompts,
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
	}
}

// Analyze runs Extract -> Enrich -> Summarize strictly in order. Extraction
// failure is terminal; enrich and summarize substitute degraded defaults on
// failure and never block completion.
func (a *Analyzer) Analyze(ctx context.Context, image []byte, mediaType string) (Artifacts, error) {
	if len(image) == 0 {
		return Artifacts{}, ErrEmptyImage
	}
	if !slices.Contains(a.cfg.AllowedMediaTypes, mediaType) {
		return Artifacts{}, fmt.Errorf("%w: %s", ErrUnsupportedMediaType, mediaType)
	}

	extraction, err := a.extract(ctx, image, mediaType)
	if err != nil {
		return Artifacts{}, err
	}

	enrichment := a.enrich(ctx, extraction)
	summary := a.summarize(ctx, extraction, enrichment)

	return Artifacts{
		Extraction: extraction,
		Enrichment: enrichment,
		Summary:    summary,
	}, nil
}

func (a *Analyzer) extract(ctx context.Context, image []byte, mediaType string) (Extraction, error) {
	start := time.Now()

	prompt, err := a.prompts.Render(StageExtract, nil)
	if err != nil {
		return Extraction{}, err
	}

	resp, err := a.provider.Complete(ctx, vision.Request{
		Model:       a.cfg.Model,
		Prompt:      prompt,
		Image:       &vision.Image{MediaType: mediaType, Data: image},
		Temperature: a.cfg.Temperature,
		MaxTokens:   a.cfg.MaxTokens,
	})
	if err != nil {
		a.metrics.ObserveStage(StageExtract, metrics.StatusError, time.Since(start))
		return Extraction{}, &StageError{Stage: StageExtract, Reason: "model invocation failed", Err: err}
	}

	var extraction Extraction
	if err := coerce.Decode(resp.Content, extractionSchema, &extraction); err != nil {
		a.metrics.ObserveStage(StageExtract, metrics.StatusError, time.Since(start))
		return Extraction{}, &StageError{
			Stage:     StageExtract,
			Reason:    "unparseable extraction response",
			RawDetail: resp.Content,
			Err:       err,
		}
	}

	// The model declaring the image unusable is a domain failure, not a
	// parse failure.
	if extraction.Error || extraction.ErrorMessage != "" {
		a.metrics.ObserveStage(StageExtract, metrics.StatusError, time.Since(start))
		a.logger.Info().
			Str("detail", extraction.ErrorMessage).
			Msg("Model rejected image as unreadable label")
		return Extraction{}, ErrImageUnreadable
	}

	normalizeExtraction(&extraction)

	a.metrics.ObserveStage(StageExtract, metrics.StatusOK, time.Since(start))
	a.logger.Debug().
		Str("product", extraction.ProductName).
		Int("ingredients", len(extraction.Ingredients)).
		Msg("Extraction complete")

	return extraction, nil
}

func (a *Analyzer) enrich(ctx context.Context, extraction Extraction) Enrichment {
	start := time.Now()

	ingredients := extraction.Ingredients
	if limit := a.cfg.IngredientLimit; limit > 0 && len(ingredients) > limit {
		ingredients = ingredients[:limit]
	}

	prompt, err := a.prompts.Render(StageEnrich, map[string]any{
		"ProductName": extraction.ProductName,
		"Ingredients": ingredients,
	})
	if err != nil {
		return a.degradeEnrich(start, err)
	}

	resp, err := a.provider.Complete(ctx, vision.Request{
		Model:       a.cfg.Model,
		Prompt:      prompt,
		Temperature: a.cfg.Temperature,
		MaxTokens:   a.cfg.MaxTokens,
	})
	if err != nil {
		return a.degradeEnrich(start, err)
	}

	var enrichment Enrichment
	if err := coerce.Decode(resp.Content, enrichmentSchema, &enrichment); err != nil {
		return a.degradeEnrich(start, err)
	}

	normalizeEnrichment(&enrichment)

	a.metrics.ObserveStage(StageEnrich, metrics.StatusOK, time.Since(start))
	return enrichment
}

func (a *Analyzer) degradeEnrich(start time.Time, err error) Enrichment {
	a.metrics.ObserveStage(StageEnrich, metrics.StatusDegraded, time.Since(start))
	a.logger.Warn().Err(err).Msg("Enrich stage failed, substituting degraded default")
	return DegradedEnrichment()
}

func (a *Analyzer) summarize(ctx context.Context, extraction Extraction, enrichment Enrichment) Summary {
	start := time.Now()

	extractionJSON, err := json.Marshal(extraction)
	if err != nil {
		return a.degradeSummarize(start, extraction, err)
	}
	enrichmentJSON, err := json.Marshal(enrichment)
	if err != nil {
		return a.degradeSummarize(start, extraction, err)
	}

	prompt, err := a.prompts.Render(StageSummarize, map[string]any{
		"ExtractionJSON": string(extractionJSON),
		"EnrichmentJSON": string(enrichmentJSON),
	})
	if err != nil {
		return a.degradeSummarize(start, extraction, err)
	}

	resp, err := a.provider.Complete(ctx, vision.Request{
		Model:       a.cfg.Model,
		Prompt:      prompt,
		Temperature: a.cfg.Temperature,
		MaxTokens:   a.cfg.MaxTokens,
	})
	if err != nil {
		return a.degradeSummarize(start, extraction, err)
	}

	var summary Summary
	if err := coerce.Decode(resp.Content, summarySchema, &summary); err != nil {
		return a.degradeSummarize(start, extraction, err)
	}

	normalizeSummary(&summary)

	a.metrics.ObserveStage(StageSummarize, metrics.StatusOK, time.Since(start))
	return summary
}

func (a *Analyzer) degradeSummarize(start time.Time, extraction Extraction, err error) Summary {
	a.metrics.ObserveStage(StageSummarize, metrics.StatusDegraded, time.Since(start))
	a.logger.Warn().Err(err).Msg("Summarize stage failed, substituting degraded default")
	return DegradedSummary(extraction)
}

func normalizeExtraction(e *Extraction) {
	if e.Ingredients == nil {
		e.Ingredients = []string{}
	}
	if e.Allergens == nil {
		e.Allergens = []string{}
	}
	if e.Certifications == nil {
		e.Certifications = []string{}
	}
}

func normalizeEnrichment(e *Enrichment) {
	if e.IngredientNotes == nil {
		e.IngredientNotes = []IngredientNote{}
	}
	if e.Recommendations == nil {
		e.Recommendations = []string{}
	}
}

func normalizeSummary(s *Summary) {
	if s.Breakdown.Beneficial == nil {
		s.Breakdown.Beneficial = []string{}
	}
	if s.Breakdown.Neutral == nil {
		s.Breakdown.Neutral = []string{}
	}
	if s.Breakdown.Concerning == nil {
		s.Breakdown.Concerning = []string{}
	}
}
