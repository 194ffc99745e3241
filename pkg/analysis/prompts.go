package analysis

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/template"

	"github.com/rs/zerolog"
)

// Stage names, used as prompt template keys and metric labels.
const (
	StageExtract   = "extract"
	StageEnrich    = "enrich"
	StageSummarize = "summarize"
	StageRespond   = "respond"
)

const defaultExtractPrompt = `You are reading a photo of a food product label.
Extract the information printed on the label and reply with ONLY a JSON object, no prose and no code fences:
{
  "product_name": "...",
  "brand": "...",
  "ingredients": ["..."],
  "nutrition": {"serving_size": "...", "calories": "...", "total_fat": "...", "carbohydrates": "...", "sugar": "...", "protein": "...", "sodium": "...", "fiber": "..."},
  "allergens": ["..."],
  "certifications": ["..."]
}
Omit nutrition fields that are not printed on the label.
If the image is not a readable product label, reply instead with:
{"error": true, "error_message": "<short reason>"}`

const defaultEnrichPrompt = `The product "{{.ProductName}}" lists these ingredients:
{{range .Ingredients}}- {{.}}
{{end}}
For each ingredient give a one-sentence health note and a concern level (none, low, moderate, high).
Add a short dietary context paragraph and up to three practical recommendations.
Reply with ONLY a JSON object, no prose and no code fences:
{
  "ingredient_notes": [{"name": "...", "note": "...", "concern": "..."}],
  "dietary_context": "...",
  "recommendations": ["..."]
}`

const defaultSummarizePrompt = `Assess the following food product for a general consumer.

Label extraction:
{{.ExtractionJSON}}

Ingredient analysis:
{{.EnrichmentJSON}}

Classify the product as "favorable", "caution" or "unfavorable", give a health score from 0 to 100,
and sort the ingredients into beneficial, neutral and concerning groups.
Reply with ONLY a JSON object, no prose and no code fences:
{
  "verdict": "favorable|caution|unfavorable",
  "health_score": 0,
  "breakdown": {"beneficial": ["..."], "neutral": ["..."], "concerning": ["..."]},
  "notes": "..."
}`

const defaultRespondPrompt = `You are answering a consumer's question about a product they scanned.

Label extraction:
{{.ExtractionJSON}}

Ingredient analysis:
{{.EnrichmentJSON}}

Question: {{.Question}}

Answer concisely and only from the information above; say so when the label does not carry the answer.
Reply with ONLY a JSON object, no prose and no code fences:
{
  "reply": "...",
  "suggested_questions": ["...", "...", "..."]
}`

var defaultPrompts = map[string]string{
	StageExtract:   defaultExtractPrompt,
	StageEnrich:    defaultEnrichPrompt,
	StageSummarize: defaultSummarizePrompt,
	StageRespond:   defaultRespondPrompt,
}

// PromptLibrary holds the stage prompt templates. Defaults are embedded;
// operators can override individual stages by dropping <stage>.tmpl files
// into an override directory, optionally hot-reloaded by a PromptWatcher.
type PromptLibrary struct {
	mu          sync.RWMutex
	templates   map[string]*template.Template
	overrideDir string
	logger      zerolog.Logger
}

// NewPromptLibrary creates a library with the built-in stage prompts.
func NewPromptLibrary(logger zerolog.Logger) *PromptLibrary {
	l := &PromptLibrary{
		templates: make(map[string]*template.Template),
		logger:    logger,
	}
	for stage, text := range defaultPrompts {
		// Defaults are compile-time constants; a parse failure here is a
		// programming error.
		l.templates[stage] = template.Must(template.New(stage).Parse(text))
	}
	return l
}

// LoadOverrides replaces stage templates with <stage>.tmpl files found in
// dir. Stages without an override keep their default. Unparseable overrides
// are skipped with a warning rather than breaking the running pipeline.
func (l *PromptLibrary) LoadOverrides(dir string) error {
	if dir == "" {
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read prompt override directory: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.overrideDir = dir

	// Reset to defaults first so deleting an override file restores the
	// built-in prompt on the next reload.
	for stage, text := range defaultPrompts {
		l.templates[stage] = template.Must(template.New(stage).Parse(text))
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".tmpl") {
			continue
		}

		stage := strings.TrimSuffix(name, ".tmpl")
		if _, known := defaultPrompts[stage]; !known {
			l.logger.Warn().Str("file", name).Msg("Ignoring prompt override for unknown stage")
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			l.logger.Warn().Str("file", name).Err(err).Msg("Failed to read prompt override")
			continue
		}

		tmpl, err := template.New(stage).Parse(string(data))
		if err != nil {
			l.logger.Warn().Str("file", name).Err(err).Msg("Failed to parse prompt override")
			continue
		}

		l.templates[stage] = tmpl
		l.logger.Info().Str("stage", stage).Msg("Prompt override loaded")
	}

	return nil
}

// Reload re-reads overrides from the last directory passed to LoadOverrides.
func (l *PromptLibrary) Reload() error {
	l.mu.RLock()
	dir := l.overrideDir
	l.mu.RUnlock()
	if dir == "" {
		return nil
	}
	return l.LoadOverrides(dir)
}

// Render executes the template for a stage with the given data.
func (l *PromptLibrary) Render(stage string, data any) (string, error) {
	l.mu.RLock()
	tmpl, ok := l.templates[stage]
	l.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("unknown prompt stage: %s", stage)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", stage, err)
	}
	return buf.String(), nil
}
