package analysis

// Verdict values produced by the summarize stage.
const (
	VerdictFavorable   = "favorable"
	VerdictCaution     = "caution"
	VerdictUnfavorable = "unfavorable"
)

// Extraction is the structured result of reading a product label image.
// Error/ErrorMessage form the model's self-declared failure sentinel: set
// when the image is not a readable product label, distinct from a parse
// failure of the response itself.
type Extraction struct {
	Error          bool      `json:"error,omitempty"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	ProductName    string    `json:"product_name"`
	Brand          string    `json:"brand,omitempty"`
	Ingredients    []string  `json:"ingredients"`
	Nutrition      Nutrition `json:"nutrition"`
	Allergens      []string  `json:"allergens"`
	Certifications []string  `json:"certifications"`
}

// Nutrition holds per-serving nutrition facts as printed on the label.
// Values are kept as strings because labels mix units and ranges.
type Nutrition struct {
	ServingSize   string `json:"serving_size,omitempty"`
	Calories      string `json:"calories,omitempty"`
	TotalFat      string `json:"total_fat,omitempty"`
	Carbohydrates string `json:"carbohydrates,omitempty"`
	Sugar         string `json:"sugar,omitempty"`
	Protein       string `json:"protein,omitempty"`
	Sodium        string `json:"sodium,omitempty"`
	Fiber         string `json:"fiber,omitempty"`
}

// IngredientNote is one ingredient's health annotation from the enrich stage.
type IngredientNote struct {
	Name    string `json:"name"`
	Note    string `json:"note"`
	Concern string `json:"concern,omitempty"` // none, low, moderate, high
}

// Enrichment is the structured result of the enrich stage: additive context
// about the extracted ingredients. May be the degraded default when the
// stage failed.
type Enrichment struct {
	IngredientNotes []IngredientNote `json:"ingredient_notes"`
	DietaryContext  string           `json:"dietary_context"`
	Recommendations []string         `json:"recommendations"`
	Degraded        bool             `json:"degraded,omitempty"`
}

// Breakdown categorizes extracted ingredients for the summary verdict.
type Breakdown struct {
	Beneficial []string `json:"beneficial"`
	Neutral    []string `json:"neutral"`
	Concerning []string `json:"concerning"`
}

// Summary is the user-facing verdict produced by the summarize stage.
type Summary struct {
	Verdict     string    `json:"verdict"` // favorable, caution, unfavorable
	HealthScore int       `json:"health_score"`
	Breakdown   Breakdown `json:"breakdown"`
	Notes       string    `json:"notes,omitempty"`
	Degraded    bool      `json:"degraded,omitempty"`
}

// Answer is the respond stage's reply to one follow-up question.
type Answer struct {
	Reply              string   `json:"reply"`
	SuggestedQuestions []string `json:"suggested_questions"`
}

// Artifacts bundles the immutable outputs of the first three stages.
type Artifacts struct {
	Extraction Extraction `json:"extraction"`
	Enrichment Enrichment `json:"enrichment"`
	Summary    Summary    `json:"summary"`
}

// DegradedEnrichment is the fixed substitute used when the enrich stage
// fails. Enrichment is enhancement, not a requirement, so the pipeline
// proceeds with this value instead of failing.
func DegradedEnrichment() Enrichment {
	return Enrichment{
		IngredientNotes: []IngredientNote{},
		DietaryContext:  "unavailable",
		Recommendations: []string{
			"Detailed ingredient guidance could not be generated for this product. Check with a nutrition professional for specific dietary concerns.",
		},
		Degraded: true,
	}
}

// DegradedSummary is the fixed substitute used when the summarize stage
// fails, built only from extraction fields so it never blocks pipeline
// completion.
func DegradedSummary(extraction Extraction) Summary {
	neutral := extraction.Ingredients
	if neutral == nil {
		neutral = []string{}
	}
	return Summary{
		Verdict:     VerdictCaution,
		HealthScore: 50,
		Breakdown: Breakdown{
			Beneficial: []string{},
			Neutral:    neutral,
			Concerning: []string{},
		},
		Notes:    "Automatic assessment was not available for this product; manual review needed.",
		Degraded: true,
	}
}

// DefaultSuggestedQuestions is the fixed set substituted when the respond
// stage falls back to a plain-text answer.
func DefaultSuggestedQuestions() []string {
	return []string{
		"Is this product suitable for a vegan diet?",
		"Which ingredients should I watch out for?",
		"How does the sugar content compare to similar products?",
	}
}
