package analysis

import (
	"github.com/xeipuuv/gojsonschema"

	"github.com/labelsense/labelsense/pkg/coerce"
)

// Stage output schemas. Model replies must validate against these before
// they are accepted; anything else is a parse failure handled by the stage's
// fallback policy.

const extractionSchemaDoc = `{
	"type": "object",
	"properties": {
		"error": {"type": "boolean"},
		"error_message": {"type": "string"},
		"product_name": {"type": "string"},
		"brand": {"type": "string"},
		"ingredients": {"type": "array", "items": {"type": "string"}},
		"nutrition": {"type": "object"},
		"allergens": {"type": "array", "items": {"type": "string"}},
		"certifications": {"type": "array", "items": {"type": "string"}}
	}
}`

const enrichmentSchemaDoc = `{
	"type": "object",
	"properties": {
		"ingredient_notes": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"name": {"type": "string"},
					"note": {"type": "string"},
					"concern": {"type": "string"}
				},
				"required": ["name", "note"]
			}
		},
		"dietary_context": {"type": "string"},
		"recommendations": {"type": "array", "items": {"type": "string"}}
	},
	"required": ["ingredient_notes"]
}`

const summarySchemaDoc = `{
	"type": "object",
	"properties": {
		"verdict": {"type": "string", "enum": ["favorable", "caution", "unfavorable"]},
		"health_score": {"type": "integer", "minimum": 0, "maximum": 100},
		"breakdown": {
			"type": "object",
			"properties": {
				"beneficial": {"type": "array", "items": {"type": "string"}},
				"neutral": {"type": "array", "items": {"type": "string"}},
				"concerning": {"type": "array", "items": {"type": "string"}}
			}
		},
		"notes": {"type": "string"}
	},
	"required": ["verdict", "health_score"]
}`

const answerSchemaDoc = `{
	"type": "object",
	"properties": {
		"reply": {"type": "string"},
		"suggested_questions": {"type": "array", "items": {"type": "string"}}
	},
	"required": ["reply"]
}`

var (
	extractionSchema *gojsonschema.Schema = coerce.MustSchema(extractionSchemaDoc)
	enrichmentSchema *gojsonschema.Schema = coerce.MustSchema(enrichmentSchemaDoc)
	summarySchema    *gojsonschema.Schema = coerce.MustSchema(summarySchemaDoc)
	answerSchema     *gojsonschema.Schema = coerce.MustSchema(answerSchemaDoc)
)
