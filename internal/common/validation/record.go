// internal/common/validation/record.go
package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// insightRecordSchema describes the persisted insight row payload. Rows that
// fail validation are treated as malformed records: skipped and logged on
// read, never a fatal abort.
var insightRecordSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"id":    map[string]interface{}{"type": "string", "minLength": 1},
		"type":  map[string]interface{}{"type": "string", "minLength": 1},
		"title": map[string]interface{}{"type": "string"},
		"confidence": map[string]interface{}{
			"type":    "number",
			"minimum": 0,
			"maximum": 1,
		},
		"priority": map[string]interface{}{
			"type": "string",
			"enum": []interface{}{"critical", "high", "medium", "low", "informational"},
		},
		"targetEntityType": map[string]interface{}{"type": "string"},
		"targetEntityId":   map[string]interface{}{"type": "string"},
	},
	"required": []interface{}{"id", "type", "confidence", "priority"},
}

// predictionRecordSchema describes the persisted prediction row payload.
var predictionRecordSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"id":             map[string]interface{}{"type": "string", "minLength": 1},
		"entityId":       map[string]interface{}{"type": "string", "minLength": 1},
		"entityType":     map[string]interface{}{"type": "string"},
		"predictionType": map[string]interface{}{"type": "string", "minLength": 1},
		"predictedValue": map[string]interface{}{"type": "number"},
		"confidence": map[string]interface{}{
			"type":    "number",
			"minimum": 0,
			"maximum": 1,
		},
	},
	"required": []interface{}{"id", "entityId", "predictionType", "confidence"},
}

// ValidateInsightRecord checks a decoded insight row against the record schema.
func ValidateInsightRecord(record map[string]interface{}) error {
	return validate(insightRecordSchema, record)
}

// ValidatePredictionRecord checks a decoded prediction row against the record schema.
func ValidatePredictionRecord(record map[string]interface{}) error {
	return validate(predictionRecordSchema, record)
}

func validate(schema, record map[string]interface{}) error {
	schemaLoader := gojsonschema.NewGoLoader(schema)
	documentLoader := gojsonschema.NewGoLoader(record)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return fmt.Errorf("record invalid: %s", strings.Join(problems, "; "))
	}

	return nil
}
