// internal/common/validation/schema.go
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const receiverDefinition = `{
  "type": "object",
  "required": ["age", "location", "bloodGroup", "organNeeded", "tissueType", "urgency"],
  "properties": {
    "receiverId":  {"type": "string"},
    "age":         {"type": "integer", "minimum": 0, "maximum": 120},
    "location":    {"type": "string", "pattern": "\\S"},
    "bloodGroup":  {"type": "string", "pattern": "^\\s*(?i:AB|A|B|O)[+-]\\s*$"},
    "organNeeded": {"type": "string", "pattern": "\\S"},
    "tissueType":  {"type": "string", "pattern": "\\S"},
    "urgency":     {"type": "integer", "minimum": 0, "maximum": 2}
  }
}`

const donorDefinition = `{
  "type": "object",
  "required": ["age", "location", "bloodGroup", "organ", "organTissueType", "hospitalTransportation"],
  "properties": {
    "donorId":                {"type": "string"},
    "age":                    {"type": "integer", "minimum": 0, "maximum": 120},
    "location":               {"type": "string", "pattern": "\\S"},
    "bloodGroup":             {"type": "string", "pattern": "^\\s*(?i:AB|A|B|O)[+-]\\s*$"},
    "organ":                  {"type": "string", "pattern": "\\S"},
    "organTissueType":        {"type": "string", "pattern": "\\S"},
    "organHealthScore":       {"type": "integer", "minimum": 0, "maximum": 100},
    "hospitalTransportation": {"type": "boolean"}
  }
}`

// MatchRequestSchema covers the find-donor-matches job and POST /api/v1/matches.
var MatchRequestSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["receiver"],
  "properties": {
    "receiver":  ` + receiverDefinition + `,
    "threshold": {"type": "number", "minimum": 0, "exclusiveMaximum": 1},
    "topK":      {"type": "integer", "minimum": 0}
  }
}`

// EligibilityRequestSchema covers a single donor/receiver check.
var EligibilityRequestSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["donor", "receiver"],
  "properties": {
    "donor":    ` + donorDefinition + `,
    "receiver": ` + receiverDefinition + `
  }
}`

// NotificationRequestSchema covers the notify-donor-hospitals job.
var NotificationRequestSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["requestId", "matches"],
  "properties": {
    "requestId": {"type": "string", "minLength": 1},
    "urgency":   {"type": "integer", "minimum": 0, "maximum": 2},
    "matches": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["donorId"],
        "properties": {
          "donorId":          {"type": "string", "minLength": 1},
          "matchProbability": {"type": "number", "minimum": 0, "maximum": 1}
        }
      }
    }
  }
}`

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Schema is a compiled JSON schema safe for concurrent use.
type Schema struct {
	schema *gojsonschema.Schema
}

func Compile(schemaJSON string) (*Schema, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Schema{schema: s}, nil
}

func MustCompile(schemaJSON string) *Schema {
	s, err := Compile(schemaJSON)
	if err != nil {
		panic(err)
	}
	return s
}

// ValidateJSON validates a raw JSON document such as job variables or a
// request body.
func (s *Schema) ValidateJSON(raw []byte) (*ValidationResult, error) {
	return s.validate(gojsonschema.NewBytesLoader(raw))
}

// Validate validates a decoded Go value.
func (s *Schema) Validate(document interface{}) (*ValidationResult, error) {
	return s.validate(gojsonschema.NewGoLoader(document))
}

func (s *Schema) validate(doc gojsonschema.JSONLoader) (*ValidationResult, error) {
	result, err := s.schema.Validate(doc)
	if err != nil {
		return nil, fmt.Errorf("validate document: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    desc.Type(),
		})
	}
	return out, nil
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}

// GetErrorsForField returns errors for a field and its nested fields.
func (vr *ValidationResult) GetErrorsForField(field string) []ValidationError {
	var fieldErrors []ValidationError
	for _, err := range vr.Errors {
		if err.Field == field || strings.HasPrefix(err.Field, field+".") {
			fieldErrors = append(fieldErrors, err)
		}
	}
	return fieldErrors
}

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phonePattern = regexp.MustCompile(`^\+?[\d\s\-\(\)]{10,}$`)
)

// ValidateEmail validates email format
func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidatePhone validates basic phone number format
func ValidatePhone(phone string) bool {
	return phonePattern.MatchString(phone)
}
