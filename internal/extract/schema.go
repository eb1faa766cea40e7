package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Response shapes for the extraction calls. Each response is validated
// against its schema before use; validation failures are named individually
// so they can be fed back to the model as corrective context.

var singleTitleSchema = jsonschema.MustCompileString("single_title.json", `{
	"type": "object",
	"required": ["raw_title"],
	"properties": {
		"raw_title": {"type": ["string", "null"]}
	}
}`)

var multipleTitlesSchema = jsonschema.MustCompileString("multiple_titles.json", `{
	"type": "object",
	"required": ["categories_cn"],
	"properties": {
		"categories_cn": {
			"type": "array",
			"items": {"type": "string"}
		}
	}
}`)

var categoriesSchema = jsonschema.MustCompileString("categories.json", `{
	"type": "object",
	"required": ["categories"],
	"properties": {
		"categories": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["category_name_en", "category_name_cn"],
				"properties": {
					"category_name_en": {"type": "string"},
					"category_name_cn": {"type": "string"},
					"category_description": {"type": "string"},
					"data_type": {
						"type": "array",
						"items": {
							"type": "object",
							"required": ["type_category_name_en", "type_category_name_cn"],
							"properties": {
								"type_category_name_en": {"type": "string"},
								"type_category_name_cn": {"type": "string"},
								"type_category_description": {"type": "string"},
								"type_category_code": {"type": "string"}
							}
						}
					}
				}
			}
		}
	}
}`)

var transcriptionSchema = jsonschema.MustCompileString("transcription.json", `{
	"type": "object",
	"required": ["text"],
	"properties": {
		"text": {"type": "string"}
	}
}`)

var translationsSchema = jsonschema.MustCompileString("translations.json", `{
	"type": "object",
	"required": ["translations"],
	"properties": {
		"translations": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["cn", "en"],
				"properties": {
					"cn": {"type": "string"},
					"en": {"type": "string"}
				}
			}
		}
	}
}`)

// parseAndValidate parses a raw model response, stripping markdown fences and
// surrounding prose if present, and validates it against the given schema.
// On validation failure it returns the named errors for corrective retry.
func parseAndValidate(content string, schema *jsonschema.Schema) (json.RawMessage, []string) {
	raw, err := parseResponseJSON(content)
	if err != nil {
		return nil, []string{err.Error()}
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, []string{fmt.Sprintf("invalid JSON: %v", err)}
	}

	if err := schema.Validate(doc); err != nil {
		if ve, ok := err.(*jsonschema.ValidationError); ok {
			return nil, flattenValidationError(ve)
		}
		return nil, []string{err.Error()}
	}

	return raw, nil
}

func flattenValidationError(ve *jsonschema.ValidationError) []string {
	var errs []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			errs = append(errs, fmt.Sprintf("%s: %s", loc, e.Message))
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	return errs
}

// parseResponseJSON extracts a JSON document from model output, with
// lightweight recovery for markdown code fences and surrounding text.
func parseResponseJSON(content string) (json.RawMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("empty response")
	}

	candidates := []string{content}
	if stripped := stripCodeFences(content); stripped != "" && stripped != content {
		candidates = append(candidates, stripped)
	}
	if extracted := extractJSONCandidate(content); extracted != "" && extracted != content {
		candidates = append(candidates, extracted)
	}

	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		var parsed any
		if err := json.Unmarshal([]byte(candidate), &parsed); err == nil {
			return json.RawMessage(candidate), nil
		}
	}

	return nil, fmt.Errorf("response is not valid JSON")
}

func stripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return ""
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return ""
	}

	// Drop first fence line.
	lines = lines[1:]
	// Drop trailing fence if present.
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func extractJSONCandidate(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return ""
	}

	start := strings.Index(trimmed, "{")
	if start < 0 {
		return ""
	}
	end := strings.LastIndex(trimmed, "}")
	if end < start {
		return ""
	}
	return strings.TrimSpace(trimmed[start : end+1])
}
