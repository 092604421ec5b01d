// Package parse decodes and validates the judge's JSON response.
//
// The model is instructed to reply with a bare JSON object, but replies
// wrapped in markdown fences or surrounded by prose are still recovered.
// Text that contains no decodable JSON at all is the caller's cue to
// degrade to a FAIL verdict with the raw response attached.
package parse

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/patchjudge/patchjudge/internal/model"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schema.json
var schemaJSON string

// ErrNotJSON reports that no JSON object could be decoded from the
// response text. Callers degrade to a FAIL verdict instead of failing
// the request.
var ErrNotJSON = errors.New("response is not valid JSON")

// Parsed is the validated judge response.
type Parsed struct {
	Scores          model.Scores `json:"scores"`
	Findings        string       `json:"findings"`
	Differences     string       `json:"differences"`
	Recommendations string       `json:"recommendations"`
}

var responseSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(schemaJSON))
	if err != nil {
		panic(fmt.Sprintf("parse: embedded schema is not valid JSON: %v", err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("judge_response.json", doc); err != nil {
		panic(fmt.Sprintf("parse: adding schema resource: %v", err))
	}
	sch, err := c.Compile("judge_response.json")
	if err != nil {
		panic(fmt.Sprintf("parse: compiling schema: %v", err))
	}
	return sch
}

// Response decodes raw model output into a validated Parsed.
//
// Returns ErrNotJSON (wrapped) when no JSON object can be recovered, and
// a *model.ValidationError naming the offending field when the JSON does
// not satisfy the response schema.
func Response(raw string) (*Parsed, error) {
	text := stripMarkdownFences(raw)

	jsonText, ok := decodableJSON(text)
	if !ok {
		// Last resort: the object may be buried in prose.
		if extracted, found := extractJSONObject(text); found {
			jsonText, ok = decodableJSON(extracted)
		}
	}
	if !ok {
		return nil, fmt.Errorf("%w: %.120q", ErrNotJSON, raw)
	}

	if err := validate(jsonText); err != nil {
		return nil, err
	}

	var parsed Parsed
	if err := json.Unmarshal([]byte(jsonText), &parsed); err != nil {
		return nil, &model.ValidationError{Field: "response", Reason: err.Error()}
	}
	return &parsed, nil
}

func decodableJSON(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || !strings.HasPrefix(trimmed, "{") {
		return "", false
	}
	if !json.Valid([]byte(trimmed)) {
		return "", false
	}
	return trimmed, true
}

// validate checks the decoded object against the embedded response schema
// and maps the first violation to a ValidationError naming the field.
func validate(jsonText string) error {
	inst, err := jsonschema.UnmarshalJSON(strings.NewReader(jsonText))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotJSON, err)
	}
	err = responseSchema.Validate(inst)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if errors.As(err, &ve) {
		field, reason := describeViolation(ve)
		return &model.ValidationError{Field: field, Reason: reason}
	}
	return &model.ValidationError{Field: "response", Reason: err.Error()}
}

// describeViolation walks to the deepest cause and reports its location.
func describeViolation(ve *jsonschema.ValidationError) (field, reason string) {
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	field = "response"
	if n := len(leaf.InstanceLocation); n > 0 {
		field = leaf.InstanceLocation[n-1]
	}
	return field, leaf.Error()
}

// stripMarkdownFences removes a surrounding ``` or ```json fence pair.
// Text without fences is returned unchanged.
func stripMarkdownFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	// Drop the opening fence line (``` or ```json).
	rest := trimmed[3:]
	if idx := strings.IndexByte(rest, '\n'); idx >= 0 {
		rest = rest[idx+1:]
	} else {
		rest = ""
	}

	// Drop the closing fence.
	if idx := strings.LastIndex(rest, "```"); idx >= 0 {
		rest = rest[:idx]
	}

	return strings.TrimSpace(rest)
}

// extractJSONObject returns the first balanced top-level JSON object in s.
func extractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
