package drawing

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/kaptinlin/jsonschema"

	"workwithme/internal/domain"
)

// planSchema accepts anything shaped like a drawing plan. Unknown fields
// are allowed; per-command geometry is checked by the interpreter.
const planSchema = `{
	"type": "object",
	"properties": {
		"description": {"type": "string"},
		"coordinateSystem": {"type": "string"},
		"commands": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["action"],
				"properties": {
					"action": {"type": "string"},
					"color": {"type": "string"},
					"text": {"type": "string"},
					"font": {"type": "string"},
					"align": {"type": "string"},
					"baseline": {"type": "string"},
					"fill": {"type": "boolean"},
					"forceText": {"type": "boolean"},
					"relative": {"type": "boolean"},
					"snapToExisting": {"type": "boolean"},
					"points": {"type": "array", "items": {"type": "array"}}
				}
			}
		}
	},
	"anyOf": [
		{"required": ["commands"]},
		{"required": ["description"]}
	]
}`

var (
	compiledPlanSchema *jsonschema.Schema
	planSchemaErr      error
	planSchemaOnce     sync.Once
)

func planValidator() (*jsonschema.Schema, error) {
	planSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiledPlanSchema, planSchemaErr = compiler.Compile([]byte(planSchema))
	})
	return compiledPlanSchema, planSchemaErr
}

// codeFenceRe matches markdown code fences wrapping JSON.
var codeFenceRe = regexp.MustCompile(`(?si)^` + "```" + `(?:json)?\s*(.*?)\s*` + "```" + `$`)

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if m := codeFenceRe.FindStringSubmatch(s); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return s
}

// ExtractObject returns the first balanced {...} block in s, skipping
// braces inside JSON strings.
func ExtractObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	for start >= 0 {
		if end := matchBrace(s, start); end > 0 {
			return s[start : end+1], true
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

func matchBrace(s string, start int) int {
	depth := 0
	inString, escaped := false, false
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
				return i
			}
		}
	}
	return -1
}

// ParsePlan extracts a drawing plan from a model response. It always
// returns a usable plan; when the response holds no valid plan the result
// carries the whole text as its description and no commands, and err
// wraps domain.ErrMalformedPlan.
func ParsePlan(raw string) (domain.Plan, error) {
	fallback := domain.DescriptionOnly(strings.TrimSpace(raw))

	obj, ok := ExtractObject(stripCodeFences(raw))
	if !ok {
		return fallback, fmt.Errorf("%w: no JSON object in response", domain.ErrMalformedPlan)
	}

	var doc any
	if err := json.Unmarshal([]byte(obj), &doc); err != nil {
		return fallback, fmt.Errorf("%w: %v", domain.ErrMalformedPlan, err)
	}

	schema, err := planValidator()
	if err != nil {
		return fallback, fmt.Errorf("plan schema: %w", err)
	}
	if result := schema.Validate(doc); !result.IsValid() {
		return fallback, fmt.Errorf("%w: %s", domain.ErrMalformedPlan, result.Error())
	}

	var plan domain.Plan
	if err := json.Unmarshal([]byte(obj), &plan); err != nil {
		return fallback, fmt.Errorf("%w: %v", domain.ErrMalformedPlan, err)
	}
	if plan.Commands == nil {
		plan.Commands = []domain.Command{}
	}
	return plan, nil
}
