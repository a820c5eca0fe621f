package generator

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/xeipuuv/gojsonschema"

	"github.com/learnquest/learnquest/internal/curriculum"
)

// ErrMalformed marks a structurally invalid generation payload. Retrying the
// remote call won't fix a formatting error, so callers surface these
// immediately instead of going back through the retry loop.
var ErrMalformed = errors.New("malformed generation payload")

const quizSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"properties": {
			"question":    {"type": "string", "minLength": 1},
			"options":     {"type": "array", "items": {"type": "string"}, "minItems": 2},
			"answerIndex": {"type": "integer", "minimum": 0},
			"explanation": {"type": "string"}
		},
		"required": ["question", "options", "answerIndex"]
	}
}`

const syllabusSchema = `{
	"type": "object",
	"properties": {
		"units": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"title":  {"type": "string", "minLength": 1},
					"topics": {"type": "array", "items": {"type": "string"}}
				},
				"required": ["title", "topics"]
			}
		}
	},
	"required": ["units"]
}`

var (
	quizSchemaLoader     = gojsonschema.NewStringLoader(quizSchema)
	syllabusSchemaLoader = gojsonschema.NewStringLoader(syllabusSchema)
)

func validate(schema gojsonschema.JSONLoader, raw string) error {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewStringLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !result.Valid() {
		errs := result.Errors()
		if len(errs) > 0 {
			return fmt.Errorf("%w: %s", ErrMalformed, errs[0].String())
		}
		return ErrMalformed
	}
	return nil
}

// ParseQuiz validates and decodes a quiz_generation payload: a JSON array of
// multiple-choice questions. Every question's answer indicator must resolve
// to a real option.
func ParseQuiz(raw string) ([]curriculum.Question, error) {
	if err := validate(quizSchemaLoader, raw); err != nil {
		return nil, fmt.Errorf("quiz: %w", err)
	}

	var quiz []curriculum.Question
	if err := json.Unmarshal([]byte(raw), &quiz); err != nil {
		return nil, fmt.Errorf("quiz: %w: %v", ErrMalformed, err)
	}
	if len(quiz) == 0 {
		return nil, fmt.Errorf("quiz: %w: empty question array", ErrMalformed)
	}
	for _, q := range quiz {
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("quiz: %w: %v", ErrMalformed, err)
		}
	}
	return quiz, nil
}

// SyllabusUnit is one unit from a structured syllabus_structure payload.
type SyllabusUnit struct {
	Title  string   `json:"title"`
	Topics []string `json:"topics"`
}

// ParseSyllabus validates and decodes a syllabus_structure payload:
// {"units": [{"title", "topics"}]}. The model occasionally emits "units" as
// an object keyed by index instead of an array; that shape is normalized
// before schema validation.
func ParseSyllabus(raw string) ([]SyllabusUnit, error) {
	normalized, err := normalizeUnits(raw)
	if err != nil {
		return nil, fmt.Errorf("syllabus: %w", err)
	}

	if err := validate(syllabusSchemaLoader, normalized); err != nil {
		return nil, fmt.Errorf("syllabus: %w", err)
	}

	var payload struct {
		Units []SyllabusUnit `json:"units"`
	}
	if err := json.Unmarshal([]byte(normalized), &payload); err != nil {
		return nil, fmt.Errorf("syllabus: %w: %v", ErrMalformed, err)
	}
	if len(payload.Units) == 0 {
		return nil, fmt.Errorf("syllabus: %w: no units", ErrMalformed)
	}
	return payload.Units, nil
}

func normalizeUnits(raw string) (string, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	unitsRaw, ok := doc["units"]
	if !ok {
		return "", fmt.Errorf("%w: missing units key", ErrMalformed)
	}

	var asArray []json.RawMessage
	if json.Unmarshal(unitsRaw, &asArray) == nil {
		return raw, nil
	}

	// Object-shaped units: take values in key order.
	var asObject map[string]json.RawMessage
	if err := json.Unmarshal(unitsRaw, &asObject); err != nil {
		return "", fmt.Errorf("%w: units is neither array nor object", ErrMalformed)
	}

	keys := make([]string, 0, len(asObject))
	for k := range asObject {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		asArray = append(asArray, asObject[k])
	}
	unitsArr, err := json.Marshal(asArray)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	doc["units"] = unitsArr
	out, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return string(out), nil
}
