package ai

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/score.schema.json
var scoreSchemaJSON string

var scoreSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(scoreSchemaJSON))
})

// ParseScore turns a model's scoring output into a Score. It tolerates
// markdown fences, prose around the object and numbers sent as strings, then
// validates the normalized document against the score schema.
func ParseScore(raw string) (*Score, error) {
	cleaned := ExtractJSON(raw)
	if cleaned == "" {
		return nil, ErrEmptyResponse
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScore, err)
	}

	value := coerceFloat(data["score"])
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, fmt.Errorf("%w: score is not a number", ErrInvalidScore)
	}
	doc := map[string]any{
		"score":          value,
		"comment":        coerceString(data["comment"]),
		"recommendation": coerceString(data["recommendation"]),
	}
	if err := validateScore(doc); err != nil {
		return nil, err
	}

	return &Score{
		Value:          value,
		Comment:        doc["comment"].(string),
		Recommendation: doc["recommendation"].(string),
		Raw:            json.RawMessage(cleaned),
	}, nil
}

func validateScore(doc map[string]any) error {
	schema, err := scoreSchema()
	if err != nil {
		return fmt.Errorf("compile score schema: %w", err)
	}
	res, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScore, err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalidScore, strings.Join(msgs, "; "))
}

// ExtractJSON strips markdown code fences and any prose surrounding the
// outermost JSON object.
func ExtractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	if start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); start > 0 && end > start {
		raw = raw[start : end+1]
	}
	return strings.TrimSpace(raw)
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		trimmed := strings.TrimSuffix(strings.TrimSpace(val), "%")
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case nil:
		return ""
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}
