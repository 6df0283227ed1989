package service

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/terakoya-dev/terakoya-api/internal/dto"
)

// FallbackFeedback is the generic feedback attached when grading could not be
// completed. Shown to students as-is, so it stays neutral and bilingual.
const FallbackFeedback = "自動採点を完了できませんでした。この回答は講師が確認します。 / This answer could not be graded automatically and will be reviewed by a mentor."

// evaluationSchemaJSON describes the minimum shape the grading prompt asks
// the model for. Validation is deliberately loose about the score type and
// the aspects mapping: score normalization turns anything non-numeric into 0,
// and a malformed aspects value degrades to an empty map instead of failing
// the whole evaluation.
const evaluationSchemaJSON = `{
	"type": "object",
	"required": ["score", "feedback"],
	"properties": {
		"feedback": {"type": "string"}
	}
}`

var evaluationSchema = jsonschema.MustCompileString("evaluation.json", evaluationSchemaJSON)

// fallbackResult is the fixed safe result substituted when grading fails.
// Batch grading depends on this: one bad answer must never abort the rest.
func fallbackResult() dto.EvaluationResult {
	return dto.EvaluationResult{
		Score:    0,
		Level:    "D",
		Feedback: FallbackFeedback,
		Aspects:  map[string]int{},
	}
}

// parseEvaluation turns the raw model output into a structured result. It is
// the explicit fallible half of the evaluator: the public EvaluateAnswer
// converts any error from here into the fallback result.
func parseEvaluation(raw string) (dto.EvaluationResult, error) {
	doc := extractJSONObject(raw)
	if doc == "" {
		return dto.EvaluationResult{}, fmt.Errorf("no JSON object in model output")
	}

	var payload interface{}
	if err := json.Unmarshal([]byte(doc), &payload); err != nil {
		return dto.EvaluationResult{}, fmt.Errorf("decode model output: %w", err)
	}

	if err := evaluationSchema.Validate(payload); err != nil {
		return dto.EvaluationResult{}, fmt.Errorf("model output failed schema validation: %w", err)
	}

	fields, ok := payload.(map[string]interface{})
	if !ok {
		return dto.EvaluationResult{}, fmt.Errorf("model output is not an object")
	}

	score := normalizeScore(fields["score"])
	feedback, _ := fields["feedback"].(string)

	result := dto.EvaluationResult{
		Score:    score,
		Level:    levelForScore(score),
		Feedback: feedback,
		Aspects:  extractAspects(fields["aspects"]),
	}

	return result, nil
}

// normalizeScore coerces the model-reported score to an integer in [0,100].
// Non-numeric and absent values become 0.
func normalizeScore(value interface{}) int {
	var score float64
	switch v := value.(type) {
	case float64:
		score = v
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		score = parsed
	default:
		return 0
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return int(score)
}

// levelForScore derives the grade level from a normalized score.
// Thresholds: A>=90, B>=75, C>=50, otherwise D.
func levelForScore(score int) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 75:
		return "B"
	case score >= 50:
		return "C"
	default:
		return "D"
	}
}

// extractAspects returns the per-aspect breakdown when it is a well-formed
// mapping of name to number, and an empty map otherwise. Never an error.
func extractAspects(value interface{}) map[string]int {
	aspects := map[string]int{}

	mapping, ok := value.(map[string]interface{})
	if !ok {
		return aspects
	}

	for name, raw := range mapping {
		number, ok := raw.(float64)
		if !ok {
			return map[string]int{}
		}
		aspects[name] = int(number)
	}

	return aspects
}

// extractJSONObject finds the outermost JSON object in a string, skipping
// braces inside quoted strings. Models routinely wrap their JSON in prose or
// markdown fences.
func extractJSONObject(s string) string {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i, ch := range s {
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch ch {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			depth--
			if depth == 0 && start != -1 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
