package analyze

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validResponse = `{
	"summary": "Null pointer dereference when saving an empty form.",
	"type": "bug",
	"priority_score": {"score": 4, "justification": "Crashes a core flow."},
	"suggested_labels": ["bug", "crash"],
	"potential_impact": "All users saving forms."
}`

func TestValidateCleanResponse(t *testing.T) {
	result, repairs := Validate(validResponse)
	assert.Empty(t, repairs)
	assert.Equal(t, TypeBug, result.Type)
	assert.Equal(t, 4, result.Priority.Score)
	assert.Equal(t, []string{"bug", "crash"}, result.SuggestedLabels)
}

func TestValidateIdempotent(t *testing.T) {
	first, _ := Validate(`{"summary": "x", "type": "weird", "priority_score": 9, "suggested_labels": ["a"]}`)

	data, err := json.Marshal(first)
	require.NoError(t, err)

	second, repairs := Validate(string(data))
	assert.Empty(t, repairs)
	assert.Equal(t, first, second)
}

func TestValidateIdempotentWithBracesInStrings(t *testing.T) {
	// Field content that itself looks like JSON syntax must survive the
	// repair pass byte for byte.
	original := Result{
		Summary:         "Config block {retries: 3, } is parsed incorrectly.",
		Type:            TypeBug,
		Priority:        Priority{Score: 4, Justification: "Affects [all, ] profiles."},
		SuggestedLabels: []string{"bug", "config"},
		PotentialImpact: "Anyone using {nested, } blocks.",
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	validated, repairs := Validate(string(data))
	assert.Empty(t, repairs)
	assert.Equal(t, original, validated)
	assert.Equal(t, "Config block {retries: 3, } is parsed incorrectly.", validated.Summary)
}

func TestValidateScoreClamping(t *testing.T) {
	tests := []struct {
		name  string
		score string
		want  int
	}{
		{"above range", "9", 5},
		{"below range", "0", 1},
		{"negative", "-3", 1},
		{"in range", "2", 2},
		{"float", "3.7", 3},
		{"numeric string", `"4"`, 4},
		{"garbage", `"high"`, defaultScore},
		{"missing", "null", defaultScore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := `{"summary": "s", "type": "bug", "priority_score": {"score": ` + tt.score + `, "justification": "j"}, "suggested_labels": ["a", "b"], "potential_impact": "i"}`
			result, _ := Validate(raw)
			assert.Equal(t, tt.want, result.Priority.Score)
		})
	}
}

func TestValidateBareNumberPriority(t *testing.T) {
	result, repairs := Validate(`{"summary": "s", "type": "bug", "priority_score": 5, "suggested_labels": ["a", "b"], "potential_impact": "i"}`)
	assert.Equal(t, 5, result.Priority.Score)
	assert.Equal(t, placeholderJustification, result.Priority.Justification)
	assert.Contains(t, repairs, "priority_score.justification")
}

func TestValidateTypeCoercion(t *testing.T) {
	tests := []struct {
		in       string
		want     ItemType
		repaired bool
	}{
		{"bug", TypeBug, false},
		{"Feature", TypeFeature, false},
		{"feature_request", TypeFeature, true},
		{"enhancement", TypeFeature, true},
		{"docs", TypeDocumentation, true},
		{"defect", TypeBug, true},
		{"banana", TypeOther, true},
		{"", TypeOther, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, repaired := coerceType(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.repaired, repaired)
		})
	}
}

func TestValidateLabelCount(t *testing.T) {
	tests := []struct {
		name   string
		labels string
		want   int
	}{
		{"none", `[]`, minLabels},
		{"missing", `null`, minLabels},
		{"one", `["crash"]`, minLabels},
		{"two", `["crash", "ui"]`, 2},
		{"three", `["a", "b", "c"]`, 3},
		{"four", `["a", "b", "c", "d"]`, maxLabels},
		{"ten", `["a","b","c","d","e","f","g","h","i","j"]`, maxLabels},
		{"duplicates", `["Bug", "bug", "crash"]`, 2},
		{"non-strings skipped", `[1, "crash", true]`, minLabels},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := `{"summary": "s", "type": "bug", "priority_score": {"score": 3, "justification": "j"}, "suggested_labels": ` + tt.labels + `, "potential_impact": "i"}`
			result, _ := Validate(raw)
			assert.Len(t, result.SuggestedLabels, tt.want)
			assert.GreaterOrEqual(t, len(result.SuggestedLabels), minLabels)
			assert.LessOrEqual(t, len(result.SuggestedLabels), maxLabels)
		})
	}
}

func TestValidateLabelPadding(t *testing.T) {
	result, repairs := Validate(`{"summary": "s", "type": "bug", "priority_score": {"score": 3, "justification": "j"}, "suggested_labels": ["crash"], "potential_impact": "i"}`)
	assert.Equal(t, []string{"crash", "needs-triage"}, result.SuggestedLabels)
	assert.Contains(t, repairs, "suggested_labels")
}

func TestValidateMissingFields(t *testing.T) {
	result, repairs := Validate(`{}`)

	assert.Equal(t, placeholderSummary, result.Summary)
	assert.Equal(t, TypeOther, result.Type)
	assert.Equal(t, defaultScore, result.Priority.Score)
	assert.Equal(t, placeholderJustification, result.Priority.Justification)
	assert.Equal(t, []string{"needs-triage", "needs-review"}, result.SuggestedLabels)
	assert.Equal(t, placeholderImpact, result.PotentialImpact)

	for _, field := range []string{"summary", "type", "priority_score.score", "suggested_labels", "potential_impact"} {
		assert.Contains(t, repairs, field)
	}
}

func TestValidateUnparseableResponse(t *testing.T) {
	for _, raw := range []string{"", "I cannot analyze this issue.", "[1, 2, 3]"} {
		result, repairs := Validate(raw)
		assert.Contains(t, repairs, "response")
		// Even total garbage yields a fully valid result.
		assert.NotEmpty(t, result.Summary)
		assert.GreaterOrEqual(t, result.Priority.Score, 1)
		assert.LessOrEqual(t, result.Priority.Score, 5)
		assert.GreaterOrEqual(t, len(result.SuggestedLabels), minLabels)
	}
}

func TestValidateMarkdownWrappedResponse(t *testing.T) {
	wrapped := "Here is the analysis:\n```json\n" + validResponse + "\n```\n"
	result, repairs := Validate(wrapped)
	assert.Empty(t, repairs)
	assert.Equal(t, TypeBug, result.Type)
}
