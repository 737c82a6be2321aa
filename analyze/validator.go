package analyze

import (
	"encoding/json"
	"strings"

	"github.com/c360studio/issuesense/llm"
)

// Defaults substituted when the upstream response is missing or
// malformed. The validator never fails on bad content — the caller
// must always receive a well-formed Result.
const (
	defaultScore             = 3
	minLabels                = 2
	maxLabels                = 3
	placeholderSummary       = "No summary provided."
	placeholderJustification = "No justification provided."
	placeholderImpact        = "Not assessed."
)

// fallbackLabels pad the suggested label set when the model returns
// fewer than minLabels.
var fallbackLabels = []string{"needs-triage", "needs-review", "unconfirmed"}

// validTypes is the closed enum of item types.
var validTypes = map[string]ItemType{
	"bug":           TypeBug,
	"feature":       TypeFeature,
	"documentation": TypeDocumentation,
	"question":      TypeQuestion,
	"other":         TypeOther,
}

// typeAliases maps common model spellings onto the enum.
var typeAliases = map[string]ItemType{
	"feature_request": TypeFeature,
	"enhancement":     TypeFeature,
	"docs":            TypeDocumentation,
	"doc":             TypeDocumentation,
	"defect":          TypeBug,
}

// Validate parses the raw completion text into a Result, substituting a
// documented default for every absent or malformed field. The returned
// repairs list names each substituted field; an empty list means the
// response was already valid. Validate is idempotent: a marshaled valid
// Result validates to itself with no repairs.
func Validate(raw string) (Result, []string) {
	var repairs []string

	fields := parseFields(raw)
	if fields == nil {
		repairs = append(repairs, "response")
	}

	result := Result{}

	result.Summary = decodeString(fields["summary"])
	if strings.TrimSpace(result.Summary) == "" {
		result.Summary = placeholderSummary
		repairs = append(repairs, "summary")
	}

	var typeRepaired bool
	result.Type, typeRepaired = coerceType(decodeString(fields["type"]))
	if typeRepaired {
		repairs = append(repairs, "type")
	}

	var priorityRepairs []string
	result.Priority, priorityRepairs = coercePriority(fields["priority_score"])
	repairs = append(repairs, priorityRepairs...)

	var labelsRepaired bool
	result.SuggestedLabels, labelsRepaired = coerceLabels(fields["suggested_labels"])
	if labelsRepaired {
		repairs = append(repairs, "suggested_labels")
	}

	result.PotentialImpact = decodeString(fields["potential_impact"])
	if strings.TrimSpace(result.PotentialImpact) == "" {
		result.PotentialImpact = placeholderImpact
		repairs = append(repairs, "potential_impact")
	}

	return result, repairs
}

// parseFields extracts the response's top-level fields, or nil when no
// JSON object could be recovered at all.
func parseFields(raw string) map[string]json.RawMessage {
	text := llm.ExtractJSON(raw)
	if text == "" {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return nil
	}
	return fields
}

func decodeString(data json.RawMessage) string {
	if len(data) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return ""
	}
	return s
}

func coerceType(s string) (ItemType, bool) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	if t, ok := validTypes[normalized]; ok {
		return t, false
	}
	if t, ok := typeAliases[normalized]; ok {
		return t, true
	}
	return TypeOther, true
}

// coercePriority accepts either the canonical {"score": n,
// "justification": s} object or a bare number.
func coercePriority(data json.RawMessage) (Priority, []string) {
	var repairs []string

	var obj struct {
		Score         json.RawMessage `json:"score"`
		Justification string          `json:"justification"`
	}
	scoreRaw := data
	if err := json.Unmarshal(data, &obj); err == nil && (obj.Score != nil || obj.Justification != "") {
		scoreRaw = obj.Score
	}

	score, ok := coerceScore(scoreRaw)
	if !ok {
		score = defaultScore
		repairs = append(repairs, "priority_score.score")
	} else if clamped := clamp(score, 1, 5); clamped != score {
		score = clamped
		repairs = append(repairs, "priority_score.score")
	}

	justification := obj.Justification
	if strings.TrimSpace(justification) == "" {
		justification = placeholderJustification
		repairs = append(repairs, "priority_score.justification")
	}

	return Priority{Score: score, Justification: justification}, repairs
}

// coerceScore converts a JSON number or numeric string to an int.
func coerceScore(data json.RawMessage) (int, bool) {
	if len(data) == 0 {
		return 0, false
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
		if f, err := n.Float64(); err == nil {
			return int(f), true
		}
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		var n2 json.Number = json.Number(strings.TrimSpace(s))
		if i, err := n2.Int64(); err == nil {
			return int(i), true
		}
	}

	return 0, false
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// coerceLabels deduplicates the suggested labels and forces the count
// into [minLabels, maxLabels].
func coerceLabels(data json.RawMessage) ([]string, bool) {
	var values []any
	_ = json.Unmarshal(data, &values)

	var labels []string
	seen := make(map[string]bool)
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" || seen[strings.ToLower(s)] {
			continue
		}
		seen[strings.ToLower(s)] = true
		labels = append(labels, s)
	}

	repaired := len(labels) != len(values) || len(labels) < minLabels || len(labels) > maxLabels

	for _, fb := range fallbackLabels {
		if len(labels) >= minLabels {
			break
		}
		if seen[fb] {
			continue
		}
		seen[fb] = true
		labels = append(labels, fb)
	}

	if len(labels) > maxLabels {
		labels = labels[:maxLabels]
	}

	return labels, repaired
}
