// Package analyze turns an enriched work item context into a validated
// analysis result: prompt construction, the completion call, and strict
// normalization of the untrusted response.
package analyze

// ItemType classifies the analyzed work item.
type ItemType string

const (
	TypeBug           ItemType = "bug"
	TypeFeature       ItemType = "feature"
	TypeDocumentation ItemType = "documentation"
	TypeQuestion      ItemType = "question"
	TypeOther         ItemType = "other"
)

// Priority is an urgency ranking. Score is always in [1,5] after
// validation.
type Priority struct {
	Score         int    `json:"score"`
	Justification string `json:"justification"`
}

// Result is the terminal output of the pipeline. After validation it
// always satisfies the output invariants: non-empty summary, a known
// type, score in [1,5], and 2-3 suggested labels. Created once per
// request; never mutated afterwards.
type Result struct {
	Summary         string   `json:"summary"`
	Type            ItemType `json:"type"`
	Priority        Priority `json:"priority_score"`
	SuggestedLabels []string `json:"suggested_labels"`
	PotentialImpact string   `json:"potential_impact"`
}

// BatchResult is one element of a batch analysis. Elements are
// independent: one failing never affects the others.
type BatchResult struct {
	Repository string  `json:"repo"`
	ItemNumber int     `json:"item_number"`
	Status     string  `json:"status"` // "success" or "failed"
	Analysis   *Result `json:"analysis,omitempty"`
	Error      string  `json:"error,omitempty"`
}
