// Package correction defines the structured tutor output and the rules for
// recovering it from free-form model text.
package correction

import "strings"

// AlternativeType is the register of an alternative expression.
type AlternativeType string

const (
	Formal    AlternativeType = "Formal"
	Casual    AlternativeType = "Casual"
	Idiomatic AlternativeType = "Idiomatic"
)

// AlternativeTypes lists every valid register in display order.
var AlternativeTypes = []AlternativeType{Formal, Casual, Idiomatic}

// UnparsableExplanation is the explanation carried by a degraded result.
const UnparsableExplanation = "응답을 파싱할 수 없습니다."

// Alternative is one alternative phrasing of the corrected text.
type Alternative struct {
	Type AlternativeType `json:"type"`
	Text string          `json:"text"`
}

// Result is the structured correction returned for every turn.
type Result struct {
	OriginalText      string        `json:"originalText"`
	CorrectedText     string        `json:"correctedText"`
	KoreanExplanation string        `json:"koreanExplanation"`
	Alternatives      []Alternative `json:"alternatives"`

	// MistakeType is "category:subcategory", nil when the input was correct.
	MistakeType *string `json:"mistakeType"`

	// MistakePattern is a kebab-case pattern such as "tense-confusion".
	MistakePattern *string `json:"mistakePattern"`

	// Insight is attached by the pipeline when a pattern becomes recurring.
	Insight string `json:"insight,omitempty"`

	// Degraded marks a result synthesized from unparsable model output.
	Degraded bool `json:"degraded,omitempty"`
}

// HasMistake reports whether the result carries both a type and a pattern,
// the precondition for recording the mistake.
func (r *Result) HasMistake() bool {
	return r.MistakeType != nil && *r.MistakeType != "" &&
		r.MistakePattern != nil && *r.MistakePattern != ""
}

// Degraded builds the result returned when the model output cannot be
// parsed: the raw text stands in for the correction.
func Degraded(userText, raw string) *Result {
	return &Result{
		OriginalText:      userText,
		CorrectedText:     strings.TrimSpace(raw),
		KoreanExplanation: UnparsableExplanation,
		Alternatives:      []Alternative{},
		Degraded:          true,
	}
}
