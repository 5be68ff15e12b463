package correction

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoJSON is returned when no balanced object is present in the text.
	ErrNoJSON = errors.New("no JSON object found in model output")

	// ErrInvalidResult wraps schema violations.
	ErrInvalidResult = errors.New("invalid correction result")
)

// ExtractJSON returns the first balanced {...} span in text. Braces inside
// JSON strings are ignored. Markdown code fences are tolerated because the
// scan simply skips everything before the first brace.
func ExtractJSON(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", ErrNoJSON
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]

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
				return text[start : i+1], nil
			}
		}
	}

	return "", ErrNoJSON
}

// Parse extracts and validates a Result from model text.
func Parse(text string) (*Result, error) {
	span, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}

	var raw rawResult
	if err := json.Unmarshal([]byte(span), &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResult, err)
	}

	return raw.validate()
}

// rawResult mirrors Result with pointer fields so missing keys can be told
// apart from empty values.
type rawResult struct {
	OriginalText      *string        `json:"originalText"`
	CorrectedText     *string        `json:"correctedText"`
	KoreanExplanation *string        `json:"koreanExplanation"`
	Alternatives      *[]Alternative `json:"alternatives"`
	MistakeType       *string        `json:"mistakeType"`
	MistakePattern    *string        `json:"mistakePattern"`
	Insight           *string        `json:"insight"`
}

func (r *rawResult) validate() (*Result, error) {
	var problems []string

	if r.OriginalText == nil {
		problems = append(problems, "originalText is required")
	}
	if r.CorrectedText == nil {
		problems = append(problems, "correctedText is required")
	}
	if r.KoreanExplanation == nil {
		problems = append(problems, "koreanExplanation is required")
	}

	var alternatives []Alternative
	if r.Alternatives == nil {
		problems = append(problems, "alternatives is required")
	} else {
		alternatives = *r.Alternatives
		if len(alternatives) != 3 {
			problems = append(problems, fmt.Sprintf("alternatives must have exactly 3 entries, got %d", len(alternatives)))
		}
		for i, alt := range alternatives {
			if !validAlternativeType(alt.Type) {
				problems = append(problems, fmt.Sprintf("alternatives[%d].type %q is not one of Formal, Casual, Idiomatic", i, alt.Type))
			}
		}
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidResult, strings.Join(problems, "; "))
	}

	result := &Result{
		OriginalText:      *r.OriginalText,
		CorrectedText:     *r.CorrectedText,
		KoreanExplanation: *r.KoreanExplanation,
		Alternatives:      alternatives,
		MistakeType:       nonEmpty(r.MistakeType),
		MistakePattern:    nonEmpty(r.MistakePattern),
	}
	if r.Insight != nil {
		result.Insight = *r.Insight
	}

	return result, nil
}

func validAlternativeType(t AlternativeType) bool {
	for _, known := range AlternativeTypes {
		if t == known {
			return true
		}
	}
	return false
}

func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" || strings.EqualFold(v, "null") {
		return nil
	}
	return &v
}
