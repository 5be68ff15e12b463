package testutils

import (
	"encoding/json"
	"fmt"
)

// CorrectionJSON builds a valid model response. Empty mistakeType and
// pattern produce null fields.
func CorrectionJSON(original, corrected, mistakeType, pattern string) string {
	nullable := func(s string) any {
		if s == "" {
			return nil
		}
		return s
	}

	payload := map[string]any{
		"originalText":      original,
		"correctedText":     corrected,
		"koreanExplanation": "문장을 자연스럽게 고쳤습니다.",
		"alternatives": []map[string]string{
			{"type": "Formal", "text": corrected},
			{"type": "Casual", "text": corrected},
			{"type": "Idiomatic", "text": corrected},
		},
		"mistakeType":    nullable(mistakeType),
		"mistakePattern": nullable(pattern),
	}

	b, err := json.Marshal(payload)
	if err != nil {
		panic(fmt.Sprintf("marshal correction: %v", err))
	}
	return string(b)
}
