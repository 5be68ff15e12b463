package correction

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Range is an inclusive numeric bound.
type Range struct {
	Min float64
	Max float64
}

func (r Range) contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Expectations are the per-level targets a response is measured against.
type Expectations struct {
	VocabularyComplexity Range
	ExplanationLength    Range
	KoreanRatio          Range
}

// LevelExpectations maps each proficiency level to its targets.
var LevelExpectations = map[string]Expectations{
	"detailed": {
		VocabularyComplexity: Range{0, 40},
		ExplanationLength:    Range{150, 600},
		KoreanRatio:          Range{0.7, 1.0},
	},
	"concise": {
		VocabularyComplexity: Range{30, 70},
		ExplanationLength:    Range{60, 300},
		KoreanRatio:          Range{0.4, 0.7},
	},
}

// Metrics are the measured properties of one explanation.
type Metrics struct {
	VocabularyComplexity int     `json:"vocabularyComplexity"`
	ExplanationLength    int     `json:"explanationLength"`
	KoreanRatio          float64 `json:"koreanRatio"`
}

// Assessment is the outcome of checking a result against a level.
type Assessment struct {
	Valid      bool     `json:"valid"`
	Level      string   `json:"level"`
	Metrics    Metrics  `json:"metrics"`
	Violations []string `json:"violations"`
	Warnings   []string `json:"warnings"`
	Score      int      `json:"score"`
}

var englishWord = regexp.MustCompile(`[a-zA-Z]+`)

// Assess measures a result against the expectations for level. Unknown
// levels are assessed as "detailed".
func Assess(result *Result, level string) *Assessment {
	exp, ok := LevelExpectations[level]
	if !ok {
		level = "detailed"
		exp = LevelExpectations[level]
	}

	metrics := Metrics{
		VocabularyComplexity: VocabularyComplexity(result.KoreanExplanation),
		ExplanationLength:    utf8.RuneCountInString(result.KoreanExplanation),
		KoreanRatio:          KoreanRatio(result.KoreanExplanation),
	}

	a := &Assessment{
		Level:      level,
		Metrics:    metrics,
		Violations: []string{},
		Warnings:   []string{},
	}

	if !exp.VocabularyComplexity.contains(float64(metrics.VocabularyComplexity)) {
		a.Violations = append(a.Violations, fmt.Sprintf(
			"Vocabulary complexity (%d) outside expected range [%g, %g] for %s level",
			metrics.VocabularyComplexity, exp.VocabularyComplexity.Min, exp.VocabularyComplexity.Max, level))
	}
	if !exp.ExplanationLength.contains(float64(metrics.ExplanationLength)) {
		a.Violations = append(a.Violations, fmt.Sprintf(
			"Explanation length (%d) outside expected range [%g, %g] for %s level",
			metrics.ExplanationLength, exp.ExplanationLength.Min, exp.ExplanationLength.Max, level))
	}
	if !exp.KoreanRatio.contains(metrics.KoreanRatio) {
		a.Violations = append(a.Violations, fmt.Sprintf(
			"Korean ratio (%.2f) outside expected range [%g, %g] for %s level",
			metrics.KoreanRatio, exp.KoreanRatio.Min, exp.KoreanRatio.Max, level))
	}

	if len(result.Alternatives) != 3 {
		a.Warnings = append(a.Warnings, fmt.Sprintf("Expected 3 alternatives, got %d", len(result.Alternatives)))
	}
	seen := make(map[AlternativeType]bool, len(result.Alternatives))
	for _, alt := range result.Alternatives {
		seen[alt.Type] = true
	}
	for _, t := range AlternativeTypes {
		if !seen[t] {
			a.Warnings = append(a.Warnings, "Missing one or more alternative types (Formal, Casual, Idiomatic)")
			break
		}
	}

	a.Valid = len(a.Violations) == 0
	a.Score = max(0, 100-25*len(a.Violations)-5*len(a.Warnings))
	return a
}

// VocabularyComplexity scores the English words in text from 0 to 100 by
// average word length and lexical diversity.
func VocabularyComplexity(text string) int {
	words := englishWord.FindAllString(text, -1)
	if len(words) == 0 {
		return 0
	}

	total := 0
	unique := make(map[string]struct{}, len(words))
	for _, w := range words {
		total += len(w)
		unique[strings.ToLower(w)] = struct{}{}
	}

	avgLen := float64(total) / float64(len(words))
	diversity := float64(len(unique)) / float64(len(words))

	lengthScore := math.Max(math.Min((avgLen-3)/5, 1), 0) * 60
	diversityScore := math.Max((diversity-0.5)/0.5, 0) * 40

	return int(math.Round(lengthScore + diversityScore))
}

// KoreanRatio is the share of Hangul syllables among the Hangul and ASCII
// alphanumeric characters of text.
func KoreanRatio(text string) float64 {
	var korean, counted int
	for _, r := range text {
		switch {
		case r >= 0xAC00 && r <= 0xD7AF:
			korean++
			counted++
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			counted++
		}
	}
	if counted == 0 {
		return 0
	}
	return float64(korean) / float64(counted)
}
