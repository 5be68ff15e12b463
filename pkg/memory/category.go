package memory

import (
	"slices"
	"strings"
)

const (
	CategoryGrammar       = "grammar"
	CategoryVocabulary    = "vocabulary"
	CategoryPronunciation = "pronunciation"
	CategoryFluency       = "fluency"
	CategoryComprehension = "comprehension"
	CategoryStyle         = "style"
)

// Categories lists every known mistake category.
var Categories = []string{
	CategoryGrammar,
	CategoryVocabulary,
	CategoryPronunciation,
	CategoryFluency,
	CategoryComprehension,
	CategoryStyle,
}

// ParseCategory extracts the category from a "category:subcategory" mistake
// type. Unknown or empty categories map to grammar with known == false.
func ParseCategory(mistakeType string) (category string, known bool) {
	head, _, _ := strings.Cut(mistakeType, ":")
	head = strings.ToLower(strings.TrimSpace(head))

	for _, c := range Categories {
		if head == c {
			return c, true
		}
	}
	return CategoryGrammar, false
}

// ValidCategory reports whether category is one of Categories.
func ValidCategory(category string) bool {
	return slices.Contains(Categories, category)
}
