package cliui

import (
	"fmt"
	"strings"

	"github.com/papercomputeco/tutor/pkg/correction"
)

// CorrectionMarkdown formats a correction as a markdown card.
func CorrectionMarkdown(r *correction.Result) string {
	var b strings.Builder

	if r.Degraded {
		b.WriteString("> ⚠ " + correction.UnparsableExplanation + "\n\n")
		b.WriteString(r.CorrectedText + "\n")
		return b.String()
	}

	if r.CorrectedText == r.OriginalText {
		fmt.Fprintf(&b, "**✓ %s**\n\n", r.CorrectedText)
	} else {
		fmt.Fprintf(&b, "~~%s~~\n\n**→ %s**\n\n", r.OriginalText, r.CorrectedText)
	}

	if r.HasMistake() {
		fmt.Fprintf(&b, "`%s` · `%s`\n\n", *r.MistakeType, *r.MistakePattern)
	}

	b.WriteString(r.KoreanExplanation + "\n")

	if len(r.Alternatives) > 0 {
		b.WriteString("\n")
		for _, alt := range r.Alternatives {
			fmt.Fprintf(&b, "- **%s**: %s\n", alt.Type, alt.Text)
		}
	}

	if r.Insight != "" {
		b.WriteString("\n---\n\n" + r.Insight + "\n")
	}

	return b.String()
}

// RenderCorrection renders a correction card for the terminal. Rendering
// failures fall back to the raw markdown.
func RenderCorrection(r *correction.Result) string {
	md := CorrectionMarkdown(r)
	out, err := RenderMarkdown(md)
	if err != nil {
		return md
	}
	return out
}
