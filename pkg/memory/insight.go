package memory

import (
	"fmt"
	"strings"
)

var insights = map[string]string{
	"tense-confusion":        "시제 사용에 주의하세요! 과거, 현재, 미래를 명확히 구분하는 것이 중요합니다. 시간 표현(yesterday, tomorrow 등)과 함께 연습해보세요.",
	"subject-verb-agreement": "주어와 동사의 일치에 집중하세요! 3인칭 단수(he/she/it)일 때 동사에 -s를 붙이는 것을 잊지 마세요.",
	"preposition-usage":      "전치사 사용을 복습하세요! 각 동사나 명사와 어울리는 전치사를 함께 외우면 도움이 됩니다.",
	"article-usage":          "관사(a/an/the) 사용법을 확인하세요! 셀 수 있는 명사 앞에는 관사가 필요합니다.",
	"word-order":             "어순을 다시 확인하세요! 영어는 주어-동사-목적어 순서가 기본입니다.",
	"plural-forms":           "복수형 사용에 주의하세요! 2개 이상일 때는 -s나 -es를 붙여야 합니다.",
}

// Insight renders the learner-facing message for a pattern that has become
// recurring after count observations.
func Insight(pattern string, count int) string {
	body, ok := insights[pattern]
	if !ok {
		body = fmt.Sprintf("'%s' 패턴을 다시 한번 복습해보세요!", strings.ReplaceAll(pattern, "-", " "))
	}

	return fmt.Sprintf("💡 **반복되는 실수 패턴 발견!** (%d회)\n\n%s\n\n꾸준히 연습하면 반드시 개선됩니다. 화이팅! 💪", count, body)
}
