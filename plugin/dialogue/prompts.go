package dialogue

import (
	"fmt"
	"strings"

	"github.com/haruplan/haruplan/plugin/parser"
	"github.com/haruplan/haruplan/server/timezone"
)

// Fixed user-facing messages.
const (
	msgNotUnderstood    = "일정 정보를 이해하지 못했어요. 다시 입력해 주세요."
	msgRetryWithDate    = "자세한 분석이 어렵습니다. 날짜와 시간을 포함해서 다시 입력해 주세요.\n예) \"내일 오후 3시 치과\""
	msgCancelled        = "취소했습니다. 다시 입력해 주세요."
	msgDateStillMissing = "날짜를 아직 파악하지 못했어요. 예) \"3월 15일 오후 2시\""
	msgSaved            = "✅ 일정이 저장되었습니다!"
	msgSaveFailed       = "⚠️ 일정 저장에 실패했습니다. 다시 시도해 주세요."
)

// confirmationPrompt renders the deterministic save-confirmation message for
// a complete pending parse. fallbackTitle fills in when the parse carries no
// title.
func confirmationPrompt(result *parser.ParseResult, fallbackTitle string) string {
	title := result.TitleCandidate
	if title == "" {
		title = fallbackTitle
	}

	var repeatLabel string
	switch result.RepeatType {
	case parser.RepeatMonthly:
		repeatLabel = " (매월 반복)"
	case parser.RepeatYearly:
		repeatLabel = " (매년 반복)"
	}

	return fmt.Sprintf("📌 %q\n📆 %s%s\n\n이대로 저장할까요? (네/아니오)",
		title, timezone.FormatKoreanDate(*result.StartAt), repeatLabel)
}

// followUpQuestions renders one targeted question per missing field.
func followUpQuestions(missingFields []string) string {
	questions := make([]string, 0, len(missingFields))
	for _, field := range missingFields {
		switch field {
		case parser.FieldTitle:
			questions = append(questions, "일정 제목을 알려주세요.")
		case parser.FieldTime:
			questions = append(questions, "몇 시에 알려드릴까요? (기본: 오전 9시)")
		default:
			questions = append(questions, fmt.Sprintf("%s을(를) 알려주세요.", field))
		}
	}
	return strings.Join(questions, "\n")
}
