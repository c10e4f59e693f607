package parser

import (
	"regexp"
	"strings"
)

// Pre-compiled regex patterns for performance.
var (
	// Date patterns
	fullDatePattern = regexp.MustCompile(`(\d{4})년\s*(\d{1,2})월\s*(\d{1,2})일`)
	monthDayPattern = regexp.MustCompile(`(\d{1,2})월\s*(\d{1,2})일`)
	dayOnlyPattern  = regexp.MustCompile(`(\d{1,2})일`)

	// Time patterns
	koreanTimePattern = regexp.MustCompile(`(오전|오후)\s*(\d{1,2})시\s*(\d{1,2})?분?`)
	plainTimePattern  = regexp.MustCompile(`(\d{1,2})시\s*(\d{1,2})?분?`)
	colonTimePattern  = regexp.MustCompile(`(\d{1,2}):(\d{2})`)

	// Recurrence patterns
	monthlyPattern = regexp.MustCompile(`매달|매월`)
	yearlyPattern  = regexp.MustCompile(`매년|매해`)

	// Token-stripping patterns for title extraction
	yearTokenPattern    = regexp.MustCompile(`(\d{4})년`)
	monthTokenPattern   = regexp.MustCompile(`(\d{1,2})월`)
	dayTokenPattern     = regexp.MustCompile(`(\d{1,2})일`)
	repeatTokenPattern  = regexp.MustCompile(`매달|매월|매년|매해`)
	relativeDayPattern  = regexp.MustCompile(`오늘|내일|모레`)
	particleTokenRegexp = regexp.MustCompile(`에|까지|부터`)
)

// extractTitle strips every recognized date, time, recurrence, and
// relative-day token plus connector particles, leaving the schedule title.
func extractTitle(text string) string {
	title := text
	title = yearTokenPattern.ReplaceAllString(title, "")
	title = monthTokenPattern.ReplaceAllString(title, "")
	title = dayTokenPattern.ReplaceAllString(title, "")
	title = koreanTimePattern.ReplaceAllString(title, "")
	title = plainTimePattern.ReplaceAllString(title, "")
	title = colonTimePattern.ReplaceAllString(title, "")
	title = repeatTokenPattern.ReplaceAllString(title, "")
	title = relativeDayPattern.ReplaceAllString(title, "")
	title = particleTokenRegexp.ReplaceAllString(title, "")
	return strings.TrimSpace(title)
}
