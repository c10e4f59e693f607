// Package parser implements the rule-based Korean natural language schedule parser.
//
// Supported patterns:
//   - relative days: 오늘, 내일, 모레
//   - dates: "10일", "3월 10일", "2026년 3월 10일"
//   - times: "오전 9시", "오후 3시", "9시", "9:30"
//   - recurrence: "매달 25일", "매월 10일", "매년 3월 10일"
package parser

import (
	"strconv"
	"strings"
	"time"
)

// RepeatType describes how a schedule repeats.
type RepeatType string

const (
	RepeatNone    RepeatType = "none"
	RepeatMonthly RepeatType = "monthly"
	RepeatYearly  RepeatType = "yearly"
)

// Field names reported in ParseResult.MissingFields.
const (
	FieldTitle = "title"
	FieldDate  = "date"
	FieldTime  = "time"
)

// DefaultHour is applied when a date resolves without an explicit time.
const DefaultHour = 9

// ParseResult is the output of a single parse attempt.
type ParseResult struct {
	TitleCandidate string     `json:"titleCandidate"`
	StartAt        *time.Time `json:"startAtISO"`
	RepeatType     RepeatType `json:"repeatType"`
	MissingFields  []string   `json:"missingFields"`
}

// Complete reports whether the parse resolved a start time with no missing fields.
func (r *ParseResult) Complete() bool {
	return r.StartAt != nil && len(r.MissingFields) == 0
}

// Missing reports whether the given field could not be resolved.
func (r *ParseResult) Missing(field string) bool {
	for _, f := range r.MissingFields {
		if f == field {
			return true
		}
	}
	return false
}

// Parser turns raw Korean text into a best-effort structured parse.
// It is deterministic and performs no I/O; "now" is injectable for tests.
type Parser struct {
	location *time.Location
	now      func() time.Time
}

// New creates a parser that resolves relative dates in the given location.
// A nil location falls back to the system-local timezone.
func New(location *time.Location) *Parser {
	if location == nil {
		location = time.Local
	}
	return &Parser{
		location: location,
		now:      time.Now,
	}
}

// Parse parses text against the current time.
func (p *Parser) Parse(text string) ParseResult {
	return p.ParseAt(text, p.now().In(p.location))
}

// ParseAt parses text against an explicit reference time. Extractor rules run
// in a fixed order; each fills fields the earlier rules left open, except
// absolute dates which override relative ones.
func (p *Parser) ParseAt(text string, now time.Time) ParseResult {
	d := &draft{repeat: RepeatNone}

	for _, rule := range extractorRules {
		rule(d, text, now)
	}

	result := ParseResult{
		TitleCandidate: extractTitle(text),
		RepeatType:     d.repeat,
	}

	if result.TitleCandidate == "" {
		result.MissingFields = append(result.MissingFields, FieldTitle)
	}
	if d.day == nil {
		result.MissingFields = append(result.MissingFields, FieldDate)
	}
	if d.hour == nil {
		result.MissingFields = append(result.MissingFields, FieldTime)
	}

	if d.year != nil && d.month != nil && d.day != nil {
		hour, minute := DefaultHour, 0
		if d.hour != nil {
			hour = *d.hour
		}
		if d.minute != nil {
			minute = *d.minute
		}
		startAt := time.Date(*d.year, time.Month(*d.month), *d.day, hour, minute, 0, 0, now.Location())
		result.StartAt = &startAt
	}

	return result
}

// draft accumulates partial fields while the extractor rules run.
type draft struct {
	year, month, day *int
	hour, minute     *int
	repeat           RepeatType
}

// extractorRules run in precedence order. Recurrence must precede date
// extraction because it gates the roll-forward of already-passed dates.
var extractorRules = []func(d *draft, text string, now time.Time){
	extractRecurrence,
	extractRelativeDay,
	extractAbsoluteDate,
	extractTime,
}

func extractRecurrence(d *draft, text string, _ time.Time) {
	switch {
	case monthlyPattern.MatchString(text):
		d.repeat = RepeatMonthly
	case yearlyPattern.MatchString(text):
		d.repeat = RepeatYearly
	}
}

// extractRelativeDay resolves 오늘/모레/내일. The source order is deliberate:
// 모레 is tested before 내일, so text containing both resolves to 모레.
func extractRelativeDay(d *draft, text string, now time.Time) {
	var target time.Time
	switch {
	case strings.Contains(text, "오늘"):
		target = now
	case strings.Contains(text, "모레"):
		target = now.AddDate(0, 0, 2)
	case strings.Contains(text, "내일"):
		target = now.AddDate(0, 0, 1)
	default:
		return
	}
	d.setDate(target.Year(), int(target.Month()), target.Day())
}

func extractAbsoluteDate(d *draft, text string, now time.Time) {
	// "2026년 3월 10일"
	if m := fullDatePattern.FindStringSubmatch(text); m != nil {
		d.setDate(atoi(m[1]), atoi(m[2]), atoi(m[3]))
		return
	}

	// "3월 10일": assume the current year, rolling a passed date into next
	// year unless the schedule repeats.
	if m := monthDayPattern.FindStringSubmatch(text); m != nil {
		month, day := atoi(m[1]), atoi(m[2])
		year := now.Year()
		if d.repeat == RepeatNone && beforeToday(year, month, day, now) {
			year++
		}
		d.setDate(year, month, day)
		return
	}

	// "10일": assume the current month, rolling a passed day into next month.
	if d.month == nil && d.day == nil {
		if m := dayOnlyPattern.FindStringSubmatch(text); m != nil {
			day := atoi(m[1])
			year, month := now.Year(), int(now.Month())
			if d.repeat == RepeatNone && day < now.Day() {
				month++
				if month > 12 {
					month = 1
					year++
				}
			}
			d.setDate(year, month, day)
		}
	}
}

// extractTime resolves the time-of-day. Patterns are tried in priority order
// and the first successful match wins.
func extractTime(d *draft, text string, _ time.Time) {
	// "오전/오후 N시 [M분]"
	if m := koreanTimePattern.FindStringSubmatch(text); m != nil {
		hour := atoi(m[2])
		if m[1] == "오후" && hour < 12 {
			hour += 12
		}
		if m[1] == "오전" && hour == 12 {
			hour = 0
		}
		minute := 0
		if m[3] != "" {
			minute = atoi(m[3])
		}
		d.hour, d.minute = &hour, &minute
		return
	}

	// "N시 [M분]"
	if m := plainTimePattern.FindStringSubmatch(text); m != nil {
		hour, minute := atoi(m[1]), 0
		if m[2] != "" {
			minute = atoi(m[2])
		}
		d.hour, d.minute = &hour, &minute
		return
	}

	// "H:MM"
	if m := colonTimePattern.FindStringSubmatch(text); m != nil {
		hour, minute := atoi(m[1]), atoi(m[2])
		d.hour, d.minute = &hour, &minute
	}
}

func (d *draft) setDate(year, month, day int) {
	d.year, d.month, d.day = &year, &month, &day
}

// beforeToday reports whether the given date is strictly before now at
// same-day granularity.
func beforeToday(year, month, day int, now time.Time) bool {
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location())
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return date.Before(today)
}

func atoi(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}
