// Package timezone provides timezone and date arithmetic utilities for haruplan.
//
// This package handles timezone parsing, month-length-safe day clamping, and
// next-occurrence projection for recurring schedules to ensure consistent
// time handling across the application.
package timezone

import (
	"fmt"
	"time"
)

// Repeat kinds understood by NextOccurrence.
const (
	// RepeatMonthly advances a schedule by one calendar month per period.
	RepeatMonthly = "monthly"

	// RepeatYearly advances a schedule by one calendar year per period.
	RepeatYearly = "yearly"
)

// ParseTimezone parses an IANA timezone identifier (e.g., "Asia/Seoul").
// If the timezone is invalid, returns UTC and an error.
func ParseTimezone(tz string) (*time.Location, error) {
	if tz == "" || tz == "UTC" {
		return time.UTC, nil
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}

	return loc, nil
}

// MustParseTimezone parses a timezone or panics if invalid.
// Use this for constants that are known to be valid at compile time.
func MustParseTimezone(tz string) *time.Location {
	loc, err := ParseTimezone(tz)
	if err != nil {
		panic(err)
	}
	return loc
}

// IsValidTimezone checks if a timezone identifier is valid.
func IsValidTimezone(tz string) bool {
	if tz == "" || tz == "UTC" {
		return true
	}

	_, err := time.LoadLocation(tz)
	return err == nil
}

// NowInTimezone returns the current time in the given timezone.
// A nil location resolves to the system-local timezone.
func NowInTimezone(tz *time.Location) time.Time {
	if tz == nil {
		tz = time.Local
	}
	return time.Now().In(tz)
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	// First day of next month minus 1 day
	firstOfNext := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC)
	return firstOfNext.AddDate(0, 0, -1).Day()
}

// ClampDayToMonth adjusts a day-of-month downward to fit within the actual
// length of the given month, so "the 31st" degrades into the last day of
// short months (e.g. Feb 31 -> Feb 28/29).
func ClampDayToMonth(year int, month time.Month, day int) int {
	if last := DaysInMonth(year, month); day > last {
		return last
	}
	return day
}

// NextOccurrence finds the smallest instant >= after that is a valid
// recurrence of original under the given repeat kind, preserving the
// time-of-day and clamping the day-of-month to each target month.
//
// The candidate advances one period at a time. Clamping applies per advance
// and is not undone: a monthly schedule anchored on Jan 31 lands on Feb 29,
// then Mar 29, staying on the clamped day rather than reverting to the 31st.
// Unknown repeat kinds return original unchanged.
func NextOccurrence(original time.Time, repeat string, after time.Time) time.Time {
	next := original

	switch repeat {
	case RepeatMonthly:
		for next.Before(after) {
			year, month := next.Year(), next.Month()+1
			if month > time.December {
				month = time.January
				year++
			}
			day := ClampDayToMonth(year, month, next.Day())
			next = time.Date(year, month, day,
				next.Hour(), next.Minute(), next.Second(), next.Nanosecond(), next.Location())
		}
	case RepeatYearly:
		for next.Before(after) {
			year := next.Year() + 1
			day := ClampDayToMonth(year, next.Month(), next.Day())
			next = time.Date(year, next.Month(), day,
				next.Hour(), next.Minute(), next.Second(), next.Nanosecond(), next.Location())
		}
	}

	return next
}

// StartOfDay returns the start of the day (00:00:00) in the given timezone.
func StartOfDay(t time.Time, tz *time.Location) time.Time {
	if tz == nil {
		tz = time.UTC
	}
	return time.Date(t.In(tz).Year(), t.In(tz).Month(), t.In(tz).Day(), 0, 0, 0, 0, tz)
}

// EndOfDay returns the end of the day (23:59:59.999999999) in the given timezone.
func EndOfDay(t time.Time, tz *time.Location) time.Time {
	if tz == nil {
		tz = time.UTC
	}
	return time.Date(t.In(tz).Year(), t.In(tz).Month(), t.In(tz).Day(), 23, 59, 59, 999999999, tz)
}

// SameDate reports whether a and b fall on the same calendar date in their
// own locations.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// koreanWeekdays maps time.Weekday to its Korean single character form.
var koreanWeekdays = [...]string{"일", "월", "화", "수", "목", "금", "토"}

// FormatKoreanDate formats a time as "M월 D일 (요일) HH:mm" for user-facing
// confirmation prompts and notification bodies.
func FormatKoreanDate(t time.Time) string {
	return fmt.Sprintf("%d월 %d일 (%s) %02d:%02d",
		int(t.Month()), t.Day(), koreanWeekdays[t.Weekday()], t.Hour(), t.Minute())
}

// FormatKoreanDateShort formats a time as "M월 D일 HH:mm".
func FormatKoreanDateShort(t time.Time) string {
	return fmt.Sprintf("%d월 %d일 %02d:%02d", int(t.Month()), t.Day(), t.Hour(), t.Minute())
}

// Common timezone constants.
const (
	// TimezoneUTC is the UTC timezone identifier
	TimezoneUTC = "UTC"

	// TimezoneAsiaSeoul is the Korea Standard Time timezone
	TimezoneAsiaSeoul = "Asia/Seoul"
)

// LocationAsiaSeoul is the pre-loaded Asia/Seoul location.
var LocationAsiaSeoul = MustParseTimezone(TimezoneAsiaSeoul)
