// Package dateutils provides the date handling shared by the forecasting
// pipeline, the stores and the importers. All calendar arithmetic is done in UTC.
package dateutils

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Common date format constants used throughout the application
const (
	DateLayoutISO       = "2006-01-02"
	DateLayoutEuropean  = "02.01.2006"
	DateLayoutUS        = "01/02/2006"
	DateLayoutFull      = "2006-01-02 15:04:05"
	DateLayoutISOTime   = "2006-01-02T15:04:05"
	DateLayoutWithMonth = "2-Jan-2006"
)

// TrailingWindowDays is the length of the history window used for training.
const TrailingWindowDays = 365

// CommonFormats is a list of standard formats to try when parsing dates
var CommonFormats = []string{
	DateLayoutISO,
	time.RFC3339,
	DateLayoutEuropean,
	DateLayoutUS,
	DateLayoutFull,
	DateLayoutISOTime,
	DateLayoutWithMonth,
	"02-01-2006",
	"2006/01/02",
	"Jan 2, 2006",
	"January 2, 2006",
}

var whitespace = regexp.MustCompile(`\s+`)

// ParseDate attempts to parse a date string using multiple common formats.
// Returns the parsed time in UTC and the detected format.
func ParseDate(dateStr string) (time.Time, string, error) {
	dateStr = CleanDateString(dateStr)

	for _, format := range CommonFormats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return t.UTC(), format, nil
		}
	}

	return time.Time{}, "", fmt.Errorf("unable to parse date: %s", dateStr)
}

// ParseISODate parses a strict YYYY-MM-DD date (RFC 3339 timestamps are also
// accepted) and returns it in UTC.
func ParseISODate(dateStr string) (time.Time, error) {
	dateStr = strings.TrimSpace(dateStr)
	if t, err := time.Parse(DateLayoutISO, dateStr); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, dateStr); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", dateStr)
}

// ToISODate formats a time.Time value as an ISO date (YYYY-MM-DD)
func ToISODate(date time.Time) string {
	return date.Format(DateLayoutISO)
}

// CleanDateString removes unwanted characters and normalizes a date string
func CleanDateString(dateStr string) string {
	return whitespace.ReplaceAllString(strings.TrimSpace(dateStr), " ")
}

// StartOfDay returns midnight UTC of date's calendar day.
func StartOfDay(date time.Time) time.Time {
	date = date.UTC()
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns the last representable instant of date's calendar day in UTC.
func EndOfDay(date time.Time) time.Time {
	return StartOfDay(date).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// TrailingWindow returns the inclusive range [today-365d 00:00, today 23:59:59.999999999] in UTC.
func TrailingWindow(today time.Time) (from, to time.Time) {
	return StartOfDay(today).AddDate(0, 0, -TrailingWindowDays), EndOfDay(today)
}

// MonthOf returns the calendar month number (1-12) of t in UTC.
func MonthOf(t time.Time) int {
	return int(t.UTC().Month())
}

// InRange reports whether t lies in the inclusive range [from, to].
func InRange(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}
