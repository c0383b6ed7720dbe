// Package normalization provides value-level coercion and canonicalization
// helpers shared by the extract, spend and performance stages. All coercions
// are best-effort: unparseable values report ok=false, they never fail a run.
package normalization

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// NormalizeKey squashes case, whitespace and punctuation so column headers
// from inconsistent source schemas compare equal ("Client Gross" and
// "ClientGrossAmt" both reduce to comparable keys).
func NormalizeKey(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// missingStationForms are literal encodings of "no station" seen in exports.
var missingStationForms = map[string]struct{}{
	"": {}, "NONE": {}, "N/A": {}, "NA": {}, "<NA>": {}, "NULL": {},
}

// CanonicalStation trims and uppercases a station name. ok is false when the
// value is one of the literal missing forms; callers fill those with the
// UNKNOWN sentinel.
func CanonicalStation(s string) (string, bool) {
	c := strings.ToUpper(strings.TrimSpace(s))
	if _, missing := missingStationForms[c]; missing {
		return "", false
	}
	return c, true
}

// CoerceNumeric parses a numeric cell. Thousands separators, currency signs
// and surrounding whitespace are tolerated. Literal "NaN"/"Inf" cells, which
// pandas writes for missing values, report ok=false rather than leaking a
// non-finite float into downstream sums.
func CoerceNumeric(s string) (float64, bool) {
	c := strings.TrimSpace(s)
	c = strings.ReplaceAll(c, ",", "")
	c = strings.TrimPrefix(c, "$")
	if c == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(c, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// datetimeLayouts are tried in order by CoerceDateTime.
var datetimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"1/2/2006",
	"01/02/2006",
	"1-2-2006",
	"Jan 2, 2006",
}

// timeOnlyLayouts parse a bare time of day; the resulting date is the zero
// year, which is fine for hour extraction.
var timeOnlyLayouts = []string{
	"15:04:05",
	"15:04",
	"3:04:05 PM",
	"3:04 PM",
	"3 PM",
}

// CoerceDateTime parses a datetime cell against the accepted layouts.
func CoerceDateTime(s string) (time.Time, bool) {
	c := strings.TrimSpace(s)
	if c == "" {
		return time.Time{}, false
	}
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, c); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CoerceTimeOfDay parses a bare time-of-day cell.
func CoerceTimeOfDay(s string) (time.Time, bool) {
	c := strings.ToUpper(strings.TrimSpace(s))
	if c == "" {
		return time.Time{}, false
	}
	for _, layout := range timeOnlyLayouts {
		if t, err := time.Parse(layout, c); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CoerceHour extracts an hour of day from the heterogeneous time encodings
// found in exports. Strategies, first success wins:
//  1. full datetime parse, take the hour
//  2. Excel day-fraction float in [0,1): floor(fraction*24)
//  3. integer HHMM in [100,2359]: (value/100) mod 24
//  4. bare time-of-day parse ("6:30 AM"), take the hour
func CoerceHour(s string) (int, bool) {
	if t, ok := CoerceDateTime(s); ok {
		return t.Hour(), true
	}
	if n, ok := CoerceNumeric(s); ok {
		if n >= 0 && n < 1 {
			return int(n * 24), true
		}
		if n >= 100 && n <= 2359 {
			return (int(n) / 100) % 24, true
		}
		return 0, false
	}
	if t, ok := CoerceTimeOfDay(s); ok {
		return t.Hour(), true
	}
	return 0, false
}

// WeekLabel returns the broadcast-week identifier for ts: the date of the
// Monday starting the Monday-Sunday week that contains ts, as YYYY-MM-DD.
func WeekLabel(ts time.Time) string {
	// days since Monday
	offset := (int(ts.Weekday()) + 6) % 7
	monday := ts.AddDate(0, 0, -offset)
	return monday.Format("2006-01-02")
}

// Weekday returns the English weekday name for ts ("Monday" .. "Sunday").
func Weekday(ts time.Time) string {
	return ts.Weekday().String()
}

// NormalizeMarket collapses the "National Cable" / "National Network" /
// "national" variants to a single "National" label; other values are trimmed
// and passed through.
func NormalizeMarket(s string) string {
	c := strings.TrimSpace(s)
	fields := strings.Fields(strings.ToLower(c))
	switch len(fields) {
	case 1:
		if fields[0] == "national" {
			return "National"
		}
	case 2:
		if fields[0] == "national" && (fields[1] == "cable" || fields[1] == "network") {
			return "National"
		}
	}
	return c
}
