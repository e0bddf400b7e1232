package models

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

const isoLayout = "2006-01-02"

var isoPrefix = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)

// Loose layouts accepted for dates that do not start with an ISO prefix.
var looseLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC850,
	"2006/01/02",
	"2006/01/02 15:04:05",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"Mon Jan 2 2006",
	"Mon, 02 Jan 2006",
}

// Date is a calendar day with no time-of-day or zone. It is comparable and
// safe to use as a map key. The zero value is "no date".
type Date struct {
	year  int
	month time.Month
	day   int
}

// NewDate builds a Date, normalizing out-of-range components the way
// time.Date does.
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf truncates t to its UTC calendar day.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return Date{year: y, month: m, day: d}
}

// ParseDate resolves a loosely formatted date string. Strings with an ISO
// yyyy-mm-dd prefix are truncated to that prefix; anything else is tried
// against a set of common layouts and converted to its UTC day.
func ParseDate(raw string) (Date, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Date{}, false
	}
	if isoPrefix.MatchString(s) {
		t, err := time.Parse(isoLayout, s[:10])
		if err != nil {
			return Date{}, false
		}
		return DateOf(t), true
	}
	for _, layout := range looseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), true
		}
	}
	return Date{}, false
}

// MustParseDate is ParseDate for literals known to be valid.
func MustParseDate(raw string) Date {
	d, ok := ParseDate(raw)
	if !ok {
		panic(fmt.Sprintf("models: invalid date %q", raw))
	}
	return d
}

func (d Date) IsZero() bool { return d == Date{} }

func (d Date) Time() time.Time {
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.UTC)
}

func (d Date) Year() int          { return d.year }
func (d Date) Month() time.Month  { return d.month }
func (d Date) Day() int           { return d.day }
func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }
func (d Date) After(o Date) bool  { return d.Compare(o) > 0 }

// Compare orders dates chronologically, returning -1, 0 or +1.
func (d Date) Compare(o Date) int {
	switch {
	case d.year != o.year:
		return cmpInt(d.year, o.year)
	case d.month != o.month:
		return cmpInt(int(d.month), int(o.month))
	default:
		return cmpInt(d.day, o.day)
	}
}

// DaysUntil returns the whole number of days from d to o (negative if o is
// earlier).
func (d Date) DaysUntil(o Date) int {
	return int(o.Time().Sub(d.Time()).Round(24*time.Hour) / (24 * time.Hour))
}

// FirstOfMonth returns the first day of d's month.
func (d Date) FirstOfMonth() Date {
	return Date{year: d.year, month: d.month, day: 1}
}

// AddMonths moves d by n calendar months.
func (d Date) AddMonths(n int) Date {
	return DateOf(d.Time().AddDate(0, n, 0))
}

// MonthKey is the yyyy-mm form of d.
func (d Date) MonthKey() string {
	return fmt.Sprintf("%04d-%02d", d.year, int(d.month))
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.year, int(d.month), d.day)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts any string with an ISO date prefix.
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	if !isoPrefix.MatchString(s) {
		return fmt.Errorf("expected ISO date (yyyy-mm-dd...), got %q", s)
	}
	parsed, ok := ParseDate(s)
	if !ok {
		return fmt.Errorf("invalid date %q", s)
	}
	*d = parsed
	return nil
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, ok := ParseDate(string(b))
	if !ok {
		return fmt.Errorf("invalid date %q", string(b))
	}
	*d = parsed
	return nil
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
