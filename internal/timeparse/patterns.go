package timeparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Building blocks shared by the format families. Every pattern is matched
// against whitespace-normalized text, case-insensitively.
const (
	monthNames   = `jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?`
	weekdayNames = `mon(?:day)?|tue(?:s(?:day)?)?|wed(?:nesday)?|thu(?:r(?:s(?:day)?)?)?|fri(?:day)?|sat(?:urday)?|sun(?:day)?`

	// clock captures hour, minute, optional second and optional a/p meridiem.
	clock = `(\d{1,2}):(\d{2})(?::(\d{2}))?(?:\s*([ap])\.?\s*m\.?)?`

	// clockSuffix is an optional time-of-day trailing a date, allowing
	// "June 2, 3:00 PM" and "June 2 at 3:00 PM".
	clockSuffix = `(?:,?\s+(?:at\s+)?` + clock + `)?`
)

var (
	slashDateRe   = regexp.MustCompile(`(?i)^(\d{1,2})/(\d{1,2})/(\d{4}|\d{2})` + clockSuffix + `$`)
	textualDateRe = regexp.MustCompile(`(?i)^(?:(?:` + weekdayNames + `),?\s+)?(` + monthNames + `)\.?\s+(\d{1,2})(?:st|nd|rd|th)?(?:,?\s+(\d{4}))?` + clockSuffix + `$`)
	dayMonthRe    = regexp.MustCompile(`(?i)^(?:(?:` + weekdayNames + `),?\s+)?(\d{1,2})(?:st|nd|rd|th)?\s+(` + monthNames + `)\.?$`)
	relativeDayRe = regexp.MustCompile(`(?i)^(today|yesterday)` + clockSuffix + `$`)
	agoRe         = regexp.MustCompile(`(?i)^(\d+|an?)\s+(minutes?|mins?|hours?|hrs?|days?)\s+ago$`)
	weekdayRe     = regexp.MustCompile(`(?i)^(` + weekdayNames + `)` + clockSuffix + `$`)
	timeOnlyRe    = regexp.MustCompile(`(?i)^` + clock + `$`)
	fourDigitYear = regexp.MustCompile(`\b(19|20)\d{2}\b`)
)

var monthIndex = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

var weekdayIndex = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday,
	"wed": time.Wednesday, "thu": time.Thursday, "fri": time.Friday,
	"sat": time.Saturday,
}

func lookupMonth(name string) (time.Month, bool) {
	if len(name) < 3 {
		return 0, false
	}
	m, ok := monthIndex[strings.ToLower(name[:3])]
	return m, ok
}

func lookupWeekday(name string) (time.Weekday, bool) {
	if len(name) < 3 {
		return 0, false
	}
	d, ok := weekdayIndex[strings.ToLower(name[:3])]
	return d, ok
}

// clockTime is a parsed time-of-day.
type clockTime struct {
	hour, min, sec int
	set            bool
}

// parseClock validates the four clock capture groups. An empty hour means
// no time was given, which is valid and yields an unset clockTime.
func parseClock(h, m, s, meridiem string) (clockTime, bool) {
	if h == "" {
		return clockTime{}, true
	}
	hour, err := strconv.Atoi(h)
	if err != nil {
		return clockTime{}, false
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute > 59 {
		return clockTime{}, false
	}
	sec := 0
	if s != "" {
		if sec, err = strconv.Atoi(s); err != nil || sec > 59 {
			return clockTime{}, false
		}
	}

	switch strings.ToLower(meridiem) {
	case "a":
		if hour < 1 || hour > 12 {
			return clockTime{}, false
		}
		if hour == 12 {
			hour = 0
		}
	case "p":
		if hour < 1 || hour > 12 {
			return clockTime{}, false
		}
		if hour != 12 {
			hour += 12
		}
	default:
		if hour > 23 {
			return clockTime{}, false
		}
	}
	return clockTime{hour: hour, min: minute, sec: sec, set: true}, true
}

// on places the clock on the calendar day of d. An unset clock yields midnight.
func (c clockTime) on(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), c.hour, c.min, c.sec, 0, d.Location())
}

// after reports whether c is later in the day than t's time-of-day.
func (c clockTime) after(t time.Time) bool {
	a := c.hour*3600 + c.min*60 + c.sec
	b := t.Hour()*3600 + t.Minute()*60 + t.Second()
	return a > b
}

// calendarDate builds a date and rejects overflowed days such as February 30.
func calendarDate(year int, month time.Month, day int, loc *time.Location) (time.Time, bool) {
	if day < 1 || day > 31 {
		return time.Time{}, false
	}
	d := time.Date(year, month, day, 0, 0, 0, 0, loc)
	if d.Month() != month || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

// Midnight truncates t to the start of its calendar day in t's location.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// clean collapses whitespace runs, including the no-break and narrow
// no-break spaces locale formatters put before AM/PM.
func clean(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
