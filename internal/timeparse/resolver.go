// Package timeparse resolves the timestamp literals a chat client renders
// ("10:02 AM", "Yesterday 3:15 PM", "Wednesday", "6/2/25", "June 2 at 3:00 PM",
// "5 minutes ago", ...) into absolute instants, relative to a date anchor.
package timeparse

import (
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// minNativeYear rejects native parses that filled in a missing year with zero.
const minNativeYear = 1970

// Resolver turns timestamp literals into instants. The zero anchor
// (time.Time{}) means no anchor is known. A Resolver is safe for concurrent use.
type Resolver struct {
	loc *time.Location
	now func() time.Time
}

// NewResolver creates a resolver interpreting wall-clock text in loc.
// A nil loc means time.Local and a nil now means time.Now.
func NewResolver(loc *time.Location, now func() time.Time) *Resolver {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &Resolver{loc: loc, now: now}
}

// Location returns the zone wall-clock text is interpreted in.
func (r *Resolver) Location() *time.Location {
	return r.loc
}

// Now returns the resolver's current wall-clock time.
func (r *Resolver) Now() time.Time {
	return r.now().In(r.loc)
}

// family is one format family of the resolution chain.
type family struct {
	name  string
	parse func(r *Resolver, text string, anchor time.Time) (time.Time, bool)
}

// families is the resolution chain. Order matters: first match wins.
var families = []family{
	{"slash-date", (*Resolver).parseSlashDate},
	{"textual-date", (*Resolver).parseTextualDate},
	{"native", (*Resolver).parseNative},
	{"relative-day", (*Resolver).parseRelativeDay},
	{"ago", (*Resolver).parseAgo},
	{"weekday", (*Resolver).parseWeekday},
	{"time-only", (*Resolver).parseTimeOnly},
}

// Resolve parses text into an absolute instant. It never panics; ok is false
// when no format family recognizes the text.
func (r *Resolver) Resolve(text string, anchor time.Time) (time.Time, bool) {
	t, _, ok := r.resolve(text, anchor)
	return t, ok
}

// ResolveFamily is Resolve that also reports which format family matched.
func (r *Resolver) ResolveFamily(text string, anchor time.Time) (time.Time, string, bool) {
	return r.resolve(text, anchor)
}

func (r *Resolver) resolve(text string, anchor time.Time) (time.Time, string, bool) {
	text = clean(text)
	if text == "" {
		return time.Time{}, "", false
	}
	for _, f := range families {
		if t, ok := f.parse(r, text, anchor); ok {
			return t, f.name, true
		}
	}
	return time.Time{}, "", false
}

// anchorDay is the day relative phrases key off: the anchor's date when one
// exists, otherwise today.
func (r *Resolver) anchorDay(anchor time.Time) time.Time {
	if anchor.IsZero() {
		return r.Now()
	}
	return anchor.In(r.loc)
}

// parseSlashDate handles M/D/Y with an optional time. Two-digit years
// 70-99 map to the 1900s, the rest to the 2000s.
func (r *Resolver) parseSlashDate(text string, _ time.Time) (time.Time, bool) {
	m := slashDateRe.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if len(m[3]) == 2 {
		year = expandYear(year)
	}
	if month < 1 || month > 12 {
		return time.Time{}, false
	}
	date, ok := calendarDate(year, time.Month(month), day, r.loc)
	if !ok {
		return time.Time{}, false
	}
	c, ok := parseClock(m[4], m[5], m[6], m[7])
	if !ok {
		return time.Time{}, false
	}
	return c.on(date), true
}

func expandYear(yy int) int {
	if yy >= 70 {
		return 1900 + yy
	}
	return 2000 + yy
}

// parseTextualDate handles "Month D[, Year][ H:MM[am/pm]]", optionally led
// by a weekday name. A missing year is inferred from the anchor.
func (r *Resolver) parseTextualDate(text string, anchor time.Time) (time.Time, bool) {
	m := textualDateRe.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	month, ok := lookupMonth(m[1])
	if !ok {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(m[2])

	var year int
	if m[3] != "" {
		year, _ = strconv.Atoi(m[3])
	} else {
		year = InferYear(month, anchor, r.Now())
	}

	date, ok := calendarDate(year, month, day, r.loc)
	if !ok {
		return time.Time{}, false
	}
	c, ok := parseClock(m[4], m[5], m[6], m[7])
	if !ok {
		return time.Time{}, false
	}
	return c.on(date), true
}

// parseNative hands the text to a general-purpose date parser, then retries
// with " at " collapsed, which that parser does not understand.
func (r *Resolver) parseNative(text string, _ time.Time) (time.Time, bool) {
	if t, ok := r.nativeParse(text); ok {
		return t, true
	}
	lower := strings.ToLower(text)
	if idx := strings.Index(lower, " at "); idx >= 0 {
		return r.nativeParse(text[:idx] + " " + text[idx+len(" at "):])
	}
	return time.Time{}, false
}

func (r *Resolver) nativeParse(text string) (t time.Time, ok bool) {
	// dateparse panics on a handful of malformed inputs.
	defer func() {
		if recover() != nil {
			t, ok = time.Time{}, false
		}
	}()
	parsed, err := dateparse.ParseIn(text, r.loc)
	if err != nil || parsed.Year() < minNativeYear {
		return time.Time{}, false
	}
	return parsed, true
}

// parseRelativeDay handles "Today" and "Yesterday" with an optional time,
// counted from the anchor's date rather than the wall clock.
func (r *Resolver) parseRelativeDay(text string, anchor time.Time) (time.Time, bool) {
	m := relativeDayRe.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	c, ok := parseClock(m[2], m[3], m[4], m[5])
	if !ok {
		return time.Time{}, false
	}
	day := r.anchorDay(anchor)
	if strings.EqualFold(m[1], "yesterday") {
		day = day.AddDate(0, 0, -1)
	}
	return c.on(day), true
}

// parseAgo handles "N minutes/hours/days ago". These phrases describe elapsed
// time at observation, so they are counted from the wall clock, never the anchor.
func (r *Resolver) parseAgo(text string, _ time.Time) (time.Time, bool) {
	m := agoRe.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	n := 1
	if q := strings.ToLower(m[1]); q != "a" && q != "an" {
		var err error
		if n, err = strconv.Atoi(q); err != nil {
			return time.Time{}, false
		}
	}

	now := r.Now()
	unit := strings.ToLower(m[2])
	switch {
	case strings.HasPrefix(unit, "min"):
		return now.Add(-time.Duration(n) * time.Minute), true
	case strings.HasPrefix(unit, "h"):
		return now.Add(-time.Duration(n) * time.Hour), true
	default:
		return now.AddDate(0, 0, -n), true
	}
}

// parseWeekday handles a weekday name with an optional time: the most recent
// such day on or before the anchor's date. When that is the anchor's own day
// and the time is later than the anchor's, the label refers to a week earlier.
func (r *Resolver) parseWeekday(text string, anchor time.Time) (time.Time, bool) {
	m := weekdayRe.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	wd, ok := lookupWeekday(m[1])
	if !ok {
		return time.Time{}, false
	}
	c, ok := parseClock(m[2], m[3], m[4], m[5])
	if !ok {
		return time.Time{}, false
	}

	base := r.anchorDay(anchor)
	back := (int(base.Weekday()) - int(wd) + 7) % 7
	if back == 0 && c.set && c.after(base) {
		back = 7
	}
	return c.on(base.AddDate(0, 0, -back)), true
}

// parseTimeOnly handles a bare "H:MM[am/pm]" on the anchor's date.
func (r *Resolver) parseTimeOnly(text string, anchor time.Time) (time.Time, bool) {
	m := timeOnlyRe.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	c, ok := parseClock(m[1], m[2], m[3], m[4])
	if !ok {
		return time.Time{}, false
	}
	return c.on(r.anchorDay(anchor)), true
}
