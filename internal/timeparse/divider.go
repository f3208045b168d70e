package timeparse

import (
	"strconv"
	"time"
)

// InferYear picks the year for a month name shown without one. Transcripts
// only contain past dates, so a month six or more months ahead of the anchor
// is last year's and one more than six months behind is next year's. With no
// anchor the current year is used.
func InferYear(month time.Month, anchor, now time.Time) int {
	if anchor.IsZero() {
		return now.Year()
	}
	diff := int(month) - int(anchor.Month())
	switch {
	case diff >= 6:
		return anchor.Year() - 1
	case diff < -6:
		return anchor.Year() + 1
	default:
		return anchor.Year()
	}
}

// ResolveDivider resolves the text of a date divider ("Monday, June 2",
// "June 2, 2024", "Yesterday") to midnight of that date. ok is false when the
// divider carries no usable date; callers must then leave their anchor alone.
func (r *Resolver) ResolveDivider(text string, anchor time.Time) (time.Time, bool) {
	text = clean(text)
	if text == "" {
		return time.Time{}, false
	}

	if fourDigitYear.MatchString(text) {
		for _, parse := range []func(string, time.Time) (time.Time, bool){
			r.parseTextualDate,
			r.parseSlashDate,
			r.parseNative,
		} {
			if t, ok := parse(text, anchor); ok {
				return Midnight(t), true
			}
		}
		return time.Time{}, false
	}

	if t, ok := r.parseTextualDate(text, anchor); ok {
		return Midnight(t), true
	}
	if m := dayMonthRe.FindStringSubmatch(text); m != nil {
		month, ok := lookupMonth(m[2])
		if !ok {
			return time.Time{}, false
		}
		day, _ := strconv.Atoi(m[1])
		return calendarDate(InferYear(month, anchor, r.Now()), month, day, r.loc)
	}
	if t, ok := r.parseSlashDate(text, anchor); ok {
		return Midnight(t), true
	}
	if t, ok := r.parseRelativeDay(text, anchor); ok {
		return Midnight(t), true
	}
	if t, ok := r.parseWeekday(text, anchor); ok {
		return Midnight(t), true
	}
	return time.Time{}, false
}
