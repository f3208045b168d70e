package timeparse

import (
	"testing"
	"time"
)

// Wall clock: Friday 2025-06-20 09:00 UTC.
var testNow = time.Date(2025, 6, 20, 9, 0, 0, 0, time.UTC)

// Anchor: Wednesday 2025-06-18 15:00 UTC.
var testAnchor = time.Date(2025, 6, 18, 15, 0, 0, 0, time.UTC)

func newTestResolver() *Resolver {
	return NewResolver(time.UTC, func() time.Time { return testNow })
}

func at(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func TestResolve_ExplicitYearMatchesDirectParse(t *testing.T) {
	r := newTestResolver()

	tests := []struct {
		text   string
		layout string
	}{
		{"June 2, 2025 3:00 PM", "January 2, 2006 3:04 PM"},
		{"Jun 2, 2025", "Jan 2, 2006"},
		{"Monday, June 2, 2025", "Monday, January 2, 2006"},
		{"6/2/2025", "1/2/2006"},
		{"6/2/2025 10:02 AM", "1/2/2006 3:04 PM"},
		{"12/31/1999 11:59 PM", "1/2/2006 3:04 PM"},
		{"2025-06-02T10:02:00Z", time.RFC3339},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			want, err := time.ParseInLocation(tt.layout, tt.text, time.UTC)
			if err != nil {
				t.Fatalf("reference parse failed: %v", err)
			}
			got, ok := r.Resolve(tt.text, testAnchor)
			if !ok {
				t.Fatalf("Resolve(%q) failed", tt.text)
			}
			if !got.Equal(want) {
				t.Errorf("Resolve(%q) = %v, want %v", tt.text, got, want)
			}
		})
	}
}

func TestResolve_FamilyPriority(t *testing.T) {
	r := newTestResolver()

	tests := []struct {
		text   string
		family string
	}{
		{"6/2/25", "slash-date"},
		{"6/2/25 3:04 PM", "slash-date"},
		{"June 2", "textual-date"},
		{"Monday, June 2 at 10:02 AM", "textual-date"},
		{"2025-06-02T10:02:00Z", "native"},
		{"Yesterday", "relative-day"},
		{"Today 3:15 PM", "relative-day"},
		{"3 hours ago", "ago"},
		{"Tue 9:00", "weekday"},
		{"9:00 AM", "time-only"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			_, family, ok := r.ResolveFamily(tt.text, testAnchor)
			if !ok {
				t.Fatalf("ResolveFamily(%q) failed", tt.text)
			}
			if family != tt.family {
				t.Errorf("ResolveFamily(%q) family = %q, want %q", tt.text, family, tt.family)
			}
		})
	}
}

func TestResolve_Unresolvable(t *testing.T) {
	r := newTestResolver()

	for _, text := range []string{"", "   ", "hello world", "sent", "25:99", "13:00 PM"} {
		if got, ok := r.Resolve(text, testAnchor); ok {
			t.Errorf("Resolve(%q) = %v, expected failure", text, got)
		}
	}
}

func TestResolve_NormalizesWhitespace(t *testing.T) {
	r := newTestResolver()

	got, ok := r.Resolve("\u00a010:02\u202fAM ", testAnchor)
	if !ok {
		t.Fatal("expected narrow no-break space before AM to parse")
	}
	if want := at(2025, 6, 18, 10, 2); !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestParseSlashDate(t *testing.T) {
	r := newTestResolver()

	tests := []struct {
		text string
		want time.Time
		ok   bool
	}{
		{"6/2/25", at(2025, 6, 2, 0, 0), true},
		{"6/2/99 3:04 PM", at(1999, 6, 2, 15, 4), true},
		{"6/2/70", at(1970, 6, 2, 0, 0), true},
		{"6/2/69", at(2069, 6, 2, 0, 0), true},
		{"12/25/2024, 8:30 am", at(2024, 12, 25, 8, 30), true},
		{"13/2/2025", time.Time{}, false},
		{"2/30/2025", time.Time{}, false},
		{"6/2", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := r.parseSlashDate(tt.text, time.Time{})
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseTextualDate(t *testing.T) {
	r := newTestResolver()

	tests := []struct {
		name   string
		text   string
		anchor time.Time
		want   time.Time
		ok     bool
	}{
		{"full", "June 2, 2025 3:00 PM", testAnchor, at(2025, 6, 2, 15, 0), true},
		{"abbreviated with period", "Sept. 9, 2024", testAnchor, at(2024, 9, 9, 0, 0), true},
		{"ordinal day", "March 3rd", testAnchor, at(2025, 3, 3, 0, 0), true},
		{"weekday prefix and at", "Monday, June 2 at 10:02 AM", testAnchor, at(2025, 6, 2, 10, 2), true},
		{"year inferred backwards", "December 2", testAnchor, at(2024, 12, 2, 0, 0), true},
		{"no anchor uses current year", "December 2", time.Time{}, at(2025, 12, 2, 0, 0), true},
		{"invalid day", "February 30, 2025", testAnchor, time.Time{}, false},
		{"not a month", "Junk 2", testAnchor, time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.parseTextualDate(tt.text, tt.anchor)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseNative(t *testing.T) {
	r := newTestResolver()

	got, ok := r.parseNative("2025-06-02 13:13", time.Time{})
	if !ok {
		t.Fatal("expected ISO-like date to parse")
	}
	if want := at(2025, 6, 2, 13, 13); !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}

	if _, ok := r.parseNative("definitely not a date", time.Time{}); ok {
		t.Error("expected garbage to fail")
	}
}

func TestParseRelativeDay(t *testing.T) {
	r := newTestResolver()

	tests := []struct {
		name   string
		text   string
		anchor time.Time
		want   time.Time
	}{
		{"today keys off anchor date", "Today", testAnchor, at(2025, 6, 18, 0, 0)},
		{"yesterday with time", "Yesterday 3:15 PM", testAnchor, at(2025, 6, 17, 15, 15)},
		{"yesterday at", "yesterday at 09:30", testAnchor, at(2025, 6, 17, 9, 30)},
		{"no anchor uses wall clock", "Yesterday", time.Time{}, at(2025, 6, 19, 0, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.parseRelativeDay(tt.text, tt.anchor)
			if !ok {
				t.Fatalf("parseRelativeDay(%q) failed", tt.text)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseAgo_IgnoresAnchor(t *testing.T) {
	r := newTestResolver()

	tests := []struct {
		text string
		want time.Time
	}{
		{"5 minutes ago", testNow.Add(-5 * time.Minute)},
		{"1 min ago", testNow.Add(-time.Minute)},
		{"an hour ago", testNow.Add(-time.Hour)},
		{"3 hrs ago", testNow.Add(-3 * time.Hour)},
		{"2 days ago", testNow.AddDate(0, 0, -2)},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := r.parseAgo(tt.text, testAnchor)
			if !ok {
				t.Fatalf("parseAgo(%q) failed", tt.text)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseWeekday(t *testing.T) {
	r := newTestResolver()

	tests := []struct {
		name   string
		text   string
		anchor time.Time
		want   time.Time
	}{
		{"same day later time steps back a week", "Wednesday 17:00", testAnchor, at(2025, 6, 11, 17, 0)},
		{"same day earlier time stays", "Wednesday 10:00", testAnchor, at(2025, 6, 18, 10, 0)},
		{"same day no time stays", "Wed", testAnchor, at(2025, 6, 18, 0, 0)},
		{"earlier in week", "Monday", testAnchor, at(2025, 6, 16, 0, 0)},
		{"later weekday is last week", "Friday at 2:00 PM", testAnchor, at(2025, 6, 13, 14, 0)},
		{"no anchor uses wall clock", "Friday 10:00", time.Time{}, at(2025, 6, 13, 10, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.parseWeekday(tt.text, tt.anchor)
			if !ok {
				t.Fatalf("parseWeekday(%q) failed", tt.text)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseTimeOnly(t *testing.T) {
	r := newTestResolver()

	tests := []struct {
		name   string
		text   string
		anchor time.Time
		want   time.Time
		ok     bool
	}{
		{"anchor date", "10:02 AM", testAnchor, at(2025, 6, 18, 10, 2), true},
		{"noon", "12:00 PM", testAnchor, at(2025, 6, 18, 12, 0), true},
		{"midnight", "12:05 am", testAnchor, at(2025, 6, 18, 0, 5), true},
		{"24 hour", "17:45", testAnchor, at(2025, 6, 18, 17, 45), true},
		{"no anchor uses today", "10:02 AM", time.Time{}, at(2025, 6, 20, 10, 2), true},
		{"hour out of range", "24:00", testAnchor, time.Time{}, false},
		{"minute out of range", "10:61", testAnchor, time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.parseTimeOnly(tt.text, tt.anchor)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewResolver_Defaults(t *testing.T) {
	r := NewResolver(nil, nil)
	if r.Location() != time.Local {
		t.Errorf("expected time.Local, got %v", r.Location())
	}
	if r.Now().IsZero() {
		t.Error("expected wall clock default")
	}
}
