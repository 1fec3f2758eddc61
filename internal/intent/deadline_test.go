package intent

import (
	"testing"
	"time"
)

func TestResolveDeadline(t *testing.T) {
	now := time.Date(2024, time.January, 31, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		text string
		want time.Time
	}{
		{"days with in", "in 3 days", time.Date(2024, time.February, 3, 10, 0, 0, 0, time.UTC)},
		{"stored phrase", "3 days", time.Date(2024, time.February, 3, 10, 0, 0, 0, time.UTC)},
		{"singular day", "in 1 day", time.Date(2024, time.February, 1, 10, 0, 0, 0, time.UTC)},
		{"weeks", "in 2 weeks", time.Date(2024, time.February, 14, 10, 0, 0, 0, time.UTC)},
		// Jan 31 + 1 month normalizes past the end of February (leap year).
		{"month overflow", "in 1 month", time.Date(2024, time.March, 2, 10, 0, 0, 0, time.UTC)},
		{"months", "in 3 months", time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC)},
		{"mixed case", "In 4 Days", time.Date(2024, time.February, 4, 10, 0, 0, 0, time.UTC)},
		{"days tested before months", "in 1 month and 2 days", time.Date(2024, time.February, 2, 10, 0, 0, 0, time.UTC)},
		{"no match", "next friday", time.Date(2024, time.February, 7, 10, 0, 0, 0, time.UTC)},
		{"empty", "", time.Date(2024, time.February, 7, 10, 0, 0, 0, time.UTC)},
		{"absurd count", "in 99999 days", time.Date(2024, time.February, 7, 10, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveDeadline(tt.text, now)
			if !got.Equal(tt.want) {
				t.Errorf("ResolveDeadline(%q) = %s, want %s", tt.text, got.Format(time.RFC3339), tt.want.Format(time.RFC3339))
			}
		})
	}
}

func TestResolveDeadline_NonLeapYear(t *testing.T) {
	now := time.Date(2023, time.January, 31, 0, 0, 0, 0, time.UTC)
	want := time.Date(2023, time.March, 3, 0, 0, 0, 0, time.UTC)

	if got := ResolveDeadline("in 1 month", now); !got.Equal(want) {
		t.Errorf("ResolveDeadline = %s, want %s", got, want)
	}
}

func TestResolveDeadline_AlwaysAfterNow(t *testing.T) {
	now := time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)
	for _, text := range []string{"in 1 day", "in 0 days", "in 5 weeks", "whenever", "in 12 months"} {
		got := ResolveDeadline(text, now)
		if got.Before(now) {
			t.Errorf("ResolveDeadline(%q) = %s is before now", text, got)
		}
	}
}
