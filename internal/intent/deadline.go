package intent

import (
	"regexp"
	"strconv"
	"time"
)

// DefaultDeadline is applied when no relative phrase is found.
const DefaultDeadline = 7 * 24 * time.Hour

// maxRelativeUnits bounds N so that absurd inputs cannot overflow the
// calendar arithmetic.
const maxRelativeUnits = 10000

var (
	relativeDaysPattern   = regexp.MustCompile(`(?i)(?:\bin\s+)?(\d+)\s+days?\b`)
	relativeWeeksPattern  = regexp.MustCompile(`(?i)(?:\bin\s+)?(\d+)\s+weeks?\b`)
	relativeMonthsPattern = regexp.MustCompile(`(?i)(?:\bin\s+)?(\d+)\s+months?\b`)
)

// ResolveDeadline turns a relative phrase such as "in 3 days", "2 weeks" or
// "in 1 month" into an absolute instant relative to now. Patterns are tried
// in the order days, weeks, months. Month arithmetic follows time.AddDate,
// so Jan 31 + 1 month normalizes into March. Without a match the result is
// now + 7 days.
func ResolveDeadline(text string, now time.Time) time.Time {
	if n, ok := relativeUnits(relativeDaysPattern, text); ok {
		return now.AddDate(0, 0, n)
	}
	if n, ok := relativeUnits(relativeWeeksPattern, text); ok {
		return now.AddDate(0, 0, 7*n)
	}
	if n, ok := relativeUnits(relativeMonthsPattern, text); ok {
		return now.AddDate(0, n, 0)
	}
	return now.Add(DefaultDeadline)
}

func relativeUnits(re *regexp.Regexp, text string) (int, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n > maxRelativeUnits {
		return 0, false
	}
	return n, true
}
