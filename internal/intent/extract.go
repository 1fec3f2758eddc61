package intent

import (
	"regexp"
	"strconv"
	"strings"
)

// Extractors operate on lower-cased input and never fail: a missing value is
// reported as the zero value.
var (
	amountPattern         = regexp.MustCompile(`(\d+(?:\.\d{2})?)`)
	categoryAfterPattern  = regexp.MustCompile(`(?:on|for)\s+(\w+)`)
	goalTitlePattern      = regexp.MustCompile(`goal.*?:?\s*(.+?)(?:in |deadline|$)`)
	taskTitlePattern      = regexp.MustCompile(`task.*?:?\s*(.+?)(?:today|tomorrow|$)`)
	deadlinePhrasePattern = regexp.MustCompile(`in (\d+) (days?|weeks?|months?)\b`)
	timeRangePattern      = regexp.MustCompile(`(today|this week|this month|this year)`)
	duePhrasePattern      = regexp.MustCompile(`\b(today|tomorrow)\b`)
	taskIDPattern         = regexp.MustCompile(`\b([0-9a-hjkmnp-tv-z]{26})\b`)
	completeTitlePattern  = regexp.MustCompile(`\btasks?\b\s*:?\s*(.+?)(?:\s+(?:as\s+)?(?:complete|completed|done|finished))?\s*$`)
)

// expenseKeywords are recognized as categories directly in the utterance,
// in priority order.
var expenseKeywords = []string{
	"food",
	"transportation",
	"shopping",
	"bills",
	"entertainment",
	"health",
	"education",
	"travel",
}

// ExtractAmount returns the first numeral in lower, as both its value and
// the literal text that matched.
func ExtractAmount(lower string) (Amount, string) {
	m := amountPattern.FindStringSubmatch(lower)
	if m == nil {
		return 0, ""
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, ""
	}
	return Amount(f), m[1]
}

// ExtractCategory returns the raw category for an expense utterance and the
// known keyword it was found by, if any. Known keywords win over the word
// following "on"/"for"; with neither the category is "Other".
func ExtractCategory(lower string) (category, keyword string) {
	for _, kw := range expenseKeywords {
		if strings.Contains(lower, kw) {
			return kw, kw
		}
	}
	if m := categoryAfterPattern.FindStringSubmatch(lower); m != nil {
		return m[1], ""
	}
	return string(CategoryOther), ""
}

// ExtractGoalTitle returns the text following "goal" up to "in ", "deadline"
// or the end of input.
func ExtractGoalTitle(lower string) string {
	return firstGroup(goalTitlePattern, lower)
}

// ExtractTaskTitle returns the text following "task" up to "today",
// "tomorrow" or the end of input.
func ExtractTaskTitle(lower string) string {
	return firstGroup(taskTitlePattern, lower)
}

// ExtractDeadlinePhrase returns the literal "N unit" phrase following "in",
// for example "3 days". ResolveDeadline turns it into an instant.
func ExtractDeadlinePhrase(lower string) string {
	m := deadlinePhrasePattern.FindStringSubmatch(lower)
	if m == nil {
		return ""
	}
	return m[1] + " " + m[2]
}

// ExtractTimeRange returns the reporting window mentioned in lower, or "all".
func ExtractTimeRange(lower string) string {
	if m := timeRangePattern.FindStringSubmatch(lower); m != nil {
		return m[1]
	}
	return "all"
}

// ExtractDuePhrase returns "today" or "tomorrow" when mentioned.
func ExtractDuePhrase(lower string) string {
	return firstGroup(duePhrasePattern, lower)
}

// ExtractTaskRef finds the task a completion utterance refers to: a record
// id when one is present, otherwise the title following "task".
func ExtractTaskRef(lower string) (id, title string) {
	if m := taskIDPattern.FindStringSubmatch(lower); m != nil {
		return strings.ToUpper(m[1]), ""
	}
	title = strings.TrimPrefix(firstGroup(completeTitlePattern, lower), "as ")
	switch title {
	case "as", "complete", "completed", "done", "finished":
		title = ""
	}
	return "", title
}

func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
