// Package guidance answers get_guidance utterances.
package guidance

import (
	"context"
	"strings"
)

// Responder answers a free-text request for advice.
type Responder interface {
	Respond(ctx context.Context, text string) string
}

type guidanceRule struct {
	keywords []string
	message  string
}

// rules are checked in order; the first rule with a matching keyword wins.
var rules = []guidanceRule{
	{
		keywords: []string{"improve", "better", "productivity"},
		message:  "To improve productivity, try breaking large goals into smaller tasks, set realistic deadlines, and review your progress daily. Focus on completing high-priority tasks first!",
	},
	{
		keywords: []string{"goal", "plan"},
		message:  "When setting goals, make them specific, measurable, achievable, relevant, and time-bound (SMART). Break them into tasks and track your progress regularly.",
	},
	{
		keywords: []string{"task", "todo"},
		message:  "Try organizing tasks by priority and due date. Complete high-priority tasks first, and don't forget to mark tasks complete when done!",
	},
	{
		keywords: []string{"expense", "spend", "budget"},
		message:  "Track all your expenses regularly and review your spending patterns monthly. This helps you identify areas where you can save money.",
	},
}

// DefaultMessage is returned when no rule matches.
const DefaultMessage = "I'm here to help you manage your goals, tasks, and expenses. Feel free to ask me to add items, show your progress, or provide guidance on productivity!"

// Rules is the keyword-based Responder.
type Rules struct{}

// Compile-time interface check
var _ Responder = Rules{}

// Respond returns the canned advice for the first matching keyword group.
func (Rules) Respond(_ context.Context, text string) string {
	lower := strings.ToLower(text)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.message
			}
		}
	}
	return DefaultMessage
}
