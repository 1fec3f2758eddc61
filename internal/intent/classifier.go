package intent

import (
	"regexp"
	"strings"
)

// Confidence values reported by the rule table.
const (
	ruleConfidence     = 0.7
	progressConfidence = 0.8
	completeConfidence = 0.6
	defaultConfidence  = 0.5
)

type rule struct {
	intent  Intent
	pattern *regexp.Regexp
	build   func(lower string) Result
}

// rules are evaluated in order; the first match wins.
var rules = []rule{
	{CreateGoal, regexp.MustCompile(`(add|create|new|set).*goal|goal.*(add|create)`), buildGoal},
	{CreateTask, regexp.MustCompile(`(add|create|new).*task|task.*(add|create)`), buildTask},
	{AddExpense, regexp.MustCompile(`(spent|spend|cost|expense).*\d+|i.*\d+.*(on|for)`), buildExpense},
	{ShowProgress, regexp.MustCompile(`(show|display|my|progress|stats|statistics)`), buildProgress},
	{CompleteTask, regexp.MustCompile(`(complete|done|finish).*task|task.*(complete|done)`), buildComplete},
}

// Classify maps text to a Result using the ordered rule table. It is pure
// and total: every input yields a Result, get_guidance when nothing matches.
func Classify(text string) Result {
	lower := strings.ToLower(text)
	for _, r := range rules {
		if r.pattern.MatchString(lower) {
			return r.build(lower)
		}
	}
	return Result{
		Intent:     GetGuidance,
		Entities:   NoEntities{},
		Confidence: defaultConfidence,
	}
}

func buildGoal(lower string) Result {
	title := ExtractGoalTitle(lower)
	phrase := ExtractDeadlinePhrase(lower)

	shown := title
	if shown == "" {
		shown = "Untitled Goal"
	}
	msg := `I'll create a goal: "` + shown + `"`
	if phrase != "" {
		msg += " with deadline in " + phrase
	}
	msg += ". Should I save it?"

	return Result{
		Intent:               CreateGoal,
		Entities:             GoalEntities{Title: title, Deadline: phrase},
		Confidence:           ruleConfidence,
		RequiresConfirmation: true,
		ConfirmationMessage:  msg,
	}
}

func buildTask(lower string) Result {
	title := ExtractTaskTitle(lower)

	shown := title
	if shown == "" {
		shown = "Untitled Task"
	}

	return Result{
		Intent:               CreateTask,
		Entities:             TaskEntities{Title: title, Due: ExtractDuePhrase(lower)},
		Confidence:           ruleConfidence,
		RequiresConfirmation: true,
		ConfirmationMessage:  `I'll add a task: "` + shown + `". Should I save it?`,
	}
}

func buildExpense(lower string) Result {
	amount, literal := ExtractAmount(lower)
	category, keyword := ExtractCategory(lower)

	if literal == "" {
		literal = "0"
	}
	msg := "I'll add an expense of $" + literal
	if keyword != "" {
		msg += " for " + keyword
	}
	msg += ". Should I save it?"

	return Result{
		Intent:               AddExpense,
		Entities:             ExpenseEntities{Amount: amount, Category: category},
		Confidence:           ruleConfidence,
		RequiresConfirmation: true,
		ConfirmationMessage:  msg,
	}
}

func buildProgress(lower string) Result {
	return Result{
		Intent:     ShowProgress,
		Entities:   ProgressEntities{TimeRange: ExtractTimeRange(lower)},
		Confidence: progressConfidence,
	}
}

func buildComplete(lower string) Result {
	id, title := ExtractTaskRef(lower)
	return Result{
		Intent:     CompleteTask,
		Entities:   CompleteTaskEntities{TaskID: id, Title: title},
		Confidence: completeConfidence,
	}
}
