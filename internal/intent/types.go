// Package intent turns free-text utterances into typed commands.
//
// Two classifiers produce the same Result shape: a deterministic rule table
// (Classify) and an optional remote zero-shot model (ZeroShot). The Service
// facade prefers the remote model and falls back to the rules on any failure.
package intent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Intent is the closed set of commands an utterance can map to.
type Intent string

const (
	CreateGoal   Intent = "create_goal"
	CreateTask   Intent = "create_task"
	AddExpense   Intent = "add_expense"
	CompleteTask Intent = "complete_task"
	ShowProgress Intent = "show_progress"
	ShowStats    Intent = "show_stats"
	GetGuidance  Intent = "get_guidance"
	UpdateGoal   Intent = "update_goal"
	DeleteGoal   Intent = "delete_goal"
)

// Labels is the candidate label list sent to the remote classifier, in the
// order the remote model receives them.
var Labels = []Intent{
	CreateGoal,
	CreateTask,
	AddExpense,
	CompleteTask,
	ShowProgress,
	ShowStats,
	GetGuidance,
	UpdateGoal,
	DeleteGoal,
}

// Known reports whether i is one of the defined intents.
func (i Intent) Known() bool {
	for _, l := range Labels {
		if l == i {
			return true
		}
	}
	return false
}

// Gated reports whether a Result for i must be confirmed before dispatch.
func (i Intent) Gated() bool {
	switch i {
	case CreateGoal, CreateTask, AddExpense:
		return true
	}
	return false
}

// ReadOnly reports whether i only reads state.
func (i Intent) ReadOnly() bool {
	switch i {
	case ShowProgress, ShowStats, GetGuidance:
		return true
	}
	return false
}

// Result is the output of classification. It is treated as immutable once
// produced; copies share no mutable state because every entity variant is a
// plain value type.
type Result struct {
	Intent               Intent   `json:"intent"`
	Entities             Entities `json:"entities"`
	Confidence           float64  `json:"confidence"`
	RequiresConfirmation bool     `json:"requires_confirmation"`
	ConfirmationMessage  string   `json:"confirmation_message,omitempty"`
}

// UnmarshalJSON decodes the entity map into the variant that matches the intent.
func (r *Result) UnmarshalJSON(data []byte) error {
	var aux struct {
		Intent               Intent          `json:"intent"`
		Entities             json.RawMessage `json:"entities"`
		Confidence           float64         `json:"confidence"`
		RequiresConfirmation bool            `json:"requires_confirmation"`
		ConfirmationMessage  string          `json:"confirmation_message"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	entities, err := DecodeEntities(aux.Intent, aux.Entities)
	if err != nil {
		return err
	}
	*r = Result{
		Intent:               aux.Intent,
		Entities:             entities,
		Confidence:           aux.Confidence,
		RequiresConfirmation: aux.RequiresConfirmation,
		ConfirmationMessage:  aux.ConfirmationMessage,
	}
	return nil
}

// Entities is the tagged variant of extracted values. Each implementation
// marshals to a JSON object that omits members that were not found.
type Entities interface {
	// Kind names the variant; it is stable across releases and used when a
	// Result is persisted outside the process.
	Kind() string
}

// GoalEntities are extracted for goal intents.
type GoalEntities struct {
	Title       string `json:"title,omitempty"`
	Deadline    string `json:"deadline,omitempty"`
	Description string `json:"description,omitempty"`
	Priority    string `json:"priority,omitempty"`
}

// TaskEntities are extracted for create_task. Due is "today", "tomorrow" or
// a YYYY-MM-DD date.
type TaskEntities struct {
	Title       string `json:"title,omitempty"`
	Due         string `json:"due_date,omitempty"`
	GoalID      string `json:"goal_id,omitempty"`
	Description string `json:"description,omitempty"`
	Priority    string `json:"priority,omitempty"`
}

// ExpenseEntities are extracted for add_expense. Category holds the raw
// keyword; normalization happens at dispatch.
type ExpenseEntities struct {
	Amount      Amount `json:"amount,omitempty"`
	Category    string `json:"category,omitempty"`
	Description string `json:"description,omitempty"`
	Date        string `json:"date,omitempty"`
}

// CompleteTaskEntities identify the task to toggle, by id or by title.
type CompleteTaskEntities struct {
	TaskID string `json:"task_id,omitempty"`
	Title  string `json:"title,omitempty"`
}

// ProgressEntities carry the requested reporting window.
type ProgressEntities struct {
	TimeRange string `json:"time_range,omitempty"`
}

// NoEntities is used by intents that extract nothing.
type NoEntities struct{}

func (GoalEntities) Kind() string         { return "goal" }
func (TaskEntities) Kind() string         { return "task" }
func (ExpenseEntities) Kind() string      { return "expense" }
func (CompleteTaskEntities) Kind() string { return "complete_task" }
func (ProgressEntities) Kind() string     { return "progress" }
func (NoEntities) Kind() string           { return "none" }

// Amount is a money value that decodes from either a JSON number or a
// numeric string.
type Amount float64

// UnmarshalJSON accepts 45, 45.5, "45" and "45.50". Non-finite strings
// such as "Inf" and "NaN" are rejected.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$"))
		if s == "" {
			*a = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return fmt.Errorf("amount %q is not a number", s)
		}
		*a = Amount(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("amount must be a number: %w", err)
	}
	*a = Amount(f)
	return nil
}

// String renders the amount without trailing zeros ("45", "12.5").
func (a Amount) String() string {
	return strconv.FormatFloat(float64(a), 'f', -1, 64)
}

// EntitiesFor returns the empty variant used by intent i.
func EntitiesFor(i Intent) Entities {
	switch i {
	case CreateGoal, UpdateGoal, DeleteGoal:
		return GoalEntities{}
	case CreateTask:
		return TaskEntities{}
	case AddExpense:
		return ExpenseEntities{}
	case CompleteTask:
		return CompleteTaskEntities{}
	case ShowProgress, ShowStats:
		return ProgressEntities{}
	default:
		return NoEntities{}
	}
}

// DecodeEntities decodes a wire entity map into the variant for intent i.
// Unknown keys are ignored; a missing or null map yields the empty variant.
func DecodeEntities(i Intent, raw json.RawMessage) (Entities, error) {
	return decodeInto(EntitiesFor(i), raw)
}

// DecodeEntitiesKind decodes raw into the variant named by kind.
func DecodeEntitiesKind(kind string, raw json.RawMessage) (Entities, error) {
	var e Entities
	switch kind {
	case "goal":
		e = GoalEntities{}
	case "task":
		e = TaskEntities{}
	case "expense":
		e = ExpenseEntities{}
	case "complete_task":
		e = CompleteTaskEntities{}
	case "progress":
		e = ProgressEntities{}
	case "none", "":
		e = NoEntities{}
	default:
		return nil, fmt.Errorf("unknown entities kind %q", kind)
	}
	return decodeInto(e, raw)
}

func decodeInto(e Entities, raw json.RawMessage) (Entities, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return e, nil
	}
	switch v := e.(type) {
	case GoalEntities:
		err := json.Unmarshal(raw, &v)
		return v, wrapDecode(err)
	case TaskEntities:
		err := json.Unmarshal(raw, &v)
		return v, wrapDecode(err)
	case ExpenseEntities:
		err := json.Unmarshal(raw, &v)
		return v, wrapDecode(err)
	case CompleteTaskEntities:
		err := json.Unmarshal(raw, &v)
		return v, wrapDecode(err)
	case ProgressEntities:
		err := json.Unmarshal(raw, &v)
		return v, wrapDecode(err)
	default:
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(raw, &probe); err != nil {
			return NoEntities{}, wrapDecode(err)
		}
		return NoEntities{}, nil
	}
}

func wrapDecode(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("decode entities: %w", err)
}

// Coerce converts e into the variant used by intent i, carrying over the
// members the two variants share. The remote classifier may pick a label
// whose variant differs from the one the rules extracted.
func Coerce(i Intent, e Entities) Entities {
	if e == nil {
		return EntitiesFor(i)
	}
	target := EntitiesFor(i)
	if target.Kind() == e.Kind() {
		return e
	}

	var title, description, priority string
	switch v := e.(type) {
	case GoalEntities:
		title, description, priority = v.Title, v.Description, v.Priority
	case TaskEntities:
		title, description, priority = v.Title, v.Description, v.Priority
	case CompleteTaskEntities:
		title = v.Title
	case ExpenseEntities:
		description = v.Description
	}

	switch target.(type) {
	case GoalEntities:
		return GoalEntities{Title: title, Description: description, Priority: priority}
	case TaskEntities:
		return TaskEntities{Title: title, Description: description, Priority: priority}
	case CompleteTaskEntities:
		return CompleteTaskEntities{Title: title}
	case ExpenseEntities:
		return ExpenseEntities{Description: description}
	}
	return target
}
