// Package action executes classified intents against the record store.
package action

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/hyperengineering/steward/internal/intent"
	"github.com/hyperengineering/steward/internal/metrics"
	"github.com/hyperengineering/steward/internal/store"
	"github.com/hyperengineering/steward/internal/types"
	"github.com/hyperengineering/steward/internal/validation"
)

// Status classifies an Outcome for transport mapping.
type Status string

const (
	StatusOK       Status = "ok"
	StatusInvalid  Status = "invalid"
	StatusNotFound Status = "not_found"
	StatusFailed   Status = "failed"
)

// Outcome is the result of one dispatch. Success is false for validation
// failures as well as storage failures; Status tells them apart.
type Outcome struct {
	Success bool   `json:"success"`
	Result  any    `json:"result,omitempty"`
	Message string `json:"message"`
	Status  Status `json:"-"`
}

// Recorder is the subset of store.Store the dispatcher writes through.
type Recorder interface {
	CreateGoal(ctx context.Context, userID string, goal types.NewGoal) (*types.Goal, error)
	CreateTask(ctx context.Context, userID string, task types.NewTask) (*types.Task, error)
	CreateExpense(ctx context.Context, userID string, expense types.NewExpense) (*types.Expense, error)
	GetTask(ctx context.Context, userID, id string) (*types.Task, error)
	FindOpenTaskByTitle(ctx context.Context, userID, title string) (*types.Task, error)
	ToggleTaskComplete(ctx context.Context, userID, id string, at time.Time) (*types.Task, error)
}

// Dispatcher turns an intent and its entities into at most one store write.
type Dispatcher struct {
	store Recorder
	now   func() time.Time
}

// NewDispatcher creates a dispatcher writing through rec.
func NewDispatcher(rec Recorder) *Dispatcher {
	return &Dispatcher{store: rec, now: time.Now}
}

// Execute performs the action for in on behalf of actor. Validation
// failures never reach the store. Nothing is retried.
func (d *Dispatcher) Execute(ctx context.Context, actor string, in intent.Intent, entities intent.Entities) Outcome {
	entities = intent.Coerce(in, entities)

	var out Outcome
	switch in {
	case intent.CreateGoal:
		e, _ := entities.(intent.GoalEntities)
		out = d.createGoal(ctx, actor, e)
	case intent.CreateTask:
		e, _ := entities.(intent.TaskEntities)
		out = d.createTask(ctx, actor, e)
	case intent.AddExpense:
		e, _ := entities.(intent.ExpenseEntities)
		out = d.addExpense(ctx, actor, e)
	case intent.CompleteTask:
		e, _ := entities.(intent.CompleteTaskEntities)
		out = d.completeTask(ctx, actor, e)
	default:
		out = invalid(fmt.Sprintf("Intent %q not yet implemented", string(in)))
	}

	metrics.ActionsExecuted.WithLabelValues(metricIntent(in), string(out.Status)).Inc()
	return out
}

func (d *Dispatcher) createGoal(ctx context.Context, actor string, e intent.GoalEntities) Outcome {
	title := strings.TrimSpace(e.Title)
	if title == "" {
		return invalid("Goal title is required")
	}

	c := &validation.Collector{}
	validation.ValidateText(c, "title", title, validation.MaxTitleLength)
	validation.ValidateText(c, "description", e.Description, validation.MaxDescriptionLength)
	if e.Priority != "" {
		c.Add(validation.ValidateEnum("priority", e.Priority, validation.GoalPriorities))
	}
	if c.HasErrors() {
		return invalidFields(c)
	}

	now := d.now().UTC()
	deadline, err := validation.ParseDeadline(strings.TrimSpace(e.Deadline))
	if err != nil {
		deadline = intent.ResolveDeadline(e.Deadline, now)
	}

	goal, err := d.store.CreateGoal(ctx, actor, types.NewGoal{
		Title:       title,
		Description: e.Description,
		Deadline:    deadline,
		Priority:    types.GoalPriority(e.Priority),
	})
	if err != nil {
		return failed("create goal", err)
	}
	return Outcome{
		Success: true,
		Result:  goal,
		Message: fmt.Sprintf(`Goal "%s" created successfully!`, goal.Title),
		Status:  StatusOK,
	}
}

func (d *Dispatcher) createTask(ctx context.Context, actor string, e intent.TaskEntities) Outcome {
	title := strings.TrimSpace(e.Title)
	if title == "" {
		return invalid("Task title is required")
	}

	c := &validation.Collector{}
	validation.ValidateText(c, "title", title, validation.MaxTitleLength)
	validation.ValidateText(c, "description", e.Description, validation.MaxDescriptionLength)
	if e.Priority != "" {
		c.Add(validation.ValidateEnum("priority", e.Priority, validation.TaskPriorities))
	}
	if e.GoalID != "" {
		c.Add(validation.ValidateULID("goal_id", e.GoalID))
	}
	if c.HasErrors() {
		return invalidFields(c)
	}

	due, ok := resolveDue(e.Due, d.now().UTC())
	if !ok {
		return invalid("Due date must be today, tomorrow or a YYYY-MM-DD date")
	}

	task, err := d.store.CreateTask(ctx, actor, types.NewTask{
		GoalID:      strings.ToUpper(e.GoalID),
		Title:       title,
		Description: e.Description,
		DueDate:     due,
		Priority:    types.TaskPriority(e.Priority),
	})
	if errors.Is(err, store.ErrGoalNotFound) {
		return notFound("Goal not found")
	}
	if err != nil {
		return failed("create task", err)
	}
	return Outcome{
		Success: true,
		Result:  task,
		Message: fmt.Sprintf(`Task "%s" created successfully!`, task.Title),
		Status:  StatusOK,
	}
}

func (d *Dispatcher) addExpense(ctx context.Context, actor string, e intent.ExpenseEntities) Outcome {
	raw := strings.TrimSpace(e.Category)
	if e.Amount == 0 || raw == "" {
		return invalid("Amount and category are required")
	}
	if !(e.Amount > 0) || math.IsInf(float64(e.Amount), 0) {
		return invalid("Amount must be greater than 0")
	}

	c := &validation.Collector{}
	validation.ValidateText(c, "description", e.Description, validation.MaxDescriptionLength)
	date := e.Date
	if date == "" {
		date = d.now().UTC().Format(types.DateLayout)
	} else {
		c.Add(validation.ValidateDate("date", date))
	}
	if c.HasErrors() {
		return invalidFields(c)
	}

	category := intent.NormalizeCategory(raw)
	expense, err := d.store.CreateExpense(ctx, actor, types.NewExpense{
		Amount:      float64(e.Amount),
		Category:    string(category),
		Description: e.Description,
		Date:        date,
	})
	if err != nil {
		return failed("add expense", err)
	}
	return Outcome{
		Success: true,
		Result:  expense,
		Message: fmt.Sprintf("Expense of $%s added to %s!", e.Amount, category),
		Status:  StatusOK,
	}
}

func (d *Dispatcher) completeTask(ctx context.Context, actor string, e intent.CompleteTaskEntities) Outcome {
	id := strings.TrimSpace(e.TaskID)
	title := strings.TrimSpace(e.Title)
	if id == "" && title == "" {
		return invalid("Task ID is required")
	}

	if id == "" {
		task, err := d.store.FindOpenTaskByTitle(ctx, actor, title)
		if errors.Is(err, store.ErrNotFound) {
			return notFound("Task not found")
		}
		if err != nil {
			return failed("find task", err)
		}
		id = task.ID
	}

	task, err := d.store.ToggleTaskComplete(ctx, actor, id, d.now().UTC())
	if errors.Is(err, store.ErrNotFound) {
		return notFound("Task not found")
	}
	if err != nil {
		return failed("complete task", err)
	}

	msg := "Task marked as incomplete."
	if task.Completed {
		msg = "Task marked as complete!"
	}
	return Outcome{Success: true, Result: task, Message: msg, Status: StatusOK}
}

// resolveDue maps "", "today", "tomorrow" or a calendar date to YYYY-MM-DD.
func resolveDue(due string, now time.Time) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(due)) {
	case "", "today":
		return now.Format(types.DateLayout), true
	case "tomorrow":
		return now.AddDate(0, 0, 1).Format(types.DateLayout), true
	}
	if validation.ValidateDate("due_date", due) != nil {
		return "", false
	}
	return due, true
}

func invalid(msg string) Outcome {
	return Outcome{Message: msg, Status: StatusInvalid}
}

func invalidFields(c *validation.Collector) Outcome {
	first := c.Errors()[0]
	return invalid(fmt.Sprintf("%s %s", first.Field, first.Message))
}

func notFound(msg string) Outcome {
	return Outcome{Message: msg, Status: StatusNotFound}
}

func failed(op string, err error) Outcome {
	slog.Error("action failed", "operation", op, "error", err)
	return Outcome{Message: "Failed to " + op + ". Please try again.", Status: StatusFailed}
}

// metricIntent bounds label cardinality to the known intents.
func metricIntent(in intent.Intent) string {
	if in.Known() {
		return string(in)
	}
	return "unknown"
}
