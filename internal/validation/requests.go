package validation

import (
	"github.com/hyperengineering/steward/internal/types"
)

// Field limits for user-supplied text.
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 2000
	MaxCategoryLength    = 64
	MaxInputLength       = 1000
)

var (
	GoalPriorities = []string{
		string(types.GoalPriorityLow),
		string(types.GoalPriorityMedium),
		string(types.GoalPriorityHigh),
		string(types.GoalPriorityCritical),
	}
	GoalStatuses = []string{
		string(types.GoalStatusPending),
		string(types.GoalStatusInProgress),
		string(types.GoalStatusCompleted),
		string(types.GoalStatusArchived),
	}
	TaskPriorities = []string{
		string(types.TaskPriorityLow),
		string(types.TaskPriorityMedium),
		string(types.TaskPriorityHigh),
	}
)

// ValidateCreateGoal checks a POST /goals body.
func ValidateCreateGoal(req types.CreateGoalRequest) []ValidationError {
	c := &Collector{}

	c.Add(ValidateRequired("title", req.Title))
	ValidateText(c, "title", req.Title, MaxTitleLength)
	ValidateText(c, "description", req.Description, MaxDescriptionLength)

	if err := ValidateRequired("deadline", req.Deadline); err != nil {
		c.Add(err)
	} else {
		c.Add(ValidateDeadline("deadline", req.Deadline))
	}
	if req.Priority != "" {
		c.Add(ValidateEnum("priority", req.Priority, GoalPriorities))
	}
	if req.Status != "" {
		c.Add(ValidateEnum("status", req.Status, GoalStatuses))
	}

	return c.Errors()
}

// ValidateCreateTask checks a POST /tasks body.
func ValidateCreateTask(req types.CreateTaskRequest) []ValidationError {
	c := &Collector{}

	c.Add(ValidateRequired("title", req.Title))
	ValidateText(c, "title", req.Title, MaxTitleLength)
	ValidateText(c, "description", req.Description, MaxDescriptionLength)

	if req.GoalID != "" {
		c.Add(ValidateULID("goal_id", req.GoalID))
	}
	if req.DueDate != "" {
		c.Add(ValidateDate("due_date", req.DueDate))
	}
	if req.Priority != "" {
		c.Add(ValidateEnum("priority", req.Priority, TaskPriorities))
	}

	return c.Errors()
}

// ValidateCreateExpense checks a POST /expenses body.
func ValidateCreateExpense(req types.CreateExpenseRequest) []ValidationError {
	c := &Collector{}

	c.Add(ValidatePositive("amount", req.Amount))
	c.Add(ValidateRequired("category", req.Category))
	ValidateText(c, "category", req.Category, MaxCategoryLength)
	ValidateText(c, "description", req.Description, MaxDescriptionLength)

	if req.Date != "" {
		c.Add(ValidateDate("date", req.Date))
	}

	return c.Errors()
}
