package types

import (
	"encoding/json"
	"time"
)

// DateLayout is the calendar date format used for due dates and expense dates.
const DateLayout = "2006-01-02"

// GoalPriority ranks a goal.
type GoalPriority string

const (
	GoalPriorityLow      GoalPriority = "low"
	GoalPriorityMedium   GoalPriority = "medium"
	GoalPriorityHigh     GoalPriority = "high"
	GoalPriorityCritical GoalPriority = "critical"
)

// GoalStatus is the lifecycle state of a goal.
type GoalStatus string

const (
	GoalStatusPending    GoalStatus = "pending"
	GoalStatusInProgress GoalStatus = "in_progress"
	GoalStatusCompleted  GoalStatus = "completed"
	GoalStatusArchived   GoalStatus = "archived"
)

// Active reports whether the goal still counts toward open work.
func (s GoalStatus) Active() bool {
	return s == GoalStatusPending || s == GoalStatusInProgress
}

// TaskPriority ranks a task.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// Goal is a long-running objective with a deadline.
type Goal struct {
	ID                 string       `json:"id"`
	UserID             string       `json:"user_id"`
	Title              string       `json:"title"`
	Description        string       `json:"description,omitempty"`
	Deadline           time.Time    `json:"deadline"`
	Priority           GoalPriority `json:"priority"`
	Status             GoalStatus   `json:"status"`
	ProgressPercentage int          `json:"progress_percentage"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// Task is a unit of work due on a calendar date.
type Task struct {
	ID          string       `json:"id"`
	UserID      string       `json:"user_id"`
	GoalID      string       `json:"goal_id,omitempty"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Completed   bool         `json:"completed"`
	Status      TaskStatus   `json:"status"`
	DueDate     string       `json:"due_date"`
	Priority    TaskPriority `json:"priority"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

// Expense is a recorded spend in a canonical category.
type Expense struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Amount      float64   `json:"amount"`
	Category    string    `json:"category"`
	Description string    `json:"description,omitempty"`
	Date        string    `json:"date"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewGoal is the input type for creating goals (without generated fields).
type NewGoal struct {
	Title       string
	Description string
	Deadline    time.Time
	Priority    GoalPriority
	Status      GoalStatus
}

// NewTask is the input type for creating tasks (without generated fields).
type NewTask struct {
	GoalID      string
	Title       string
	Description string
	DueDate     string
	Priority    TaskPriority
}

// NewExpense is the input type for creating expenses (without generated fields).
type NewExpense struct {
	Amount      float64
	Category    string
	Description string
	Date        string
}

// GoalFilter narrows a goal listing. Empty fields do not filter.
type GoalFilter struct {
	Status   GoalStatus
	Priority GoalPriority
}

// TaskFilter narrows a task listing. Empty fields do not filter.
type TaskFilter struct {
	DueDate   string
	DueFrom   string
	GoalID    string
	Completed *bool
}

// ExpenseFilter narrows an expense listing by inclusive date range and category.
type ExpenseFilter struct {
	StartDate string
	EndDate   string
	Category  string
}

// CreateGoalRequest is the body of POST /goals. Deadline accepts RFC 3339 or
// a YYYY-MM-DD date.
type CreateGoalRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Deadline    string `json:"deadline"`
	Priority    string `json:"priority,omitempty"`
	Status      string `json:"status,omitempty"`
}

// CreateTaskRequest is the body of POST /tasks.
type CreateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	GoalID      string `json:"goal_id,omitempty"`
	DueDate     string `json:"due_date,omitempty"`
	Priority    string `json:"priority,omitempty"`
}

// CreateExpenseRequest is the body of POST /expenses.
type CreateExpenseRequest struct {
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Description string  `json:"description,omitempty"`
	Date        string  `json:"date,omitempty"`
}

// StoreStats contains record counts across all users.
type StoreStats struct {
	GoalCount    int64 `json:"goal_count"`
	TaskCount    int64 `json:"task_count"`
	ExpenseCount int64 `json:"expense_count"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Classifier    string `json:"classifier"`
	Guidance      string `json:"guidance"`
	Database      string `json:"database"`
	GoalCount     int64  `json:"goal_count"`
	TaskCount     int64  `json:"task_count"`
	ExpenseCount  int64  `json:"expense_count"`
	SchemaVersion int    `json:"schema_version"`
}

// GoalStats summarizes every goal a user owns.
type GoalStats struct {
	Total           int     `json:"total"`
	Active          int     `json:"active"`
	Completed       int     `json:"completed"`
	CompletionRate  float64 `json:"completion_rate"`
	AverageProgress float64 `json:"average_progress"`
}

// TaskStats summarizes recent task activity.
type TaskStats struct {
	TodayCompleted       int     `json:"today_completed"`
	TodayTotal           int     `json:"today_total"`
	WeeklyCompletionRate float64 `json:"weekly_completion_rate"`
	StreakDays           int     `json:"streak_days"`
}

// ExpenseStats summarizes spending for the current month and year.
type ExpenseStats struct {
	MonthlyTotal      float64            `json:"monthly_total"`
	YearlyTotal       float64            `json:"yearly_total"`
	CategoryBreakdown map[string]float64 `json:"category_breakdown"`
	AverageDaily      float64            `json:"average_daily"`
}

// DashboardStats is the response of GET /dashboard.
type DashboardStats struct {
	Goals             GoalStats    `json:"goals"`
	Tasks             TaskStats    `json:"tasks"`
	Expenses          ExpenseStats `json:"expenses"`
	ActiveGoals       []Goal       `json:"active_goals"`
	UpcomingDeadlines []Goal       `json:"upcoming_deadlines"`
}

// MarshalJSON ensures a nil breakdown marshals as {} not null.
func (e ExpenseStats) MarshalJSON() ([]byte, error) {
	if e.CategoryBreakdown == nil {
		e.CategoryBreakdown = map[string]float64{}
	}
	type Alias ExpenseStats
	return json.Marshal(Alias(e))
}

// MarshalJSON ensures nil goal lists marshal as [] not null.
func (d DashboardStats) MarshalJSON() ([]byte, error) {
	if d.ActiveGoals == nil {
		d.ActiveGoals = []Goal{}
	}
	if d.UpcomingDeadlines == nil {
		d.UpcomingDeadlines = []Goal{}
	}
	type Alias DashboardStats
	return json.Marshal(Alias(d))
}
