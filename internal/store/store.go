package store

import (
	"context"
	"time"

	"github.com/hyperengineering/steward/internal/types"
)

// Store defines the persistence contract for goals, tasks and expenses.
// Every record operation is scoped to the owning user.
type Store interface {
	CreateGoal(ctx context.Context, userID string, goal types.NewGoal) (*types.Goal, error)
	ListGoals(ctx context.Context, userID string, filter types.GoalFilter) ([]types.Goal, error)

	CreateTask(ctx context.Context, userID string, task types.NewTask) (*types.Task, error)
	ListTasks(ctx context.Context, userID string, filter types.TaskFilter) ([]types.Task, error)
	GetTask(ctx context.Context, userID, id string) (*types.Task, error)
	FindOpenTaskByTitle(ctx context.Context, userID, title string) (*types.Task, error)
	ToggleTaskComplete(ctx context.Context, userID, id string, at time.Time) (*types.Task, error)

	CreateExpense(ctx context.Context, userID string, expense types.NewExpense) (*types.Expense, error)
	ListExpenses(ctx context.Context, userID string, filter types.ExpenseFilter) ([]types.Expense, error)

	GetStats(ctx context.Context) (*types.StoreStats, error)
	SchemaVersion(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}
