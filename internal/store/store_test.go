package store

import (
	"context"
	"time"

	"github.com/hyperengineering/steward/internal/types"
)

// mockStore is a compile-time check that the Store interface can be implemented.
type mockStore struct{}

var _ Store = (*mockStore)(nil)

func (m *mockStore) CreateGoal(ctx context.Context, userID string, g types.NewGoal) (*types.Goal, error) {
	return nil, nil
}
func (m *mockStore) ListGoals(ctx context.Context, userID string, f types.GoalFilter) ([]types.Goal, error) {
	return nil, nil
}
func (m *mockStore) CreateTask(ctx context.Context, userID string, t types.NewTask) (*types.Task, error) {
	return nil, nil
}
func (m *mockStore) ListTasks(ctx context.Context, userID string, f types.TaskFilter) ([]types.Task, error) {
	return nil, nil
}
func (m *mockStore) GetTask(ctx context.Context, userID, id string) (*types.Task, error) {
	return nil, nil
}
func (m *mockStore) FindOpenTaskByTitle(ctx context.Context, userID, title string) (*types.Task, error) {
	return nil, nil
}
func (m *mockStore) ToggleTaskComplete(ctx context.Context, userID, id string, at time.Time) (*types.Task, error) {
	return nil, nil
}
func (m *mockStore) CreateExpense(ctx context.Context, userID string, e types.NewExpense) (*types.Expense, error) {
	return nil, nil
}
func (m *mockStore) ListExpenses(ctx context.Context, userID string, f types.ExpenseFilter) ([]types.Expense, error) {
	return nil, nil
}
func (m *mockStore) GetStats(ctx context.Context) (*types.StoreStats, error) { return nil, nil }
func (m *mockStore) SchemaVersion(ctx context.Context) (int64, error)        { return 0, nil }
func (m *mockStore) Ping(ctx context.Context) error                          { return nil }
func (m *mockStore) Close() error                                            { return nil }
