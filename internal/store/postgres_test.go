package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperengineering/steward/internal/types"
)

func newMockPostgres(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := NewPostgresStoreFromDB(db)
	s.now = func() time.Time { return time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC) }
	return s, mock
}

var taskRowColumns = []string{
	"id", "user_id", "goal_id", "title", "description", "completed", "status",
	"due_date", "priority", "created_at", "updated_at", "completed_at",
}

func TestRebind(t *testing.T) {
	pg := &SQLStore{dialect: DialectPostgres}
	lite := &SQLStore{dialect: DialectSQLite}

	q := `SELECT 1 FROM goals WHERE id = ? AND user_id = ?`
	assert.Equal(t, `SELECT 1 FROM goals WHERE id = $1 AND user_id = $2`, pg.rebind(q))
	assert.Equal(t, q, lite.rebind(q))
}

func TestPostgres_CreateGoal(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec(`(?s)`+regexp.QuoteMeta(`INSERT INTO goals`)+`.*`+regexp.QuoteMeta(`VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`)).
		WithArgs(sqlmock.AnyArg(), "alice", "Ship it", sql.NullString{}, "2024-05-01T00:00:00Z",
			"high", "pending", 0, "2024-04-01T12:00:00Z", "2024-04-01T12:00:00Z").
		WillReturnResult(sqlmock.NewResult(0, 1))

	g, err := s.CreateGoal(context.Background(), "alice", types.NewGoal{
		Title:    "Ship it",
		Deadline: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Priority: types.GoalPriorityHigh,
	})
	require.NoError(t, err)
	assert.Equal(t, types.GoalStatusPending, g.Status)
	assert.Len(t, g.ID, 26)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListTasks_BuildsFilters(t *testing.T) {
	s, mock := newMockPostgres(t)
	done := true

	rows := sqlmock.NewRows(taskRowColumns).
		AddRow("01HTASK0000000000000000000", "alice", nil, "Read", nil, true, "completed",
			"2024-04-01", "medium", "2024-04-01T08:00:00Z", "2024-04-01T09:00:00Z", "2024-04-01T09:00:00Z")

	mock.ExpectQuery(regexp.QuoteMeta(`FROM tasks WHERE user_id = $1 AND due_date >= $2 AND completed = $3 ORDER BY created_at DESC, id DESC`)).
		WithArgs("alice", "2024-03-25", true).
		WillReturnRows(rows)

	tasks, err := s.ListTasks(context.Background(), "alice", types.TaskFilter{DueFrom: "2024-03-25", Completed: &done})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Read", tasks[0].Title)
	assert.Empty(t, tasks[0].GoalID)
	require.NotNil(t, tasks[0].CompletedAt)
	assert.Equal(t, time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC), *tasks[0].CompletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateTask_ForeignGoal(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM goals WHERE id = $1 AND user_id = $2`)).
		WithArgs("01HGOAL0000000000000000000", "bob").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	_, err := s.CreateTask(context.Background(), "bob", types.NewTask{Title: "t", GoalID: "01HGOAL0000000000000000000"})
	assert.True(t, errors.Is(err, ErrGoalNotFound), "err = %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ToggleTaskComplete_Transaction(t *testing.T) {
	s, mock := newMockPostgres(t)
	at := time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)
	id := "01HTASK0000000000000000000"

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT completed FROM tasks WHERE id = $1 AND user_id = $2`)).
		WithArgs(id, "alice").
		WillReturnRows(sqlmock.NewRows([]string{"completed"}).AddRow(false))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE tasks SET completed = $1, status = $2, completed_at = $3, updated_at = $4`)).
		WithArgs(true, "completed", sql.NullString{String: "2024-04-01T10:00:00Z", Valid: true}, "2024-04-01T12:00:00Z", id, "alice").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM tasks WHERE id = $1 AND user_id = $2`)).
		WithArgs(id, "alice").
		WillReturnRows(sqlmock.NewRows(taskRowColumns).
			AddRow(id, "alice", nil, "Read", nil, true, "completed", "2024-04-01", "medium",
				"2024-04-01T08:00:00Z", "2024-04-01T12:00:00Z", "2024-04-01T10:00:00Z"))
	mock.ExpectCommit()

	task, err := s.ToggleTaskComplete(context.Background(), "alice", id, at)
	require.NoError(t, err)
	assert.True(t, task.Completed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ToggleTaskComplete_NotFoundRollsBack(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT completed FROM tasks`)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := s.ToggleTaskComplete(context.Background(), "alice", "missing", time.Now())
	assert.True(t, errors.Is(err, ErrNotFound), "err = %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListExpenses_QueryError(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM expenses WHERE user_id = $1 AND category = $2`)).
		WithArgs("alice", "Shopping").
		WillReturnError(errors.New("connection reset"))

	_, err := s.ListExpenses(context.Background(), "alice", types.ExpenseFilter{Category: "Shopping"})
	assert.ErrorContains(t, err, "query expenses")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetStats(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery(regexp.QuoteMeta(`(SELECT COUNT(*) FROM goals)`)).
		WillReturnRows(sqlmock.NewRows([]string{"goals", "tasks", "expenses"}).AddRow(2, 5, 7))

	stats, err := s.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.StoreStats{GoalCount: 2, TaskCount: 5, ExpenseCount: 7}, *stats)
	assert.NoError(t, mock.ExpectationsWereMet())
}
