package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hyperengineering/steward/internal/types"
	"github.com/oklog/ulid/v2"
)

// Dialect selects placeholder syntax and the goose dialect.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

func (d Dialect) gooseDialect() string {
	if d == DialectPostgres {
		return "postgres"
	}
	return "sqlite"
}

// SQLStore implements Store over database/sql. The same queries serve
// SQLite and PostgreSQL; only placeholders are rewritten.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// Compile-time interface check
var _ Store = (*SQLStore)(nil)

func newSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect, now: time.Now}
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Dialect returns the SQL dialect the store was opened with.
func (s *SQLStore) Dialect() Dialect {
	return s.dialect
}

// DB exposes the underlying handle for migration tooling.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// SchemaVersion returns the applied goose migration version.
func (s *SQLStore) SchemaVersion(ctx context.Context) (int64, error) {
	return MigrationStatus(ctx, s.db, s.dialect)
}

// rebind rewrites ? placeholders to $N for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (s *SQLStore) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Second)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// --- Goals ---

const goalColumns = `id, user_id, title, description, deadline, priority, status, progress_percentage, created_at, updated_at`

// CreateGoal inserts a goal owned by userID.
func (s *SQLStore) CreateGoal(ctx context.Context, userID string, g types.NewGoal) (*types.Goal, error) {
	now := s.timestamp()
	goal := types.Goal{
		ID:          ulid.Make().String(),
		UserID:      userID,
		Title:       g.Title,
		Description: g.Description,
		Deadline:    g.Deadline.UTC().Truncate(time.Second),
		Priority:    g.Priority,
		Status:      g.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if goal.Priority == "" {
		goal.Priority = types.GoalPriorityMedium
	}
	if goal.Status == "" {
		goal.Status = types.GoalStatusPending
	}

	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO goals (`+goalColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), goal.ID, goal.UserID, goal.Title, nullString(goal.Description), formatTime(goal.Deadline),
		string(goal.Priority), string(goal.Status), goal.ProgressPercentage,
		formatTime(goal.CreatedAt), formatTime(goal.UpdatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert goal: %w", err)
	}

	return &goal, nil
}

// ListGoals returns the user's goals, newest first.
func (s *SQLStore) ListGoals(ctx context.Context, userID string, f types.GoalFilter) ([]types.Goal, error) {
	query := `SELECT ` + goalColumns + ` FROM goals WHERE user_id = ?`
	args := []any{userID}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	if f.Priority != "" {
		query += ` AND priority = ?`
		args = append(args, string(f.Priority))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query goals: %w", err)
	}
	defer rows.Close()

	goals := []types.Goal{}
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, *g)
	}
	return goals, rows.Err()
}

func scanGoal(row rowScanner) (*types.Goal, error) {
	var (
		g                             types.Goal
		description                   sql.NullString
		deadline, createdAt, updatedAt string
		priority, status              string
	)
	if err := row.Scan(&g.ID, &g.UserID, &g.Title, &description, &deadline, &priority, &status,
		&g.ProgressPercentage, &createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("scan goal: %w", err)
	}
	g.Description = description.String
	g.Priority = types.GoalPriority(priority)
	g.Status = types.GoalStatus(status)

	var err error
	if g.Deadline, err = parseTime(deadline); err != nil {
		return nil, err
	}
	if g.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if g.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &g, nil
}

// --- Tasks ---

const taskColumns = `id, user_id, goal_id, title, description, completed, status, due_date, priority, created_at, updated_at, completed_at`

// CreateTask inserts a task owned by userID. A referenced goal must belong
// to the same user.
func (s *SQLStore) CreateTask(ctx context.Context, userID string, t types.NewTask) (*types.Task, error) {
	if t.GoalID != "" {
		var one int
		err := s.db.QueryRowContext(ctx, s.rebind(`SELECT 1 FROM goals WHERE id = ? AND user_id = ?`),
			t.GoalID, userID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGoalNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("check goal: %w", err)
		}
	}

	now := s.timestamp()
	task := types.Task{
		ID:          ulid.Make().String(),
		UserID:      userID,
		GoalID:      t.GoalID,
		Title:       t.Title,
		Description: t.Description,
		Status:      types.TaskStatusPending,
		DueDate:     t.DueDate,
		Priority:    t.Priority,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if task.Priority == "" {
		task.Priority = types.TaskPriorityMedium
	}
	if task.DueDate == "" {
		task.DueDate = now.Format(types.DateLayout)
	}

	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), task.ID, task.UserID, nullString(task.GoalID), task.Title, nullString(task.Description),
		task.Completed, string(task.Status), task.DueDate, string(task.Priority),
		formatTime(task.CreatedAt), formatTime(task.UpdatedAt), sql.NullString{})
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}

	return &task, nil
}

// ListTasks returns the user's tasks, newest first.
func (s *SQLStore) ListTasks(ctx context.Context, userID string, f types.TaskFilter) ([]types.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = ?`
	args := []any{userID}
	if f.DueDate != "" {
		query += ` AND due_date = ?`
		args = append(args, f.DueDate)
	}
	if f.DueFrom != "" {
		query += ` AND due_date >= ?`
		args = append(args, f.DueFrom)
	}
	if f.GoalID != "" {
		query += ` AND goal_id = ?`
		args = append(args, f.GoalID)
	}
	if f.Completed != nil {
		query += ` AND completed = ?`
		args = append(args, *f.Completed)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []types.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// GetTask returns one of the user's tasks or ErrNotFound.
func (s *SQLStore) GetTask(ctx context.Context, userID, id string) (*types.Task, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+taskColumns+` FROM tasks WHERE id = ? AND user_id = ?`), id, userID)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

// FindOpenTaskByTitle returns the user's most recent incomplete task whose
// title matches case-insensitively.
func (s *SQLStore) FindOpenTaskByTitle(ctx context.Context, userID, title string) (*types.Task, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT `+taskColumns+` FROM tasks
		WHERE user_id = ? AND completed = ? AND LOWER(title) = LOWER(?)
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`), userID, false, strings.TrimSpace(title))
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

// ToggleTaskComplete flips the completion flag of one of the user's tasks.
// Completing stamps completed_at with at; reopening clears it.
func (s *SQLStore) ToggleTaskComplete(ctx context.Context, userID, id string, at time.Time) (*types.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var completed bool
	err = tx.QueryRowContext(ctx, s.rebind(`SELECT completed FROM tasks WHERE id = ? AND user_id = ?`), id, userID).Scan(&completed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read task: %w", err)
	}

	completed = !completed
	status := types.TaskStatusPending
	completedAt := sql.NullString{}
	if completed {
		status = types.TaskStatusCompleted
		completedAt = nullString(formatTime(at))
	}

	if _, err := tx.ExecContext(ctx, s.rebind(`
		UPDATE tasks SET completed = ?, status = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`), completed, string(status), completedAt, formatTime(s.timestamp()), id, userID); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}

	task, err := scanTask(tx.QueryRowContext(ctx, s.rebind(`SELECT `+taskColumns+` FROM tasks WHERE id = ? AND user_id = ?`), id, userID))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return task, nil
}

func scanTask(row rowScanner) (*types.Task, error) {
	var (
		t                    types.Task
		goalID, description  sql.NullString
		completedAt          sql.NullString
		createdAt, updatedAt string
		status, priority     string
	)
	if err := row.Scan(&t.ID, &t.UserID, &goalID, &t.Title, &description, &t.Completed, &status,
		&t.DueDate, &priority, &createdAt, &updatedAt, &completedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}
	t.GoalID = goalID.String
	t.Description = description.String
	t.Status = types.TaskStatus(status)
	t.Priority = types.TaskPriority(priority)

	var err error
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		ts, err := parseTime(completedAt.String)
		if err != nil {
			return nil, err
		}
		t.CompletedAt = &ts
	}
	return &t, nil
}

// --- Expenses ---

const expenseColumns = `id, user_id, amount, category, description, date, created_at, updated_at`

// CreateExpense inserts an expense owned by userID. Amount must be positive.
func (s *SQLStore) CreateExpense(ctx context.Context, userID string, e types.NewExpense) (*types.Expense, error) {
	if !(e.Amount > 0) {
		return nil, fmt.Errorf("%w: amount must be greater than 0", ErrInvalid)
	}

	now := s.timestamp()
	expense := types.Expense{
		ID:          ulid.Make().String(),
		UserID:      userID,
		Amount:      e.Amount,
		Category:    e.Category,
		Description: e.Description,
		Date:        e.Date,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if expense.Date == "" {
		expense.Date = now.Format(types.DateLayout)
	}

	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO expenses (`+expenseColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`), expense.ID, expense.UserID, expense.Amount, expense.Category, nullString(expense.Description),
		expense.Date, formatTime(expense.CreatedAt), formatTime(expense.UpdatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert expense: %w", err)
	}

	return &expense, nil
}

// ListExpenses returns the user's expenses, most recent date first.
func (s *SQLStore) ListExpenses(ctx context.Context, userID string, f types.ExpenseFilter) ([]types.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE user_id = ?`
	args := []any{userID}
	if f.StartDate != "" {
		query += ` AND date >= ?`
		args = append(args, f.StartDate)
	}
	if f.EndDate != "" {
		query += ` AND date <= ?`
		args = append(args, f.EndDate)
	}
	if f.Category != "" {
		query += ` AND category = ?`
		args = append(args, f.Category)
	}
	query += ` ORDER BY date DESC, created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	expenses := []types.Expense{}
	for rows.Next() {
		var (
			e                    types.Expense
			description          sql.NullString
			createdAt, updatedAt string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &e.Category, &description, &e.Date, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.Description = description.String
		if e.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if e.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// --- Stats ---

// GetStats returns record counts across all users.
func (s *SQLStore) GetStats(ctx context.Context) (*types.StoreStats, error) {
	var stats types.StoreStats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM goals),
			(SELECT COUNT(*) FROM tasks),
			(SELECT COUNT(*) FROM expenses)
	`).Scan(&stats.GoalCount, &stats.TaskCount, &stats.ExpenseCount)
	if err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}
	return &stats, nil
}
