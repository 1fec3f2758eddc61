package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hyperengineering/steward/internal/types"
)

// Source is the subset of store.Store the dashboard reads from.
type Source interface {
	ListGoals(ctx context.Context, userID string, filter types.GoalFilter) ([]types.Goal, error)
	ListTasks(ctx context.Context, userID string, filter types.TaskFilter) ([]types.Task, error)
	ListExpenses(ctx context.Context, userID string, filter types.ExpenseFilter) ([]types.Expense, error)
}

// Service loads a user's records and computes their dashboard.
type Service struct {
	source Source
	now    func() time.Time
}

// NewService creates a dashboard service reading from source.
func NewService(source Source) *Service {
	return &Service{source: source, now: time.Now}
}

// Stats loads goals, tasks and expenses concurrently and aggregates them.
func (s *Service) Stats(ctx context.Context, actor string) (types.DashboardStats, error) {
	now := s.now().UTC()
	tasksFrom, expensesFrom := Windows(now)

	var in Input
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		goals, err := s.source.ListGoals(gctx, actor, types.GoalFilter{})
		if err != nil {
			return fmt.Errorf("load goals: %w", err)
		}
		in.Goals = goals
		return nil
	})
	g.Go(func() error {
		tasks, err := s.source.ListTasks(gctx, actor, types.TaskFilter{DueFrom: tasksFrom})
		if err != nil {
			return fmt.Errorf("load tasks: %w", err)
		}
		in.Tasks = tasks
		return nil
	})
	g.Go(func() error {
		expenses, err := s.source.ListExpenses(gctx, actor, types.ExpenseFilter{StartDate: expensesFrom})
		if err != nil {
			return fmt.Errorf("load expenses: %w", err)
		}
		in.Expenses = expenses
		return nil
	})
	if err := g.Wait(); err != nil {
		return types.DashboardStats{}, err
	}

	return Compute(in, now), nil
}

// Summary renders the statistics relevant to timeRange as one reply.
// timeRange is "today", "this week", "this month", "this year" or "all".
func (s *Service) Summary(ctx context.Context, actor, timeRange string) (string, error) {
	stats, err := s.Stats(ctx, actor)
	if err != nil {
		return "", err
	}
	return Render(stats, timeRange), nil
}

// Render formats stats for a conversational reply.
func Render(stats types.DashboardStats, timeRange string) string {
	today := fmt.Sprintf("Today you've completed %d of %d tasks.",
		stats.Tasks.TodayCompleted, stats.Tasks.TodayTotal)
	week := fmt.Sprintf("This week's completion rate is %.0f%% and your streak is %s.",
		stats.Tasks.WeeklyCompletionRate, plural(stats.Tasks.StreakDays, "day"))
	month := fmt.Sprintf("You've spent $%.2f this month (about $%.2f a day).",
		stats.Expenses.MonthlyTotal, stats.Expenses.AverageDaily)
	year := fmt.Sprintf("You've spent $%.2f this year.", stats.Expenses.YearlyTotal)
	goals := fmt.Sprintf("You have %s active and %d completed (%.0f%% average progress).",
		plural(stats.Goals.Active, "goal"), stats.Goals.Completed, stats.Goals.AverageProgress)

	var parts []string
	switch timeRange {
	case "today":
		parts = []string{today}
	case "this week":
		parts = []string{week, today}
	case "this month":
		parts = []string{month, week}
	case "this year":
		parts = []string{year, goals}
	default:
		parts = []string{goals, today, week, month}
	}
	if timeRange != "today" && len(stats.UpcomingDeadlines) > 0 {
		next := stats.UpcomingDeadlines[0]
		parts = append(parts, fmt.Sprintf("Next deadline: %q on %s.", next.Title, next.Deadline.UTC().Format(types.DateLayout)))
	}
	return strings.Join(parts, " ")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
