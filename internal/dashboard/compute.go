// Package dashboard aggregates a user's records into progress statistics.
package dashboard

import (
	"sort"
	"time"

	"github.com/hyperengineering/steward/internal/types"
)

const (
	// topGoals caps active_goals and upcoming_deadlines.
	topGoals = 5
	// streakWindow is how many days back a streak is searched.
	streakWindow = 365
	weekDays     = 7
)

// Input is everything Compute needs. Tasks must cover at least the streak
// window; Expenses at least the current calendar year.
type Input struct {
	Goals    []types.Goal
	Tasks    []types.Task
	Expenses []types.Expense
}

// Compute derives dashboard statistics at now. All calendar boundaries are
// taken in UTC.
func Compute(in Input, now time.Time) types.DashboardStats {
	now = now.UTC()
	return types.DashboardStats{
		Goals:             goalStats(in.Goals),
		Tasks:             taskStats(in.Tasks, now),
		Expenses:          expenseStats(in.Expenses, now),
		ActiveGoals:       upcoming(in.Goals),
		UpcomingDeadlines: upcoming(in.Goals),
	}
}

func goalStats(goals []types.Goal) types.GoalStats {
	s := types.GoalStats{Total: len(goals)}
	progress := 0
	for _, g := range goals {
		if g.Status == types.GoalStatusCompleted {
			s.Completed++
		}
		if g.Status.Active() {
			s.Active++
		}
		progress += g.ProgressPercentage
	}
	if s.Total > 0 {
		s.CompletionRate = float64(s.Completed) / float64(s.Total) * 100
		s.AverageProgress = float64(progress) / float64(s.Total)
	}
	return s
}

// upcoming returns the active goals with the nearest deadlines first.
func upcoming(goals []types.Goal) []types.Goal {
	active := make([]types.Goal, 0, len(goals))
	for _, g := range goals {
		if g.Status.Active() {
			active = append(active, g)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Deadline.Before(active[j].Deadline)
	})
	if len(active) > topGoals {
		active = active[:topGoals]
	}
	return active
}

func taskStats(tasks []types.Task, now time.Time) types.TaskStats {
	today := now.Format(types.DateLayout)
	weekStart := now.AddDate(0, 0, -weekDays).Format(types.DateLayout)

	var s types.TaskStats
	weekTotal, weekDone := 0, 0
	doneOn := make(map[string]bool)
	for _, t := range tasks {
		if t.DueDate == today {
			s.TodayTotal++
			if t.Completed {
				s.TodayCompleted++
			}
		}
		if t.DueDate >= weekStart {
			weekTotal++
			if t.Completed {
				weekDone++
			}
		}
		if t.Completed {
			doneOn[t.DueDate] = true
		}
	}
	if weekTotal > 0 {
		s.WeeklyCompletionRate = float64(weekDone) / float64(weekTotal) * 100
	}
	s.StreakDays = streak(doneOn, now)
	return s
}

// streak counts consecutive days ending today with at least one completed
// task due that day. An empty today does not break the streak.
func streak(doneOn map[string]bool, now time.Time) int {
	days := 0
	for i := 0; i < streakWindow; i++ {
		day := now.AddDate(0, 0, -i).Format(types.DateLayout)
		if doneOn[day] {
			days++
		} else if i > 0 {
			break
		}
	}
	return days
}

func expenseStats(expenses []types.Expense, now time.Time) types.ExpenseStats {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).Format(types.DateLayout)
	yearStart := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC).Format(types.DateLayout)

	s := types.ExpenseStats{CategoryBreakdown: make(map[string]float64)}
	for _, e := range expenses {
		if e.Date < yearStart {
			continue
		}
		s.YearlyTotal += e.Amount
		s.CategoryBreakdown[e.Category] += e.Amount
		if e.Date >= monthStart {
			s.MonthlyTotal += e.Amount
		}
	}
	s.AverageDaily = s.MonthlyTotal / float64(now.Day())
	return s
}

// Windows returns the lower bounds a caller must load for Compute at now.
func Windows(now time.Time) (tasksFrom, expensesFrom string) {
	now = now.UTC()
	tasksFrom = now.AddDate(0, 0, -streakWindow).Format(types.DateLayout)
	expensesFrom = time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC).Format(types.DateLayout)
	return tasksFrom, expensesFrom
}
