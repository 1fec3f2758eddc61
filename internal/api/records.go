package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hyperengineering/steward/internal/intent"
	"github.com/hyperengineering/steward/internal/types"
	"github.com/hyperengineering/steward/internal/validation"
)

// ListGoals handles GET /api/v1/goals
func (h *Handler) ListGoals(w http.ResponseWriter, r *http.Request) {
	actor := MustActorFromContext(r.Context())
	q := r.URL.Query()

	c := &validation.Collector{}
	filter := types.GoalFilter{
		Status:   types.GoalStatus(q.Get("status")),
		Priority: types.GoalPriority(q.Get("priority")),
	}
	if filter.Status != "" {
		c.Add(validation.ValidateEnum("status", string(filter.Status), validation.GoalStatuses))
	}
	if filter.Priority != "" {
		c.Add(validation.ValidateEnum("priority", string(filter.Priority), validation.GoalPriorities))
	}
	if c.HasErrors() {
		WriteProblemWithErrors(w, r, "Invalid query parameters", c.Errors())
		return
	}

	goals, err := h.store.ListGoals(r.Context(), actor, filter)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, goals)
}

// CreateGoal handles POST /api/v1/goals
func (h *Handler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	actor := MustActorFromContext(r.Context())

	var req types.CreateGoalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if errs := validation.ValidateCreateGoal(req); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Validation failed", errs)
		return
	}
	deadline, err := validation.ParseDeadline(req.Deadline)
	if err != nil {
		WriteProblem(w, r, http.StatusBadRequest, err.Error())
		return
	}

	goal, err := h.store.CreateGoal(r.Context(), actor, types.NewGoal{
		Title:       req.Title,
		Description: req.Description,
		Deadline:    deadline,
		Priority:    types.GoalPriority(req.Priority),
		Status:      types.GoalStatus(req.Status),
	})
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, goal)
}

// ListTasks handles GET /api/v1/tasks
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	actor := MustActorFromContext(r.Context())
	q := r.URL.Query()

	c := &validation.Collector{}
	filter := types.TaskFilter{
		DueDate: q.Get("due_date"),
		GoalID:  q.Get("goal_id"),
	}
	if filter.DueDate != "" {
		c.Add(validation.ValidateDate("due_date", filter.DueDate))
	}
	if filter.GoalID != "" {
		c.Add(validation.ValidateULID("goal_id", filter.GoalID))
	}
	if raw := q.Get("completed"); raw != "" {
		completed, err := strconv.ParseBool(raw)
		if err != nil {
			c.Add(&validation.ValidationError{Field: "completed", Message: "must be true or false"})
		} else {
			filter.Completed = &completed
		}
	}
	if c.HasErrors() {
		WriteProblemWithErrors(w, r, "Invalid query parameters", c.Errors())
		return
	}

	tasks, err := h.store.ListTasks(r.Context(), actor, filter)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// CreateTask handles POST /api/v1/tasks
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	actor := MustActorFromContext(r.Context())

	var req types.CreateTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if errs := validation.ValidateCreateTask(req); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Validation failed", errs)
		return
	}

	task, err := h.store.CreateTask(r.Context(), actor, types.NewTask{
		GoalID:      req.GoalID,
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Priority:    types.TaskPriority(req.Priority),
	})
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// ToggleTask handles PATCH /api/v1/tasks/{id}/complete
func (h *Handler) ToggleTask(w http.ResponseWriter, r *http.Request) {
	actor := MustActorFromContext(r.Context())

	task, err := h.store.ToggleTaskComplete(r.Context(), actor, chi.URLParam(r, "id"), h.now())
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// ListExpenses handles GET /api/v1/expenses
func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	actor := MustActorFromContext(r.Context())
	q := r.URL.Query()

	c := &validation.Collector{}
	filter := types.ExpenseFilter{
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
	}
	if filter.StartDate != "" {
		c.Add(validation.ValidateDate("start_date", filter.StartDate))
	}
	if filter.EndDate != "" {
		c.Add(validation.ValidateDate("end_date", filter.EndDate))
	}
	if c.HasErrors() {
		WriteProblemWithErrors(w, r, "Invalid query parameters", c.Errors())
		return
	}
	if category := q.Get("category"); category != "" {
		filter.Category = string(intent.NormalizeCategory(category))
	}

	expenses, err := h.store.ListExpenses(r.Context(), actor, filter)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

// CreateExpense handles POST /api/v1/expenses. The category is normalized
// to its canonical name.
func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	actor := MustActorFromContext(r.Context())

	var req types.CreateExpenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if errs := validation.ValidateCreateExpense(req); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Validation failed", errs)
		return
	}

	expense, err := h.store.CreateExpense(r.Context(), actor, types.NewExpense{
		Amount:      req.Amount,
		Category:    string(intent.NormalizeCategory(req.Category)),
		Description: req.Description,
		Date:        req.Date,
	})
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, expense)
}

// Dashboard handles GET /api/v1/dashboard
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	actor := MustActorFromContext(r.Context())

	stats, err := h.dashboard.Stats(r.Context(), actor)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
