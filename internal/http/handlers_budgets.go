package http

import (
	"net/http"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.budgets.List(r.Context())
	if err != nil {
		s.fail(w, r, err, log.ComponentBudget, log.OpList, "Error fetching budgets")
		return
	}
	NewJSONResponse().Body(orEmpty(budgets)).Write(w)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var in core.BudgetInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.fail(w, r, err, log.ComponentBudget, log.OpValidate, "Error saving budget")
		return
	}
	b, verrs := core.ValidateBudget(in)
	if verrs != nil {
		ValidationResponse(verrs).Write(w)
		return
	}

	created, err := s.budgets.Create(r.Context(), b)
	if err != nil {
		s.fail(w, r, err, log.ComponentBudget, log.OpCreate, "Error saving budget")
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(created).Write(w)
}

// handleBudgetComparison answers GET /budgets/comparison?month=YYYY-MM. The
// month is optional.
func (s *Server) handleBudgetComparison(w http.ResponseWriter, r *http.Request) {
	month := strings.TrimSpace(r.URL.Query().Get("month"))
	rows, err := s.budgets.Compare(r.Context(), month)
	if err != nil {
		s.fail(w, r, err, log.ComponentBudget, log.OpRead, "Error comparing budgets")
		return
	}
	NewJSONResponse().Body(orEmpty(rows)).Write(w)
}
