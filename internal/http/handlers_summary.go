package http

import (
	"net/http"

	"fintrack/internal/log"
)

func (s *Server) handleSummaryByCategory(w http.ResponseWriter, r *http.Request) {
	totals, err := s.transactions.SummaryByCategory(r.Context())
	if err != nil {
		s.fail(w, r, err, log.ComponentSummary, log.OpRead, "Error building summary")
		return
	}
	NewJSONResponse().Body(orEmpty(totals)).Write(w)
}

func (s *Server) handleSummaryByMonth(w http.ResponseWriter, r *http.Request) {
	totals, err := s.transactions.SummaryByMonth(r.Context())
	if err != nil {
		s.fail(w, r, err, log.ComponentSummary, log.OpRead, "Error building summary")
		return
	}
	NewJSONResponse().Body(orEmpty(totals)).Write(w)
}
