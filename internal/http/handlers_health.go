package http

import (
	"context"
	"net/http"
	"time"

	"fintrack/internal/log"
)

type statusBody struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(statusBody{Status: "ok"}).Write(w)
}

// handleReady acquires the store connection, so it fails until the store
// is reachable.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			s.sl.LogError(r.Context(), "Readiness check failed", err, log.ComponentStorage, log.OpRead, errorType(err))
			NewJSONResponse().Status(http.StatusServiceUnavailable).Body(statusBody{Status: "unavailable"}).Write(w)
			return
		}
	}
	NewJSONResponse().Body(statusBody{Status: "ready"}).Write(w)
}
