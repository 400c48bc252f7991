package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.transactions.List(r.Context())
	if err != nil {
		s.fail(w, r, err, log.ComponentTransaction, log.OpList, "Error fetching transactions")
		return
	}
	NewJSONResponse().Body(orEmpty(txs)).Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := s.transactions.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err, log.ComponentTransaction, log.OpRead, "Error fetching transaction")
		return
	}
	NewJSONResponse().Body(t).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := readTransaction(w, r)
	if err != nil {
		s.fail(w, r, err, log.ComponentTransaction, log.OpValidate, "Error saving transaction")
		return
	}

	created, err := s.transactions.Create(r.Context(), t)
	if err != nil {
		s.fail(w, r, err, log.ComponentTransaction, log.OpCreate, "Error saving transaction")
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/transactions/"+created.ID).
		Body(created).
		Write(w)
}

// handleUpdateTransaction validates before looking the record up, so an
// invalid body for an unknown id is a 400.
func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := readTransaction(w, r)
	if err != nil {
		s.fail(w, r, err, log.ComponentTransaction, log.OpValidate, "Error updating transaction")
		return
	}

	updated, err := s.transactions.Update(r.Context(), mux.Vars(r)["id"], t)
	if err != nil {
		s.fail(w, r, err, log.ComponentTransaction, log.OpUpdate, "Error updating transaction")
		return
	}
	NewJSONResponse().Body(updated).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if _, err := s.transactions.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.fail(w, r, err, log.ComponentTransaction, log.OpDelete, "Error deleting transaction")
		return
	}
	NewJSONResponse().Body(MessageBody{Message: "Transaction deleted"}).Write(w)
}

func readTransaction(w http.ResponseWriter, r *http.Request) (core.Transaction, error) {
	var in core.TransactionInput
	if err := decodeJSON(w, r, &in); err != nil {
		return core.Transaction{}, err
	}
	t, verrs := core.ValidateTransaction(in)
	if verrs != nil {
		return core.Transaction{}, verrs
	}
	return t, nil
}
