package http

import (
	"net/http"

	"budgetit/internal/core"
	applog "budgetit/internal/log"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := queryFilter(r)
	if err != nil {
		s.writeError(w, r, applog.OpList, err)
		return
	}
	txs, err := s.ledger.ListTransactions(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, applog.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	var in core.TransactionInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, applog.OpCreate, err)
		return
	}
	res, err := s.ledger.AddTransaction(r.Context(), in)
	if err != nil {
		s.writeError(w, r, applog.OpCreate, err)
		return
	}
	s.respondWrite(w, r, applog.OpCreate, string(in.Source), http.StatusCreated, res)
}

// handleDeleteTransaction removes the id from both feeds, or from one when
// ?source= names it.
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, applog.OpDelete, err)
		return
	}
	source, scoped, err := querySource(r)
	if err != nil {
		s.writeError(w, r, applog.OpDelete, err)
		return
	}

	var res core.WriteResult
	if scoped {
		res, err = s.ledger.DeleteTransactionFrom(r.Context(), source, id)
	} else {
		res, err = s.ledger.DeleteTransaction(r.Context(), id)
	}
	if err != nil {
		s.writeError(w, r, applog.OpDelete, err)
		return
	}
	record := "transaction"
	if scoped {
		record = string(source)
	}
	s.respondWrite(w, r, applog.OpDelete, record, http.StatusOK, res)
}
