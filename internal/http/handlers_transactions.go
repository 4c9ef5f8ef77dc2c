package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/alfonsusenrico/cash-flow-tracker/internal/core"
	"github.com/alfonsusenrico/cash-flow-tracker/internal/services"
)

type transactionDTO struct {
	ID           string  `json:"id"`
	AccountID    string  `json:"account_id"`
	Type         string  `json:"type"`
	Name         string  `json:"name"`
	Amount       int64   `json:"amount"`
	Date         string  `json:"date"`
	IsTransfer   bool    `json:"is_transfer"`
	TransferID   *string `json:"transfer_id,omitempty"`
	IsCycleTopup bool    `json:"is_cycle_topup"`
	Deleted      bool    `json:"deleted"`
	DeletedBy    string  `json:"deleted_by,omitempty"`
	DeleteReason string  `json:"delete_reason,omitempty"`
}

func toTransactionDTO(t core.Transaction) transactionDTO {
	return transactionDTO{
		ID:           t.ID,
		AccountID:    t.AccountID,
		Type:         string(t.Type),
		Name:         t.Name,
		Amount:       t.Amount,
		Date:         t.Date.Format(dateLayout),
		IsTransfer:   t.IsTransfer,
		TransferID:   t.TransferID,
		IsCycleTopup: t.IsCycleTopup,
		Deleted:      t.IsDeleted(),
		DeletedBy:    t.DeletedBy,
		DeleteReason: t.DeleteReason,
	}
}

type createTransactionBody struct {
	AccountID    string `json:"account_id"`
	Type         string `json:"type"`
	Name         string `json:"name"`
	Amount       int64  `json:"amount"`
	Date         string `json:"date"`
	IsCycleTopup bool   `json:"is_cycle_topup"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	user := username(r)

	var body createTransactionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, core.Invalidf("invalid JSON body"))
		return
	}
	date, err := parseBodyDate(body.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}

	tx, err := s.svc.Transactions.Create(r.Context(), services.CreateTransactionRequest{
		Username:     user,
		AccountID:    body.AccountID,
		Type:         core.TransactionType(body.Type),
		Name:         body.Name,
		Amount:       body.Amount,
		Date:         date,
		IsCycleTopup: body.IsCycleTopup,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateViews(user)
	writeJSON(w, r, http.StatusCreated, toTransactionDTO(tx))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.svc.Transactions.Get(r.Context(), username(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toTransactionDTO(tx))
}

type updateTransactionBody struct {
	AccountID string `json:"account_id"`
	Type      string `json:"type"`
	Name      string `json:"name"`
	Amount    int64  `json:"amount"`
	Date      string `json:"date"`
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	user := username(r)

	var body updateTransactionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, core.Invalidf("invalid JSON body"))
		return
	}
	date, err := parseBodyDate(body.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}

	tx, err := s.svc.Transactions.Update(r.Context(), services.UpdateTransactionRequest{
		Username:      user,
		TransactionID: r.PathValue("id"),
		AccountID:     body.AccountID,
		Type:          core.TransactionType(body.Type),
		Name:          body.Name,
		Amount:        body.Amount,
		Date:          date,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateViews(user)
	writeJSON(w, r, http.StatusOK, toTransactionDTO(tx))
}

type deleteBody struct {
	Reason string `json:"reason"`
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	user := username(r)

	var body deleteBody
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, r, core.Invalidf("invalid JSON body"))
			return
		}
	}

	if err := s.svc.Transactions.SoftDelete(r.Context(), user, r.PathValue("id"), body.Reason); err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateViews(user)
	writeJSON(w, r, http.StatusNoContent, nil)
}

type auditDTO struct {
	ID            string `json:"id"`
	TransactionID string `json:"transaction_id"`
	AccountID     string `json:"account_id"`
	Action        string `json:"action"`
	Payload       string `json:"payload"`
	PerformedBy   string `json:"performed_by"`
	PerformedAt   string `json:"performed_at"`
}

func toAuditDTOs(records []core.TransactionAudit) []auditDTO {
	out := make([]auditDTO, 0, len(records))
	for _, rec := range records {
		out = append(out, auditDTO{
			ID:            rec.ID,
			TransactionID: rec.TransactionID,
			AccountID:     rec.AccountID,
			Action:        rec.Action,
			Payload:       rec.Payload,
			PerformedBy:   rec.PerformedBy,
			PerformedAt:   rec.PerformedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}

func (s *Server) handleTransactionAudit(w http.ResponseWriter, r *http.Request) {
	records, err := s.svc.Audit.ListForTransaction(r.Context(), username(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toAuditDTOs(records))
}

func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	records, err := s.svc.Audit.List(r.Context(), username(r), limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toAuditDTOs(records))
}
