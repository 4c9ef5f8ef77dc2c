package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/alfonsusenrico/cash-flow-tracker/internal/core"
	"github.com/alfonsusenrico/cash-flow-tracker/internal/services"
)

type budgetDTO struct {
	ID        string `json:"id"`
	AccountID string `json:"account_id"`
	Month     string `json:"month"`
	Amount    int64  `json:"amount"`
}

func toBudgetDTO(b core.Budget) budgetDTO {
	return budgetDTO{ID: b.ID, AccountID: b.AccountID, Month: b.Month, Amount: b.Amount}
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.svc.Budgets.List(r.Context(), username(r), queryMonth(r, s.now))
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]budgetDTO, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, toBudgetDTO(b))
	}
	writeJSON(w, r, http.StatusOK, out)
}

type upsertBudgetBody struct {
	AccountID string `json:"account_id"`
	Month     string `json:"month"`
	Amount    int64  `json:"amount"`
}

func (s *Server) handleUpsertBudget(w http.ResponseWriter, r *http.Request) {
	user := username(r)

	var body upsertBudgetBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, core.Invalidf("invalid JSON body"))
		return
	}

	budget, err := s.svc.Budgets.Upsert(r.Context(), services.UpsertBudgetRequest{
		Username:  user,
		AccountID: body.AccountID,
		Month:     body.Month,
		Amount:    body.Amount,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateViews(user)
	writeJSON(w, r, http.StatusOK, toBudgetDTO(budget))
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	user := username(r)
	month := strings.TrimSpace(r.URL.Query().Get("month"))

	if err := s.svc.Budgets.Delete(r.Context(), user, r.PathValue("accountID"), month); err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateViews(user)
	writeJSON(w, r, http.StatusNoContent, nil)
}

type reconciliationLineDTO struct {
	AccountID       string `json:"account_id"`
	AccountName     string `json:"account_name"`
	Profile         string `json:"profile"`
	ActualSpend     int64  `json:"actual_spend"`
	SwitchIn        int64  `json:"switch_in"`
	SwitchOut       int64  `json:"switch_out"`
	Planned         *int64 `json:"planned,omitempty"`
	Gap             *int64 `json:"gap,omitempty"`
	Status          string `json:"status"`
	SuggestedBudget int64  `json:"suggested_budget"`
}

type switchEdgeDTO struct {
	FromAccountID string `json:"from_account_id"`
	ToAccountID   string `json:"to_account_id"`
	Amount        int64  `json:"amount"`
}

type reconciliationTotalsDTO struct {
	Planned     int64 `json:"planned"`
	ActualSpend int64 `json:"actual_spend"`
	Gap         int64 `json:"gap"`
	NetSwitch   int64 `json:"net_switch"`
}

type budgetReportDTO struct {
	Month       string                  `json:"month"`
	Mode        string                  `json:"mode"`
	Window      windowDTO               `json:"window"`
	Accounts    []reconciliationLineDTO `json:"accounts"`
	SwitchEdges []switchEdgeDTO         `json:"switch_edges"`
	Totals      reconciliationTotalsDTO `json:"totals"`
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	user := username(r)
	month := queryMonth(r, s.now)
	mode := strings.TrimSpace(r.URL.Query().Get("mode"))

	report, err := s.svc.Budgets.Reconcile(r.Context(), user, month, mode)
	if err != nil {
		writeError(w, r, err)
		return
	}

	dto := budgetReportDTO{
		Month:       report.Month,
		Mode:        report.Mode,
		Window:      toWindowDTO(report.Window),
		Accounts:    make([]reconciliationLineDTO, 0, len(report.Accounts)),
		SwitchEdges: make([]switchEdgeDTO, 0, len(report.SwitchEdges)),
		Totals: reconciliationTotalsDTO{
			Planned:     report.Totals.Planned,
			ActualSpend: report.Totals.ActualSpend,
			Gap:         report.Totals.Gap,
			NetSwitch:   report.Totals.NetSwitch,
		},
	}
	for _, line := range report.Accounts {
		dto.Accounts = append(dto.Accounts, reconciliationLineDTO{
			AccountID:       line.AccountID,
			AccountName:     line.AccountName,
			Profile:         string(line.Profile),
			ActualSpend:     line.ActualSpend,
			SwitchIn:        line.SwitchIn,
			SwitchOut:       line.SwitchOut,
			Planned:         line.Planned,
			Gap:             line.Gap,
			Status:          line.Status,
			SuggestedBudget: line.SuggestedBudget,
		})
	}
	for _, edge := range report.SwitchEdges {
		dto.SwitchEdges = append(dto.SwitchEdges, switchEdgeDTO{
			FromAccountID: edge.FromAccountID,
			ToAccountID:   edge.ToAccountID,
			Amount:        edge.Amount,
		})
	}
	writeJSON(w, r, http.StatusOK, dto)
}
