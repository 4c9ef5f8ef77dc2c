package http

import (
	"encoding/json"
	"net/http"

	"github.com/alfonsusenrico/cash-flow-tracker/internal/core"
	"github.com/alfonsusenrico/cash-flow-tracker/internal/services"
)

type accountDTO struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	OpeningBalance  int64  `json:"opening_balance"`
	Profile         string `json:"profile"`
	IsPayrollSource bool   `json:"is_payroll_source"`
	IsNoLimit       bool   `json:"is_no_limit"`
	IsBuffer        bool   `json:"is_buffer"`
	FixedLimit      *int64 `json:"fixed_limit,omitempty"`
	CreatedAt       string `json:"created_at"`
}

func toAccountDTO(a core.Account) accountDTO {
	return accountDTO{
		ID:              a.ID,
		Name:            a.Name,
		OpeningBalance:  a.OpeningBalance,
		Profile:         string(a.Profile),
		IsPayrollSource: a.IsPayrollSource,
		IsNoLimit:       a.IsNoLimit,
		IsBuffer:        a.IsBuffer,
		FixedLimit:      a.FixedLimit,
		CreatedAt:       a.CreatedAt.UTC().Format(dateLayout),
	}
}

type accountBody struct {
	Name            string `json:"name"`
	OpeningBalance  int64  `json:"opening_balance"`
	Profile         string `json:"profile"`
	IsPayrollSource bool   `json:"is_payroll_source"`
	IsNoLimit       bool   `json:"is_no_limit"`
	IsBuffer        bool   `json:"is_buffer"`
	FixedLimit      *int64 `json:"fixed_limit"`
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.svc.Accounts.List(r.Context(), username(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]accountDTO, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountDTO(a))
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	user := username(r)

	var body accountBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, core.Invalidf("invalid JSON body"))
		return
	}

	account, err := s.svc.Accounts.Create(r.Context(), services.CreateAccountRequest{
		Username:        user,
		Name:            body.Name,
		OpeningBalance:  body.OpeningBalance,
		Profile:         core.ProfileType(body.Profile),
		IsPayrollSource: body.IsPayrollSource,
		IsNoLimit:       body.IsNoLimit,
		IsBuffer:        body.IsBuffer,
		FixedLimit:      body.FixedLimit,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateViews(user)
	writeJSON(w, r, http.StatusCreated, toAccountDTO(account))
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := s.svc.Accounts.Get(r.Context(), username(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toAccountDTO(account))
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	user := username(r)

	var body accountBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, core.Invalidf("invalid JSON body"))
		return
	}

	account, err := s.svc.Accounts.Update(r.Context(), services.UpdateAccountRequest{
		Username:        user,
		AccountID:       r.PathValue("id"),
		Name:            body.Name,
		OpeningBalance:  body.OpeningBalance,
		Profile:         core.ProfileType(body.Profile),
		IsPayrollSource: body.IsPayrollSource,
		IsNoLimit:       body.IsNoLimit,
		IsBuffer:        body.IsBuffer,
		FixedLimit:      body.FixedLimit,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateViews(user)
	writeJSON(w, r, http.StatusOK, toAccountDTO(account))
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	user := username(r)

	if err := s.svc.Accounts.Delete(r.Context(), user, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateViews(user)
	writeJSON(w, r, http.StatusNoContent, nil)
}
