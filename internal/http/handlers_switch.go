package http

import (
	"encoding/json"
	"net/http"

	"github.com/alfonsusenrico/cash-flow-tracker/internal/core"
	"github.com/alfonsusenrico/cash-flow-tracker/internal/services"
)

type switchDTO struct {
	TransferID    string `json:"transfer_id"`
	FromAccountID string `json:"from_account_id"`
	ToAccountID   string `json:"to_account_id"`
	Amount        int64  `json:"amount"`
	Date          string `json:"date"`
	IsCycleTopup  bool   `json:"is_cycle_topup"`
	Deleted       bool   `json:"deleted"`
}

func toSwitchDTO(sw services.Switch) switchDTO {
	return switchDTO{
		TransferID:    sw.TransferID,
		FromAccountID: sw.FromAccountID,
		ToAccountID:   sw.ToAccountID,
		Amount:        sw.Amount,
		Date:          sw.Date.Format(dateLayout),
		IsCycleTopup:  sw.IsCycleTopup,
		Deleted:       sw.Deleted,
	}
}

type createSwitchBody struct {
	FromAccountID string `json:"from_account_id"`
	ToAccountID   string `json:"to_account_id"`
	Amount        int64  `json:"amount"`
	Date          string `json:"date"`
	IsCycleTopup  bool   `json:"is_cycle_topup"`
}

func (s *Server) handleCreateSwitch(w http.ResponseWriter, r *http.Request) {
	user := username(r)

	var body createSwitchBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, core.Invalidf("invalid JSON body"))
		return
	}
	date, err := parseBodyDate(body.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}

	sw, err := s.svc.Transfers.CreateSwitch(r.Context(), services.CreateSwitchRequest{
		Username:      user,
		FromAccountID: body.FromAccountID,
		ToAccountID:   body.ToAccountID,
		Amount:        body.Amount,
		Date:          date,
		IsCycleTopup:  body.IsCycleTopup,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateViews(user)
	writeJSON(w, r, http.StatusCreated, toSwitchDTO(sw))
}

func (s *Server) handleGetSwitch(w http.ResponseWriter, r *http.Request) {
	sw, err := s.svc.Transfers.GetSwitch(r.Context(), username(r), r.PathValue("transferID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toSwitchDTO(sw))
}

type updateSwitchBody struct {
	FromAccountID string `json:"from_account_id"`
	ToAccountID   string `json:"to_account_id"`
	Amount        int64  `json:"amount"`
	Date          string `json:"date"`
}

func (s *Server) handleUpdateSwitch(w http.ResponseWriter, r *http.Request) {
	user := username(r)

	var body updateSwitchBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, core.Invalidf("invalid JSON body"))
		return
	}
	date, err := parseBodyDate(body.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}

	sw, err := s.svc.Transfers.UpdateSwitch(r.Context(), services.UpdateSwitchRequest{
		Username:      user,
		TransferID:    r.PathValue("transferID"),
		FromAccountID: body.FromAccountID,
		ToAccountID:   body.ToAccountID,
		Amount:        body.Amount,
		Date:          date,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateViews(user)
	writeJSON(w, r, http.StatusOK, toSwitchDTO(sw))
}

func (s *Server) handleDeleteSwitch(w http.ResponseWriter, r *http.Request) {
	user := username(r)

	var body deleteBody
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, r, core.Invalidf("invalid JSON body"))
			return
		}
	}

	if err := s.svc.Transfers.DeleteSwitch(r.Context(), user, r.PathValue("transferID"), body.Reason); err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateViews(user)
	writeJSON(w, r, http.StatusNoContent, nil)
}
