package http

import (
	"encoding/json"
	"net/http"

	"github.com/alfonsusenrico/cash-flow-tracker/internal/core"
)

type paydayOverrideDTO struct {
	Month string `json:"month"`
	Day   int    `json:"day"`
}

type paydaySettingsDTO struct {
	DefaultDay int                 `json:"default_day"`
	Overrides  []paydayOverrideDTO `json:"overrides"`
}

func (s *Server) handlePaydaySettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.svc.Payday.Settings(r.Context(), username(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	dto := paydaySettingsDTO{
		DefaultDay: settings.DefaultDay,
		Overrides:  make([]paydayOverrideDTO, 0, len(settings.Overrides)),
	}
	for _, o := range settings.Overrides {
		dto.Overrides = append(dto.Overrides, paydayOverrideDTO{Month: o.Month, Day: o.PaydayDay})
	}
	writeJSON(w, r, http.StatusOK, dto)
}

type paydayDayBody struct {
	Day int `json:"day"`
}

func (s *Server) handleSetDefaultPayday(w http.ResponseWriter, r *http.Request) {
	user := username(r)

	var body paydayDayBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, core.Invalidf("invalid JSON body"))
		return
	}

	if err := s.svc.Payday.SetDefault(r.Context(), user, body.Day); err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateViews(user)
	writeJSON(w, r, http.StatusNoContent, nil)
}

func (s *Server) handleSetPaydayOverride(w http.ResponseWriter, r *http.Request) {
	user := username(r)

	var body paydayDayBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, core.Invalidf("invalid JSON body"))
		return
	}

	if err := s.svc.Payday.SetOverride(r.Context(), user, r.PathValue("month"), body.Day); err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateViews(user)
	writeJSON(w, r, http.StatusNoContent, nil)
}

func (s *Server) handleClearPaydayOverride(w http.ResponseWriter, r *http.Request) {
	user := username(r)

	if err := s.svc.Payday.ClearOverride(r.Context(), user, r.PathValue("month")); err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateViews(user)
	writeJSON(w, r, http.StatusNoContent, nil)
}
