package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/set-night/turbostart/internal/analytics"
	"github.com/set-night/turbostart/internal/domain"
)

type upsertUserRequest struct {
	TelegramID   int64  `json:"telegramId"`
	Username     string `json:"username"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	ReferralCode string `json:"referralCode"`
}

func (s *Server) handleUpsertUser(w http.ResponseWriter, r *http.Request) {
	var req upsertUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	profile := domain.Profile{Username: req.Username, FirstName: req.FirstName, LastName: req.LastName}
	acc, created, err := s.Accounts.GetOrCreate(r.Context(), req.TelegramID, profile, req.ReferralCode)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if created {
		s.Sink.Track(r.Context(), analytics.Event{
			Name:       analytics.EventAccountCreated,
			ExternalID: acc.ExternalID,
			Properties: map[string]any{"referred": acc.ReferredByID != nil},
		})
		if s.Notifier != nil {
			go s.Notifier.LogRegistration(acc.ExternalID, acc.DisplayName(), acc.Username, acc.ReferredByID != nil)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": acc, "created": created})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	telegramID, err := pathInt(chi.URLParam(r, "telegramId"), "telegramId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	acc, err := s.Accounts.GetByExternalID(r.Context(), telegramID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": acc})
}

func (s *Server) handleUserReferrals(w http.ResponseWriter, r *http.Request) {
	telegramID, err := pathInt(chi.URLParam(r, "telegramId"), "telegramId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := s.Referrals.Summary(r.Context(), telegramID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "referrals": summary})
}
