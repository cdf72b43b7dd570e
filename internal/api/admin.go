package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Admin.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "stats": stats})
}

func (s *Server) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	page, err := s.Admin.Users(r.Context(), queryInt(r, "page"), queryInt(r, "limit"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "users": page.Items, "pagination": paginationOf(page)})
}

func (s *Server) handleAdminTasks(w http.ResponseWriter, r *http.Request) {
	page, err := s.Admin.Tasks(r.Context(), queryInt(r, "page"), queryInt(r, "limit"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "tasks": page.Items, "pagination": paginationOf(page)})
}

func (s *Server) handleAdminUserActivity(w http.ResponseWriter, r *http.Request) {
	telegramID, err := pathInt(chi.URLParam(r, "telegramId"), "telegramId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	entries, err := s.Admin.Activity(r.Context(), telegramID, queryInt(r, "limit"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "activity": entries})
}
