package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/set-night/turbostart/internal/analytics"
	"github.com/set-night/turbostart/internal/domain"
	"github.com/set-night/turbostart/internal/service"
)

type createTaskRequest struct {
	TelegramID int64  `json:"telegramId"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	IsPublic   bool   `json:"isPublic"`
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	task, err := s.Artifacts.Create(r.Context(), req.TelegramID, service.CreateArtifactInput{
		Title:    req.Title,
		Content:  req.Content,
		IsPublic: req.IsPublic,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientFunds) {
			s.Sink.Track(r.Context(), analytics.Event{
				Name:       analytics.EventArtifactRejected,
				ExternalID: req.TelegramID,
				Properties: map[string]any{"reason": string(domain.KindInsufficientCredits)},
			})
		}
		writeError(w, r, err)
		return
	}

	s.Sink.Track(r.Context(), analytics.Event{
		Name:       analytics.EventArtifactCreated,
		ExternalID: req.TelegramID,
		Properties: map[string]any{"taskId": task.ID, "cost": s.Artifacts.Cost()},
	})
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "task": task})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(chi.URLParam(r, "id"), "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	task, err := s.Artifacts.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "task": task})
}

func (s *Server) handleUserTasks(w http.ResponseWriter, r *http.Request) {
	telegramID, err := pathInt(chi.URLParam(r, "telegramId"), "telegramId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := s.Artifacts.ListByExternalID(r.Context(), telegramID, queryInt(r, "page"), queryInt(r, "limit"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"tasks":      page.Items,
		"pagination": paginationOf(page),
	})
}

func (s *Server) handleViewShared(w http.ResponseWriter, r *http.Request) {
	task, err := s.Artifacts.ViewShared(r.Context(), chi.URLParam(r, "shareId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "task": task})
}

func paginationOf[T any](p *service.Page[T]) pagination {
	return pagination{Page: p.Page, Limit: p.Limit, Total: p.Total, TotalPages: p.Pages()}
}
