package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ecarlucci/taskmate/internal/notify"
)

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	token, ok := s.requireToken(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"notifications": s.hub.List(token),
		"unread_count":  s.hub.UnreadCount(token),
	})
}

func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	token, ok := s.requireToken(w, r)
	if !ok {
		return
	}
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if err := s.hub.MarkRead(token, id); err != nil {
		if errors.Is(err, notify.ErrNotFound) {
			respondError(w, http.StatusNotFound, "notification_not_found", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "notification_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"read":         true,
		"unread_count": s.hub.UnreadCount(token),
	})
}

func (s *Server) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	token, ok := s.requireToken(w, r)
	if !ok {
		return
	}
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if err := s.hub.Delete(token, id); err != nil {
		if errors.Is(err, notify.ErrNotFound) {
			respondError(w, http.StatusNotFound, "notification_not_found", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "notification_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"deleted":      true,
		"unread_count": s.hub.UnreadCount(token),
	})
}
