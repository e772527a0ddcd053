package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ecarlucci/taskmate/internal/backend"
	"github.com/ecarlucci/taskmate/internal/task"
)

// The /v1/users and /v1/tasks routes expose the configured backend over
// REST, so a taskmate in remote mode (or any other client holding a bearer
// credential) can consume this instance as its task server.

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	token, ok := s.requireToken(w, r)
	if !ok {
		return
	}
	users, err := s.backend.Directory(r.Context(), token)
	if err != nil {
		s.respondBackendError(w, "directory", err)
		return
	}
	respondJSON(w, http.StatusOK, users)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	token, ok := s.requireToken(w, r)
	if !ok {
		return
	}
	rel := task.Relation(strings.TrimSpace(r.URL.Query().Get("relation")))
	if rel == "" {
		rel = task.RelationAssigned
	}
	list, err := s.backend.ListTasks(r.Context(), token, rel)
	if err != nil {
		s.respondBackendError(w, "list_tasks", err)
		return
	}
	if list == nil {
		list = []task.Task{}
	}
	respondJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	token, ok := s.requireToken(w, r)
	if !ok {
		return
	}
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		respondError(w, http.StatusBadRequest, "invalid_task_id", "missing task id")
		return
	}
	t, err := s.backend.GetTask(r.Context(), token, id)
	if err != nil {
		s.respondBackendError(w, "get_task", err)
		return
	}
	respondJSON(w, http.StatusOK, t)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	token, ok := s.requireToken(w, r)
	if !ok {
		return
	}
	var draft task.Draft
	if err := decodeJSON(r, &draft); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	t, err := s.backend.CreateTask(r.Context(), token, draft)
	if err != nil {
		s.respondBackendError(w, "create_task", err)
		return
	}
	respondJSON(w, http.StatusCreated, t)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	token, ok := s.requireToken(w, r)
	if !ok {
		return
	}
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		respondError(w, http.StatusBadRequest, "invalid_task_id", "missing task id")
		return
	}
	var draft task.Draft
	if err := decodeJSON(r, &draft); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	t, err := s.backend.UpdateTask(r.Context(), token, id, draft)
	if err != nil {
		s.respondBackendError(w, "update_task", err)
		return
	}
	respondJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	token, ok := s.requireToken(w, r)
	if !ok {
		return
	}
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		respondError(w, http.StatusBadRequest, "invalid_task_id", "missing task id")
		return
	}
	if err := s.backend.DeleteTask(r.Context(), token, id); err != nil {
		s.respondBackendError(w, "delete_task", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (s *Server) requireToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	token := bearerToken(r)
	if token == "" {
		respondError(w, http.StatusUnauthorized, "auth_required", "bearer credential is required")
		return "", false
	}
	return token, true
}

func (s *Server) respondBackendError(w http.ResponseWriter, operation string, err error) {
	s.metrics.BackendErrors.WithLabelValues(operation).Inc()

	if errors.Is(err, backend.ErrAuthRequired) {
		respondError(w, http.StatusUnauthorized, "auth_required", "bearer credential is required")
		return
	}
	var be *backend.Error
	if errors.As(err, &be) {
		status := be.Status
		if status == 0 {
			status = http.StatusBadGateway
		}
		code := be.Code
		if code == "" {
			code = "backend_error"
		}
		respondError(w, status, code, be.Error())
		return
	}
	respondError(w, http.StatusBadGateway, "backend_error", err.Error())
}
