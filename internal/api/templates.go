package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/whatsapp-digest/internal/models"
	"github.com/whatsapp-digest/internal/storage"
)

type templateRequest struct {
	Name    string `json:"name" validate:"required"`
	Content string `json:"content" validate:"required"`
}

// handleListTemplates handles GET /api/message-templates
func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.store.ListTemplates(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch message templates")
		return
	}
	respondJSON(w, http.StatusOK, templates)
}

// handleCreateTemplate handles POST /api/message-templates
func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := decodeJSON(r, &req); err != nil || s.validate.Struct(req) != nil {
		respondError(w, http.StatusBadRequest, "Name and content are required")
		return
	}

	template := &models.MessageTemplate{Name: req.Name, Content: req.Content}
	if err := s.store.CreateTemplate(r.Context(), template); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create message template")
		return
	}

	respondJSON(w, http.StatusCreated, template)
}

// handleUpdateTemplate handles PUT /api/message-templates/{id}
func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	templateID := chi.URLParam(r, "id")

	var req templateRequest
	if err := decodeJSON(r, &req); err != nil || s.validate.Struct(req) != nil {
		respondError(w, http.StatusBadRequest, "Name and content are required")
		return
	}

	template, err := s.store.UpdateTemplate(r.Context(), templateID, req.Name, req.Content)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Message template not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to update message template")
		return
	}

	respondJSON(w, http.StatusOK, template)
}

// handleDeleteTemplate handles DELETE /api/message-templates/{id}
func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteTemplate(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Message template not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to delete message template")
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
