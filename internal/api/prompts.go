package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/whatsapp-digest/internal/models"
	"github.com/whatsapp-digest/internal/storage"
)

type promptRequest struct {
	Name    string `json:"name" validate:"required"`
	Content string `json:"content" validate:"required"`
}

// handleListPrompts handles GET /api/prompts. The default prompt is seeded on first use.
func (s *Server) handleListPrompts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch prompts")
		return
	}
	if _, err := s.processor.EnsureDefaultPrompt(ctx, settings); err != nil {
		s.logger.Error().Err(err).Msg("Failed to seed default prompt")
		respondError(w, http.StatusInternalServerError, "Failed to fetch prompts")
		return
	}

	prompts, err := s.store.ListPrompts(ctx)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch prompts")
		return
	}
	respondJSON(w, http.StatusOK, prompts)
}

// handleCreatePrompt handles POST /api/prompts
func (s *Server) handleCreatePrompt(w http.ResponseWriter, r *http.Request) {
	var req promptRequest
	if err := decodeJSON(r, &req); err != nil || s.validate.Struct(req) != nil {
		respondError(w, http.StatusBadRequest, "Missing fields")
		return
	}

	prompt := &models.Prompt{Name: req.Name, Content: req.Content}
	if err := s.store.CreatePrompt(r.Context(), prompt); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create prompt")
		return
	}

	respondJSON(w, http.StatusCreated, prompt)
}

// handleUpdatePrompt handles PUT /api/prompts/{id}
func (s *Server) handleUpdatePrompt(w http.ResponseWriter, r *http.Request) {
	promptID := chi.URLParam(r, "id")

	var req promptRequest
	if err := decodeJSON(r, &req); err != nil || s.validate.Struct(req) != nil {
		respondError(w, http.StatusBadRequest, "Missing fields")
		return
	}

	prompt, err := s.store.UpdatePrompt(r.Context(), promptID, req.Name, req.Content)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Prompt not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to update prompt")
		return
	}

	respondJSON(w, http.StatusOK, prompt)
}

// handleDeletePrompt handles DELETE /api/prompts/{id}
func (s *Server) handleDeletePrompt(w http.ResponseWriter, r *http.Request) {
	promptID := chi.URLParam(r, "id")

	if err := s.store.DeletePrompt(r.Context(), promptID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Prompt not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to delete prompt")
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
