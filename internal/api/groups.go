package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/whatsapp-digest/internal/models"
	"github.com/whatsapp-digest/internal/storage"
)

type createGroupRequest struct {
	Name                string `json:"name" validate:"required"`
	JID                 string `json:"jid" validate:"required"`
	IncludeInAutoReport bool   `json:"include_in_auto_report"`
}

type deleteGroupsRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

// handleListGroups handles GET /api/groups
func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.store.ListGroups(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch groups")
		return
	}
	respondJSON(w, http.StatusOK, groups)
}

// handleCreateGroup handles POST /api/groups
func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "Name and JID are required")
		return
	}

	group := &models.Group{
		Name:                req.Name,
		JID:                 req.JID,
		IncludeInAutoReport: req.IncludeInAutoReport,
	}
	if err := s.store.CreateGroup(r.Context(), group); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create group")
		return
	}

	respondJSON(w, http.StatusCreated, group)
}

// handleUpdateGroup handles PUT /api/groups/{id}
func (s *Server) handleUpdateGroup(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "id")

	var patch models.GroupPatch
	if err := decodeJSON(r, &patch); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.validate.Struct(patch); err != nil {
		respondErrorDetails(w, http.StatusBadRequest, "Invalid group update", err)
		return
	}

	group, err := s.store.UpdateGroup(r.Context(), groupID, patch)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Group not found")
			return
		}
		respondErrorDetails(w, http.StatusInternalServerError, "Failed to update group", err)
		return
	}

	respondJSON(w, http.StatusOK, group)
}

// handleDeleteGroup handles DELETE /api/groups/{id}
func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "id")

	groups, _, err := s.store.DeleteGroups(r.Context(), []string{groupID})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to delete group")
		return
	}
	if groups == 0 {
		respondError(w, http.StatusNotFound, "Group not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleDeleteGroups handles DELETE /api/groups with a list of ids
func (s *Server) handleDeleteGroups(w http.ResponseWriter, r *http.Request) {
	var req deleteGroupsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "IDs array is required")
		return
	}

	groups, reports, err := s.store.DeleteGroups(r.Context(), req.IDs)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to delete groups")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"deletedGroups":  groups,
		"deletedReports": reports,
	})
}

// handleRemoteGroups handles GET /api/groups/remote
func (s *Server) handleRemoteGroups(w http.ResponseWriter, r *http.Request) {
	settings, err := s.store.GetSettings(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load settings")
		return
	}
	if settings == nil {
		respondError(w, http.StatusBadRequest, "No settings")
		return
	}

	gw, err := s.newGateway(settings)
	if err != nil {
		respondErrorDetails(w, http.StatusBadRequest, "Invalid gateway settings", err)
		return
	}

	groups, err := gw.FetchAllGroups(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to fetch remote groups")
		respondError(w, http.StatusBadGateway, "Failed to fetch remote groups")
		return
	}

	respondJSON(w, http.StatusOK, groups)
}
