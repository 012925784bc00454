package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/whatsapp-digest/internal/models"
)

const (
	sendStatusSuccess = "SUCCESS"
	sendStatusError   = "ERROR"
)

type sendMessageRequest struct {
	GroupIDs []string `json:"groupIds"`
	Message  string   `json:"message"`
}

type sendResult struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type sendMessageResponse struct {
	Status       string       `json:"status"`
	SuccessCount int          `json:"successCount"`
	FailCount    int          `json:"failCount"`
	Results      []sendResult `json:"results"`
}

type rewriteRequest struct {
	Text     string `json:"text" validate:"required"`
	PromptID string `json:"promptId" validate:"required"`
}

// handleSendMessage handles POST /api/messages/send. The message goes to each
// group's own chat, never to its report delivery chat.
func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req sendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.GroupIDs) == 0 {
		respondError(w, http.StatusBadRequest, "Nenhum grupo selecionado")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondError(w, http.StatusBadRequest, "Mensagem vazia")
		return
	}

	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		respondErrorDetails(w, http.StatusInternalServerError, "Internal Server Error", err)
		return
	}
	if settings == nil {
		respondError(w, http.StatusInternalServerError, "Configurações não encontradas")
		return
	}

	gw, err := s.newGateway(settings)
	if err != nil {
		respondErrorDetails(w, http.StatusInternalServerError, "Internal Server Error", err)
		return
	}

	groups, err := s.store.ListTargetGroups(ctx, req.GroupIDs)
	if err != nil {
		respondErrorDetails(w, http.StatusInternalServerError, "Internal Server Error", err)
		return
	}
	if len(groups) == 0 {
		respondError(w, http.StatusNotFound, "Nenhum grupo válido encontrado")
		return
	}

	resp := sendMessageResponse{Status: "COMPLETED", Results: make([]sendResult, 0, len(groups))}
	names := make([]string, 0, len(groups))

	for _, group := range groups {
		names = append(names, group.Name)

		if err := gw.SendMessage(ctx, group.JID, req.Message); err != nil {
			s.logger.Error().Err(err).Str("group", group.Name).Msg("Failed to send broadcast")
			resp.Results = append(resp.Results, sendResult{Name: group.Name, Status: sendStatusError, Error: err.Error()})
			resp.FailCount++
			continue
		}
		resp.Results = append(resp.Results, sendResult{Name: group.Name, Status: sendStatusSuccess})
		resp.SuccessCount++
	}

	recipients, err := json.Marshal(names)
	if err != nil {
		respondErrorDetails(w, http.StatusInternalServerError, "Internal Server Error", err)
		return
	}

	broadcast := &models.Broadcast{
		Message:      req.Message,
		Recipients:   string(recipients),
		SuccessCount: resp.SuccessCount,
		FailCount:    resp.FailCount,
	}
	if err := s.store.CreateBroadcast(ctx, broadcast); err != nil {
		// messages are already out, the history row is best effort
		s.logger.Error().Err(err).Msg("Failed to record broadcast")
	}

	s.logger.Info().
		Int("success", resp.SuccessCount).
		Int("failed", resp.FailCount).
		Msg("Broadcast completed")

	respondJSON(w, http.StatusOK, resp)
}

// handleListBroadcasts handles GET /api/messages/broadcasts
func (s *Server) handleListBroadcasts(w http.ResponseWriter, r *http.Request) {
	broadcasts, err := s.store.ListBroadcasts(r.Context(), listLimit(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch broadcasts")
		return
	}
	respondJSON(w, http.StatusOK, broadcasts)
}

// handleGetBroadcast handles GET /api/messages/{id}
func (s *Server) handleGetBroadcast(w http.ResponseWriter, r *http.Request) {
	broadcast, err := s.store.GetBroadcast(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Erro interno")
		return
	}
	if broadcast == nil {
		respondError(w, http.StatusNotFound, "Mensagem não encontrada")
		return
	}
	respondJSON(w, http.StatusOK, broadcast)
}

// handleRewrite handles POST /api/messages/rewrite
func (s *Server) handleRewrite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req rewriteRequest
	if err := decodeJSON(r, &req); err != nil || s.validate.Struct(req) != nil {
		respondError(w, http.StatusBadRequest, "Texto e Prompt são obrigatórios")
		return
	}

	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Falha ao processar solicitação")
		return
	}
	if settings == nil {
		respondError(w, http.StatusInternalServerError, "Configurações não encontradas")
		return
	}

	prompt, err := s.store.GetPrompt(ctx, req.PromptID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Falha ao processar solicitação")
		return
	}
	if prompt == nil {
		respondError(w, http.StatusNotFound, "Prompt não encontrado")
		return
	}

	rewriter, err := s.newRewriter(settings)
	if err != nil {
		respondErrorDetails(w, http.StatusInternalServerError, "Chave de API não configurada", err)
		return
	}
	defer rewriter.Close()

	rewritten, err := rewriter.Rewrite(ctx, req.Text, prompt.Content)
	if err != nil {
		s.logger.Error().Err(err).Str("prompt_id", prompt.ID).Msg("Rewrite failed")
		respondError(w, http.StatusInternalServerError, "Falha ao processar solicitação")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"rewritten": rewritten})
}
