package api

import (
	"net/http"
	"strings"

	"github.com/whatsapp-digest/internal/models"
)

const defaultTemperature = 0.7

// handleGetSettings handles GET /api/settings. Returns {} before the first save.
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.store.GetSettings(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch settings")
		return
	}
	if settings == nil {
		respondJSON(w, http.StatusOK, struct{}{})
		return
	}
	respondJSON(w, http.StatusOK, settings)
}

// handleSaveSettings handles POST /api/settings
func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	settings := models.Settings{LLMTemperature: defaultTemperature}
	if err := decodeJSON(r, &settings); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	sanitizeSettings(&settings)

	if err := s.validate.StructPartial(settings,
		"AutoReportTime", "AutoReportPeriod", "LLMTemperature", "OpenAIBaseURL"); err != nil {
		respondErrorDetails(w, http.StatusBadRequest, "Invalid settings", err)
		return
	}

	// the heartbeat belongs to the scheduler, never to the form
	current, err := s.store.GetSettings(ctx)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to save settings")
		return
	}
	settings.SchedulerHeartbeat = nil
	if current != nil {
		settings.SchedulerHeartbeat = current.SchedulerHeartbeat
	}

	if err := s.store.SaveSettings(ctx, &settings); err != nil {
		respondErrorDetails(w, http.StatusInternalServerError, "Failed to save settings", err)
		return
	}

	respondJSON(w, http.StatusOK, settings)
}

// sanitizeSettings fills defaults for blank fields and turns blank optional
// references into nulls
func sanitizeSettings(settings *models.Settings) {
	settings.EvolutionAPIURL = strings.TrimSpace(settings.EvolutionAPIURL)
	settings.EvolutionInstanceName = strings.TrimSpace(settings.EvolutionInstanceName)
	settings.OpenAIBaseURL = strings.TrimSpace(settings.OpenAIBaseURL)

	if settings.AutoReportTime == "" {
		settings.AutoReportTime = models.DefaultAutoReportTime
	}
	if settings.AutoReportPeriod == "" {
		settings.AutoReportPeriod = models.PeriodYesterday
	}
	if settings.LLMModel == "" {
		settings.LLMModel = models.ModelGPT4oMini.String()
	}
	if settings.SystemPrompt != nil && strings.TrimSpace(*settings.SystemPrompt) == "" {
		settings.SystemPrompt = nil
	}
	if settings.DefaultPromptID != nil && *settings.DefaultPromptID == "" {
		settings.DefaultPromptID = nil
	}
}
