package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/whatsapp-digest/internal/models"
	"github.com/whatsapp-digest/internal/report"
)

// handleProcess handles POST /api/process
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var opts models.ProcessOptions
	if err := decodeJSON(r, &opts); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.logger.Info().
		Strs("group_ids", opts.GroupIDs).
		Str("start_date", opts.StartDate).
		Str("end_date", opts.EndDate).
		Msg("Processing request")

	result, err := s.processor.Process(r.Context(), opts)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to process report")

		// client went away, nobody to answer
		if r.Context().Err() != nil {
			return
		}
		respondErrorDetails(w, statusFor(err), "Failed to process report", err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// handleDashboardStats handles GET /api/stats/dashboard
func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.DashboardStats(r.Context())
	if err != nil {
		respondErrorDetails(w, http.StatusInternalServerError, "Failed to fetch stats", err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// handleListReports handles GET /api/reports
func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := s.store.ListReports(r.Context(), listLimit(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch reports")
		return
	}
	respondJSON(w, http.StatusOK, reports)
}

// handleGetReport handles GET /api/reports/{id}
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	reportID := chi.URLParam(r, "id")

	rep, err := s.store.GetReport(r.Context(), reportID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch report")
		return
	}
	if rep == nil {
		respondError(w, http.StatusNotFound, "Report not found")
		return
	}
	respondJSON(w, http.StatusOK, rep)
}

// handleResendReport handles POST /api/reports/{id}/resend
func (s *Server) handleResendReport(w http.ResponseWriter, r *http.Request) {
	reportID := chi.URLParam(r, "id")

	rep, err := s.processor.Resend(r.Context(), reportID)
	if err != nil {
		s.logger.Error().Err(err).Str("report_id", reportID).Msg("Failed to resend report")
		if errors.Is(err, report.ErrReportNotFound) {
			respondError(w, http.StatusNotFound, "Report not found")
			return
		}
		respondErrorDetails(w, statusFor(err), "Failed to resend report", err)
		return
	}

	respondJSON(w, http.StatusOK, rep)
}
