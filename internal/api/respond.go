package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/whatsapp-digest/internal/report"
	"github.com/whatsapp-digest/internal/storage"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
	maxBodyBytes     = 1 << 20
)

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

func respondErrorDetails(w http.ResponseWriter, status int, message string, err error) {
	respondJSON(w, status, errorResponse{Error: message, Details: err.Error()})
}

// decodeJSON reads a bounded JSON body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v interface{}) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	var deliveryErr *report.GatewayDeliveryError
	switch {
	case errors.Is(err, report.ErrInvalidOptions):
		return http.StatusBadRequest
	case errors.Is(err, report.ErrReportNotFound), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &deliveryErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// listLimit reads the ?limit query parameter
func listLimit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return defaultListLimit
	}
	if n > maxListLimit {
		return maxListLimit
	}
	return n
}
