package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"reliefline/pkg/types"

	"github.com/go-playground/validator/v10"
)

var (
	errMissingSubject  = errors.New("no subject claim in token")
	errMissingUsername = errors.New("no username claim in token")
)

type errorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (s *Service) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.WithError(err).Error("failed to encode response")
	}
}

func (s *Service) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, errorResponse{Error: message})
}

// respondCoreError maps the core error taxonomy onto HTTP statuses:
// permission problems are terminal for the caller, store failures are
// surfaced as retryable so the client can offer a manual retry.
func (s *Service) respondCoreError(w http.ResponseWriter, err error) {

	var validationErrs validator.ValidationErrors

	switch {
	case errors.Is(err, types.ErrReportNotFound),
		errors.Is(err, types.ErrVolunteerNotFound):
		s.respondError(w, http.StatusNotFound, err.Error())

	case errors.Is(err, types.ErrReportClaimed):
		s.respondError(w, http.StatusConflict, err.Error())

	case errors.Is(err, types.ErrRoleNotAllowed),
		errors.Is(err, types.ErrNotReportOwner),
		errors.Is(err, types.ErrNotAssigned):
		s.respondError(w, http.StatusForbidden, err.Error())

	case errors.Is(err, types.ErrMissingLocation):
		s.respondError(w, http.StatusBadRequest, err.Error())

	case errors.As(err, &validationErrs):
		s.respondError(w, http.StatusBadRequest, validationErrs.Error())

	default:
		s.logger.WithError(err).Error("store operation failed")
		s.respondJSON(w, http.StatusBadGateway, errorResponse{
			Error:     "operation failed, try again",
			Retryable: true,
		})
	}
}
