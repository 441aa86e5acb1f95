package server

import (
	"encoding/json"
	"net/http"

	"reliefline/internal/reports"
	"reliefline/internal/store"
	"reliefline/pkg/types"

	"github.com/alexedwards/flow"
)

func (s *Service) handleCreateReport(w http.ResponseWriter, r *http.Request) {

	identity, err := s.identityFromContext(r.Context())
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "missing credentials")
		return
	}

	var input reports.CreateReportInput
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	report, err := s.core.CreateReport(r.Context(), identity, input)
	if err != nil {
		s.respondCoreError(w, err)
		return
	}

	reportsCreated.WithLabelValues(report.DisasterType).Inc()
	s.respondJSON(w, http.StatusCreated, report)
}

type reportFilterParams struct {
	Type string `form:"type"`
	Open bool   `form:"open"`
}

func (s *Service) handleListReports(w http.ResponseWriter, r *http.Request) {

	identity, err := s.identityFromContext(r.Context())
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "missing credentials")
		return
	}

	var params reportFilterParams
	if err := decoder.Decode(&params, r.URL.Query()); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid query parameters")
		return
	}

	views, err := s.core.VolunteerView(r.Context(), identity, store.ReportFilter{
		DisasterType: params.Type,
		OpenOnly:     params.Open,
	})
	if err != nil {
		s.respondCoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, views)
}

func (s *Service) handleMyReports(w http.ResponseWriter, r *http.Request) {

	identity, err := s.identityFromContext(r.Context())
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "missing credentials")
		return
	}

	views, err := s.core.ReporterView(r.Context(), identity)
	if err != nil {
		s.respondCoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, views)
}

func (s *Service) handleGetReport(w http.ResponseWriter, r *http.Request) {

	identity, err := s.identityFromContext(r.Context())
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "missing credentials")
		return
	}

	view, err := s.core.Report(r.Context(), identity, flow.Param(r.Context(), "id"))
	if err != nil {
		s.respondCoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, view)
}

func (s *Service) handleRespond(w http.ResponseWriter, r *http.Request) {

	identity, err := s.identityFromContext(r.Context())
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "missing credentials")
		return
	}

	var coords *types.Coordinates
	if r.Body != nil && r.ContentLength != 0 {
		coords = new(types.Coordinates)
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(coords); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	reportID := flow.Param(r.Context(), "id")
	if err := s.core.Respond(r.Context(), identity, reportID, coords); err != nil {
		s.respondCoreError(w, err)
		return
	}

	reportClaims.Inc()
	s.respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Service) handleClose(w http.ResponseWriter, r *http.Request) {

	identity, err := s.identityFromContext(r.Context())
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "missing credentials")
		return
	}

	if err := s.core.Close(r.Context(), identity, flow.Param(r.Context(), "id")); err != nil {
		s.respondCoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Service) handleComplete(w http.ResponseWriter, r *http.Request) {

	identity, err := s.identityFromContext(r.Context())
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "missing credentials")
		return
	}

	if err := s.core.Complete(r.Context(), identity, flow.Param(r.Context(), "id")); err != nil {
		s.respondCoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Service) handleUnreadCount(w http.ResponseWriter, r *http.Request) {

	identity, err := s.identityFromContext(r.Context())
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "missing credentials")
		return
	}

	count, err := s.core.UnreadCount(r.Context(), identity)
	if err != nil {
		s.respondCoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]int{"count": count})
}

func (s *Service) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {

	identity, err := s.identityFromContext(r.Context())
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "missing credentials")
		return
	}

	if err := s.core.MarkAllRead(r.Context(), identity); err != nil {
		s.respondCoreError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
