package web

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/bodymetrics/internal/core"
)

// recordsResponse lists records with the current assignment of each.
type recordsResponse struct {
	Records     []core.Record     `json:"records"`
	Assignments map[string]string `json:"assignments"`
	Total       int               `json:"total"`
}

// handleListRecords returns the session's records, newest first. With
// ?unassigned=true only records without a client are listed.
func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	records := s.service.Records()

	if isTrue(r.URL.Query().Get("unassigned")) {
		var err error
		records, err = s.clients.Unassigned(r.Context(), records)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
	}

	assignments, err := s.clients.Assignments(r.Context())
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	if records == nil {
		records = []core.Record{}
	}
	writeJSON(w, http.StatusOK, recordsResponse{
		Records:     records,
		Assignments: assignments,
		Total:       len(records),
	})
}

// recordStatusResponse carries a record's classifications and its owner.
type recordStatusResponse struct {
	RecordID string                 `json:"recordId"`
	Client   string                 `json:"client,omitempty"`
	Statuses []core.IndicatorStatus `json:"statuses"`
}

// handleRecordStatus classifies the health indicators of one record. With
// ?indicator=fat|visceral|bmi|meta only that indicator is returned, and an
// optional ?value= is classified in place of the record's own value.
func (s *Server) handleRecordStatus(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	rec, ok := s.service.Record(id)
	if !ok {
		s.respondErr(w, r, fmt.Errorf("%w: %s", core.ErrRecordNotFound, id))
		return
	}

	q := r.URL.Query()
	var statuses []core.IndicatorStatus
	if tag := q.Get("indicator"); tag != "" {
		ind, err := core.ParseIndicator(tag)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		value, _ := rec.Value(ind.Metric())
		if raw := q.Get("value"); raw != "" {
			value, err = strconv.ParseFloat(raw, 64)
			if err != nil {
				s.respondErr(w, r, fmt.Errorf("%w: value %q", errBadRequest, raw))
				return
			}
		}
		statuses = []core.IndicatorStatus{core.ClassifyValue(ind, value, &rec)}
	} else {
		var err error
		if statuses, err = s.service.RecordStatus(id); err != nil {
			s.respondErr(w, r, err)
			return
		}
	}

	owner, _, err := s.clients.ClientForRecord(r.Context(), id)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, recordStatusResponse{
		RecordID: id,
		Client:   owner,
		Statuses: statuses,
	})
}

// handleListMetrics returns the chartable metrics grouped for display.
func (s *Server) handleListMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"metrics": s.service.ListCharts(),
		"groups":  s.service.ListChartsByGroup(),
	})
}

// handleHealth reports liveness. It is served without authentication.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusResponse summarizes the running process.
type statusResponse struct {
	Records     int                      `json:"records"`
	Clients     int                      `json:"clients"`
	Assignments int                      `json:"assignments"`
	Imports     core.ImportLimiterStatus `json:"imports"`
	Archive     bool                     `json:"archive"`
}

// handleStatus reports record, client and import counters.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	list, err := s.clients.Clients(r.Context())
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	assigned, err := s.clients.AssignmentCount(r.Context())
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Records:     s.service.RecordCount(),
		Clients:     len(list),
		Assignments: assigned,
		Imports:     s.service.Limiter().Status(),
		Archive:     s.archive != nil,
	})
}
