package web

import (
	"bytes"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/JonMunkholm/bodymetrics/internal/core"
	"github.com/JonMunkholm/bodymetrics/internal/logging"
	"github.com/JonMunkholm/bodymetrics/internal/store"
	"github.com/go-chi/chi/v5"
)

type createClientRequest struct {
	ID    string `json:"id"`
	Alias string `json:"alias"`
}

// updateClientRequest changes whichever fields are present.
type updateClientRequest struct {
	Alias *string `json:"alias"`
	Notes *string `json:"notes"`
}

type assignRequest struct {
	RecordIDs []string `json:"recordIds"`
	ClientID  string   `json:"clientId"`
}

// handleListClients returns every client in creation order.
func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	list, err := s.clients.Clients(r.Context())
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	if list == nil {
		list = []store.Client{}
	}
	writeJSON(w, http.StatusOK, list)
}

// handleCreateClient registers a client. Duplicate IDs are rejected.
func (s *Server) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	var req createClientRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}

	id := strings.TrimSpace(req.ID)
	if id == "" {
		s.respondErr(w, r, fmt.Errorf("%w: id is required", errBadRequest))
		return
	}
	alias := strings.TrimSpace(req.Alias)

	added, err := s.clients.AddClient(r.Context(), id, alias)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	if !added {
		s.respondErr(w, r, fmt.Errorf("%w: %s", store.ErrClientExists, id))
		return
	}

	if alias == "" {
		alias = id
	}
	logging.FromContext(r.Context()).Info("client created", "client", id)
	writeJSON(w, http.StatusCreated, createClientRequest{ID: id, Alias: alias})
}

// handleClientCounts returns the number of assigned records per client.
func (s *Server) handleClientCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := s.clients.ClientCounts(r.Context())
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// handleUpdateClient renames a client and/or replaces its notes.
func (s *Server) handleUpdateClient(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	var req updateClientRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}
	if req.Alias == nil && req.Notes == nil {
		s.respondErr(w, r, fmt.Errorf("%w: alias or notes required", errBadRequest))
		return
	}

	if req.Alias != nil {
		alias := strings.TrimSpace(*req.Alias)
		if alias == "" {
			s.respondErr(w, r, fmt.Errorf("%w: alias must not be empty", errBadRequest))
			return
		}
		ok, err := s.clients.RenameClient(r.Context(), id, alias)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		if !ok {
			s.respondErr(w, r, fmt.Errorf("%w: %s", store.ErrClientNotFound, id))
			return
		}
	}

	if req.Notes != nil {
		if err := s.clients.UpdateNotes(r.Context(), id, *req.Notes); err != nil {
			s.respondErr(w, r, err)
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteClient removes a client and its assignments.
func (s *Server) handleDeleteClient(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if err := s.requireClient(r, id); err != nil {
		s.respondErr(w, r, err)
		return
	}
	if err := s.clients.DeleteClient(r.Context(), id); err != nil {
		s.respondErr(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("client deleted", "client", id)
	w.WriteHeader(http.StatusNoContent)
}

// clientHistory resolves a client's records filtered by the request's
// date range. Write errors have already been sent when ok is false.
func (s *Server) clientHistory(w http.ResponseWriter, r *http.Request) (string, []core.Record, bool) {
	id := pathParam(r, "id")
	if err := s.requireClient(r, id); err != nil {
		s.respondErr(w, r, err)
		return "", nil, false
	}

	rng, err := parseDateRange(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return "", nil, false
	}

	history, err := s.clients.History(r.Context(), id, s.service.Records())
	if err != nil {
		s.respondErr(w, r, err)
		return "", nil, false
	}
	return id, store.FilterByDateRange(history, rng, s.now()), true
}

// handleClientHistory returns a client's records, newest first.
func (s *Server) handleClientHistory(w http.ResponseWriter, r *http.Request) {
	_, history, ok := s.clientHistory(w, r)
	if !ok {
		return
	}
	if history == nil {
		history = []core.Record{}
	}
	writeJSON(w, http.StatusOK, history)
}

// handleClientChart plots one metric over a client's history. The body is
// null when the history is empty.
func (s *Server) handleClientChart(w http.ResponseWriter, r *http.Request) {
	metric := core.Metric(r.URL.Query().Get("metric"))
	if metric == "" {
		metric = core.MetricWeight
	}

	_, history, ok := s.clientHistory(w, r)
	if !ok {
		return
	}

	chart, err := core.ComputeChart(history, metric)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chart)
}

// handleClientExport downloads a client's history as csv, json or xml.
func (s *Server) handleClientExport(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	switch format {
	case core.FormatCSV, core.FormatJSON, core.FormatXML:
	default:
		s.respondError(w, r, fmt.Errorf("unsupported export format %q", format), http.StatusBadRequest)
		return
	}

	id, history, ok := s.clientHistory(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := core.Export(&buf, format, history, exportLabels(r)); err != nil {
		s.respondErr(w, r, err)
		return
	}

	filename := fmt.Sprintf("%s_%s.%s", id, s.now().Format("2006-01-02"), format)
	w.Header().Set("Content-Type", core.ContentType(format))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// handleAssign links records to a client.
func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}
	if len(req.RecordIDs) == 0 || req.ClientID == "" {
		s.respondErr(w, r, fmt.Errorf("%w: recordIds and clientId are required", errBadRequest))
		return
	}
	if err := s.requireClient(r, req.ClientID); err != nil {
		s.respondErr(w, r, err)
		return
	}

	if err := s.clients.AssignRecords(r.Context(), req.RecordIDs, req.ClientID); err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"assigned": len(req.RecordIDs)})
}

// handleUnassign moves a record back to the inbox.
func (s *Server) handleUnassign(w http.ResponseWriter, r *http.Request) {
	if err := s.clients.UnassignRecord(r.Context(), pathParam(r, "recordId")); err != nil {
		s.respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
