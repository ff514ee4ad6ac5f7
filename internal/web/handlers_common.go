package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/JonMunkholm/bodymetrics/internal/store"
	"github.com/go-chi/chi/v5"
)

// maxJSONBody caps JSON request bodies other than backups.
const maxJSONBody = 1 << 20

// labelPrefix marks export query parameters that carry CSV header labels.
const labelPrefix = "label."

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if err == io.EOF {
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// pathParam returns a decoded URL parameter. Record IDs contain slashes,
// so clients send them escaped and chi matches on the raw path.
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

// parseDateRange reads range, start and end from the query string.
func parseDateRange(r *http.Request) (store.DateRange, error) {
	q := r.URL.Query()
	return store.ParseDateRange(q.Get("range"), q.Get("start"), q.Get("end"))
}

// exportLabels collects label.<key>=<text> query parameters.
func exportLabels(r *http.Request) map[string]string {
	labels := make(map[string]string)
	for key, values := range r.URL.Query() {
		col, ok := strings.CutPrefix(key, labelPrefix)
		if !ok || col == "" || len(values) == 0 {
			continue
		}
		labels[col] = values[0]
	}
	return labels
}

// isTrue parses a boolean query flag.
func isTrue(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		return true
	}
	return false
}
