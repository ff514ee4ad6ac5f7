package web

import (
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/JonMunkholm/bodymetrics/internal/logging"
	"github.com/JonMunkholm/bodymetrics/internal/store"
)

// maxBackupSize caps uploaded backup documents.
const maxBackupSize = 10 << 20

// handleExportBackup downloads the client database as a dated JSON file.
func (s *Server) handleExportBackup(w http.ResponseWriter, r *http.Request) {
	data, err := s.clients.ExportBackup(r.Context())
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	filename := store.BackupFilename(s.now())
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// handleImportBackup replaces the client database with the posted document.
// The body is either raw JSON or a multipart form with a "file" field.
func (s *Server) handleImportBackup(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBackupSize)

	var src io.Reader = r.Body
	if mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mediaType == "multipart/form-data" {
		f, _, err := r.FormFile("file")
		if err != nil {
			s.respondErr(w, r, fmt.Errorf("%w: %v", errInvalidBackup, err))
			return
		}
		defer f.Close()
		src = f
	}

	data, err := io.ReadAll(src)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	ok, err := s.clients.ImportBackup(r.Context(), data)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	if !ok {
		s.respondErr(w, r, errInvalidBackup)
		return
	}

	logging.FromContext(r.Context()).Info("backup restored", "bytes", len(data))
	writeJSON(w, http.StatusOK, map[string]bool{"imported": true})
}

// handleArchiveBackup pushes a snapshot to the remote archive now.
func (s *Server) handleArchiveBackup(w http.ResponseWriter, r *http.Request) {
	key, err := s.clients.ArchiveBackup(r.Context(), s.archive)
	if err != nil {
		s.respondErr(w, r, fmt.Errorf("archive backup: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key})
}

// handleDeleteAll drops the session's records and the client database.
func (s *Server) handleDeleteAll(w http.ResponseWriter, r *http.Request) {
	if err := s.clients.DeleteAll(r.Context()); err != nil {
		s.respondErr(w, r, err)
		return
	}
	cleared := s.service.ClearRecords()

	logging.FromContext(r.Context()).Warn("all data deleted", "records", cleared)
	writeJSON(w, http.StatusOK, map[string]int{"records": cleared})
}
