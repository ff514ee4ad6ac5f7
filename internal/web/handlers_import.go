package web

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/JonMunkholm/bodymetrics/internal/core"
	"github.com/JonMunkholm/bodymetrics/internal/store"
)

// multipartMemory is the in-memory part of ParseMultipartForm; larger
// uploads spill to temp files.
const multipartMemory = 32 << 20

var errFileTooLarge = errors.New("file too large")

// handleImportDevice merges raw scale exports posted as the "files" field.
func (s *Server) handleImportDevice(w http.ResponseWriter, r *http.Request) {
	if err := s.parseUpload(w, r); err != nil {
		s.respondErr(w, r, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	files := make([]core.DeviceFile, 0, len(headers))
	for _, fh := range headers {
		data, err := s.readUpload(fh)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		files = append(files, core.DeviceFile{Name: fh.Filename, Data: data})
	}

	result, err := s.service.ImportDeviceFiles(withRequestMetadata(r.Context(), r), files)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleImportRoundTrip re-imports one of our CSV exports from the "file"
// field. An optional "client" value assigns every parsed record.
func (s *Server) handleImportRoundTrip(w http.ResponseWriter, r *http.Request) {
	if err := s.parseUpload(w, r); err != nil {
		s.respondErr(w, r, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		s.respondErr(w, r, core.ErrNoFiles)
		return
	}
	fh := headers[0]

	clientID := strings.TrimSpace(r.FormValue("client"))
	if clientID != "" {
		if err := s.requireClient(r, clientID); err != nil {
			s.respondErr(w, r, err)
			return
		}
	}

	f, err := fh.Open()
	if err != nil {
		s.respondError(w, r, fmt.Errorf("open upload: %w", err), http.StatusBadRequest)
		return
	}
	defer f.Close()

	result, err := s.service.ImportRoundTrip(withRequestMetadata(r.Context(), r), fh.Filename, f, clientID)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// parseUpload bounds the request body and parses the multipart form.
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) error {
	limit := s.cfg.Import.MaxFileSize * int64(max(s.cfg.Import.MaxFiles, 1))
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) || strings.Contains(err.Error(), "request body too large") {
			return fmt.Errorf("%w: %v", errFileTooLarge, err)
		}
		if errors.Is(err, http.ErrNotMultipart) {
			return core.ErrNoFiles
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// readUpload reads one uploaded file, enforcing the per-file size cap.
func (s *Server) readUpload(fh *multipart.FileHeader) ([]byte, error) {
	if fh.Size > s.cfg.Import.MaxFileSize {
		return nil, fmt.Errorf("%w: %s is %d bytes", errFileTooLarge, fh.Filename, fh.Size)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	return data, nil
}

// requireClient returns store.ErrClientNotFound unless id is registered.
func (s *Server) requireClient(r *http.Request, id string) error {
	list, err := s.clients.Clients(r.Context())
	if err != nil {
		return err
	}
	for _, c := range list {
		if c.ID == id {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", store.ErrClientNotFound, id)
}
