package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/dataproc/internal/core"
	"github.com/JonMunkholm/dataproc/internal/logging"
	"github.com/JonMunkholm/dataproc/internal/web/templates"
)

// multipartMemory is the in-memory threshold for parsed uploads; larger
// parts spill to temporary files.
const multipartMemory = 32 << 20

// textRequest is the JSON body accepted by the text ingestion endpoint.
type textRequest struct {
	Text string `json:"text"`
}

// handleIndex renders the application page with the current batch.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	b, _ := s.service.Current()
	page := templates.Page(templates.PageData{
		Batch: b,
		Mode:  r.URL.Query().Get("mode"),
		Dev:   s.cfg.Security.IsDev(),
	})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := page.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render page", "error", err)
	}
}

// handleLive reports that the process is up.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": s.service.Status(),
	})
}

// handleIngestText tokenizes the submitted text into a new batch. The text
// comes from a JSON body or the "text" form field.
func (s *Server) handleIngestText(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)

	var text string
	if isJSONBody(r) {
		var req textRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, r, bodyError(err), 0)
			return
		}
		text = req.Text
	} else {
		if err := r.ParseForm(); err != nil {
			s.respondError(w, r, bodyError(err), 0)
			return
		}
		text = r.PostForm.Get("text")
	}

	b, err := s.service.ProcessTextBatch(r.Context(), text)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	s.respondBatch(w, r, b, http.StatusCreated)
}

// handleIngestFile decodes an uploaded spreadsheet into a new batch.
func (s *Server) handleIngestFile(w http.ResponseWriter, r *http.Request) {
	// Leave room for the multipart envelope around a maximum-size file.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize+1<<20)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		s.respondError(w, r, bodyError(err), 0)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, fmt.Errorf("no file provided: %w", err), http.StatusBadRequest)
		return
	}
	defer file.Close()

	if _, err := core.CheckExtension(header.Filename); err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("read upload: %w", err), http.StatusInternalServerError)
		return
	}

	b, err := s.service.ProcessFileBatch(r.Context(), header.Filename, data)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	s.respondBatch(w, r, b, http.StatusCreated)
}

// handleBatch returns the current batch as JSON.
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	b, ok := s.service.Current()
	if !ok {
		s.respondError(w, r, core.ErrNoBatch, http.StatusNotFound)
		return
	}
	writeJSON(w, r, http.StatusOK, b)
}

// handleBatchView renders the preview fragment. An empty session renders
// the empty state rather than an error.
func (s *Server) handleBatchView(w http.ResponseWriter, r *http.Request) {
	b, _ := s.service.Current()
	s.renderPreview(w, r, b, http.StatusOK)
}

// handleReset clears the current batch.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.service.Reset()
	if isHTMX(r) {
		s.renderPreview(w, r, nil, http.StatusOK)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleExport serializes the current batch and sends it as a download.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	art, err := s.service.ExportCurrent(r.Context())
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	w.Header().Set("Content-Type", art.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": art.Name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(art.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(art.Data); err != nil {
		logging.FromContext(r.Context()).Warn("export write failed", "name", art.Name, "error", err)
	}
}

// respondBatch answers an ingestion: the preview fragment for HTMX, the
// batch JSON otherwise.
func (s *Server) respondBatch(w http.ResponseWriter, r *http.Request, b *core.Batch, status int) {
	if isHTMX(r) {
		s.renderPreview(w, r, b, status)
		return
	}
	writeJSON(w, r, status, b)
}

func (s *Server) renderPreview(w http.ResponseWriter, r *http.Request, b *core.Batch, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.Preview(b, r.URL.Query().Get("mode")).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render preview", "error", err)
	}
}

func isJSONBody(r *http.Request) bool {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return ct == "application/json"
}

// errInvalidRequest marks malformed request bodies.
var errInvalidRequest = errors.New("invalid request")

// bodyError classifies a request body failure so MapError can name it.
func bodyError(err error) error {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return fmt.Errorf("request body too large: %w", err)
	}
	return fmt.Errorf("%w: %w", errInvalidRequest, err)
}
