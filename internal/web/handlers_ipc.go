package web

import (
	"encoding/json"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// processTextRequest is the processText message body. Text is a pointer
// so a missing field is distinguishable from an empty string.
type processTextRequest struct {
	Text *string `json:"text"`
}

// Validate implements validation.Validatable.
func (p processTextRequest) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Text, validation.NotNil),
	)
}

type processTextResponse struct {
	Result string `json:"result"`
}

// handleProcessText runs the external text processor. The route sits
// behind ValidateOrigin, so only the application's own UI reaches it.
func (s *Server) handleProcessText(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)

	var req processTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, bodyError(err), 0)
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, r, bodyError(err), 0)
		return
	}

	out, err := s.service.ProcessText(r.Context(), *req.Text)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, r, http.StatusOK, processTextResponse{Result: out})
}
