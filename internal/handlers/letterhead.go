package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"

	"github.com/BerylCAtieno/letterhead-merger/internal/models"
	"github.com/BerylCAtieno/letterhead-merger/internal/services"
	"github.com/BerylCAtieno/letterhead-merger/internal/utils"
	"github.com/gorilla/mux"
)

const (
	// MaxRequestSize bounds JSON request bodies; edited letter text is the
	// largest thing a client sends.
	MaxRequestSize = 1 << 20 // 1MB
)

type LetterheadHandler struct {
	service services.LetterheadService
	logger  *utils.Logger
}

func NewLetterheadHandler(service services.LetterheadService, logger *utils.Logger) *LetterheadHandler {
	return &LetterheadHandler{
		service: service,
		logger:  logger,
	}
}

func (h *LetterheadHandler) ListLetterheads(w http.ResponseWriter, r *http.Request) {
	files, err := h.service.ListLetterheads(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]any{"files": nonNil(files)})
}

func (h *LetterheadHandler) ListBodies(w http.ResponseWriter, r *http.Request) {
	files, err := h.service.ListBodies(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]any{"files": nonNil(files)})
}

func (h *LetterheadHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req models.StartSessionRequest
	if err := h.decode(w, r, &req); err != nil {
		h.respondError(w, err)
		return
	}

	h.logger.Info("Session requested", "letterhead_id", req.LetterheadID, "body_id", req.BodyID)

	resp, err := h.service.StartSession(r.Context(), &req)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, resp)
}

func (h *LetterheadHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

func (h *LetterheadHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.service.CloseSession(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *LetterheadHandler) Preview(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.Preview(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondPNG(w, data)
}

func (h *LetterheadHandler) Crop(w http.ResponseWriter, r *http.Request) {
	var rect models.Rect
	if err := h.decode(w, r, &rect); err != nil {
		h.respondError(w, err)
		return
	}

	resp, err := h.service.Crop(r.Context(), mux.Vars(r)["id"], rect)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

func (h *LetterheadHandler) Signature(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.Signature(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondPNG(w, data)
}

func (h *LetterheadHandler) GetBody(w http.ResponseWriter, r *http.Request) {
	body, err := h.service.Body(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, body)
}

func (h *LetterheadHandler) EditBody(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text *string `json:"text"`
	}
	if err := h.decode(w, r, &req); err != nil {
		h.respondError(w, err)
		return
	}
	if req.Text == nil {
		h.respondError(w, utils.NewBadRequestError("text is required"))
		return
	}

	body, err := h.service.EditBody(r.Context(), mux.Vars(r)["id"], *req.Text)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, body)
}

// Generate assembles the document and sends it back as an attachment.
func (h *LetterheadHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var format models.Format
	if raw := r.URL.Query().Get("format"); raw != "" {
		f, err := models.ParseFormat(raw)
		if err != nil {
			h.respondError(w, utils.NewBadRequestError(err.Error()))
			return
		}
		format = f
	}

	doc, err := h.service.Generate(r.Context(), mux.Vars(r)["id"], format)
	if err != nil {
		h.respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Filename}))
	w.Header().Set("Content-Length", fmt.Sprint(len(doc.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc.Data); err != nil {
		h.logger.Error("Failed to write document", "filename", doc.Filename, "error", err)
	}
}

func (h *LetterheadHandler) Export(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.Export(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, resp)
}

func (h *LetterheadHandler) decode(w http.ResponseWriter, r *http.Request, v any) error {
	// Limit the request body size to prevent memory exhaustion
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestSize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return utils.NewBadRequestError("Request body exceeds 1MB limit")
		}
		return utils.NewBadRequestError("Invalid JSON body")
	}
	return nil
}

func nonNil(files []models.SourceFile) []models.SourceFile {
	if files == nil {
		return []models.SourceFile{}
	}
	return files
}

func (h *LetterheadHandler) respondPNG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Error("Failed to write image", "error", err)
	}
}

func (h *LetterheadHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", "error", err)
	}
}

func (h *LetterheadHandler) respondError(w http.ResponseWriter, err error) {
	appErr := utils.ToAppError(err)

	if appErr.StatusCode >= http.StatusInternalServerError {
		h.logger.Error("Request error", "status", appErr.StatusCode, "error", err, "kind", utils.KindOf(err))
	} else {
		h.logger.Warn("Request error", "status", appErr.StatusCode, "error", err)
	}

	body := map[string]any{"error": appErr.Message}
	if kind := utils.KindOf(err); kind != "" {
		body["kind"] = string(kind)
	}

	var convErr *utils.ConversionError
	if errors.As(err, &convErr) {
		body["exit_code"] = convErr.ExitCode
		body["stdout"] = convErr.Stdout
		body["stderr"] = convErr.Stderr
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)
	json.NewEncoder(w).Encode(body)
}
