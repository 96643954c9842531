package api

import (
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/raushankrgupta/fitly-comfy-tryon/utils"
	"go.uber.org/zap"
)

func (h *Handler) ListResults(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.Service.Results.List())
}

func (h *Handler) GetResult(w http.ResponseWriter, r *http.Request) {
	e, err := h.Service.Results.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, e)
}

// DeleteResult removes the entry and stops its job if it is still polling.
func (h *Handler) DeleteResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Service.Results.Remove(id); err != nil {
		h.fail(w, err)
		return
	}
	if h.Service.Cancel(id) {
		h.Logger.Info("Cancelled running try-on", zap.String("result_id", id))
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DownloadResult(w http.ResponseWriter, r *http.Request) {
	h.serveResult(w, r, "attachment")
}

func (h *Handler) PreviewResult(w http.ResponseWriter, r *http.Request) {
	h.serveResult(w, r, "inline")
}

// serveResult streams the engine's image under the entry's display name.
func (h *Handler) serveResult(w http.ResponseWriter, r *http.Request, disposition string) {
	e, err := h.Service.Results.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	img, err := h.Downloader.Open(r.Context(), e)
	if err != nil {
		h.fail(w, err)
		return
	}
	defer img.Body.Close()

	contentType := img.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": img.FileName}))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, img.Body); err != nil {
		h.Logger.Warn("Result stream interrupted", zap.String("result_id", e.ID), zap.Error(err))
	}
}
