package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/raushankrgupta/fitly-comfy-tryon/gallery"
	"github.com/raushankrgupta/fitly-comfy-tryon/utils"
)

// ListGallery handles fetching the user's archived try-ons
func (h *Handler) ListGallery(w http.ResponseWriter, r *http.Request) {
	if h.Gallery == nil {
		utils.RespondError(w, h.Logger, "Gallery is not enabled", http.StatusNotImplemented)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	resp, err := gallery.List(r.Context(), h.Gallery, h.Presign, h.userID(r), page, limit)
	if err != nil {
		h.fail(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, resp)
}

func (h *Handler) DeleteGalleryItem(w http.ResponseWriter, r *http.Request) {
	if h.Gallery == nil {
		utils.RespondError(w, h.Logger, "Gallery is not enabled", http.StatusNotImplemented)
		return
	}
	if err := h.Gallery.Delete(r.Context(), h.userID(r), chi.URLParam(r, "id")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
