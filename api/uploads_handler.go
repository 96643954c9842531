package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/raushankrgupta/fitly-comfy-tryon/models"
	"github.com/raushankrgupta/fitly-comfy-tryon/utils"
	"go.uber.org/zap"
)

// ImportRequest names the product page a garment picture is taken from.
type ImportRequest struct {
	URL   string `json:"url"`
	Index int    `json:"index"`
}

// ImportResponse is the updated entry plus what was found on the page.
type ImportResponse struct {
	Entry   models.UploadEntry `json:"entry"`
	Product *models.Product    `json:"product"`
}

func category(r *http.Request) models.Category {
	return models.Category(chi.URLParam(r, "category"))
}

// ListAllUploads returns every category's entries.
func (h *Handler) ListAllUploads(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.Service.Registry.Snapshot())
}

func (h *Handler) ListUploads(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.Registry.List(category(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, list)
}

func (h *Handler) AddUpload(w http.ResponseWriter, r *http.Request) {
	e, err := h.Service.Registry.Add(category(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, e)
}

func (h *Handler) RemoveUpload(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Registry.Remove(category(r), chi.URLParam(r, "id")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AttachFile reads the multipart "image" field and attaches it to the entry.
func (h *Handler) AttachFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(h.MaxUploadBytes); err != nil {
		utils.RespondError(w, h.Logger, fmt.Sprintf("Invalid multipart body: %v", err), http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		utils.RespondError(w, h.Logger, "Missing 'image' file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		utils.RespondError(w, h.Logger, "Failed to read upload", http.StatusBadRequest)
		return
	}
	img, err := utils.NewImageFile(header.Filename, data)
	if err != nil {
		h.fail(w, err)
		return
	}

	e, err := h.Service.Registry.AttachFile(category(r), chi.URLParam(r, "id"), img)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.Logger.Debug("File attached",
		zap.String("category", string(e.Category)),
		zap.String("id", e.ID),
		zap.String("name", img.Name),
		zap.Int("bytes", img.Size()),
	)
	utils.RespondJSON(w, http.StatusOK, e)
}

// ImportGarment scrapes a product page and attaches one of its pictures.
func (h *Handler) ImportGarment(w http.ResponseWriter, r *http.Request) {
	if h.Importer == nil {
		utils.RespondError(w, h.Logger, "Product import is not enabled", http.StatusNotImplemented)
		return
	}

	// Support both Query Params and JSON Body
	req := ImportRequest{URL: r.URL.Query().Get("url")}
	if req.URL == "" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			utils.RespondError(w, h.Logger, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
			return
		}
	}
	if req.URL == "" {
		utils.RespondError(w, h.Logger, "Please provide a 'url' query parameter or JSON body", http.StatusBadRequest)
		return
	}

	c := category(r)
	if !c.IsGarment() {
		utils.RespondError(w, h.Logger, "Only garment categories can be imported from a product page", http.StatusBadRequest)
		return
	}

	img, product, err := h.Importer.Import(r.Context(), req.URL, req.Index)
	if err != nil {
		h.fail(w, err)
		return
	}
	e, err := h.Service.Registry.AttachFile(c, chi.URLParam(r, "id"), img)
	if err != nil {
		h.fail(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, ImportResponse{Entry: e, Product: product})
}

func (h *Handler) SelectUpload(w http.ResponseWriter, r *http.Request) {
	e, err := h.Service.Registry.Select(category(r), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, e)
}
