// Package api exposes the try-on workflow over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/raushankrgupta/fitly-comfy-tryon/gallery"
	"github.com/raushankrgupta/fitly-comfy-tryon/models"
	"github.com/raushankrgupta/fitly-comfy-tryon/results"
	"github.com/raushankrgupta/fitly-comfy-tryon/tryon"
	"github.com/raushankrgupta/fitly-comfy-tryon/utils"
	"go.uber.org/zap"
)

// GarmentImporter fetches a garment picture from a shop product page.
type GarmentImporter interface {
	Import(ctx context.Context, url string, index int) (*models.ImageFile, *models.Product, error)
}

// Handler carries the dependencies of every route. Importer and Gallery are optional.
type Handler struct {
	Service    *tryon.Service
	Downloader *results.Downloader
	Importer   GarmentImporter
	Gallery    gallery.Store
	Presign    gallery.Presigner
	Logger     *zap.Logger
	// AuthEnabled requires a bearer token on every route but /healthz.
	AuthEnabled bool
	// MaxUploadBytes bounds multipart bodies.
	MaxUploadBytes int64
}

// NewRouter builds the chi router with the shared middleware stack.
func NewRouter(h *Handler) http.Handler {
	if h.MaxUploadBytes <= 0 {
		h.MaxUploadBytes = utils.MaxImageBytes
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(utils.RequestLogger(h.Logger))
	r.Use(corsMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		if h.AuthEnabled {
			r.Use(AuthMiddleware(h.Logger))
		}

		r.Route("/uploads", func(r chi.Router) {
			r.Get("/", h.ListAllUploads)
			r.Get("/{category}", h.ListUploads)
			r.Post("/{category}", h.AddUpload)
			r.Delete("/{category}/{id}", h.RemoveUpload)
			r.Put("/{category}/{id}/file", h.AttachFile)
			r.Post("/{category}/{id}/import", h.ImportGarment)
			r.Post("/{category}/{id}/select", h.SelectUpload)
		})

		r.Post("/try-on", h.StartTryOn)
		r.Get("/status", h.Status)

		r.Route("/results", func(r chi.Router) {
			r.Get("/", h.ListResults)
			r.Get("/{id}", h.GetResult)
			r.Delete("/{id}", h.DeleteResult)
			r.Get("/{id}/download", h.DownloadResult)
			r.Get("/{id}/preview", h.PreviewResult)
		})

		r.Get("/gallery", h.ListGallery)
		r.Delete("/gallery/{id}", h.DeleteGalleryItem)
	})
	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS, PUT, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
