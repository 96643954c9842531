package api

import (
	"errors"
	"net/http"

	"github.com/raushankrgupta/fitly-comfy-tryon/gallery"
	"github.com/raushankrgupta/fitly-comfy-tryon/poller"
	"github.com/raushankrgupta/fitly-comfy-tryon/registry"
	"github.com/raushankrgupta/fitly-comfy-tryon/results"
	"github.com/raushankrgupta/fitly-comfy-tryon/scrapers"
	"github.com/raushankrgupta/fitly-comfy-tryon/scrapers/base"
	"github.com/raushankrgupta/fitly-comfy-tryon/tryon"
	"github.com/raushankrgupta/fitly-comfy-tryon/utils"
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var jobErr *poller.JobError
	switch {
	case errors.Is(err, registry.ErrUnknownCategory),
		errors.Is(err, tryon.ErrNoModelSelected),
		errors.Is(err, tryon.ErrNoGarmentSelected):
		return http.StatusBadRequest
	case errors.Is(err, registry.ErrEntryNotFound),
		errors.Is(err, results.ErrNotFound),
		errors.Is(err, gallery.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, registry.ErrNoFileAttached),
		errors.Is(err, results.ErrNotReady):
		return http.StatusConflict
	case errors.Is(err, utils.ErrInvalidImage):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, scrapers.ErrNoScraper),
		errors.Is(err, scrapers.ErrNoImages),
		errors.Is(err, scrapers.ErrImageIndex):
		return http.StatusUnprocessableEntity
	case errors.Is(err, tryon.ErrSubmitFailed),
		errors.Is(err, poller.ErrPollExhausted),
		errors.Is(err, results.ErrDownloadFailed),
		errors.Is(err, base.ErrFetchFailed),
		errors.As(err, &jobErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	utils.RespondError(w, h.Logger, err.Error(), statusFor(err))
}
