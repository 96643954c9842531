package api

import (
	"net/http"

	"github.com/raushankrgupta/fitly-comfy-tryon/utils"
	"go.uber.org/zap"
)

// StatusResponse adds the derived percentage to the processing status.
type StatusResponse struct {
	Status      string `json:"status"`
	CurrentStep int    `json:"current_step,omitempty"`
	TotalSteps  int    `json:"total_steps,omitempty"`
	Progress    int    `json:"progress"`
	Message     string `json:"message,omitempty"`
}

// StartTryOn submits the current selections and answers with the processing entry.
// The job keeps running after the response is written.
func (h *Handler) StartTryOn(w http.ResponseWriter, r *http.Request) {
	userID := h.userID(r)
	entry, err := h.Service.Start(r.Context(), userID)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.Logger.Info("Try-on started",
		zap.String("result_id", entry.ID),
		zap.String("prompt_id", entry.PromptID),
		zap.String("user_id", userID),
	)
	utils.RespondJSON(w, http.StatusAccepted, entry)
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	st := h.Service.Status()
	utils.RespondJSON(w, http.StatusOK, StatusResponse{
		Status:      string(st.Status),
		CurrentStep: st.CurrentStep,
		TotalSteps:  st.TotalSteps,
		Progress:    st.Progress(),
		Message:     st.Message,
	})
}

// userID is empty for anonymous requests when auth is off.
func (h *Handler) userID(r *http.Request) string {
	id, _ := GetUserIDFromContext(r.Context())
	return id
}
