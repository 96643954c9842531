package comfy

import (
	"errors"
	"fmt"
)

var ErrNoOutputImage = errors.New("no output image in history")

// UploadResponse is returned by POST /upload/image.
type UploadResponse struct {
	Name      string `json:"name"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}

// PromptRequest is the body of POST /prompt.
type PromptRequest struct {
	Prompt   any    `json:"prompt"`
	ClientID string `json:"client_id"`
}

// PromptResponse is returned by POST /prompt.
type PromptResponse struct {
	PromptID   string         `json:"prompt_id"`
	Number     int            `json:"number"`
	NodeErrors map[string]any `json:"node_errors"`
}

// OutputImage is one file written by an output node.
type OutputImage struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}

// NodeOutput is what a node produced during execution.
type NodeOutput struct {
	Images []OutputImage `json:"images"`
}

// Executing reports which node is running and, for samplers, step counters.
type Executing struct {
	NodeID      string `json:"node_id"`
	PromptID    string `json:"prompt_id"`
	CurrentStep int    `json:"current_step,omitempty"`
	TotalSteps  int    `json:"total_steps,omitempty"`
}

// HistoryStatus is the status block of a history record.
type HistoryStatus struct {
	Completed  bool       `json:"completed"`
	Processing bool       `json:"processing"`
	StatusStr  string     `json:"status_str,omitempty"`
	Error      string     `json:"error,omitempty"`
	Executing  *Executing `json:"executing,omitempty"`
}

// HistoryEntry is the record returned by GET /history/{promptId}.
type HistoryEntry struct {
	Status  HistoryStatus         `json:"status"`
	Outputs map[string]NodeOutput `json:"outputs"`
}

// Done reports whether the engine finished the prompt successfully.
func (h *HistoryEntry) Done() bool {
	return h.Status.Completed || h.Status.StatusStr == "success"
}

// Failure returns the engine-reported error, or "" if none.
func (h *HistoryEntry) Failure() string {
	if h.Status.Error != "" {
		return h.Status.Error
	}
	if h.Status.StatusStr == "error" {
		return "execution error"
	}
	return ""
}

// FirstImage returns the first image written by the given output node.
func (h *HistoryEntry) FirstImage(nodeID string) (OutputImage, error) {
	out, ok := h.Outputs[nodeID]
	if !ok || len(out.Images) == 0 || out.Images[0].Filename == "" {
		return OutputImage{}, fmt.Errorf("%w (node %s)", ErrNoOutputImage, nodeID)
	}
	return out.Images[0], nil
}

// APIError is a non-2xx answer from the engine.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: engine returned %d: %s", e.Op, e.StatusCode, e.Body)
}
