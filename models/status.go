package models

import "math"

type ProcessingState string

const (
	StateIdle       ProcessingState = "idle"
	StateProcessing ProcessingState = "processing"
	StateCompleted  ProcessingState = "completed"
	StateError      ProcessingState = "error"
)

// ProcessingStatus is the coarse progress surfaced to clients.
type ProcessingStatus struct {
	Status      ProcessingState `json:"status"`
	CurrentStep int             `json:"current_step,omitempty"`
	TotalSteps  int             `json:"total_steps,omitempty"`
	Message     string          `json:"message,omitempty"`
}

// Progress is the completion percentage, 0 when step counters are unknown.
func (s ProcessingStatus) Progress() int {
	if s.CurrentStep <= 0 || s.TotalSteps <= 0 {
		return 0
	}
	return int(math.Round(float64(s.CurrentStep) / float64(s.TotalSteps) * 100))
}
