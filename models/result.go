package models

import "time"

// ResultStatus is the lifecycle state of a result entry.
type ResultStatus string

const (
	ResultProcessing ResultStatus = "processing"
	ResultCompleted  ResultStatus = "completed"
)

// ResultEntry is a generated image shown to the user.
type ResultEntry struct {
	ID        string       `json:"id"`
	Status    ResultStatus `json:"status"`
	FileName  string       `json:"file_name"`
	ImageURL  string       `json:"image_url"`
	PromptID  string       `json:"prompt_id,omitempty"`
	Category  Category     `json:"category,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}
