package model

import "time"

// RenderSubmitRequest starts a visualization-render job.
type RenderSubmitRequest struct {
	AudioPath   string `json:"audioPath" validate:"required"`
	Style       string `json:"style" validate:"omitempty,oneof=circular radial bars"`
	ColorScheme string `json:"colorScheme"`
	Resolution  string `json:"resolution" validate:"omitempty,oneof=720p 1080p 4k"`
}

// ImageSubmitRequest starts an image-generation job.
type ImageSubmitRequest struct {
	AudioPath    string  `json:"audioPath" validate:"required"`
	Style        string  `json:"style"`
	AspectRatio  string  `json:"aspectRatio" validate:"omitempty,oneof=1:1 16:9 9:16"`
	CustomPrompt *string `json:"customPrompt,omitempty"`
	Provider     *string `json:"provider,omitempty" validate:"omitempty,oneof=openai google"`
}

// SubmitResponse acknowledges an accepted job submission.
type SubmitResponse struct {
	JobID     string    `json:"jobId"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// CancelResponse acknowledges a cancellation request.
type CancelResponse struct {
	JobID   string `json:"jobId"`
	Revoked bool   `json:"revoked"`
}

// DeleteResponse acknowledges a deletion.
type DeleteResponse struct {
	JobID   string `json:"jobId"`
	Deleted bool   `json:"deleted"`
}
