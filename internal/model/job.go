package model

import (
	"encoding/json"
	"time"
)

// JobKind identifies which pipeline a job runs through.
type JobKind string

const (
	KindVisualizationRender JobKind = "visualization-render"
	KindImageGeneration     JobKind = "image-generation"
)

// JobStatus is the job state machine. pending, completed, and failed are
// stable at rest; analyzing, rendering, and generating only exist while an
// executor is actively driving the job.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusAnalyzing  JobStatus = "analyzing"
	StatusRendering  JobStatus = "rendering"
	StatusGenerating JobStatus = "generating"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status is a resting end state.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job represents a trackable unit of background work. Exactly one of
// Result or Error is set once the job reaches a terminal state; neither is
// set before that. Only the executor owning the job id mutates it.
type Job struct {
	ID          string          `json:"id"`
	Kind        JobKind         `json:"kind"`
	Status      JobStatus       `json:"status"`
	Progress    int             `json:"progress"`
	CurrentStep string          `json:"currentStep,omitempty"`
	Input       json.RawMessage `json:"input,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       *string         `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	StartedAt   *time.Time      `json:"startedAt,omitempty"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

// RenderJobInput contains the parameters for a visualization-render job.
type RenderJobInput struct {
	AudioPath   string `json:"audioPath"`
	Style       string `json:"style"`
	ColorScheme string `json:"colorScheme"`
	Resolution  string `json:"resolution"`
}

// ImageJobInput contains the parameters for an image-generation job.
type ImageJobInput struct {
	AudioPath    string  `json:"audioPath"`
	Style        string  `json:"style"`
	AspectRatio  string  `json:"aspectRatio"`
	CustomPrompt *string `json:"customPrompt,omitempty"`
	Provider     *string `json:"provider,omitempty"`
}

// RenderJobResult is the success payload of a visualization-render job.
type RenderJobResult struct {
	VideoPath   string  `json:"videoPath"`
	Duration    float64 `json:"duration"`
	TotalFrames int     `json:"totalFrames"`
}

// ImageJobResult is the success payload of an image-generation job.
type ImageJobResult struct {
	ImageURL        string         `json:"imageUrl"`
	GeneratedPrompt string         `json:"generatedPrompt"`
	AudioFeatures   *AudioFeatures `json:"audioFeatures,omitempty"`
}
