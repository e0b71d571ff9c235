// Package service owns job admission and the read side of the job API.
// Submission creates the durable record first, then schedules execution;
// a job id returned to the caller always has a record behind it.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wavecanvas/api/internal/errs"
	"github.com/wavecanvas/api/internal/model"
	"github.com/wavecanvas/api/internal/store"
	"github.com/wavecanvas/api/internal/worker"
)

// Submission defaults applied when optional fields are omitted.
const (
	defaultStyle       = "circular"
	defaultColorScheme = "blue"
	defaultResolution  = "1080p"
	defaultImageStyle  = "abstract"
	defaultAspectRatio = "1:1"
)

// Artifacts locates and removes the files a render job leaves behind.
// Implemented by the renderer.
type Artifacts interface {
	ArtifactPath(jobID string) string
	Cleanup(jobID string)
}

// JobService manages job records and dispatches work to the configured
// backend for each job kind.
type JobService struct {
	store     store.Store
	backends  map[model.JobKind]worker.Backend
	artifacts Artifacts
	provider  string
}

func NewJobService(s store.Store, backends map[model.JobKind]worker.Backend, artifacts Artifacts, defaultProvider string) *JobService {
	return &JobService{
		store:     s,
		backends:  backends,
		artifacts: artifacts,
		provider:  defaultProvider,
	}
}

// SubmitRender accepts a visualization-render job. Missing or unreadable
// audio is not checked here; the worker fails the job instead, so the
// caller always gets a trackable id.
func (s *JobService) SubmitRender(ctx context.Context, req *model.RenderSubmitRequest) (*model.SubmitResponse, error) {
	input := model.RenderJobInput{
		AudioPath:   req.AudioPath,
		Style:       orDefault(req.Style, defaultStyle),
		ColorScheme: orDefault(req.ColorScheme, defaultColorScheme),
		Resolution:  orDefault(req.Resolution, defaultResolution),
	}
	return s.submit(ctx, model.KindVisualizationRender, input)
}

// SubmitImage accepts an image-generation job.
func (s *JobService) SubmitImage(ctx context.Context, req *model.ImageSubmitRequest) (*model.SubmitResponse, error) {
	provider := s.provider
	if req.Provider != nil && *req.Provider != "" {
		provider = *req.Provider
	}
	input := model.ImageJobInput{
		AudioPath:    req.AudioPath,
		Style:        orDefault(req.Style, defaultImageStyle),
		AspectRatio:  orDefault(req.AspectRatio, defaultAspectRatio),
		CustomPrompt: req.CustomPrompt,
		Provider:     &provider,
	}
	return s.submit(ctx, model.KindImageGeneration, input)
}

func (s *JobService) submit(ctx context.Context, kind model.JobKind, input interface{}) (*model.SubmitResponse, error) {
	data, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job input: %w", err)
	}

	job := &model.Job{
		ID:        uuid.New().String(),
		Kind:      kind,
		Status:    model.StatusPending,
		Input:     data,
		CreatedAt: time.Now(),
	}
	if err := s.store.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	backend, ok := s.backends[kind]
	if !ok {
		return nil, errs.Wrap(errs.ErrInternal, "no backend configured for "+string(kind), nil)
	}
	if err := backend.Enqueue(ctx, job.ID, kind); err != nil {
		return nil, fmt.Errorf("failed to schedule job %s: %w", job.ID, err)
	}

	return &model.SubmitResponse{
		JobID:     job.ID,
		Status:    job.Status,
		CreatedAt: job.CreatedAt,
	}, nil
}

// Status returns the full record for one job.
func (s *JobService) Status(ctx context.Context, jobID string) (*model.Job, error) {
	return s.store.Get(ctx, jobID)
}

// List returns every known job.
func (s *JobService) List(ctx context.Context) ([]*model.Job, error) {
	return s.store.List(ctx)
}

// Delete removes a finished job's record and any files it produced.
// In-progress jobs must finish or be cancelled first.
func (s *JobService) Delete(ctx context.Context, jobID string) (*model.DeleteResponse, error) {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.Status.Terminal() && job.Status != model.StatusPending {
		return nil, errs.Wrap(errs.ErrConflict, "cannot delete job while it is in progress", nil)
	}

	if err := s.store.Delete(ctx, jobID); err != nil {
		return nil, err
	}
	if job.Kind == model.KindVisualizationRender {
		s.artifacts.Cleanup(jobID)
	}
	return &model.DeleteResponse{JobID: jobID, Deleted: true}, nil
}

// Cancel revokes an in-flight job. Only distributed backends can honor
// this; a locally scheduled job runs to its end.
func (s *JobService) Cancel(ctx context.Context, jobID string) (*model.CancelResponse, error) {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.Terminal() {
		return nil, errs.Wrap(errs.ErrConflict, "cannot cancel a completed or failed job", nil)
	}

	backend, ok := s.backends[job.Kind]
	if !ok {
		return nil, errs.Wrap(errs.ErrInternal, "no backend configured for "+string(job.Kind), nil)
	}
	if err := backend.Cancel(ctx, jobID); err != nil {
		return nil, err
	}
	return &model.CancelResponse{JobID: jobID, Revoked: true}, nil
}

// ArtifactPath returns the video file location for a completed render job.
func (s *JobService) ArtifactPath(ctx context.Context, jobID string) (string, error) {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return "", err
	}
	if job.Kind != model.KindVisualizationRender {
		return "", errs.Wrap(errs.ErrValidation, "job has no downloadable artifact", nil)
	}
	if job.Status != model.StatusCompleted {
		return "", errs.Wrap(errs.ErrConflict, fmt.Sprintf("job is not completed, current status: %s", job.Status), nil)
	}
	return s.artifacts.ArtifactPath(jobID), nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
