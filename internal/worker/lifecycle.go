// Package worker drives jobs through their lifecycle: admit, analyze,
// invoke the external renderer or generator, finalize. Every failure is
// converted into a terminal failed record; nothing escapes to crash the
// host process.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/wavecanvas/api/internal/errs"
	"github.com/wavecanvas/api/internal/model"
	"github.com/wavecanvas/api/internal/store"
)

// Notifier receives job progress events for push delivery. Implemented by
// the websocket hub; may be nil.
type Notifier interface {
	BroadcastProgress(jobID string, progress int, status model.JobStatus, step string)
	BroadcastComplete(jobID string, result interface{})
	BroadcastError(jobID string, code, message string)
}

// lifecycle holds the store/notifier pair both workers use to move a job
// between states. Only the executor owning a job id calls these.
type lifecycle struct {
	store store.Store
	hub   Notifier
}

// transition advances an active job to the given status and progress.
func (l lifecycle) transition(ctx context.Context, jobID string, status model.JobStatus, progress int, step string) error {
	job, err := l.store.Get(ctx, jobID)
	if err != nil {
		return err
	}

	job.Status = status
	job.Progress = progress
	job.CurrentStep = step
	if job.StartedAt == nil {
		now := time.Now()
		job.StartedAt = &now
	}

	if err := l.store.Update(ctx, job); err != nil {
		return err
	}
	if l.hub != nil {
		l.hub.BroadcastProgress(jobID, progress, status, step)
	}
	return nil
}

// complete finalizes a job with its success payload.
func (l lifecycle) complete(ctx context.Context, jobID string, result interface{}) error {
	job, err := l.store.Get(ctx, jobID)
	if err != nil {
		return err
	}

	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	now := time.Now()
	job.Status = model.StatusCompleted
	job.Progress = 100
	job.CurrentStep = ""
	job.Result = data
	job.Error = nil
	job.CompletedAt = &now

	if err := l.store.Update(ctx, job); err != nil {
		return err
	}
	if l.hub != nil {
		l.hub.BroadcastComplete(jobID, result)
	}
	return nil
}

// fail finalizes a job with a classified, truncated diagnostic. The
// background context keeps the terminal write from being lost when the
// job's own context was cancelled.
func (l lifecycle) fail(jobID string, cause error) {
	ctx := context.Background()

	job, err := l.store.Get(ctx, jobID)
	if err != nil {
		log.Printf("failed to load job %s for failure update: %v", jobID, err)
		return
	}

	msg := errs.Truncate(errs.Classify(cause) + ": " + cause.Error())
	now := time.Now()
	job.Status = model.StatusFailed
	job.Progress = 0
	job.CurrentStep = ""
	job.Result = nil
	job.Error = &msg
	job.CompletedAt = &now

	if err := l.store.Update(ctx, job); err != nil {
		log.Printf("failed to persist failure for job %s: %v", jobID, err)
		return
	}
	if l.hub != nil {
		l.hub.BroadcastProgress(jobID, 0, model.StatusFailed, "")
		l.hub.BroadcastError(jobID, errs.Classify(cause), msg)
	}
}

// recoverFault converts a worker panic into a terminal failure.
func (l lifecycle) recoverFault(jobID string) {
	if r := recover(); r != nil {
		log.Printf("job %s panicked: %v", jobID, r)
		l.fail(jobID, errs.Wrap(errs.ErrInternal, fmt.Sprintf("unexpected fault: %v", r), nil))
	}
}
