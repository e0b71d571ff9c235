package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/wavecanvas/api/internal/errs"
	"github.com/wavecanvas/api/internal/model"
)

// Task types on the distributed queue.
const (
	TaskTypeRender = "render:process"
	TaskTypeImage  = "image:process"
)

// Queue names per job kind.
const (
	queueRender = "render"
	queueImage  = "image"
)

type taskPayload struct {
	JobID string `json:"jobId"`
}

// Processor runs one job to a terminal state.
type Processor interface {
	Process(ctx context.Context, jobID string) error
}

// Backend schedules job execution. LocalBackend runs jobs on background
// goroutines inside the serving process; AsynqBackend hands them to the
// broker-backed worker pool. Both drive the same workers, so callers see
// one state machine either way.
type Backend interface {
	Enqueue(ctx context.Context, jobID string, kind model.JobKind) error
	// Cancel revokes an in-flight job, best effort. Terminal-state checks
	// are the caller's responsibility.
	Cancel(ctx context.Context, jobID string) error
}

// LocalBackend schedules jobs on goroutines within this process.
// Submission returns immediately; the admission gate inside the worker
// bounds actual concurrency.
type LocalBackend struct {
	processors map[model.JobKind]Processor
}

func NewLocalBackend(renderWorker, imageWorker Processor) *LocalBackend {
	return &LocalBackend{processors: map[model.JobKind]Processor{
		model.KindVisualizationRender: renderWorker,
		model.KindImageGeneration:     imageWorker,
	}}
}

func (b *LocalBackend) Enqueue(_ context.Context, jobID string, kind model.JobKind) error {
	p, ok := b.processors[kind]
	if !ok {
		return fmt.Errorf("no processor for job kind %s", kind)
	}
	go func() {
		// Detached from the request context: the submission has already
		// been acknowledged.
		if err := p.Process(context.Background(), jobID); err != nil {
			log.Printf("job %s finished with error: %v", jobID, err)
		}
	}()
	return nil
}

// Cancel always fails: locally scheduled jobs run to completion once
// admitted.
func (b *LocalBackend) Cancel(_ context.Context, jobID string) error {
	return errs.Wrap(errs.ErrValidation, "locally scheduled job "+jobID+" cannot be cancelled", nil)
}

// AsynqBackend schedules jobs on the broker-backed distributed pool.
type AsynqBackend struct {
	client    *asynq.Client
	inspector *asynq.Inspector
}

func NewAsynqBackend(client *asynq.Client, inspector *asynq.Inspector) *AsynqBackend {
	return &AsynqBackend{client: client, inspector: inspector}
}

func (b *AsynqBackend) Enqueue(ctx context.Context, jobID string, kind model.JobKind) error {
	taskType := TaskTypeRender
	queue := queueRender
	if kind == model.KindImageGeneration {
		taskType = TaskTypeImage
		queue = queueImage
	}

	payload, err := json.Marshal(taskPayload{JobID: jobID})
	if err != nil {
		return err
	}

	// MaxRetry 0: a failed job is resubmitted by the caller, never retried
	// automatically.
	_, err = b.client.EnqueueContext(ctx, asynq.NewTask(taskType, payload),
		asynq.Queue(queue),
		asynq.TaskID(jobID),
		asynq.MaxRetry(0),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

// Cancel signals the remote worker processing the job to stop.
func (b *AsynqBackend) Cancel(_ context.Context, jobID string) error {
	if err := b.inspector.CancelProcessing(jobID); err != nil {
		return errs.Wrap(errs.ErrExternal, "failed to cancel job "+jobID, err)
	}
	return nil
}
