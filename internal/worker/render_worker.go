package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/wavecanvas/api/internal/analysis"
	"github.com/wavecanvas/api/internal/audiosource"
	"github.com/wavecanvas/api/internal/limiter"
	"github.com/wavecanvas/api/internal/model"
	"github.com/wavecanvas/api/internal/render"
	"github.com/wavecanvas/api/internal/store"
)

// RendererInvoker is the slice of the renderer the worker needs.
type RendererInvoker interface {
	Invoke(ctx context.Context, req render.Request) (*render.Result, error)
}

// RenderWorker executes visualization-render jobs.
type RenderWorker struct {
	lifecycle
	resolver audiosource.Resolver
	renderer RendererInvoker
	gate     *limiter.Limiter
	fps      int
}

func NewRenderWorker(s store.Store, resolver audiosource.Resolver, renderer RendererInvoker, gate *limiter.Limiter, hub Notifier, fps int) *RenderWorker {
	if fps <= 0 {
		fps = analysis.DefaultFPS
	}
	return &RenderWorker{
		lifecycle: lifecycle{store: s, hub: hub},
		resolver:  resolver,
		renderer:  renderer,
		gate:      gate,
		fps:       fps,
	}
}

// ProcessTask adapts Process onto the distributed queue.
func (w *RenderWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload taskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}
	return w.Process(ctx, payload.JobID)
}

// Process waits for an admission slot and drives one job to a terminal
// state. The returned error mirrors the persisted outcome for the queue's
// bookkeeping; the job record itself is always finalized here.
func (w *RenderWorker) Process(ctx context.Context, jobID string) error {
	var runErr error
	if err := w.gate.Run(ctx, func() {
		runErr = w.run(ctx, jobID)
	}); err != nil {
		w.fail(jobID, err)
		return err
	}
	return runErr
}

func (w *RenderWorker) run(ctx context.Context, jobID string) (err error) {
	defer w.recoverFault(jobID)

	job, err := w.store.Get(ctx, jobID)
	if err != nil {
		return err
	}
	var input model.RenderJobInput
	if err := json.Unmarshal(job.Input, &input); err != nil {
		w.fail(jobID, err)
		return err
	}

	if err := w.transition(ctx, jobID, model.StatusAnalyzing, 10, "Analyzing audio..."); err != nil {
		return err
	}

	clip, err := w.resolver.Resolve(input.AudioPath)
	if err != nil {
		w.fail(jobID, err)
		return err
	}
	series, err := analysis.ExtractFrameSeries(clip.Samples, clip.SampleRate, w.fps)
	if err != nil {
		w.fail(jobID, err)
		return err
	}

	if err := w.transition(ctx, jobID, model.StatusRendering, 30, "Rendering video..."); err != nil {
		return err
	}

	res, err := w.renderer.Invoke(ctx, render.Request{
		JobID:       jobID,
		AudioPath:   input.AudioPath,
		Style:       input.Style,
		ColorScheme: input.ColorScheme,
		Resolution:  input.Resolution,
		Series:      series,
	})
	if err != nil {
		w.fail(jobID, err)
		return err
	}

	result := model.RenderJobResult{
		VideoPath:   res.VideoPath,
		Duration:    series.Duration,
		TotalFrames: series.TotalFrames,
	}
	if err := w.complete(ctx, jobID, result); err != nil {
		w.fail(jobID, err)
		return err
	}

	log.Printf("Render job %s completed", jobID)
	return nil
}
