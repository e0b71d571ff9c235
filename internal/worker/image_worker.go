package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/wavecanvas/api/internal/analysis"
	"github.com/wavecanvas/api/internal/audiosource"
	"github.com/wavecanvas/api/internal/client"
	"github.com/wavecanvas/api/internal/limiter"
	"github.com/wavecanvas/api/internal/model"
	"github.com/wavecanvas/api/internal/store"
)

// GeneratorFactory returns the generation backend for a provider name; an
// empty name selects the configured default.
type GeneratorFactory func(provider string) client.ImageGenerator

// ImageWorker executes image-generation jobs.
type ImageWorker struct {
	lifecycle
	resolver   audiosource.Resolver
	generators GeneratorFactory
	gate       *limiter.Limiter
}

func NewImageWorker(s store.Store, resolver audiosource.Resolver, generators GeneratorFactory, gate *limiter.Limiter, hub Notifier) *ImageWorker {
	return &ImageWorker{
		lifecycle:  lifecycle{store: s, hub: hub},
		resolver:   resolver,
		generators: generators,
		gate:       gate,
	}
}

// ProcessTask adapts Process onto the distributed queue.
func (w *ImageWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload taskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}
	return w.Process(ctx, payload.JobID)
}

// Process waits for an admission slot and drives one job to a terminal
// state.
func (w *ImageWorker) Process(ctx context.Context, jobID string) error {
	var runErr error
	if err := w.gate.Run(ctx, func() {
		runErr = w.run(ctx, jobID)
	}); err != nil {
		w.fail(jobID, err)
		return err
	}
	return runErr
}

func (w *ImageWorker) run(ctx context.Context, jobID string) (err error) {
	defer w.recoverFault(jobID)

	job, err := w.store.Get(ctx, jobID)
	if err != nil {
		return err
	}
	var input model.ImageJobInput
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
	features, err := analysis.ExtractFeatures(clip.Samples, clip.SampleRate)
	if err != nil {
		w.fail(jobID, err)
		return err
	}

	if err := w.transition(ctx, jobID, model.StatusGenerating, 50, "Generating image..."); err != nil {
		return err
	}

	prompt := client.BuildPrompt(features, input.Style, input.CustomPrompt)

	provider := ""
	if input.Provider != nil {
		provider = *input.Provider
	}
	imageURL, err := w.generators(provider).Generate(ctx, prompt, input.AspectRatio)
	if err != nil {
		w.fail(jobID, err)
		return err
	}

	result := model.ImageJobResult{
		ImageURL:        imageURL,
		GeneratedPrompt: prompt,
		AudioFeatures:   features,
	}
	if err := w.complete(ctx, jobID, result); err != nil {
		w.fail(jobID, err)
		return err
	}

	log.Printf("Image generation job %s completed", jobID)
	return nil
}
