// Package client holds the HTTP clients for the configurable image
// generation backends.
package client

import (
	"context"

	"github.com/wavecanvas/api/internal/config"
)

// ImageGenerator is the contract both generation backends implement:
// prompt in, image reference (URL or data URI) out.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt, aspectRatio string) (string, error)
	IsConfigured() bool
}

// NewImageGenerator selects a backend. provider overrides the configured
// default when non-empty.
func NewImageGenerator(cfg *config.ImageConfig, provider string) ImageGenerator {
	if provider == "" {
		provider = cfg.Provider
	}
	if provider == "google" {
		return NewGoogleImageClient(cfg)
	}
	return NewOpenAIImageClient(cfg)
}
