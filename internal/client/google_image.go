package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wavecanvas/api/internal/config"
	"github.com/wavecanvas/api/internal/errs"
)

const googleImageBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GoogleImageClient calls the Imagen predict endpoint. The generated image
// comes back inline; Generate returns it as a data URI.
type GoogleImageClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

func NewGoogleImageClient(cfg *config.ImageConfig) *GoogleImageClient {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &GoogleImageClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    googleImageBaseURL,
		apiKey:     cfg.Google.APIKey,
		model:      cfg.Google.Model,
	}
}

func (c *GoogleImageClient) IsConfigured() bool {
	return c.apiKey != ""
}

type googlePredictRequest struct {
	Instances  []googleInstance `json:"instances"`
	Parameters googleParameters `json:"parameters"`
}

type googleInstance struct {
	Prompt string `json:"prompt"`
}

type googleParameters struct {
	SampleCount int    `json:"sampleCount"`
	AspectRatio string `json:"aspectRatio"`
}

type googlePredictResponse struct {
	Predictions []struct {
		BytesBase64Encoded string `json:"bytesBase64Encoded"`
	} `json:"predictions"`
}

func (c *GoogleImageClient) Generate(ctx context.Context, prompt, aspectRatio string) (string, error) {
	body, err := json.Marshal(googlePredictRequest{
		Instances:  []googleInstance{{Prompt: prompt}},
		Parameters: googleParameters{SampleCount: 1, AspectRatio: aspectRatio},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:predict", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", classifyTransportErr(err, "image generation request failed")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errs.Wrap(errs.ErrExternal,
			fmt.Sprintf("image backend returned %d: %s", resp.StatusCode, errs.Truncate(string(data))), nil)
	}

	var result googlePredictResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return "", errs.Wrap(errs.ErrExternal, "malformed image backend response", err)
	}
	if len(result.Predictions) == 0 || result.Predictions[0].BytesBase64Encoded == "" {
		return "", errs.Wrap(errs.ErrExternal, "image backend returned no image", nil)
	}
	return "data:image/png;base64," + result.Predictions[0].BytesBase64Encoded, nil
}
