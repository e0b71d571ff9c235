package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wavecanvas/api/internal/config"
	"github.com/wavecanvas/api/internal/errs"
)

// openAISizes maps a requested aspect ratio onto the size vocabulary the
// backend accepts.
var openAISizes = map[string]string{
	"1:1":  "1024x1024",
	"16:9": "1792x1024",
	"9:16": "1024x1792",
}

// OpenAIImageClient calls an OpenAI-compatible image generation endpoint.
type OpenAIImageClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

func NewOpenAIImageClient(cfg *config.ImageConfig) *OpenAIImageClient {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OpenAIImageClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.OpenAI.BaseURL,
		apiKey:     cfg.OpenAI.APIKey,
		model:      cfg.OpenAI.Model,
	}
}

func (c *OpenAIImageClient) IsConfigured() bool {
	return c.apiKey != ""
}

type openAIImageRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size"`
	ResponseFormat string `json:"response_format"`
}

type openAIImageResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

// Generate requests one image and returns its URL.
func (c *OpenAIImageClient) Generate(ctx context.Context, prompt, aspectRatio string) (string, error) {
	size, ok := openAISizes[aspectRatio]
	if !ok {
		size = openAISizes["1:1"]
	}

	body, err := json.Marshal(openAIImageRequest{
		Model:          c.model,
		Prompt:         prompt,
		N:              1,
		Size:           size,
		ResponseFormat: "url",
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/images/generations", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

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

	var result openAIImageResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return "", errs.Wrap(errs.ErrExternal, "malformed image backend response", err)
	}
	if len(result.Data) == 0 || result.Data[0].URL == "" {
		return "", errs.Wrap(errs.ErrExternal, "image backend returned no image", nil)
	}
	return result.Data[0].URL, nil
}

// classifyTransportErr distinguishes timeout from other transport faults.
func classifyTransportErr(err error, detail string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errs.Wrap(errs.ErrTimeout, detail, err)
	}
	var ne interface{ Timeout() bool }
	if errors.As(err, &ne) && ne.Timeout() {
		return errs.Wrap(errs.ErrTimeout, detail, err)
	}
	return errs.Wrap(errs.ErrExternal, detail, err)
}
