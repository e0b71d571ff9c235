// Package handler exposes the job pipeline over HTTP.
package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/wavecanvas/api/internal/errs"
	"github.com/wavecanvas/api/internal/model"
	"github.com/wavecanvas/api/internal/service"
	"github.com/wavecanvas/api/pkg/response"
)

type JobHandler struct {
	service   *service.JobService
	validator *validator.Validate
}

func NewJobHandler(svc *service.JobService, v *validator.Validate) *JobHandler {
	return &JobHandler{
		service:   svc,
		validator: v,
	}
}

// Register mounts all job routes on the given router group.
func (h *JobHandler) Register(api fiber.Router) {
	viz := api.Group("/visualization")
	viz.Post("/render", h.SubmitRender)
	viz.Get("/download/:jobId", h.Download)

	image := api.Group("/image")
	image.Post("/generate", h.SubmitImage)

	jobs := api.Group("/jobs")
	jobs.Get("/", h.List)
	jobs.Get("/:jobId", h.Status)
	jobs.Delete("/:jobId", h.Delete)
	jobs.Post("/:jobId/cancel", h.Cancel)
}

// SubmitRender handles POST /api/visualization/render
func (h *JobHandler) SubmitRender(c *fiber.Ctx) error {
	var req model.RenderSubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.SubmitRender(c.Context(), &req)
	if err != nil {
		return respondError(c, err)
	}

	return response.Accepted(c, result)
}

// SubmitImage handles POST /api/image/generate
func (h *JobHandler) SubmitImage(c *fiber.Ctx) error {
	var req model.ImageSubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.SubmitImage(c.Context(), &req)
	if err != nil {
		return respondError(c, err)
	}

	return response.Accepted(c, result)
}

// Status handles GET /api/jobs/:jobId
func (h *JobHandler) Status(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	job, err := h.service.Status(c.Context(), jobID)
	if err != nil {
		return respondError(c, err)
	}

	return response.OK(c, job)
}

// List handles GET /api/jobs
func (h *JobHandler) List(c *fiber.Ctx) error {
	jobs, err := h.service.List(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return response.OK(c, jobs)
}

// Delete handles DELETE /api/jobs/:jobId
func (h *JobHandler) Delete(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.Delete(c.Context(), jobID)
	if err != nil {
		return respondError(c, err)
	}

	return response.OK(c, result)
}

// Cancel handles POST /api/jobs/:jobId/cancel
func (h *JobHandler) Cancel(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.Cancel(c.Context(), jobID)
	if err != nil {
		return respondError(c, err)
	}

	return response.OK(c, result)
}

// Download handles GET /api/visualization/download/:jobId
func (h *JobHandler) Download(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	path, err := h.service.ArtifactPath(c.Context(), jobID)
	if err != nil {
		return respondError(c, err)
	}

	c.Set(fiber.HeaderContentDisposition, `attachment; filename="visualization-`+jobID+`.mp4"`)
	if err := c.SendFile(path); err != nil {
		return response.NotFound(c, "Video file not found")
	}
	return nil
}

// respondError maps pipeline failure classes onto HTTP statuses.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return response.NotFound(c, "Job not found")
	case errors.Is(err, errs.ErrValidation):
		return response.ValidationError(c, err.Error(), nil)
	case errors.Is(err, errs.ErrConflict):
		return response.Conflict(c, err.Error())
	default:
		return response.ServiceError(c, err.Error())
	}
}

func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}
