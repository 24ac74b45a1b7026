package http

import (
	"mailsense_server/core/port/in"
	"mailsense_server/pkg/apperr"
	"mailsense_server/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// RunHandler serves archived scan runs.
type RunHandler struct {
	runs in.RunQueryService
}

// NewRunHandler creates a run handler.
func NewRunHandler(runs in.RunQueryService) *RunHandler {
	return &RunHandler{runs: runs}
}

// Register registers run query routes.
func (h *RunHandler) Register(router fiber.Router) {
	runs := router.Group("/runs")

	runs.Get("/", h.ListRuns)
	runs.Get("/:id", h.GetRun)
}

// ListRuns returns archived runs newest first.
func (h *RunHandler) ListRuns(c *fiber.Ctx) error {
	if h.runs == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "Run archive not available")
	}

	p := response.GetPagination(c, 20, 100)

	runs, total, err := h.runs.ListRuns(c.Context(), p.Limit, p.Offset)
	if err != nil {
		return err
	}

	return response.OKWithMeta(c, runs, &response.Meta{
		Total:    int(total),
		PageSize: p.Limit,
		HasMore:  p.Offset+len(runs) < int(total),
	})
}

// GetRun returns a single archived run with its per-message details.
func (h *RunHandler) GetRun(c *fiber.Ctx) error {
	if h.runs == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "Run archive not available")
	}

	id := c.Params("id")
	if id == "" {
		return apperr.BadRequest("run id is required")
	}

	run, err := h.runs.GetRun(c.Context(), id)
	if err != nil {
		return err
	}

	return response.OK(c, run)
}
