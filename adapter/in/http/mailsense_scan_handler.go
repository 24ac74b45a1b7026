package http

import (
	"context"
	"time"

	"mailsense_server/core/domain"
	"mailsense_server/core/port/in"
	"mailsense_server/pkg/apperr"
	"mailsense_server/pkg/logger"
	"mailsense_server/pkg/ratelimit"
	"mailsense_server/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// scanDebounceKey is shared by the API trigger and the scheduler so a
// manual scan suppresses the next scheduled one across instances.
const scanDebounceKey = "mail:scan"

// ScanHandler triggers pipeline runs.
type ScanHandler struct {
	pipeline in.PipelineService
	guard    *ratelimit.Debouncer
	timeout  time.Duration
}

// NewScanHandler creates a scan handler.
func NewScanHandler(pipeline in.PipelineService, guard *ratelimit.Debouncer, timeout time.Duration) *ScanHandler {
	return &ScanHandler{
		pipeline: pipeline,
		guard:    guard,
		timeout:  timeout,
	}
}

// Register registers the authenticated scan routes.
func (h *ScanHandler) Register(router fiber.Router) {
	router.Post("/process", h.ProcessBatch)
}

// RegisterWebhook registers the push-notification route. It bypasses
// JWT auth because the mail provider's relay cannot carry our tokens.
func (h *ScanHandler) RegisterWebhook(app *fiber.App) {
	app.Post("/api/mail/webhook", h.Webhook)
}

// ProcessBatch runs the full multi-category scan and returns the run
// summary. Rejects duplicate triggers inside the debounce window.
func (h *ScanHandler) ProcessBatch(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	if h.pipeline == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "Scan pipeline not available")
	}

	if h.guard != nil {
		if h.guard.IsDuplicate(c.Context(), scanDebounceKey) {
			return apperr.New("SCAN_IN_PROGRESS", "A scan was triggered moments ago, retry shortly", fiber.StatusTooManyRequests)
		}
		h.guard.Mark(c.Context(), scanDebounceKey)
	}

	logger.WithFields(map[string]any{
		"user_id":    userID.String(),
		"request_id": GetRequestID(c),
	}).Info("manual scan triggered")

	ctx, cancel := context.WithTimeout(c.Context(), h.timeout)
	defer cancel()

	result, err := h.pipeline.ProcessAll(ctx, domain.TriggerAPI)
	if err != nil {
		return err
	}

	return response.OK(c, result)
}

// Webhook analyzes the most recent inbox message. The provider's push
// relay fires it on new mail, so the response is the full breakdown
// for that one message.
func (h *ScanHandler) Webhook(c *fiber.Ctx) error {
	if h.pipeline == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "Scan pipeline not available")
	}

	ctx, cancel := context.WithTimeout(c.Context(), h.timeout)
	defer cancel()

	result, err := h.pipeline.ProcessLatest(ctx)
	if err != nil {
		return err
	}

	return response.OK(c, result)
}
