package http

import (
	"mailsense_server/pkg/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// GetUserID safely extracts user_id from fiber context.
// Returns an unauthorized error if the JWT middleware did not run.
func GetUserID(c *fiber.Ctx) (uuid.UUID, error) {
	userIDVal := c.Locals("user_id")
	if userIDVal == nil {
		return uuid.Nil, apperr.Unauthorized("authentication required")
	}
	userID, ok := userIDVal.(uuid.UUID)
	if !ok {
		return uuid.Nil, apperr.Unauthorized("authentication required")
	}
	return userID, nil
}

// GetRequestID returns the request ID set by the middleware, or "".
func GetRequestID(c *fiber.Ctx) string {
	requestID, _ := c.Locals("request_id").(string)
	return requestID
}
