// Package out defines outbound ports (driven ports) for the application.
package out

import (
	"context"

	"mailsense_server/core/domain"
)

// MailProviderPort is the mail-service collaborator consumed by the
// pipeline. Implementations are bound to one authorized mailbox.
type MailProviderPort interface {
	// ListMessageRefs lists up to limit message identifiers in one
	// source category.
	ListMessageRefs(ctx context.Context, category string, limit int64) ([]domain.MessageRef, error)

	// GetMessage fetches the full message, body tree included.
	GetMessage(ctx context.Context, id string) (*domain.Message, error)

	// GetLatestMessage fetches the most recent inbox message.
	GetLatestMessage(ctx context.Context) (*domain.Message, error)

	// ListLabels returns every label defined in the mailbox.
	ListLabels(ctx context.Context) ([]domain.Label, error)

	// CreateLabel creates a label by name. A concurrent creation of
	// the same name surfaces as a conflict-kind error.
	CreateLabel(ctx context.Context, name string) (*domain.Label, error)

	// ApplyLabels attaches the given label IDs to a message.
	ApplyLabels(ctx context.Context, messageID string, labelIDs []string) error
}
