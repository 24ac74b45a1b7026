// Package gmail adapts the Gmail REST API to the mail provider port.
package gmail

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"mailsense_server/core/domain"
	"mailsense_server/core/port/out"
	"mailsense_server/pkg/apperr"
	"mailsense_server/pkg/httputil"
	"mailsense_server/pkg/logger"
)

// Provider implements out.MailProviderPort for one Gmail account. The
// OAuth token is bound at construction; the pipeline never handles
// credentials.
type Provider struct {
	service *gmail.Service
	email   string
	cb      *gobreaker.CircuitBreaker
}

var _ out.MailProviderPort = (*Provider)(nil)

// NewProvider builds a Gmail-backed provider. The token source
// refreshes the access token transparently; the pooled HTTP client is
// shared across provider instances.
func NewProvider(ctx context.Context, config *oauth2.Config, token *oauth2.Token) (*Provider, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, httputil.GmailClient())
	client := config.Client(ctx, token)

	service, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}

	profile, err := service.Users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return nil, apperr.ProviderError("get profile", err)
	}

	return &Provider{
		service: service,
		email:   profile.EmailAddress,
		cb:      newCircuitBreaker(),
	}, nil
}

// Email returns the authenticated account address.
func (p *Provider) Email() string {
	return p.email
}

// =============================================================================
// Messages
// =============================================================================

// ListMessageRefs lists message IDs carrying the given category label,
// newest first.
func (p *Provider) ListMessageRefs(ctx context.Context, category string, limit int64) ([]domain.MessageRef, error) {
	var resp *gmail.ListMessagesResponse
	err := p.execute("list messages", func() error {
		var callErr error
		resp, callErr = p.service.Users.Messages.List("me").
			LabelIds(category).
			MaxResults(limit).
			Context(ctx).
			Do()
		return callErr
	})
	if err != nil {
		return nil, apperr.CategoryFetchFailed(category, err)
	}

	refs := make([]domain.MessageRef, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		refs = append(refs, domain.MessageRef{ID: m.Id, ThreadID: m.ThreadId})
	}
	return refs, nil
}

// GetMessage retrieves the full message, payload tree included.
func (p *Provider) GetMessage(ctx context.Context, messageID string) (*domain.Message, error) {
	var msg *gmail.Message
	err := p.execute("get message", func() error {
		var callErr error
		msg, callErr = p.service.Users.Messages.Get("me", messageID).
			Format("full").
			Context(ctx).
			Do()
		return callErr
	})
	if err != nil {
		return nil, apperr.ProviderError("get message", err)
	}
	return toDomainMessage(msg), nil
}

// GetLatestMessage fetches the most recent message in the mailbox.
func (p *Provider) GetLatestMessage(ctx context.Context) (*domain.Message, error) {
	var resp *gmail.ListMessagesResponse
	err := p.execute("list latest message", func() error {
		var callErr error
		resp, callErr = p.service.Users.Messages.List("me").
			MaxResults(1).
			Context(ctx).
			Do()
		return callErr
	})
	if err != nil {
		return nil, apperr.ProviderError("list latest message", err)
	}
	if len(resp.Messages) == 0 {
		return nil, apperr.NoMessages("mailbox")
	}

	return p.GetMessage(ctx, resp.Messages[0].Id)
}

// =============================================================================
// Labels
// =============================================================================

// ListLabels retrieves all labels in the account.
func (p *Provider) ListLabels(ctx context.Context) ([]domain.Label, error) {
	var resp *gmail.ListLabelsResponse
	err := p.execute("list labels", func() error {
		var callErr error
		resp, callErr = p.service.Users.Labels.List("me").Context(ctx).Do()
		return callErr
	})
	if err != nil {
		return nil, apperr.ProviderError("list labels", err)
	}

	labels := make([]domain.Label, len(resp.Labels))
	for i, l := range resp.Labels {
		labels[i] = domain.Label{ID: l.Id, Name: l.Name}
	}
	return labels, nil
}

// CreateLabel creates a user label visible in both the label list and
// the message list. A 409 from the API is surfaced as a label conflict
// so the caller can re-resolve by name.
func (p *Provider) CreateLabel(ctx context.Context, name string) (*domain.Label, error) {
	var created *gmail.Label
	err := p.execute("create label", func() error {
		var callErr error
		created, callErr = p.service.Users.Labels.Create("me", &gmail.Label{
			Name:                  name,
			LabelListVisibility:   "labelShow",
			MessageListVisibility: "show",
		}).Context(ctx).Do()
		return callErr
	})
	if err != nil {
		if apiErr, ok := err.(*googleapi.Error); ok && apiErr.Code == 409 {
			return nil, apperr.LabelConflict(name, err)
		}
		return nil, apperr.ProviderError("create label", err)
	}

	return &domain.Label{ID: created.Id, Name: created.Name}, nil
}

// ApplyLabels adds the given label IDs to a message.
func (p *Provider) ApplyLabels(ctx context.Context, messageID string, labelIDs []string) error {
	if len(labelIDs) == 0 {
		return nil
	}

	err := p.execute("apply labels", func() error {
		_, callErr := p.service.Users.Messages.Modify("me", messageID, &gmail.ModifyMessageRequest{
			AddLabelIds: labelIDs,
		}).Context(ctx).Do()
		return callErr
	})
	if err != nil {
		return apperr.ProviderError("apply labels", err)
	}
	return nil
}

// =============================================================================
// Circuit Breaker
// =============================================================================

func newCircuitBreaker() *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "gmail-api",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
		},
	})
}

// execute wraps one API call with circuit breaker protection. Server
// errors and rate limiting trip the breaker; client errors pass
// through without counting against it.
func (p *Provider) execute(operation string, fn func() error) error {
	_, err := p.cb.Execute(func() (interface{}, error) {
		if err := fn(); err != nil {
			if apiErr, ok := err.(*googleapi.Error); ok {
				switch apiErr.Code {
				case 500, 502, 503, 429:
					return nil, err
				case 400, 401, 403, 404, 409:
					return nil, &nonCircuitError{err: err}
				}
			}
			return nil, err
		}
		return nil, nil
	})

	if nce, ok := err.(*nonCircuitError); ok {
		return nce.err
	}
	if err != nil {
		logger.WithFields(map[string]any{
			"operation": operation,
			"state":     p.cb.State().String(),
		}).WithError(err).Warn("gmail api call failed")
	}
	return err
}

// nonCircuitError wraps errors that should not trip the circuit breaker.
type nonCircuitError struct {
	err error
}

func (e *nonCircuitError) Error() string {
	return e.err.Error()
}

// =============================================================================
// Conversion
// =============================================================================

func toDomainMessage(msg *gmail.Message) *domain.Message {
	m := &domain.Message{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		LabelIDs: msg.LabelIds,
		Snippet:  msg.Snippet,
	}

	if msg.Payload != nil {
		for _, header := range msg.Payload.Headers {
			switch header.Name {
			case "From":
				m.From = header.Value
			case "To":
				m.To = header.Value
			case "Subject":
				m.Subject = header.Value
			case "Date":
				m.Date = header.Value
			}
		}
		m.Payload = toBodyPart(msg.Payload)
	}

	return m
}

// toBodyPart converts the API part tree as-is. Body data stays URL-safe
// base64 until the content decoder walks the tree.
func toBodyPart(part *gmail.MessagePart) *domain.BodyPart {
	if part == nil {
		return nil
	}

	bp := &domain.BodyPart{MimeType: part.MimeType}
	if part.Body != nil {
		bp.Data = part.Body.Data
	}
	for _, child := range part.Parts {
		if converted := toBodyPart(child); converted != nil {
			bp.Parts = append(bp.Parts, *converted)
		}
	}
	return bp
}
