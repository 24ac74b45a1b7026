// Package label reconciles semantic label names with provider-side
// label identifiers and applies them to messages.
package label

import (
	"context"

	"mailsense_server/core/domain"
	"mailsense_server/core/port/out"
	"mailsense_server/pkg/logger"
)

// Service resolves label names to provider IDs (create-if-absent) and
// attaches ID sets to messages with bounded retry.
//
// No name-to-ID mapping is cached across calls: another writer may
// create or remove labels between runs, so every resolution re-queries
// the provider before creating.
type Service struct {
	provider out.MailProviderPort
}

// NewService creates a label service on top of a mail provider.
func NewService(provider out.MailProviderPort) *Service {
	return &Service{provider: provider}
}

// Resolve maps one label name to its provider ID. Existing labels are
// matched by exact name; absent ones are created. When creation races
// a concurrent creator, the listing is re-queried once and the
// now-existing ID returned.
func (s *Service) Resolve(ctx context.Context, name string) (string, error) {
	labels, err := s.provider.ListLabels(ctx)
	if err != nil {
		return "", err
	}
	if id, ok := findByName(labels, name); ok {
		return id, nil
	}

	created, createErr := s.provider.CreateLabel(ctx, name)
	if createErr == nil {
		return created.ID, nil
	}

	// The label may have come into existence between the lookup and
	// the create. Re-list once; if it is still absent the create
	// failure propagates.
	labels, err = s.provider.ListLabels(ctx)
	if err != nil {
		return "", createErr
	}
	if id, ok := findByName(labels, name); ok {
		logger.WithField("label", name).Debug("label created concurrently, reusing existing ID")
		return id, nil
	}

	return "", createErr
}

// ResolveAll resolves every name in order.
func (s *Service) ResolveAll(ctx context.Context, names []string) ([]string, error) {
	ids := make([]string, 0, len(names))
	for _, name := range names {
		id, err := s.Resolve(ctx, name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ApplyByName resolves the given names and attaches the resulting IDs
// to the message. On an apply failure every name is re-resolved (IDs
// may have changed under concurrent mutation) and the application is
// retried exactly once before the failure surfaces.
func (s *Service) ApplyByName(ctx context.Context, messageID string, names []string) ([]string, error) {
	ids, err := s.ResolveAll(ctx, names)
	if err != nil {
		return nil, err
	}

	applyErr := s.provider.ApplyLabels(ctx, messageID, ids)
	if applyErr == nil {
		return ids, nil
	}

	logger.WithFields(map[string]any{
		"message_id": messageID,
		"labels":     len(names),
	}).WithError(applyErr).Warn("label application failed, re-resolving and retrying once")

	ids, err = s.ResolveAll(ctx, names)
	if err != nil {
		return nil, err
	}
	if err := s.provider.ApplyLabels(ctx, messageID, ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func findByName(labels []domain.Label, name string) (string, bool) {
	for _, l := range labels {
		if l.Name == name {
			return l.ID, true
		}
	}
	return "", false
}
