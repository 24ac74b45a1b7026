// Package report reads archived scan runs.
package report

import (
	"context"

	"mailsense_server/core/domain"
	"mailsense_server/core/port/in"
	"mailsense_server/core/port/out"
	"mailsense_server/pkg/apperr"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Service answers run queries from the report archive.
type Service struct {
	reports out.ReportRepository
}

// NewService creates a run query service.
func NewService(reports out.ReportRepository) *Service {
	return &Service{reports: reports}
}

var _ in.RunQueryService = (*Service)(nil)

// GetRun retrieves an archived run by ID.
func (s *Service) GetRun(ctx context.Context, id string) (*domain.RunReport, error) {
	run, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, apperr.NotFound("run")
	}
	return run, nil
}

// ListRuns lists archived runs newest first, with the total count for
// pagination.
func (s *Service) ListRuns(ctx context.Context, limit, offset int) ([]*domain.RunReport, int64, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.reports.List(ctx, limit, offset)
}
