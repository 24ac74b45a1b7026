package out

import (
	"context"
	"time"

	"github.com/google/uuid"

	"mailsense_server/core/domain"
)

// ReportRepository archives batch run reports.
type ReportRepository interface {
	Save(ctx context.Context, report *domain.RunReport) error
	GetByID(ctx context.Context, id string) (*domain.RunReport, error)
	List(ctx context.Context, limit, offset int) ([]*domain.RunReport, int64, error)
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// AccountRepository persists connected mailbox accounts and their
// OAuth tokens.
type AccountRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.MailAccount, error)
	GetByEmail(ctx context.Context, email string) (*domain.MailAccount, error)
	GetLatest(ctx context.Context) (*domain.MailAccount, error)
	Upsert(ctx context.Context, account *domain.MailAccount) error
	UpdateTokens(ctx context.Context, id int64, accessToken, refreshToken string, expiry time.Time) error
	Delete(ctx context.Context, id int64) error
}

// PredictionCache stores classifier predictions keyed by input hash.
// A miss returns found=false with a nil error.
type PredictionCache interface {
	Get(ctx context.Context, key string) (domain.Prediction, bool, error)
	Set(ctx context.Context, key string, prediction domain.Prediction, ttl time.Duration) error
}
