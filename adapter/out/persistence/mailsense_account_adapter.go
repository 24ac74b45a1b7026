// Package persistence provides database adapters.
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"mailsense_server/core/domain"
	"mailsense_server/core/port/out"
	"mailsense_server/pkg/crypto"
	"mailsense_server/pkg/logger"
)

// AccountAdapter implements out.AccountRepository using PostgreSQL.
// OAuth tokens are encrypted at rest when an encryption key is
// configured.
type AccountAdapter struct {
	db                *sqlx.DB
	encryptionEnabled bool
}

var _ out.AccountRepository = (*AccountAdapter)(nil)

// NewAccountAdapter creates an account adapter.
func NewAccountAdapter(db *sqlx.DB) *AccountAdapter {
	err := crypto.Init()
	encryptionEnabled := err == nil
	if !encryptionEnabled {
		logger.Warn("token encryption disabled: %v", err)
	}

	return &AccountAdapter{
		db:                db,
		encryptionEnabled: encryptionEnabled,
	}
}

type accountRow struct {
	ID           int64     `db:"id"`
	UserID       uuid.UUID `db:"user_id"`
	Email        string    `db:"email"`
	AccessToken  string    `db:"access_token"`
	RefreshToken string    `db:"refresh_token"`
	TokenExpiry  time.Time `db:"token_expiry"`
	IsConnected  bool      `db:"is_connected"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

const accountColumns = `id, user_id, email, access_token, refresh_token,
	       token_expiry, is_connected, created_at, updated_at`

// GetByUserID returns the connected account for a user, or nil when
// none exists.
func (a *AccountAdapter) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.MailAccount, error) {
	var row accountRow
	query := `
		SELECT ` + accountColumns + `
		FROM mail_accounts
		WHERE user_id = $1 AND is_connected = true
		LIMIT 1`

	if err := a.db.GetContext(ctx, &row, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return a.toEntity(&row), nil
}

// GetByEmail returns the account for a mailbox address, or nil when
// none exists.
func (a *AccountAdapter) GetByEmail(ctx context.Context, email string) (*domain.MailAccount, error) {
	var row accountRow
	query := `
		SELECT ` + accountColumns + `
		FROM mail_accounts
		WHERE email = $1 AND is_connected = true
		LIMIT 1`

	if err := a.db.GetContext(ctx, &row, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return a.toEntity(&row), nil
}

// GetLatest returns the most recently connected account, or nil when
// no mailbox is connected.
func (a *AccountAdapter) GetLatest(ctx context.Context) (*domain.MailAccount, error) {
	var row accountRow
	query := `
		SELECT ` + accountColumns + `
		FROM mail_accounts
		WHERE is_connected = true
		ORDER BY updated_at DESC
		LIMIT 1`

	if err := a.db.GetContext(ctx, &row, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return a.toEntity(&row), nil
}

// Upsert inserts or refreshes the account keyed by (user_id, email)
// and backfills the generated ID.
func (a *AccountAdapter) Upsert(ctx context.Context, account *domain.MailAccount) error {
	query := `
		INSERT INTO mail_accounts (user_id, email, access_token, refresh_token,
		                           token_expiry, is_connected, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (user_id, email) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expiry = EXCLUDED.token_expiry,
			is_connected = EXCLUDED.is_connected,
			updated_at = NOW()
		RETURNING id`

	return a.db.QueryRowContext(ctx, query,
		account.UserID,
		account.Email,
		a.encryptToken(account.AccessToken),
		a.encryptToken(account.RefreshToken),
		account.TokenExpiry,
		account.IsConnected,
	).Scan(&account.ID)
}

// UpdateTokens stores freshly refreshed tokens for an account.
func (a *AccountAdapter) UpdateTokens(ctx context.Context, id int64, accessToken, refreshToken string, expiry time.Time) error {
	query := `
		UPDATE mail_accounts
		SET access_token = $1, refresh_token = $2, token_expiry = $3, updated_at = NOW()
		WHERE id = $4`

	_, err := a.db.ExecContext(ctx, query,
		a.encryptToken(accessToken),
		a.encryptToken(refreshToken),
		expiry,
		id,
	)
	return err
}

// Delete removes an account.
func (a *AccountAdapter) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM mail_accounts WHERE id = $1`
	_, err := a.db.ExecContext(ctx, query, id)
	return err
}

func (a *AccountAdapter) toEntity(row *accountRow) *domain.MailAccount {
	return &domain.MailAccount{
		ID:           row.ID,
		UserID:       row.UserID,
		Email:        row.Email,
		AccessToken:  a.decryptToken(row.AccessToken),
		RefreshToken: a.decryptToken(row.RefreshToken),
		TokenExpiry:  row.TokenExpiry,
		IsConnected:  row.IsConnected,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

func (a *AccountAdapter) encryptToken(token string) string {
	if !a.encryptionEnabled || token == "" {
		return token
	}
	encrypted, err := crypto.EncryptToken(token)
	if err != nil {
		logger.Warn("failed to encrypt token: %v", err)
		return token
	}
	return encrypted
}

func (a *AccountAdapter) decryptToken(token string) string {
	if token == "" || !crypto.IsEncrypted(token) {
		return token
	}
	decrypted, err := crypto.DecryptToken(token)
	if err != nil {
		// Legacy plaintext rows pass through unchanged.
		return token
	}
	return decrypted
}
