package domain

import (
	"time"

	"github.com/google/uuid"
)

// MailAccount is a connected mailbox whose OAuth tokens we hold. Token
// refresh is the token source's job; expiry is stored so a restarted
// process can hand the stale token back to it.
type MailAccount struct {
	ID           int64     `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	Email        string    `json:"email"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	TokenExpiry  time.Time `json:"token_expiry"`
	IsConnected  bool      `json:"is_connected"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
