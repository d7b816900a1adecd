package pasetotoken

import (
	"time"

	"github.com/google/uuid"
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims is what the analysis API reads out of a verified token. Tokens are
// minted by the identity service; this service only verifies them.
type Claims struct {
	Type      TokenType
	UserID    uuid.UUID
	SessionID *uuid.UUID
	TokenID   string
	ExpiresAt time.Time
}

func (c *Claims) GetUserID() uuid.UUID { return c.UserID }
func (c *Claims) IsExpired() bool       { return time.Now().After(c.ExpiresAt) }
