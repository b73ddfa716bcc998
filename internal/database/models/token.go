package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is the server-side record of an issued refresh token. ID is
// the token's jti claim.
type RefreshToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	ExpiresAt time.Time
	CreatedAt time.Time
}

type PasswordResetToken struct {
	Token     uuid.UUID
	Email     string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}
