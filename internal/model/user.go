package model

import "time"

// User represents an agent account as stored in the `users` table.
// Username is unique; the profile fields are optional.  PasswordHash is a
// bcrypt hash and is never serialized.
type User struct {
	ID           uint64    `json:"id"`                  // users.id
	Username     string    `json:"username"`            // users.username (unique)
	PasswordHash string    `json:"-"`                   // users.password_hash
	Email        *string   `json:"email,omitempty"`     // users.email (nullable)
	FirstName    *string   `json:"firstName,omitempty"` // users.first_name (nullable)
	LastName     *string   `json:"lastName,omitempty"`  // users.last_name (nullable)
	CreatedAt    time.Time `json:"createdAt"`           // users.created_at
}

// NewUser holds the registration fields for an agent.
type NewUser struct {
	Username     string
	PasswordHash string
	Email        *string
	FirstName    *string
	LastName     *string
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA-256 hash of the token handed to the client is kept.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
