package auth

import (
	"errors"
	"time"
)

// User represents an authenticated user account.
type User struct {
	ID           int64
	Username     string
	Email        string
	FullName     string
	PasswordHash string
	Active       bool
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ErrInvalidCredentials indicates login failure. The same error covers
// unknown accounts, wrong passwords and disabled accounts so a caller
// cannot probe which of them applied.
var ErrInvalidCredentials = errors.New("invalid credentials")

// SessionPrincipal is the credential shape handed to the authorization
// layer for session logins: it knows the account name and nothing else,
// so the access snapshot is reloaded from the store on demand.
type SessionPrincipal struct {
	Username  string
	SessionID string
}

// PrincipalName returns the account name for snapshot reload.
func (p SessionPrincipal) PrincipalName() string { return p.Username }
