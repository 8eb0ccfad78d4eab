package session

import (
	"context"
	"time"

	"github.com/trezcool/masomo-dashboard/core/user"
)

// Credentials is what a CredentialStore holds.
// Identity is nil when it was never stored or could not be read back.
type Credentials struct {
	Token     string
	Identity  *user.Identity
	ExpiresAt time.Time
}

// CredentialStore is the durable storage of the (token, identity) pair.
type CredentialStore interface {
	// Save writes token and identity together; on error neither is written.
	Save(token string, identity user.Identity) error
	// Load returns the stored credentials. ok is false when there is no usable token.
	Load() (creds Credentials, ok bool)
	Clear() error
}

// Backend is the authentication endpoint family.
type Backend interface {
	Login(ctx context.Context, creds user.Credentials) (token string, identity user.Identity, err error)
	Register(ctx context.Context, nu user.NewUser) error
	// Logout invalidates the current token server-side.
	Logout(ctx context.Context) error
	// Me returns the identity the current token belongs to.
	Me(ctx context.Context) (user.Identity, error)
}
