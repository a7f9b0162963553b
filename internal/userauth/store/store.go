package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/userauth/internal/userauth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable, and so a Tx can never start another transaction.
type Store interface {
	Users() Users
	RevokedTokens() RevokedTokens

	ApplyMigrations(ctx context.Context) error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername is used during login.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// GetUserByEmail is used for uniqueness checks.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// ListUsers returns every user ordered by creation (oldest first).
	ListUsers(ctx context.Context) ([]domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	// Returns ErrAlreadyExists on a username or email clash.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateUser overwrites the mutable profile fields and bumps updated_at.
	UpdateUser(ctx context.Context, u domain.User) error

	// UpdatePasswordHash sets the password_hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// ReplacePasswordHash swaps oldHash for newHash only while oldHash is still
	// the stored value. Returns ErrNotFound when the user is gone or the hash
	// has since changed.
	ReplacePasswordHash(ctx context.Context, userID, oldHash, newHash string) error

	// DeleteUser removes a user. Returns ErrNotFound when nothing was deleted.
	DeleteUser(ctx context.Context, userID string) error

	// IsEmpty returns true if there are no users.
	IsEmpty(ctx context.Context) (bool, error)
}

type RevokedTokens interface {
	// RevokeToken records a revoked token fingerprint. Revoking the same
	// fingerprint again keeps the later of the two expiries.
	RevokeToken(ctx context.Context, entry domain.BlacklistEntry) error

	// IsTokenRevoked reports whether a fingerprint has been revoked.
	IsTokenRevoked(ctx context.Context, tokenHash string) (bool, error)

	// DeleteExpiredRevokedTokens is housekeeping; returns rows removed.
	DeleteExpiredRevokedTokens(ctx context.Context, now time.Time) (int64, error)
}
