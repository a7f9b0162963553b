package store

import (
	"context"

	"github.com/aussiebroadwan/userauth/internal/userauth/domain"
)

// DirectoryAdapter exposes the three user directory operations the auth core
// depends on, on top of a Store.
type DirectoryAdapter struct {
	store Store
}

// NewDirectoryAdapter creates a directory backed by store.
func NewDirectoryAdapter(store Store) *DirectoryAdapter {
	return &DirectoryAdapter{store: store}
}

// FindByIdentity looks a credential up by username. Returns ErrNotFound when absent.
func (a *DirectoryAdapter) FindByIdentity(ctx context.Context, identity string) (domain.Credential, error) {
	u, err := a.store.Users().GetUserByUsername(ctx, identity)
	if err != nil {
		return domain.Credential{}, err
	}
	return u.Credential(), nil
}

// FindByID looks a credential up by subject id. Returns ErrNotFound when absent.
func (a *DirectoryAdapter) FindByID(ctx context.Context, id string) (domain.Credential, error) {
	u, err := a.store.Users().GetUserByID(ctx, id)
	if err != nil {
		return domain.Credential{}, err
	}
	return u.Credential(), nil
}

// UpdateCredentialHash replaces oldHash with newHash. Returns ErrNotFound when
// the stored hash is no longer oldHash.
func (a *DirectoryAdapter) UpdateCredentialHash(ctx context.Context, id, oldHash, newHash string) error {
	return a.store.Users().ReplacePasswordHash(ctx, id, oldHash, newHash)
}
