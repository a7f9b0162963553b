package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/userauth/internal/userauth/domain"
	"github.com/aussiebroadwan/userauth/internal/userauth/obs"
	"github.com/aussiebroadwan/userauth/internal/userauth/store"
	"github.com/aussiebroadwan/userauth/pkg/cryptox"
	"github.com/aussiebroadwan/userauth/pkg/slogx"
)

const defaultRehashTimeout = 10 * time.Second

// CredentialVerifier checks a username and password against the directory.
// Credentials stored with a legacy scheme are migrated to argon2id after a
// successful match, off the login path.
type CredentialVerifier struct {
	Directory     Directory
	RehashTimeout time.Duration

	rehashes sync.WaitGroup
}

func NewCredentialVerifier(dir Directory) *CredentialVerifier {
	return &CredentialVerifier{Directory: dir, RehashTimeout: defaultRehashTimeout}
}

// Verify returns the identity for a matching username and password.
//
// Unknown usernames, wrong passwords and inactive accounts all return
// ErrInvalidCredentials, and unknown usernames still pay for one argon2id
// verification. Directory errors are returned as a StorageError.
func (v *CredentialVerifier) Verify(ctx context.Context, identity, password string) (domain.Identity, error) {
	l := slogx.FromContext(ctx)

	cred, err := v.Directory.FindByIdentity(ctx, identity)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = cryptox.VerifyDummy(password)
			return domain.Identity{}, ErrInvalidCredentials
		}
		return domain.Identity{}, storageFailure("find credential", err)
	}

	scheme, err := cryptox.VerifyPassword(password, cred.PasswordHash)
	if err != nil {
		if !errors.Is(err, cryptox.ErrPasswordMismatch) {
			l.Warn("stored credential could not be verified",
				slog.String("user_id", cred.Subject),
				slog.String("scheme", string(scheme)),
				slog.Any("error", err),
			)
		}
		return domain.Identity{}, ErrInvalidCredentials
	}

	if !cred.Active {
		l.Info("login attempt for inactive account", slog.String("user_id", cred.Subject))
		return domain.Identity{}, ErrInvalidCredentials
	}

	if cryptox.NeedsRehash(cred.PasswordHash) {
		l.Warn("legacy credential matched, scheduling rehash",
			slog.String("user_id", cred.Subject),
			slog.String("scheme", string(scheme)),
		)
		v.scheduleRehash(ctx, cred.Subject, cred.PasswordHash, password, scheme)
	}

	return domain.Identity{
		Subject:  cred.Subject,
		Username: cred.Identity,
		Roles:    cred.Roles,
	}, nil
}

// WaitRehashes blocks until every scheduled rehash has finished.
func (v *CredentialVerifier) WaitRehashes() {
	v.rehashes.Wait()
}

// scheduleRehash re-encodes password with argon2id and stores it in place of
// legacyHash. It runs detached from the request; failures are logged and
// counted only. If the stored credential no longer equals legacyHash the
// password was changed meanwhile and the rehash is dropped.
func (v *CredentialVerifier) scheduleRehash(ctx context.Context, subject, legacyHash, password string, from cryptox.Scheme) {
	timeout := v.RehashTimeout
	if timeout <= 0 {
		timeout = defaultRehashTimeout
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)

	v.rehashes.Add(1)
	go func() {
		defer v.rehashes.Done()
		defer cancel()
		l := slogx.FromContext(ctx)

		hash, err := cryptox.HashPassword(password)
		if err == nil {
			err = v.Directory.UpdateCredentialHash(ctx, subject, legacyHash, hash)
		}
		if errors.Is(err, store.ErrNotFound) {
			obs.CredentialRehashTotal.WithLabelValues(string(from), "skipped").Inc()
			l.Info("credential changed before rehash, skipping",
				slog.String("user_id", subject),
				slog.String("scheme", string(from)),
			)
			return
		}
		if err != nil {
			obs.CredentialRehashTotal.WithLabelValues(string(from), "failed").Inc()
			l.Error("credential rehash failed",
				slog.String("user_id", subject),
				slog.String("scheme", string(from)),
				slog.Any("error", err),
			)
			return
		}

		obs.CredentialRehashTotal.WithLabelValues(string(from), "migrated").Inc()
		l.Info("credential migrated to argon2id",
			slog.String("user_id", subject),
			slog.String("scheme", string(from)),
		)
	}()
}
