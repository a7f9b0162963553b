package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/aussiebroadwan/userauth/internal/userauth/domain"
	"github.com/aussiebroadwan/userauth/internal/userauth/obs"
	"github.com/aussiebroadwan/userauth/internal/userauth/store"
	"github.com/aussiebroadwan/userauth/pkg/jwtx"
	"github.com/aussiebroadwan/userauth/pkg/slogx"
)

// LoginResult is a freshly issued token and the identity it was issued for.
type LoginResult struct {
	Token    domain.SessionToken
	Identity domain.Identity
}

type loginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (in loginInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Username, validation.Required),
		validation.Field(&in.Password, validation.Required, validation.Length(6, 0)),
	)
}

// SessionService implements login, refresh and logout on top of the
// verifier, issuer, validator and blacklist.
type SessionService struct {
	Verifier  *CredentialVerifier
	Issuer    *TokenIssuer
	Validator *TokenValidator
	Directory Directory
	Blacklist Blacklist
}

// Login verifies the credentials and issues a session token.
func (s *SessionService) Login(ctx context.Context, username, password string) (LoginResult, error) {
	if err := (loginInput{Username: username, Password: password}).Validate(); err != nil {
		obs.LoginsTotal.WithLabelValues("invalid_request").Inc()
		return LoginResult{}, invalid(err)
	}

	identity, err := s.Verifier.Verify(ctx, username, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			obs.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		} else {
			obs.LoginsTotal.WithLabelValues("error").Inc()
		}
		return LoginResult{}, err
	}

	tok, err := s.issueUnrevoked(ctx, identity)
	if err != nil {
		obs.LoginsTotal.WithLabelValues("error").Inc()
		return LoginResult{}, err
	}

	obs.LoginsTotal.WithLabelValues("success").Inc()
	slogx.FromContext(ctx).Info("user logged in", slog.String("user_id", identity.Subject))
	return LoginResult{Token: tok, Identity: identity}, nil
}

// Refresh issues a new token for an authenticated caller with the roles the
// directory holds now. The presented token stays valid until it expires.
func (s *SessionService) Refresh(ctx context.Context, caller domain.Identity) (domain.SessionToken, error) {
	cred, err := s.Directory.FindByID(ctx, caller.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.SessionToken{}, unauthorized(ReasonSubjectNotFound, nil)
		}
		return domain.SessionToken{}, storageFailure("find subject", err)
	}
	if !cred.Active {
		return domain.SessionToken{}, unauthorized(ReasonSubjectDisabled, nil)
	}

	return s.issueUnrevoked(ctx, domain.Identity{
		Subject:  cred.Subject,
		Username: cred.Identity,
		Roles:    cred.Roles,
	})
}

// maxReissues bounds how many ticks issueUnrevoked moves forward.
const maxReissues = 8

// issueUnrevoked issues a token for identity that is not on the blacklist.
// Tokens are deterministic, so a login right after a logout can reproduce
// the token that was just revoked; the issue time then moves forward one
// tick at a time until the token is new.
func (s *SessionService) issueUnrevoked(ctx context.Context, identity domain.Identity) (domain.SessionToken, error) {
	tok, err := s.Issuer.Issue(identity)
	for range maxReissues {
		if err != nil {
			return domain.SessionToken{}, err
		}
		revoked, lookupErr := s.Blacklist.IsRevoked(ctx, tok.Raw)
		if lookupErr != nil {
			return domain.SessionToken{}, storageFailure("check blacklist", lookupErr)
		}
		if !revoked {
			return tok, nil
		}
		slogx.FromContext(ctx).Debug("issued token already revoked, reissuing",
			slog.String("user_id", identity.Subject))
		tok, err = s.Issuer.IssueAt(identity, tok.IssuedAt.Add(jwtx.IssuePrecision))
	}
	return domain.SessionToken{}, fmt.Errorf("no unrevoked token after %d attempts", maxReissues)
}

// Logout validates raw and blacklists it until its own expiry.
func (s *SessionService) Logout(ctx context.Context, raw string) error {
	tok, err := s.Validator.ValidateToken(ctx, raw)
	if err != nil {
		return err
	}
	if err := s.Blacklist.Revoke(ctx, raw, tok.ExpiresAt); err != nil {
		return storageFailure("revoke token", err)
	}

	obs.RevocationsTotal.Inc()
	slogx.FromContext(ctx).Info("user logged out", slog.String("user_id", tok.Subject))
	return nil
}

// Authenticate resolves a bearer token for the request layer.
func (s *SessionService) Authenticate(ctx context.Context, raw string) (domain.Identity, error) {
	return s.Validator.Validate(ctx, raw)
}
