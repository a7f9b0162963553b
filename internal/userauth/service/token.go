package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/userauth/internal/userauth/domain"
	"github.com/aussiebroadwan/userauth/internal/userauth/obs"
	"github.com/aussiebroadwan/userauth/internal/userauth/store"
	"github.com/aussiebroadwan/userauth/pkg/jwtx"
	"github.com/aussiebroadwan/userauth/pkg/slogx"
)

// TokenConfig is the process-wide signing configuration. It is built once
// at startup and copied into the issuer and validator.
type TokenConfig struct {
	Secret []byte
	// TTL is used as given; zero issues tokens that are already expired.
	TTL    time.Duration
	Issuer string
	// Now defaults to time.Now.
	Now func() time.Time
}

func (c TokenConfig) clock() func() time.Time {
	if c.Now == nil {
		return time.Now
	}
	return c.Now
}

// TokenIssuer signs session tokens. It never touches the blacklist.
type TokenIssuer struct {
	signer jwtx.Signer
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

func NewTokenIssuer(cfg TokenConfig) (*TokenIssuer, error) {
	if cfg.TTL < 0 {
		return nil, fmt.Errorf("token ttl must not be negative, got %s", cfg.TTL)
	}
	signer, err := jwtx.NewSignerHS256(cfg.Secret)
	if err != nil {
		return nil, err
	}
	return &TokenIssuer{
		signer: signer,
		ttl:    cfg.TTL,
		issuer: cfg.Issuer,
		now:    cfg.clock(),
	}, nil
}

// TTL returns the configured token lifetime.
func (i *TokenIssuer) TTL() time.Duration { return i.ttl }

// Issue signs a token for identity. The same identity, clock reading and
// secret always produce the same token.
func (i *TokenIssuer) Issue(identity domain.Identity) (domain.SessionToken, error) {
	return i.IssueAt(identity, i.now())
}

// IssueAt signs a token for identity as if issued at at.
func (i *TokenIssuer) IssueAt(identity domain.Identity, at time.Time) (domain.SessionToken, error) {
	if identity.Subject == "" {
		return domain.SessionToken{}, errors.New("cannot issue a token without a subject")
	}

	claims := jwtx.NewSessionClaims(identity.Subject, identity.Username, identity.Roles, i.ttl, i.issuer, at)
	raw, err := i.signer.Sign(claims)
	if err != nil {
		return domain.SessionToken{}, fmt.Errorf("sign session token: %w", err)
	}

	return domain.SessionToken{
		Raw:       raw,
		Subject:   claims.Subject,
		Username:  claims.Username,
		Roles:     claims.Roles,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// TokenValidator checks session tokens: signature and expiry first, then
// the blacklist, then that the subject still exists.
type TokenValidator struct {
	verifier  jwtx.Verifier
	blacklist Blacklist
	directory Directory
}

func NewTokenValidator(cfg TokenConfig, blacklist Blacklist, directory Directory) (*TokenValidator, error) {
	verifier, err := jwtx.NewVerifierHS256(cfg.Secret, jwtx.VerifyOptions{
		Issuer: cfg.Issuer,
		Now:    cfg.clock(),
	})
	if err != nil {
		return nil, err
	}
	return &TokenValidator{verifier: verifier, blacklist: blacklist, directory: directory}, nil
}

// Validate returns the identity a token was issued for. Roles come from the
// token, not from the directory.
func (v *TokenValidator) Validate(ctx context.Context, raw string) (domain.Identity, error) {
	tok, err := v.ValidateToken(ctx, raw)
	if err != nil {
		return domain.Identity{}, err
	}
	return domain.Identity{Subject: tok.Subject, Username: tok.Username, Roles: tok.Roles}, nil
}

// ValidateToken is Validate returning the whole decoded token.
func (v *TokenValidator) ValidateToken(ctx context.Context, raw string) (domain.SessionToken, error) {
	tok, err := v.validate(ctx, raw)
	if reason, ok := ReasonOf(err); ok {
		obs.TokenValidationsTotal.WithLabelValues(string(reason)).Inc()
	} else if err != nil {
		obs.TokenValidationsTotal.WithLabelValues("error").Inc()
	} else {
		obs.TokenValidationsTotal.WithLabelValues("ok").Inc()
	}
	return tok, err
}

func (v *TokenValidator) validate(ctx context.Context, raw string) (domain.SessionToken, error) {
	claims, err := v.verifier.Verify(raw)
	if err != nil {
		return domain.SessionToken{}, unauthorized(verifyReason(err), err)
	}

	revoked, err := v.blacklist.IsRevoked(ctx, raw)
	if err != nil {
		return domain.SessionToken{}, storageFailure("check blacklist", err)
	}
	if revoked {
		return domain.SessionToken{}, unauthorized(ReasonRevoked, nil)
	}

	cred, err := v.directory.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.SessionToken{}, unauthorized(ReasonSubjectNotFound, nil)
		}
		return domain.SessionToken{}, storageFailure("find subject", err)
	}
	if !cred.Active {
		slogx.FromContext(ctx).Info("token presented for inactive account", slog.String("user_id", cred.Subject))
		return domain.SessionToken{}, unauthorized(ReasonSubjectDisabled, nil)
	}

	roles := claims.Roles
	if roles == nil {
		roles = []string{}
	}
	tok := domain.SessionToken{
		Raw:       raw,
		Subject:   claims.Subject,
		Username:  claims.Username,
		Roles:     roles,
		ExpiresAt: claims.ExpiresAtTime(),
	}
	if claims.IssuedAt != nil {
		tok.IssuedAt = claims.IssuedAt.Time
	}
	return tok, nil
}

func verifyReason(err error) UnauthorizedReason {
	switch {
	case errors.Is(err, jwtx.ErrExpired):
		return ReasonExpired
	case errors.Is(err, jwtx.ErrInvalidSig):
		return ReasonBadSignature
	default:
		return ReasonMalformed
	}
}
