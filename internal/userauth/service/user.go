package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/aussiebroadwan/userauth/internal/userauth/domain"
	"github.com/aussiebroadwan/userauth/internal/userauth/store"
	"github.com/aussiebroadwan/userauth/pkg/cryptox"
	"github.com/aussiebroadwan/userauth/pkg/idx"
	"github.com/aussiebroadwan/userauth/pkg/slogx"
)

// SeedAdminUsername is the account created on an empty directory.
const SeedAdminUsername = "admin"

var (
	roleName        = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,31}$`)
	passwordSpecial = "@$!%*?&"
	passwordAllowed = regexp.MustCompile(`^[A-Za-z\d@$!%*?&]+$`)
)

// CreateUserInput is an administrative create. Nil Active means active and
// empty Roles means the default roles.
type CreateUserInput struct {
	Username string   `json:"username"`
	Password string   `json:"password"`
	FullName string   `json:"fullName"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
	Active   *bool    `json:"isActive"`
}

func (in CreateUserInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Username, validation.Required),
		validation.Field(&in.Password, validation.Required, validation.Length(6, 0)),
		validation.Field(&in.FullName, validation.Required),
		validation.Field(&in.Email, validation.Required, is.Email),
		validation.Field(&in.Roles, validation.By(validRoles)),
	)
}

// RegisterInput is a public self sign-up.
type RegisterInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

func (in RegisterInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Username, validation.Required, validation.Length(4, 20)),
		validation.Field(&in.Password, validation.Required, validation.Length(8, 32), validation.By(strongPassword)),
		validation.Field(&in.FullName, validation.Required, validation.Length(3, 50)),
		validation.Field(&in.Email, validation.Required, is.Email),
	)
}

// UpdateUserInput is a partial update; nil fields are left unchanged.
// SelfService marks a user changing their own record, whose new password
// must meet the sign-up policy.
type UpdateUserInput struct {
	Username *string   `json:"username"`
	Password *string   `json:"password"`
	FullName *string   `json:"fullName"`
	Email    *string   `json:"email"`
	Roles    *[]string `json:"roles"`
	Active   *bool     `json:"isActive"`

	SelfService bool `json:"-"`
}

func (in UpdateUserInput) Validate() error {
	passwordRules := []validation.Rule{validation.NilOrNotEmpty, validation.Length(6, 0)}
	if in.SelfService {
		passwordRules = []validation.Rule{validation.NilOrNotEmpty, validation.Length(8, 32), validation.By(strongPassword)}
	}

	return validation.ValidateStruct(&in,
		validation.Field(&in.Username, validation.NilOrNotEmpty),
		validation.Field(&in.Password, passwordRules...),
		validation.Field(&in.FullName, validation.NilOrNotEmpty),
		validation.Field(&in.Email, validation.NilOrNotEmpty, is.Email),
		validation.Field(&in.Roles, validation.By(validRoles)),
	)
}

func validRoles(value any) error {
	var roles []string
	switch v := value.(type) {
	case []string:
		roles = v
	case *[]string:
		if v == nil {
			return nil
		}
		roles = *v
	}
	for _, r := range roles {
		if !roleName.MatchString(r) {
			return fmt.Errorf("invalid role %q", r)
		}
	}
	return nil
}

func strongPassword(value any) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case *string:
		if v != nil {
			s = *v
		}
	}
	if s == "" {
		return nil
	}
	if !passwordAllowed.MatchString(s) ||
		!strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") ||
		!strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") ||
		!strings.ContainsAny(s, "0123456789") ||
		!strings.ContainsAny(s, passwordSpecial) {
		return errors.New("must contain upper and lower case letters, a digit and one of " + passwordSpecial)
	}
	return nil
}

// UserService is user management on top of the store. Every storage error
// it returns is a StorageError.
type UserService struct {
	Store store.Store
	Now   func() time.Time
}

func (s *UserService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Create adds a user after checking username and email are free.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (domain.User, error) {
	if err := in.Validate(); err != nil {
		return domain.User{}, invalid(err)
	}

	roles := in.Roles
	if len(roles) == 0 {
		roles = domain.DefaultRoles()
	}
	active := true
	if in.Active != nil {
		active = *in.Active
	}
	return s.create(ctx, in.Username, in.Password, in.FullName, in.Email, roles, active)
}

// Register creates an active account with the default roles.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (domain.User, error) {
	if err := in.Validate(); err != nil {
		return domain.User{}, invalid(err)
	}
	return s.create(ctx, in.Username, in.Password, in.FullName, in.Email, domain.DefaultRoles(), true)
}

func (s *UserService) create(ctx context.Context, username, password, fullName, email string, roles []string, active bool) (domain.User, error) {
	l := slogx.FromContext(ctx)

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	u := domain.User{
		ID:           idx.New().String(),
		Username:     strings.TrimSpace(username),
		FullName:     strings.TrimSpace(fullName),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: hash,
		Roles:        normalizeRoles(roles),
		Active:       active,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := checkAvailable(ctx, tx.Users(), u.ID, u.Username, u.Email); err != nil {
			return err
		}
		return tx.Users().CreateUser(ctx, u)
	})
	if err != nil {
		return domain.User{}, userStoreError("create user", err)
	}

	l.Info("user created", slog.String("user_id", u.ID), slog.Any("roles", u.Roles))
	return u, nil
}

func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	users, err := s.Store.Users().ListUsers(ctx)
	if err != nil {
		return nil, storageFailure("list users", err)
	}
	return users, nil
}

func (s *UserService) Get(ctx context.Context, id string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, id)
	if err != nil {
		return domain.User{}, userStoreError("get user", err)
	}
	return u, nil
}

// Update applies the non-nil fields of in. A new password is re-hashed.
func (s *UserService) Update(ctx context.Context, id string, in UpdateUserInput) (domain.User, error) {
	if err := in.Validate(); err != nil {
		return domain.User{}, invalid(err)
	}

	var newHash string
	if in.Password != nil {
		h, err := cryptox.HashPassword(*in.Password)
		if err != nil {
			return domain.User{}, fmt.Errorf("hash password: %w", err)
		}
		newHash = h
	}

	var updated domain.User
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		u, err := tx.Users().GetUserByID(ctx, id)
		if err != nil {
			return err
		}

		username, email := u.Username, u.Email
		if in.Username != nil {
			username = strings.TrimSpace(*in.Username)
		}
		if in.Email != nil {
			email = strings.ToLower(strings.TrimSpace(*in.Email))
		}
		if username != u.Username || email != u.Email {
			if err := checkAvailable(ctx, tx.Users(), u.ID, username, email); err != nil {
				return err
			}
		}

		u.Username, u.Email = username, email
		if in.FullName != nil {
			u.FullName = strings.TrimSpace(*in.FullName)
		}
		if in.Roles != nil {
			u.Roles = normalizeRoles(*in.Roles)
		}
		if in.Active != nil {
			u.Active = *in.Active
		}
		u.UpdatedAt = s.now()

		if err := tx.Users().UpdateUser(ctx, u); err != nil {
			return err
		}
		if newHash != "" {
			if err := tx.Users().UpdatePasswordHash(ctx, u.ID, newHash); err != nil {
				return err
			}
			u.PasswordHash = newHash
		}
		updated = u
		return nil
	})
	if err != nil {
		return domain.User{}, userStoreError("update user", err)
	}

	slogx.FromContext(ctx).Info("user updated", slog.String("user_id", id))
	return updated, nil
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.Store.Users().DeleteUser(ctx, id); err != nil {
		return userStoreError("delete user", err)
	}
	slogx.FromContext(ctx).Info("user deleted", slog.String("user_id", id))
	return nil
}

// SeedAdmin creates the admin account when the directory is empty. It
// reports whether an account was created.
func (s *UserService) SeedAdmin(ctx context.Context, password string) (bool, error) {
	if password == "" {
		return false, nil
	}
	empty, err := s.Store.Users().IsEmpty(ctx)
	if err != nil {
		return false, storageFailure("check users", err)
	}
	if !empty {
		return false, nil
	}

	_, err = s.create(ctx, SeedAdminUsername, password, "Administrator", "admin@localhost.localdomain",
		[]string{domain.RoleAdmin, domain.RoleUser}, true)
	if err != nil {
		return false, err
	}
	return true, nil
}

func checkAvailable(ctx context.Context, users store.Users, selfID, username, email string) error {
	existing, err := users.GetUserByUsername(ctx, username)
	if err == nil && existing.ID != selfID {
		return fmt.Errorf("%w: username already exists", ErrUserConflict)
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}

	existing, err = users.GetUserByEmail(ctx, email)
	if err == nil && existing.ID != selfID {
		return fmt.Errorf("%w: email already exists", ErrUserConflict)
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return nil
}

// userStoreError maps store sentinels onto service errors and wraps the rest.
func userStoreError(op string, err error) error {
	switch {
	case errors.Is(err, ErrUserConflict):
		return err
	case errors.Is(err, store.ErrNotFound):
		return ErrUserNotFound
	case errors.Is(err, store.ErrAlreadyExists):
		return fmt.Errorf("%w: username or email already exists", ErrUserConflict)
	default:
		return storageFailure(op, err)
	}
}

func normalizeRoles(roles []string) []string {
	out := make([]string, 0, len(roles))
	seen := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
