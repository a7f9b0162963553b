package http

import (
	"net/http"

	"github.com/aussiebroadwan/userauth/internal/userauth/domain"
	"github.com/aussiebroadwan/userauth/internal/userauth/service"
	"github.com/aussiebroadwan/userauth/pkg/authsdk"
	"github.com/aussiebroadwan/userauth/pkg/httpx"
)

const tokenTypeBearer = "Bearer"

// AuthHandler serves the /auth endpoints.
type AuthHandler struct {
	Sessions *service.SessionService
	Users    *service.UserService
}

// HandleLogin godoc
//
//	@Summary		Log in
//	@Description	Exchanges a username and password for a session token.
//	@Description	Unknown users and wrong passwords get the same response.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.LoginResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"Malformed body or failed validation"
//	@Failure		401		{object}	authsdk.ErrorResponse	"invalid_credentials"
//	@Failure		429		{object}	authsdk.ErrorResponse	"Too many attempts"
//	@Header			200		{string}	Cache-Control			"no-store"
//	@Router			/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		authsdk.ErrInvalidRequest.WithDescription(err.Error()).WriteError(w)
		return
	}

	res, err := h.Sessions.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{
		AccessToken: res.Token.Raw,
		TokenType:   tokenTypeBearer,
		ExpiresIn:   expiresIn(h.Sessions),
		User:        profileResponse(res.Identity),
		Message:     "Login successful",
	})
}

// HandleRegister godoc
//
//	@Summary		Register
//	@Description	Creates an active account with the user role.
//	@Description	Passwords need 8 to 32 characters with upper and lower case letters, a digit and one of @$!%*?&.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.RegisterRequest	true	"New account"
//	@Success		201		{object}	authsdk.UserResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"Failed validation"
//	@Failure		409		{object}	authsdk.ErrorResponse	"Username or email taken"
//	@Router			/auth/register [post].
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RegisterRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		authsdk.ErrInvalidRequest.WithDescription(err.Error()).WriteError(w)
		return
	}

	u, err := h.Users.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		FullName: req.FullName,
		Email:    req.Email,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, userResponse(u))
}

// HandleRefresh godoc
//
//	@Summary		Refresh the session token
//	@Description	Issues a new token carrying the caller's current roles. The presented token stays valid until it expires.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.RefreshResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"invalid_token"
//	@Router			/auth/refresh [post].
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(r)
	if !ok {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	tok, err := h.Sessions.Refresh(r.Context(), caller)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.RefreshResponse{
		AccessToken: tok.Raw,
		TokenType:   tokenTypeBearer,
		ExpiresIn:   expiresIn(h.Sessions),
	})
}

// HandleLogout godoc
//
//	@Summary		Log out
//	@Description	Revokes the presented token. Other tokens of the same user are unaffected.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.LogoutResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"invalid_token"
//	@Failure		500	{object}	authsdk.ErrorResponse	"Blacklist unavailable"
//	@Router			/auth/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Logout(r.Context(), httpx.BearerFromContext(r.Context())); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.LogoutResponse{
		Success: true,
		Message: "Logged out successfully",
	})
}

// HandleProfile godoc
//
//	@Summary		Current identity
//	@Description	Returns the subject, username and roles the presented token was issued for.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.ProfileResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"invalid_token"
//	@Router			/auth/profile [get].
func (h *AuthHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(r)
	if !ok {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, profileResponse(caller))
}

func callerIdentity(r *http.Request) (domain.Identity, bool) {
	p, ok := httpx.PrincipalFromContext(r.Context())
	if !ok || p.Subject == "" {
		return domain.Identity{}, false
	}
	return domain.Identity{Subject: p.Subject, Username: p.Username, Roles: p.Roles}, true
}

func expiresIn(s *service.SessionService) int {
	return int(s.Issuer.TTL().Seconds())
}
