package http

import (
	"net/http"

	"github.com/aussiebroadwan/userauth/internal/userauth/domain"
	"github.com/aussiebroadwan/userauth/internal/userauth/service"
	"github.com/aussiebroadwan/userauth/pkg/authsdk"
	"github.com/aussiebroadwan/userauth/pkg/httpx"
	"github.com/aussiebroadwan/userauth/pkg/slogx"
)

// UsersHandler serves /users. Role checks happen in the route table.
type UsersHandler struct {
	Users *service.UserService
}

// HandleList godoc
//
//	@Summary		List users
//	@Tags			Users
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{array}		authsdk.UserResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"invalid_token"
//	@Failure		403	{object}	authsdk.ErrorResponse	"Requires admin"
//	@Router			/users [get].
func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]authsdk.UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, userResponse(u))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleCreate godoc
//
//	@Summary		Create a user
//	@Description	Roles default to [user] and accounts are active unless isActive is false.
//	@Tags			Users
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.CreateUserRequest	true	"New user"
//	@Success		201		{object}	authsdk.UserResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"Failed validation"
//	@Failure		403		{object}	authsdk.ErrorResponse	"Requires admin"
//	@Failure		409		{object}	authsdk.ErrorResponse	"Username or email taken"
//	@Router			/users [post].
func (h *UsersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req authsdk.CreateUserRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		authsdk.ErrInvalidRequest.WithDescription(err.Error()).WriteError(w)
		return
	}

	u, err := h.Users.Create(r.Context(), service.CreateUserInput{
		Username: req.Username,
		Password: req.Password,
		FullName: req.FullName,
		Email:    req.Email,
		Roles:    req.Roles,
		Active:   req.IsActive,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, userResponse(u))
}

// HandleGet godoc
//
//	@Summary		Get a user
//	@Description	Admins may read any user, everyone else only themselves.
//	@Tags			Users
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		string	true	"User ID"
//	@Success		200	{object}	authsdk.UserResponse
//	@Failure		403	{object}	authsdk.ErrorResponse	"Not self and not admin"
//	@Failure		404	{object}	authsdk.ErrorResponse	"No such user"
//	@Router			/users/{id} [get].
func (h *UsersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	u, err := h.Users.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, userResponse(u))
}

// HandleUpdate godoc
//
//	@Summary		Update a user
//	@Description	Partial update. Roles and isActive are ignored unless the caller is an admin.
//	@Description	Admins may set any password of at least 6 characters. A user changing their own
//	@Description	password must meet the registration policy: 8-32 characters with upper and lower
//	@Description	case letters, a digit and one of @$!%*?&.
//	@Tags			Users
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string						true	"User ID"
//	@Param			body	body		authsdk.UpdateUserRequest	true	"Fields to change"
//	@Success		200		{object}	authsdk.UserResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"Failed validation"
//	@Failure		403		{object}	authsdk.ErrorResponse	"Not self and not admin"
//	@Failure		404		{object}	authsdk.ErrorResponse	"No such user"
//	@Failure		409		{object}	authsdk.ErrorResponse	"Username or email taken"
//	@Router			/users/{id} [patch].
func (h *UsersHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req authsdk.UpdateUserRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		authsdk.ErrInvalidRequest.WithDescription(err.Error()).WriteError(w)
		return
	}

	in := service.UpdateUserInput{
		Username: req.Username,
		Password: req.Password,
		FullName: req.FullName,
		Email:    req.Email,
		Roles:    req.Roles,
		Active:   req.IsActive,
	}

	if p, _ := httpx.PrincipalFromContext(r.Context()); !p.HasRole(domain.RoleAdmin) {
		if in.Roles != nil || in.Active != nil {
			slogx.FromContext(r.Context()).Info("ignoring privileged fields on self update")
		}
		in.Roles, in.Active = nil, nil
		in.SelfService = true
	}

	u, err := h.Users.Update(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, userResponse(u))
}

// HandleDelete godoc
//
//	@Summary	Delete a user
//	@Tags		Users
//	@Security	BearerAuth
//	@Param		id	path	string	true	"User ID"
//	@Success	204
//	@Failure	403	{object}	authsdk.ErrorResponse	"Requires admin"
//	@Failure	404	{object}	authsdk.ErrorResponse	"No such user"
//	@Router		/users/{id} [delete].
func (h *UsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.Users.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
