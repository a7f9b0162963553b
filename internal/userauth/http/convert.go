package http

import (
	"github.com/aussiebroadwan/userauth/internal/userauth/domain"
	"github.com/aussiebroadwan/userauth/pkg/authsdk"
)

func userResponse(u domain.User) authsdk.UserResponse {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return authsdk.UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		FullName:  u.FullName,
		Email:     u.Email,
		Roles:     roles,
		IsActive:  u.Active,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func profileResponse(id domain.Identity) authsdk.ProfileResponse {
	roles := id.Roles
	if roles == nil {
		roles = []string{}
	}
	return authsdk.ProfileResponse{Sub: id.Subject, Username: id.Username, Roles: roles}
}
