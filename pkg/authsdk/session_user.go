package authsdk

import (
	"context"
	"net/http"
	"net/url"
)

// User management. Listing, creating and deleting need the admin role;
// callers may get and update their own record.

func (s *Session) ListUsers(ctx context.Context) ([]UserResponse, error) {
	resp, err := s.client.doJSON(ctx, http.MethodGet, "/users", s.AccessToken(), nil)
	if err != nil {
		return nil, err
	}

	var users []UserResponse
	if err := decodeJSON(resp, &users, http.StatusOK); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Session) CreateUser(ctx context.Context, req CreateUserRequest) (*UserResponse, error) {
	resp, err := s.client.doJSON(ctx, http.MethodPost, "/users", s.AccessToken(), req)
	if err != nil {
		return nil, err
	}

	var user UserResponse
	if err := decodeJSON(resp, &user, http.StatusCreated); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Session) GetUser(ctx context.Context, id string) (*UserResponse, error) {
	resp, err := s.client.doJSON(ctx, http.MethodGet, "/users/"+url.PathEscape(id), s.AccessToken(), nil)
	if err != nil {
		return nil, err
	}

	var user UserResponse
	if err := decodeJSON(resp, &user, http.StatusOK); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Session) UpdateUser(ctx context.Context, id string, req UpdateUserRequest) (*UserResponse, error) {
	resp, err := s.client.doJSON(ctx, http.MethodPatch, "/users/"+url.PathEscape(id), s.AccessToken(), req)
	if err != nil {
		return nil, err
	}

	var user UserResponse
	if err := decodeJSON(resp, &user, http.StatusOK); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Session) DeleteUser(ctx context.Context, id string) error {
	resp, err := s.client.doJSON(ctx, http.MethodDelete, "/users/"+url.PathEscape(id), s.AccessToken(), nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}
