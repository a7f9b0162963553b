package authsdk

import (
	"context"
	"net/http"
	"sync"
)

// Session is an authenticated client. Refresh swaps the held access token
// for a new one; Logout revokes it.
type Session struct {
	client *SDKClient

	mu          sync.RWMutex
	accessToken string
	user        ProfileResponse
}

// AccessToken returns the bearer token currently held.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// User returns the user returned at login. It is empty for sessions built
// with NewSessionFromToken.
func (s *Session) User() ProfileResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Refresh obtains a new access token carrying the caller's current roles.
// The previous token is not revoked.
func (s *Session) Refresh(ctx context.Context) error {
	resp, err := s.client.doJSON(ctx, http.MethodPost, "/auth/refresh", s.AccessToken(), nil)
	if err != nil {
		return err
	}

	var out RefreshResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return err
	}

	s.mu.Lock()
	s.accessToken = out.AccessToken
	s.mu.Unlock()
	return nil
}

// Logout revokes the held access token.
func (s *Session) Logout(ctx context.Context) (*LogoutResponse, error) {
	resp, err := s.client.doJSON(ctx, http.MethodPost, "/auth/logout", s.AccessToken(), nil)
	if err != nil {
		return nil, err
	}

	var out LogoutResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Profile returns the identity the held token was issued for.
func (s *Session) Profile(ctx context.Context) (*ProfileResponse, error) {
	resp, err := s.client.doJSON(ctx, http.MethodGet, "/auth/profile", s.AccessToken(), nil)
	if err != nil {
		return nil, err
	}

	var out ProfileResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
