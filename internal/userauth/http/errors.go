package http

import (
	"errors"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/aussiebroadwan/userauth/internal/userauth/service"
	"github.com/aussiebroadwan/userauth/pkg/authsdk"
	"github.com/aussiebroadwan/userauth/pkg/slogx"
)

// writeServiceError maps a service error onto the public error values.
// Rejection reasons and storage details are logged, never sent.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	log := slogx.FromContext(r.Context())

	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		authsdk.ErrInvalidRequest.WithDescription(validationDescription(err)).WriteError(w)
	case errors.Is(err, service.ErrInvalidCredentials):
		authsdk.ErrInvalidCredentials.WriteError(w)
	case errors.Is(err, service.ErrUnauthorized):
		reason, _ := service.ReasonOf(err)
		log.Info("token rejected", "reason", reason)
		authsdk.ErrInvalidToken.WriteError(w)
	case errors.Is(err, service.ErrUserNotFound):
		authsdk.ErrNotFound.WriteError(w)
	case errors.Is(err, service.ErrUserConflict):
		authsdk.ErrConflict.WithDescription(conflictDescription(err)).WriteError(w)
	default:
		log.Error("request failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
	}
}

// writeAuthError renders bearer middleware failures. A storage failure while
// validating is a 500, everything else a generic 401.
func writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, service.ErrStorageFailure) {
		slogx.FromContext(r.Context()).Error("token validation failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}
	authsdk.ErrInvalidToken.WriteError(w)
}

func validationDescription(err error) string {
	var fields validation.Errors
	if errors.As(err, &fields) {
		return fields.Error()
	}
	return authsdk.ErrInvalidRequest.Description
}

// conflictDescription strips the sentinel prefix, leaving e.g.
// "username already exists".
func conflictDescription(err error) string {
	return strings.TrimPrefix(err.Error(), service.ErrUserConflict.Error()+": ")
}
