/*
Package authsdk is the Go client for the userauth service, and the home of
the wire types and error values the service itself writes.

	client := authsdk.NewSDKClient("http://localhost:8080")

	session, err := client.Login(ctx, "alice", "s3cret!")
	if errors.Is(err, authsdk.ErrInvalidCredentials) {
		// unknown user or wrong password, deliberately indistinguishable
	}

	profile, err := session.Profile(ctx)

	// Pick up role changes made since login.
	err = session.Refresh(ctx)

	// Revoke the token server side.
	_, err = session.Logout(ctx)

Every non-2xx response is returned as an *APIError. Compare with errors.Is
against the predefined values (ErrInvalidToken, ErrInsufficientRole, ...),
which match on status and code only.
*/
package authsdk
