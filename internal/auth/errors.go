package auth

import "errors"

// Sentinel errors for auth operations.
var (
	// ErrInvalidCredentials is returned by a Directory when a username or
	// password does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserNotFound is returned by a Directory when no user exists for
	// the given id or username.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserInactive is returned by a Directory when the account exists
	// but has been disabled.
	ErrUserInactive = errors.New("user account is inactive")

	// ErrTokenInvalid covers every token verification failure: malformed,
	// expired, or tampered tokens are deliberately indistinguishable so
	// verification internals never leak to callers.
	ErrTokenInvalid = errors.New("invalid token")
)
