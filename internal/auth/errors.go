package auth

import "errors"

// Sentinel errors for the login, logout and reset flows. Handlers map
// these onto HTTP statuses; everything else coming out of the service is
// an internal failure and surfaces as an opaque 500.
var (
	// ErrCaptchaMismatch: the submitted answer does not match the pending
	// challenge (or there is no pending challenge).
	ErrCaptchaMismatch = errors.New("captcha mismatch")

	// ErrAccountNotFound: no account row for the submitted name. Handlers
	// present this with the same body as ErrInvalidCredentials so the
	// response does not reveal which accounts exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInvalidCredentials: the password does not match the stored hash.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrRateLimited: the account is inside its lockout window. The
	// attempt is not counted.
	ErrRateLimited = errors.New("too many attempts")

	// ErrNoActiveSession: logout was called without an authenticated
	// session.
	ErrNoActiveSession = errors.New("no active session")

	// ErrTokenNotFound / ErrTokenExpired: reset-token resolution failures.
	ErrTokenNotFound = errors.New("reset token not found")
	ErrTokenExpired  = errors.New("reset token expired")

	// ErrDelivery: the reset mail could not be dispatched. Distinct from
	// validation errors so callers can tell "bad input" from "mail relay
	// down".
	ErrDelivery = errors.New("mail delivery failed")
)
