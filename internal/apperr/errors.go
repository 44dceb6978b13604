// Package apperr defines the closed set of error variants the API can
// surface to clients. Handlers and middleware return these sentinels (or
// wrap them with %w) and the HTTP boundary maps each variant to a status
// code through a single exhaustive switch. Anything that does not match a
// known variant is reported as an internal error with details withheld
// outside of dev mode.
package apperr

import "errors"

// ErrMissingCredentials is returned when a login request lacks email or
// password. Maps to HTTP 400.
var ErrMissingCredentials = errors.New("please provide email and password")

// ErrInvalidCredentials covers both an unknown email and a wrong password so
// that responses do not reveal which part failed. Maps to HTTP 401.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrUnauthenticated is returned by the route guard when no usable bearer
// token accompanies the request. Maps to HTTP 401.
var ErrUnauthenticated = errors.New("you are not logged in, please log in to get access")

// ErrForbidden is returned when an authenticated user lacks the role
// required for an action. Maps to HTTP 403.
var ErrForbidden = errors.New("you do not have permission to perform this action")

// ErrNotFound is returned when a requested entity does not exist. Maps to
// HTTP 404.
var ErrNotFound = errors.New("resource not found")

// ErrInvalidOrExpiredToken is returned when a password reset token does not
// match any user or its expiry has passed. Maps to HTTP 400.
var ErrInvalidOrExpiredToken = errors.New("token is invalid or expired")

// ErrDeliveryFailed is returned when an outbound email cannot be handed to
// the delivery collaborator. Maps to HTTP 500.
var ErrDeliveryFailed = errors.New("there was an error sending the email, please try again later")

// ErrBadInput covers malformed request shapes such as an unknown filter
// operator or password fields posted to a profile update. Maps to HTTP 400.
var ErrBadInput = errors.New("invalid request")

// Status maps an error variant to its HTTP status code. The switch is
// exhaustive over the taxonomy above; unclassified errors are 500.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrMissingCredentials),
		errors.Is(err, ErrInvalidOrExpiredToken),
		errors.Is(err, ErrBadInput):
		return 400
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrUnauthenticated):
		return 401
	case errors.Is(err, ErrForbidden):
		return 403
	case errors.Is(err, ErrNotFound):
		return 404
	case errors.Is(err, ErrDeliveryFailed):
		return 500
	default:
		return 500
	}
}
