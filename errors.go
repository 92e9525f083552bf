package authgate

import "errors"

var (
	// ErrUnauthorized is an exported constant or variable used by the authentication service.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRoleNotGranted is an exported constant or variable used by the authentication service.
	ErrRoleNotGranted = errors.New("role not granted on the requested platform")
	// ErrUserDoesNotExist is an exported constant or variable used by the authentication service.
	ErrUserDoesNotExist = errors.New("user does not exist")
	// ErrUserAlreadyExists is an exported constant or variable used by the authentication service.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrCodeAlreadySent is an exported constant or variable used by the authentication service.
	ErrCodeAlreadySent = errors.New("verification code already sent")
	// ErrInvalidVerificationCode is an exported constant or variable used by the authentication service.
	ErrInvalidVerificationCode = errors.New("invalid verification code")
	// ErrVerificationUnavailable is an exported constant or variable used by the authentication service.
	ErrVerificationUnavailable = errors.New("verification backend unavailable")
	// ErrUnknownIdentityKind is an exported constant or variable used by the authentication service.
	ErrUnknownIdentityKind = errors.New("unknown identity kind")
)
