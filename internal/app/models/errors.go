package models

import "errors"

// Domain specific errors shared across services and handlers.
var (
	ErrNotFound        = errors.New("requested item not found")
	ErrShareExpired    = errors.New("share has expired")
	ErrForbidden       = errors.New("action forbidden")
	ErrPremiumRequired = errors.New("premium subscription required")
	ErrBreadcrumbLimit = errors.New("breadcrumb limit reached for session")
	ErrBadRequest      = errors.New("bad request")
)
