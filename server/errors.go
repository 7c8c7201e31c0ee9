package server

import "errors"

var (
	// ErrResolverRequired is returned when a server is created without a resolver.
	ErrResolverRequired = errors.New("resolver is required")

	// ErrInvalidParameter marks a malformed or out-of-range request parameter.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrMissingParameter marks an absent required request parameter.
	ErrMissingParameter = errors.New("missing parameter")
)
