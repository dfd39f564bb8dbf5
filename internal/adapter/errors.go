package adapter

import "errors"

var (
	// ErrUnauthorized indicates a missing, expired, or rejected bearer token.
	ErrUnauthorized = errors.New("client unauthorized")

	// ErrVersionConflict indicates the authority holds a different version of
	// the resource than the one the mutation was based on.
	ErrVersionConflict = errors.New("version conflict")

	// ErrOffline indicates the authority could not be reached at all. The
	// request may be retried when connectivity returns.
	ErrOffline = errors.New("sync authority unreachable")

	// ErrBadRequest indicates the authority rejected the request as
	// malformed.
	ErrBadRequest = errors.New("bad request")

	// ErrInternalServerError indicates a 5xx response from the authority.
	ErrInternalServerError = errors.New("internal server error")
)
