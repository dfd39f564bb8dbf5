// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passring Authors

// Package adapter provides transport-layer abstractions for communicating
// with the remote sync authority.
//
// The primary abstraction is [ServerAdapter], which decouples the sync engine
// from the underlying protocol. The package ships an HTTP/REST implementation
// ([NewHTTPServerAdapter]).
//
// Error values defined in errors.go are mapped from HTTP status codes by
// mapHTTPError so that callers can use [errors.Is] for transport-agnostic
// error handling (e.g. [ErrVersionConflict] for 409, [ErrUnauthorized] for
// 401). Network-level failures are wrapped in [ErrOffline] so the sync engine
// can distinguish connectivity loss from rejection.
package adapter

import (
	"context"

	"github.com/passring/passring/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/server_adapter_mock.go -package=mock

// ServerAdapter defines transport-agnostic communication with the remote sync
// authority. Implementations are responsible for serialisation, bearer-token
// management, payload integrity hashing, and mapping transport-level errors
// to the sentinel values defined in this package.
type ServerAdapter interface {
	// SetToken stores the bearer token that will be attached to all
	// subsequent authenticated requests.
	SetToken(token string)

	// Token returns the bearer token currently stored in the adapter, or an
	// empty string if no token has been set yet.
	Token() string

	// Push submits a single pending mutation to the authority. The result
	// carries either acceptance with the new canonical version or a conflict
	// with the remote's current state. Returns [ErrVersionConflict] wrapped
	// when the authority rejects the expected version outright, or
	// [ErrOffline] wrapped when the authority is unreachable.
	Push(ctx context.Context, req models.PushRequest) (models.PushResult, error)

	// PullSnapshot fetches the authoritative list of all non-purged
	// resources. Used by force-sync recovery to replace the local cache.
	PullSnapshot(ctx context.Context) (models.Snapshot, error)
}
