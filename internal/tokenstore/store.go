// Package tokenstore provides durable client-local storage for the
// authentication token pair.
package tokenstore

import (
	"context"
)

// Fixed key names under which the two tokens are stored. They mirror the
// storage layout of the web client so a migration between the two stays
// mechanical.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
)

// Store persists the access/refresh token pair. Implementations hold no
// policy: callers decide when tokens are written or cleared.
//
// Invariant: the pair is stored atomically — after SetTokens both values
// are present, after Clear neither is. SetAccessToken exists because a
// refresh rotates only the access token.
type Store interface {
	// Tokens returns the stored pair. Missing tokens come back as empty
	// strings, not as an error.
	Tokens(ctx context.Context) (access, refresh string, err error)

	// SetTokens stores both tokens in one atomic write.
	SetTokens(ctx context.Context, access, refresh string) error

	// SetAccessToken overwrites only the access token.
	SetAccessToken(ctx context.Context, access string) error

	// Clear removes both tokens.
	Clear(ctx context.Context) error

	// Close releases underlying resources.
	Close() error
}
