package core

import "context"

// TokenKey is the key the bearer token is kept under in a TokenStore.
const TokenKey = "token"

// TokenStore is a durable key-value storage scoped to one backend origin.
// Get returns "" and a nil error when the key is not set.
type TokenStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
