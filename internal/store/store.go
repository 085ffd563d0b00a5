// Package store defines account resolution for social login: mapping a
// verified external identity (email, display name, provider) to a local
// account, creating one when absent.
package store

import (
	"context"
	"errors"
)

// Account is the result of resolving an external profile.
type Account struct {
	// ID is the local account identifier.
	ID string

	// Created reports whether this resolution registered a new account.
	Created bool
}

// Errors returned by implementations.
var (
	// ErrEmailRequired: a profile without an email cannot be resolved
	// to an account.
	ErrEmailRequired = errors.New("email is required to resolve an account")

	// ErrResolveFailed wraps backend failures.
	ErrResolveFailed = errors.New("account resolution failed")
)

// Store resolves external identities to local accounts.
type Store interface {
	// LoginOrRegister returns the local account for the given identity,
	// registering one if none exists yet.
	LoginOrRegister(ctx context.Context, email, fullname, provider string) (Account, error)
}
