// Package memory provides an in-process account store for development
// and tests.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/dropDatabas3/socialgate/internal/store"
)

type account struct {
	id       string
	fullname string
	provider string
}

// Store keeps accounts keyed by lowercased email.
type Store struct {
	mu       sync.Mutex
	accounts map[string]*account
}

func New() *Store {
	return &Store{accounts: make(map[string]*account)}
}

func (s *Store) LoginOrRegister(_ context.Context, email, fullname, provider string) (store.Account, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return store.Account{}, store.ErrEmailRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if a, ok := s.accounts[email]; ok {
		// Keep the freshest display name the provider handed us.
		if fullname != "" {
			a.fullname = fullname
		}
		return store.Account{ID: a.id}, nil
	}

	a := &account{id: uuid.NewString(), fullname: fullname, provider: provider}
	s.accounts[email] = a
	return store.Account{ID: a.id, Created: true}, nil
}
