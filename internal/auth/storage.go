// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

package auth

import (
	"errors"

	"github.com/goccy/go-json"

	"supersetctl/cli/internal/keychain"
)

// Store persists State in the keychain.
type Store struct {
	km *keychain.Manager
}

// NewStore returns a store over km.
func NewStore(km *keychain.Manager) *Store {
	return &Store{km: km}
}

// Load reads the state. Missing state yields the zero value.
func (s *Store) Load() (State, error) {
	var st State
	data, err := s.km.LoadAuthState()
	if errors.Is(err, keychain.ErrNotFound) {
		return st, nil
	}
	if err != nil {
		return st, err
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, err
	}
	return st, nil
}

// Save writes the state.
func (s *Store) Save(st State) error {
	b, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.km.SaveAuthState(b)
}
