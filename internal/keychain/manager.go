// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package keychain keeps supersetctl secrets in the OS credential store: the
// Superset password, the last issued tokens, the login state and the warehouse DSN.
//
// macOS uses the security command first and falls back to the keyring library.
// Other systems use the native backends of 99designs/keyring. There is no plain
// file fallback.
package keychain

import (
	"errors"
	"runtime"
	"sync"

	"github.com/99designs/keyring"
)

var (
	globalManager *Manager
	mu            sync.Mutex
)

// ErrNotFound is returned when a key holds no value.
var ErrNotFound = errors.New("not found in keychain")

// Manager provides thread-safe access to the credential store.
type Manager struct {
	mu      sync.RWMutex
	backend keychainBackend
}

type keychainBackend interface {
	Set(key, value string) error
	Get(key string) (string, error)
	Delete(key string) error
}

// ServiceName identifies the supersetctl namespace in the credential store.
const ServiceName = "supersetctl"

// Keys used in the credential store.
const (
	KeyAccessToken  = "auth_access_token"
	KeyRefreshToken = "auth_refresh_token"
	KeyAuthState    = "auth_state"
	KeyPassword     = "superset_password"
	KeyWarehouseDSN = "warehouse_dsn"
)

var allKeys = []string{KeyAccessToken, KeyRefreshToken, KeyAuthState, KeyPassword, KeyWarehouseDSN}

// NewManager opens the OS credential store.
func NewManager() (*Manager, error) {
	if runtime.GOOS == "darwin" {
		if b, err := newSecurityBackend(); err == nil {
			return &Manager{backend: b}, nil
		}
	}
	ring, err := openRing()
	if err != nil {
		return nil, err
	}
	return NewWithKeyring(ring), nil
}

// NewWithKeyring returns a manager over ring, e.g. a keyring.ArrayKeyring in tests.
func NewWithKeyring(ring keyring.Keyring) *Manager {
	return &Manager{backend: ringBackend{ring: ring}}
}

// GetManager returns the process-wide manager, opening it on first use. A failed
// open is retried on the next call.
func GetManager() (*Manager, error) {
	mu.Lock()
	defer mu.Unlock()
	if globalManager != nil {
		return globalManager, nil
	}
	m, err := NewManager()
	if err != nil {
		return nil, err
	}
	globalManager = m
	return m, nil
}

func openRing() (keyring.Keyring, error) {
	var allowed []keyring.BackendType
	switch runtime.GOOS {
	case "darwin":
		allowed = []keyring.BackendType{keyring.KeychainBackend, keyring.PassBackend}
	case "windows":
		allowed = []keyring.BackendType{keyring.WinCredBackend}
	case "linux", "freebsd", "openbsd":
		allowed = []keyring.BackendType{keyring.SecretServiceBackend, keyring.KWalletBackend, keyring.PassBackend}
	default:
		return nil, errors.New("secure storage not supported on " + runtime.GOOS)
	}

	cfg := keyring.Config{
		ServiceName:     ServiceName,
		AllowedBackends: allowed,
		PassPrefix:      ServiceName,
		WinCredPrefix:   ServiceName,
		KWalletAppID:    ServiceName,
		KWalletFolder:   ServiceName,
	}
	ring, err := keyring.Open(cfg)
	if err != nil {
		if runtime.GOOS == "darwin" {
			return nil, errors.New("macOS Keychain unavailable. Install 'pass': brew install pass gnupg && gpg --generate-key && pass init <gpg-key-id>")
		}
		return nil, err
	}
	return ring, nil
}

// ringBackend adapts keyring.Keyring to keychainBackend.
type ringBackend struct {
	ring keyring.Keyring
}

func (r ringBackend) Set(key, value string) error {
	return r.ring.Set(keyring.Item{Key: key, Data: []byte(value)})
}

func (r ringBackend) Get(key string) (string, error) {
	it, err := r.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return string(it.Data), nil
}

func (r ringBackend) Delete(key string) error {
	err := r.ring.Remove(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil
	}
	return err
}

func (m *Manager) set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.backend.Set(key, value)
}

// get returns ErrNotFound for missing and empty values.
func (m *Manager) get(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, err := m.backend.Get(key)
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *Manager) clear(keys ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		_ = m.backend.Delete(k)
	}
}

// SaveAuthTokens stores the tokens from the last login. Empty tokens are skipped.
func (m *Manager) SaveAuthTokens(accessToken, refreshToken string) error {
	if accessToken != "" {
		if err := m.set(KeyAccessToken, accessToken); err != nil {
			return err
		}
	}
	if refreshToken != "" {
		if err := m.set(KeyRefreshToken, refreshToken); err != nil {
			return err
		}
	}
	return nil
}

// LoadAccessToken returns the last access token.
func (m *Manager) LoadAccessToken() (string, error) { return m.get(KeyAccessToken) }

// LoadRefreshToken returns the last refresh token.
func (m *Manager) LoadRefreshToken() (string, error) { return m.get(KeyRefreshToken) }

// SavePassword stores the Superset password.
func (m *Manager) SavePassword(password string) error { return m.set(KeyPassword, password) }

// LoadPassword returns the stored Superset password.
func (m *Manager) LoadPassword() (string, error) { return m.get(KeyPassword) }

// SaveAuthState stores serialized login state.
func (m *Manager) SaveAuthState(data []byte) error { return m.set(KeyAuthState, string(data)) }

// LoadAuthState returns serialized login state.
func (m *Manager) LoadAuthState() ([]byte, error) {
	v, err := m.get(KeyAuthState)
	if err != nil {
		return nil, err
	}
	return []byte(v), nil
}

// SaveWarehouseDSN stores the warehouse connection string.
func (m *Manager) SaveWarehouseDSN(dsn string) error { return m.set(KeyWarehouseDSN, dsn) }

// LoadWarehouseDSN returns the stored warehouse connection string.
func (m *Manager) LoadWarehouseDSN() (string, error) { return m.get(KeyWarehouseDSN) }

// ClearAuth removes the password, the tokens and the login state.
func (m *Manager) ClearAuth() error {
	m.clear(KeyAccessToken, KeyRefreshToken, KeyAuthState, KeyPassword)
	return nil
}

// ClearAll removes every supersetctl secret.
func (m *Manager) ClearAll() error {
	m.clear(allKeys...)
	return nil
}
