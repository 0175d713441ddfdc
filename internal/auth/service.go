// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/pterm/pterm"

	"supersetctl/cli/internal/backend"
	apperr "supersetctl/cli/internal/errors"
	"supersetctl/cli/internal/keychain"
	"supersetctl/cli/internal/logging"
)

// Service logs in against Superset and keeps the result in the keychain.
type Service struct {
	km     *keychain.Manager
	store  *Store
	logger *pterm.Logger
	now    func() time.Time
}

// NewService returns a service over km. A nil logger discards output.
func NewService(km *keychain.Manager, logger *pterm.Logger) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{km: km, store: NewStore(km), logger: logger, now: time.Now}
}

// Credentials identify a Superset account.
type Credentials struct {
	URL      string
	Username string
	// Password may be empty, in which case the stored password is used.
	Password string
}

// Login authenticates through api, stores the tokens and the login state, and with
// remember set also the password.
func (s *Service) Login(ctx context.Context, api backend.API, c Credentials, remember bool) (State, backend.Session, error) {
	if c.Password == "" {
		return State{}, backend.Session{}, apperr.New(apperr.Validation, "password is required to log in")
	}
	sess, err := api.Login(ctx, c.Username, c.Password)
	if err != nil {
		return State{}, backend.Session{}, err
	}
	st := State{LoggedIn: true, URL: c.URL, Username: c.Username, LoggedInAt: s.now().UTC()}
	if id, err := backend.UserIDFromToken(sess.AccessToken); err == nil {
		st.UserID = id
	} else {
		s.logger.Debug("access token carries no user id", s.logger.Args("error", err.Error()))
	}

	if err := s.km.SaveAuthTokens(sess.AccessToken, sess.RefreshToken); err != nil {
		return st, sess, err
	}
	if remember {
		if err := s.km.SavePassword(c.Password); err != nil {
			return st, sess, err
		}
	}
	if err := s.store.Save(st); err != nil {
		return st, sess, err
	}
	s.logger.Info("logged in", s.logger.Args("url", c.URL, "user", c.Username, "user_id", st.UserID))
	return st, sess, nil
}

// Connect opens a session for a command. Without a password in c it uses the
// stored one, which requires a previous login as the same user on the same server.
func (s *Service) Connect(ctx context.Context, api backend.API, c Credentials) (backend.Session, error) {
	if c.Password == "" {
		st, err := s.store.Load()
		if err != nil {
			return backend.Session{}, err
		}
		if !st.Matches(c.URL, c.Username) {
			return backend.Session{}, apperr.Newf(apperr.Validation, "not logged in as %s on %s; run supersetctl login", c.Username, c.URL)
		}
		pw, err := s.km.LoadPassword()
		if errors.Is(err, keychain.ErrNotFound) {
			return backend.Session{}, apperr.New(apperr.Validation, "no stored password; set SUPERSET_PASSWORD or run supersetctl login --remember")
		}
		if err != nil {
			return backend.Session{}, err
		}
		c.Password = pw
	}
	sess, err := api.Login(ctx, c.Username, c.Password)
	if err != nil {
		return backend.Session{}, err
	}
	if err := s.km.SaveAuthTokens(sess.AccessToken, sess.RefreshToken); err != nil {
		s.logger.Warn("could not store tokens", s.logger.Args("error", err.Error()))
	}
	return sess, nil
}

// Current returns the stored login state.
func (s *Service) Current() (State, error) {
	return s.store.Load()
}

// Logout removes the stored credentials and state. The warehouse DSN is kept.
func (s *Service) Logout() error {
	return s.km.ClearAuth()
}
