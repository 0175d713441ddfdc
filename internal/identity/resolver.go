// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package identity maps usernames to Superset's numeric user ids.
//
// Resolution runs an ordered list of strategies and the first success wins:
//
//  1. token-claim: for the session's own identity, read the subject of the access token.
//  2. directory: look the username up through the users endpoint.
//  3. self-permission-fallback: when the lookup was denied and the username is the
//     session's own, use the token claim after all.
//  4. best-effort-default: only when enabled, return a configured default id.
//
// A connection failure in any strategy ends the chain immediately. Results are cached
// per Resolver, and concurrent requests for the same username share one resolution.
package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pterm/pterm"
	"golang.org/x/sync/singleflight"

	"supersetctl/cli/internal/backend"
	apperr "supersetctl/cli/internal/errors"
	"supersetctl/cli/internal/logging"
)

// ErrNotApplicable is returned by a strategy that does not apply to the request.
// It does not replace the error recorded from earlier strategies.
var ErrNotApplicable = errors.New("strategy not applicable")

// Request is what every strategy sees.
type Request struct {
	// Username is the requested user; empty means the session's own identity.
	Username string
	// SessionUser is the username the session authenticated as.
	SessionUser string
	// Token is the session's access token.
	Token string
}

// IsSelf reports whether the request targets the session's own identity.
func (r Request) IsSelf() bool { return r.Username == "" }

// Strategy is one step of the resolution chain. prev is the error recorded from the
// last strategy that applied, or nil.
type Strategy struct {
	Name    string
	Resolve func(ctx context.Context, req Request, prev error) (int, error)
}

// Options tunes the chain.
type Options struct {
	// BestEffort enables the terminal fallback to DefaultOwnerID.
	BestEffort     bool
	DefaultOwnerID int
	Logger         *pterm.Logger
}

// Resolver resolves and caches user ids for one session. It is safe for concurrent use.
type Resolver struct {
	session    backend.Session
	strategies []Strategy
	logger     *pterm.Logger

	mu    sync.Mutex
	cache map[string]int
	group singleflight.Group
}

// New builds a resolver with the standard strategy chain.
func New(api backend.API, session backend.Session, opts Options) *Resolver {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	chain := []Strategy{
		ExplicitID(),
		TokenClaim(),
		Directory(api),
		SelfPermissionFallback(),
	}
	if opts.BestEffort {
		chain = append(chain, BestEffortDefault(opts.DefaultOwnerID, logger))
	}
	return NewWithStrategies(session, chain, logger)
}

// NewWithStrategies builds a resolver over an explicit chain.
func NewWithStrategies(session backend.Session, chain []Strategy, logger *pterm.Logger) *Resolver {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Resolver{
		session:    session,
		strategies: chain,
		logger:     logger,
		cache:      make(map[string]int),
	}
}

// Strategies returns the names of the chain in evaluation order.
func (r *Resolver) Strategies() []string {
	names := make([]string, len(r.strategies))
	for i, s := range r.strategies {
		names[i] = s.Name
	}
	return names
}

// Cached returns the cached id for username, if any.
func (r *Resolver) Cached(username string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.cache[username]
	return id, ok
}

// Self resolves the session's own user id.
func (r *Resolver) Self(ctx context.Context) (int, error) { return r.Resolve(ctx, "") }

// Resolve returns the user id for username ("" for the session's own identity).
// Once resolved, the same id is returned for the lifetime of the resolver.
func (r *Resolver) Resolve(ctx context.Context, username string) (int, error) {
	if id, ok := r.Cached(username); ok {
		return id, nil
	}
	v, err, _ := r.group.Do(username, func() (any, error) {
		if id, ok := r.Cached(username); ok {
			return id, nil
		}
		id, err := r.run(ctx, username)
		if err != nil {
			return 0, err
		}
		r.mu.Lock()
		r.cache[username] = id
		r.mu.Unlock()
		return id, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

func (r *Resolver) run(ctx context.Context, username string) (int, error) {
	req := Request{Username: username, SessionUser: r.session.Username, Token: r.session.AccessToken}
	var last error
	for _, s := range r.strategies {
		id, err := s.Resolve(ctx, req, last)
		switch {
		case err == nil && id > 0:
			r.logger.Debug("user resolved", r.logger.Args("username", display(username), "strategy", s.Name, "id", id))
			return id, nil
		case errors.Is(err, ErrNotApplicable):
			continue
		case err == nil:
			err = apperr.Newf(apperr.Identity, "strategy %s returned no id", s.Name)
		}
		if apperr.IsConnection(err) || apperr.HasKind(err, apperr.Validation) || ctx.Err() != nil {
			return 0, err
		}
		r.logger.Debug("identity strategy failed", r.logger.Args("username", display(username), "strategy", s.Name, "error", err.Error()))
		last = err
	}
	return 0, apperr.Wrap(apperr.Identity, fmt.Sprintf("cannot resolve user %s", display(username)), last)
}

func display(username string) string {
	if username == "" {
		return "<self>"
	}
	return fmt.Sprintf("%q", username)
}
