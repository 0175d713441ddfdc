// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package toolkit is the client-facing surface for managing Superset resources on
// behalf of named users.
//
// A Session is built once per run from an authenticated API and carries everything
// the operations share: the identity resolver, the matcher and ensurer, the executor
// that decides whether mutations really happen, and per-run id caches. Nothing in
// this package is global.
package toolkit

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"golang.org/x/sync/singleflight"

	"supersetctl/cli/internal/backend"
	"supersetctl/cli/internal/executor"
	"supersetctl/cli/internal/identity"
	"supersetctl/cli/internal/logging"
	"supersetctl/cli/internal/resource"
)

// TableProbe reports the columns of a warehouse table. A table that does not exist
// is reported as a NotFound error.
type TableProbe interface {
	TableColumns(ctx context.Context, schema, table string) ([]string, error)
}

// Options configures a Session.
type Options struct {
	// URL is the Superset base URL, reported by ValidateConnection.
	URL string
	// Schema is used for datasets whose definition names none.
	Schema string
	// DatabaseName selects the Superset database datasets are created in. When empty
	// and the server has exactly one database, that one is used.
	DatabaseName string
	// DryRun makes every mutation a simulated one.
	DryRun bool

	BestEffortIdentity bool
	DefaultOwnerID     int

	// Probe, when set, is asked whether a table exists before a dataset is created.
	Probe  TableProbe
	Logger *pterm.Logger
}

// Session is the per-run context every operation goes through. It is safe for
// concurrent use.
type Session struct {
	api      backend.API
	login    backend.Session
	exec     executor.Executor
	resolver *identity.Resolver
	ensurer  *resource.Ensurer
	probe    TableProbe
	logger   *pterm.Logger
	runID    string
	opts     Options

	databases *idCache
	datasets  *idCache
	// flights collapses concurrent ensures of the same dataset within the session.
	flights *singleflight.Group
}

// New builds a session over an authenticated api. login is the result of the login
// that produced the api's token.
func New(api backend.API, login backend.Session, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	var exec executor.Executor = executor.NewLive(api)
	if opts.DryRun {
		exec = executor.NewSimulate()
	}
	matcher := resource.NewMatcher(api, logger)
	return &Session{
		api:   api,
		login: login,
		exec:  exec,
		resolver: identity.New(api, login, identity.Options{
			BestEffort:     opts.BestEffortIdentity,
			DefaultOwnerID: opts.DefaultOwnerID,
			Logger:         logger,
		}),
		ensurer:   resource.NewEnsurer(matcher, exec, logger),
		probe:     opts.Probe,
		logger:    logger,
		runID:     uuid.NewString(),
		opts:      opts,
		databases: newIDCache(),
		datasets:  newIDCache(),
		flights:   new(singleflight.Group),
	}
}

// Simulated returns a session that shares this one's identity and database caches
// but simulates every mutation. Dataset ids are cached separately so placeholders
// never leak into live runs. A session that is already simulating returns itself.
func (s *Session) Simulated() *Session {
	if s.exec.DryRun() {
		return s
	}
	c := *s
	c.exec = executor.NewSimulate()
	c.ensurer = resource.NewEnsurer(s.ensurer.Matcher(), c.exec, s.logger)
	c.datasets = newIDCache()
	c.flights = new(singleflight.Group)
	return &c
}

// DryRun reports whether mutations are simulated.
func (s *Session) DryRun() bool { return s.exec.DryRun() }

// Executor returns the executor mutations go through.
func (s *Session) Executor() executor.Executor { return s.exec }

func (s *Session) API() backend.API             { return s.api }
func (s *Session) Resolver() *identity.Resolver { return s.resolver }
func (s *Session) Logger() *pterm.Logger        { return s.logger }

// RunID identifies this run in logs.
func (s *Session) RunID() string { return s.runID }

// Username is the account the session authenticated as.
func (s *Session) Username() string { return s.login.Username }

// ResolveUserID returns the numeric id of username, or of the session's own user
// when username is empty.
func (s *Session) ResolveUserID(ctx context.Context, username string) (int, error) {
	return s.resolver.Resolve(ctx, username)
}

type idCache struct {
	mu  sync.Mutex
	ids map[string]int
}

func newIDCache() *idCache { return &idCache{ids: make(map[string]int)} }

func (c *idCache) get(key string) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.ids[key]
	return id, ok
}

func (c *idCache) put(key string, id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids[key] = id
}

func (c *idCache) snapshot() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int, len(c.ids))
	for k, v := range c.ids {
		out[k] = v
	}
	return out
}
