// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/pterm/pterm"

	"supersetctl/cli/internal/auth"
	"supersetctl/cli/internal/backend"
	"supersetctl/cli/internal/batch"
	"supersetctl/cli/internal/config"
	"supersetctl/cli/internal/keychain"
	"supersetctl/cli/internal/logging"
	"supersetctl/cli/internal/toolkit"
	"supersetctl/cli/internal/warehouse"
)

// app is what a command needs before it talks to Superset.
type app struct {
	cfg    config.Config
	logger *pterm.Logger
}

func loadApp() (*app, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagURL != "" {
		cfg.SupersetURL = strings.TrimRight(flagURL, "/")
	}
	if flagUser != "" {
		cfg.Username = flagUser
	}
	if flagBestEffort {
		cfg.BestEffortIdentity = true
	}
	if flagVerbose {
		cfg.LogLevel = "debug"
		_ = os.Setenv("SUPERSETCTL_VERBOSE", "1")
	}
	logger := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if cfg.Path != "" {
		logger.Debug("config loaded", logger.Args("path", cfg.Path))
	}
	return &app{cfg: cfg, logger: logger}, nil
}

func (a *app) api() *backend.HTTP {
	return backend.New(a.cfg.SupersetURL, backend.Options{
		Timeout:           a.cfg.Timeout,
		RequestsPerSecond: a.cfg.RequestsPerSecond,
		Logger:            a.logger,
	})
}

func (a *app) authService() (*auth.Service, *keychain.Manager, error) {
	km, err := keychain.GetManager()
	if err != nil {
		return nil, nil, err
	}
	return auth.NewService(km, a.logger), km, nil
}

// session logs in and builds a toolkit session. The returned func releases the
// warehouse connection, if one was opened.
func (a *app) session(ctx context.Context) (*toolkit.Session, func(), error) {
	if err := a.cfg.RequireServer(); err != nil {
		return nil, nil, err
	}
	svc, km, err := a.authService()
	if err != nil {
		return nil, nil, err
	}
	api := a.api()
	login, err := svc.Connect(ctx, api, auth.Credentials{URL: a.cfg.SupersetURL, Username: a.cfg.Username, Password: a.cfg.Password})
	if err != nil {
		return nil, nil, err
	}

	opts := toolkit.Options{
		URL:                a.cfg.SupersetURL,
		Schema:             a.cfg.Schema,
		DatabaseName:       a.cfg.DatabaseName,
		DryRun:             flagDryRun,
		BestEffortIdentity: a.cfg.BestEffortIdentity,
		DefaultOwnerID:     a.cfg.DefaultOwnerID,
		Logger:             a.logger,
	}
	release := func() {}
	if probe := a.openProbe(ctx, km); probe != nil {
		opts.Probe = probe
		release = probe.Close
	}
	return toolkit.New(api, login, opts), release, nil
}

// openProbe connects to the warehouse when a DSN is configured. Failure only
// costs dry runs their column lookups, so it is logged and ignored.
func (a *app) openProbe(ctx context.Context, km *keychain.Manager) *warehouse.Probe {
	raw := a.cfg.WarehouseDSN
	if raw == "" {
		stored, err := km.LoadWarehouseDSN()
		if err != nil {
			if !errors.Is(err, keychain.ErrNotFound) {
				a.logger.Debug("warehouse DSN unavailable", a.logger.Args("error", err.Error()))
			}
			return nil
		}
		raw = stored
	}
	p, err := warehouse.Open(ctx, raw)
	if err != nil {
		a.logger.Warn("warehouse probe disabled", a.logger.Args("error", logging.Mask(err.Error())))
		return nil
	}
	return p
}

func (a *app) orchestrator(s *toolkit.Session) *batch.Orchestrator {
	return batch.New(s, batch.Options{Concurrency: a.cfg.Concurrency})
}
