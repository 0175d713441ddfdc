// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

package resource

import (
	"context"
	"fmt"

	"github.com/pterm/pterm"

	"supersetctl/cli/internal/backend"
	apperr "supersetctl/cli/internal/errors"
	"supersetctl/cli/internal/executor"
	"supersetctl/cli/internal/logging"
)

// PayloadFunc builds the body of a create call. It runs only when no match exists.
type PayloadFunc func(ctx context.Context) (backend.Payload, error)

// Outcome is the result of an Ensure call.
type Outcome struct {
	ID int
	// Created is true when the resource did not exist and a create was issued.
	Created bool
	// Simulated is true when the create went through a dry-run executor and ID is a placeholder.
	Simulated bool
}

// Ensurer implements create-or-get.
//
// Idempotency holds for sequential use only: Ensure does not lock anything on the
// server, so two concurrent calls with identical criteria can both miss and both
// create. The server's own uniqueness rules (dashboard slugs, for instance) are the
// only protection in that case. Failed creates are returned wrapped and never retried.
type Ensurer struct {
	matcher *Matcher
	exec    executor.Executor
	logger  *pterm.Logger
}

// NewEnsurer returns an ensurer that matches with m and creates through exec.
func NewEnsurer(m *Matcher, exec executor.Executor, logger *pterm.Logger) *Ensurer {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Ensurer{matcher: m, exec: exec, logger: logger}
}

// Matcher returns the matcher used for lookups.
func (e *Ensurer) Matcher() *Matcher { return e.matcher }

// Ensure returns the id of the resource matching c, creating it from build when absent.
func (e *Ensurer) Ensure(ctx context.Context, kind backend.Kind, c Criteria, build PayloadFunc) (Outcome, error) {
	existing, ok, err := e.matcher.Find(ctx, kind, c)
	if err != nil {
		return Outcome{}, err
	}
	if ok {
		e.logger.Debug("resource exists", e.logger.Args("kind", string(kind), "criteria", c.String(), "id", existing.ID))
		return Outcome{ID: existing.ID}, nil
	}

	payload, err := build(ctx)
	if err != nil {
		return Outcome{}, wrap("build payload for", kind, c, err)
	}
	id, err := e.exec.Create(ctx, kind, payload)
	if err != nil {
		return Outcome{}, wrap("create", kind, c, err)
	}
	e.logger.Info("resource created", e.logger.Args("kind", string(kind), "criteria", c.String(), "id", id, "dry_run", e.exec.DryRun()))
	return Outcome{ID: id, Created: true, Simulated: e.exec.DryRun()}, nil
}

// wrap adds kind and criteria context while keeping the error's category.
func wrap(stage string, kind backend.Kind, c Criteria, err error) error {
	return apperr.Annotate(fmt.Sprintf("%s %s %s", stage, kind, c), err)
}
