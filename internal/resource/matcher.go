// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

package resource

import (
	"context"

	"github.com/pterm/pterm"

	"supersetctl/cli/internal/backend"
	"supersetctl/cli/internal/executor"
	"supersetctl/cli/internal/logging"
)

// Matcher finds at most one existing resource for a criteria.
type Matcher struct {
	api    backend.API
	logger *pterm.Logger
}

// NewMatcher returns a matcher reading from api.
func NewMatcher(api backend.API, logger *pterm.Logger) *Matcher {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Matcher{api: api, logger: logger}
}

// Find returns the matching resource and true, or false when none exists.
// When several resources match, the one with the lowest id wins and a warning is logged.
func (m *Matcher) Find(ctx context.Context, kind backend.Kind, c Criteria) (backend.Summary, bool, error) {
	if err := c.Validate(kind); err != nil {
		return backend.Summary{}, false, err
	}
	// A chart on a dataset that only exists in a dry run cannot exist on the server.
	if executor.IsPlaceholder(c.DatasetID) {
		return backend.Summary{}, false, nil
	}

	found, err := m.api.List(ctx, kind, c.filters(kind))
	if err != nil {
		return backend.Summary{}, false, wrap("find", kind, c, err)
	}
	var best backend.Summary
	n := 0
	for _, s := range found {
		if !c.accept(kind, s) {
			continue
		}
		if n == 0 || s.ID < best.ID {
			best = s
		}
		n++
	}
	if n == 0 {
		return backend.Summary{}, false, nil
	}
	if n > 1 {
		m.logger.Warn("duplicate resources match, using the oldest",
			m.logger.Args("kind", string(kind), "criteria", c.String(), "matches", n, "id", best.ID))
	}
	return best, true, nil
}
