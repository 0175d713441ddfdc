// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

package identity

import (
	"context"
	"strconv"
	"strings"

	"github.com/pterm/pterm"

	"supersetctl/cli/internal/backend"
	apperr "supersetctl/cli/internal/errors"
)

// IDPrefix marks a username that is really a numeric user id, e.g. "id:42".
const IDPrefix = "id:"

// ExplicitID accepts "id:<n>" in place of a username and returns n unchecked.
func ExplicitID() Strategy {
	return Strategy{
		Name: "explicit-id",
		Resolve: func(ctx context.Context, req Request, prev error) (int, error) {
			raw, ok := strings.CutPrefix(req.Username, IDPrefix)
			if !ok {
				return 0, ErrNotApplicable
			}
			id, err := strconv.Atoi(raw)
			if err != nil || id <= 0 {
				return 0, apperr.Newf(apperr.Validation, "%q is not a valid user id", req.Username)
			}
			return id, nil
		},
	}
}

// TokenClaim reads the subject claim of the session token. It applies to self
// requests only and never touches the network.
func TokenClaim() Strategy {
	return Strategy{
		Name: "token-claim",
		Resolve: func(ctx context.Context, req Request, prev error) (int, error) {
			if !req.IsSelf() {
				return 0, ErrNotApplicable
			}
			return backend.UserIDFromToken(req.Token)
		},
	}
}

// Directory queries the users endpoint. Self requests are looked up by the
// session username.
func Directory(api backend.API) Strategy {
	return Strategy{
		Name: "directory",
		Resolve: func(ctx context.Context, req Request, prev error) (int, error) {
			name := req.Username
			if name == "" {
				name = req.SessionUser
			}
			if name == "" {
				return 0, ErrNotApplicable
			}
			return api.LookupUser(ctx, name)
		},
	}
}

// SelfPermissionFallback returns the token claim when the directory denied the lookup
// and the requested username is exactly the session username.
func SelfPermissionFallback() Strategy {
	return Strategy{
		Name: "self-permission-fallback",
		Resolve: func(ctx context.Context, req Request, prev error) (int, error) {
			if !apperr.HasKind(prev, apperr.Permission) {
				return 0, ErrNotApplicable
			}
			target := req.Username
			if target == "" {
				target = req.SessionUser
			}
			if target == "" || target != req.SessionUser {
				return 0, ErrNotApplicable
			}
			return backend.UserIDFromToken(req.Token)
		},
	}
}

// BestEffortDefault returns defaultID with a warning. It does not apply when no
// positive default is configured.
func BestEffortDefault(defaultID int, logger *pterm.Logger) Strategy {
	return Strategy{
		Name: "best-effort-default",
		Resolve: func(ctx context.Context, req Request, prev error) (int, error) {
			if defaultID <= 0 {
				return 0, ErrNotApplicable
			}
			cause := ""
			if prev != nil {
				cause = prev.Error()
			}
			logger.Warn("falling back to default owner", logger.Args("username", display(req.Username), "id", defaultID, "cause", cause))
			return defaultID, nil
		},
	}
}
