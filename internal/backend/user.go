// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"context"
	"net/http"
	"net/url"

	apperr "supersetctl/cli/internal/errors"
)

// LookupUser calls GET /api/v1/security/users/ filtered by username.
// Only an exact, case-sensitive match counts.
func (h *HTTP) LookupUser(ctx context.Context, username string) (int, error) {
	q, err := listQuery([]Filter{Eq("username", username)}, 0, 25)
	if err != nil {
		return 0, apperr.Wrap(apperr.Validation, "encode user query", err)
	}
	var out struct {
		Result []struct {
			ID       int    `json:"id"`
			Username string `json:"username"`
		} `json:"result"`
	}
	if _, err := h.do(ctx, request{
		method: http.MethodGet,
		path:   apiPrefix + "security/users/",
		query:  url.Values{"q": {q}},
		out:    &out,
	}); err != nil {
		return 0, err
	}
	for _, u := range out.Result {
		if u.Username == username && u.ID > 0 {
			return u.ID, nil
		}
	}
	return 0, apperr.Newf(apperr.NotFound, "user %q", username)
}
