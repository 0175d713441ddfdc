// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"context"
	"net/http"

	apperr "supersetctl/cli/internal/errors"
)

// Login calls POST /api/v1/security/login with the database auth provider.
func (h *HTTP) Login(ctx context.Context, username, password string) (Session, error) {
	var out struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	body := map[string]any{
		"username": username,
		"password": password,
		"provider": "db",
		"refresh":  true,
	}
	_, err := h.do(ctx, request{
		method:    http.MethodPost,
		path:      apiPrefix + "security/login",
		body:      body,
		out:       &out,
		anonymous: true,
	})
	if err != nil {
		return Session{}, err
	}
	if out.AccessToken == "" {
		return Session{}, apperr.New(apperr.Remote, "login response carried no access_token")
	}
	h.SetToken(out.AccessToken, username)
	return Session{AccessToken: out.AccessToken, RefreshToken: out.RefreshToken, Username: username}, nil
}
