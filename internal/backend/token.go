// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	apperr "supersetctl/cli/internal/errors"
)

// UserIDFromToken extracts the id of the authenticated user from a Superset access token.
// The signature is not verified: the token came from the server over the session that
// is about to use it, and only the subject is read.
//
// Newer servers put the id in "sub" as a string, older ones as a number or in "identity".
func UserIDFromToken(token string) (int, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, apperr.New(apperr.Identity, "no access token")
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return 0, apperr.Wrap(apperr.Identity, "malformed access token", err)
	}
	for _, key := range []string{"sub", "identity"} {
		if id, ok := claimInt(claims[key]); ok {
			return id, nil
		}
	}
	return 0, apperr.New(apperr.Identity, "access token carries no numeric subject")
}

func claimInt(v any) (int, bool) {
	switch x := v.(type) {
	case float64:
		if x > 0 && x == float64(int(x)) {
			return int(x), true
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(x)); err == nil && n > 0 {
			return n, true
		}
	}
	return 0, false
}
