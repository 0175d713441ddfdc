// Package auth manages the Superset login of the CLI. Credentials and the login
// state live in the OS keychain; every command logs in again with the stored
// password because Superset access tokens are short lived.
package auth

import (
	"strings"
	"time"
)

// State is the persisted login state.
type State struct {
	LoggedIn bool   `json:"logged_in"`
	URL      string `json:"url"`
	Username string `json:"username"`
	// UserID is the id read from the access token, 0 when the token carried none.
	UserID     int       `json:"user_id,omitempty"`
	LoggedInAt time.Time `json:"logged_in_at"`
}

// Matches reports whether the state belongs to username on the server at url.
func (s State) Matches(url, username string) bool {
	return s.LoggedIn &&
		strings.TrimRight(s.URL, "/") == strings.TrimRight(url, "/") &&
		s.Username == username
}
