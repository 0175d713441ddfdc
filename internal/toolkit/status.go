// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

package toolkit

import (
	"context"

	"supersetctl/cli/internal/backend"
)

// Status is the result of a connection check.
type Status struct {
	Connected  bool
	URL        string
	Username   string
	UserID     int
	Dashboards int
	Charts     int
	// Err is the first failure, nil when Connected.
	Err error
}

// ValidateConnection checks that the server answers and the session's own identity
// resolves. It only reads.
func (s *Session) ValidateConnection(ctx context.Context) Status {
	st := Status{URL: s.opts.URL, Username: s.Username()}
	id, err := s.resolver.Self(ctx)
	if err != nil {
		st.Err = err
		return st
	}
	st.UserID = id
	if st.Dashboards, err = s.api.Count(ctx, backend.KindDashboard, nil); err != nil {
		st.Err = err
		return st
	}
	if st.Charts, err = s.api.Count(ctx, backend.KindChart, nil); err != nil {
		st.Err = err
		return st
	}
	st.Connected = true
	return st
}
