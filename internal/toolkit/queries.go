// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

package toolkit

import (
	"context"
	"sort"
	"strings"

	"supersetctl/cli/internal/backend"
	apperr "supersetctl/cli/internal/errors"
)

// Query narrows Charts. Zero fields do not filter.
type Query struct {
	// Owner is a username; "" matches every owner.
	Owner  string
	Table  string
	Schema string
}

func ownerFilter(id int) backend.Filter {
	return backend.Filter{Column: "owners", Operator: backend.OpRelManyMany, Value: id}
}

// OwnedBy lists every resource of kind owned by the user id, ordered by id.
func (s *Session) OwnedBy(ctx context.Context, kind backend.Kind, userID int) ([]backend.Summary, error) {
	found, err := s.api.List(ctx, kind, []backend.Filter{ownerFilter(userID)})
	if err != nil {
		return nil, apperr.Annotate("list "+string(kind)+"s", err)
	}
	// The owners filter is a relation match; keep only exact owners.
	out := found[:0]
	for _, r := range found {
		if r.HasOwner(userID) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Charts lists charts matching q.
func (s *Session) Charts(ctx context.Context, q Query) ([]backend.Summary, error) {
	var filters []backend.Filter
	ownerID := 0
	if q.Owner != "" {
		id, err := s.ResolveUserID(ctx, q.Owner)
		if err != nil {
			return nil, err
		}
		ownerID = id
		filters = append(filters, ownerFilter(id))
	}
	var datasets map[int]bool
	if q.Table != "" {
		dsFilters := []backend.Filter{backend.Eq(backend.KindDataset.NameColumn(), q.Table)}
		if q.Schema != "" {
			dsFilters = append(dsFilters, backend.Eq("schema", q.Schema))
		}
		found, err := s.api.List(ctx, backend.KindDataset, dsFilters)
		if err != nil {
			return nil, apperr.Annotate("list datasets", err)
		}
		datasets = make(map[int]bool, len(found))
		for _, d := range found {
			if d.Name == q.Table && (q.Schema == "" || d.Schema == q.Schema) {
				datasets[d.ID] = true
			}
		}
		if len(datasets) == 0 {
			return nil, nil
		}
	}
	found, err := s.api.List(ctx, backend.KindChart, filters)
	if err != nil {
		return nil, apperr.Annotate("list charts", err)
	}
	var out []backend.Summary
	for _, c := range found {
		if ownerID != 0 && !c.HasOwner(ownerID) {
			continue
		}
		if datasets != nil && !datasets[c.DatasetID] {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// Dashboards lists dashboards owned by owner, or every dashboard when owner is "".
func (s *Session) Dashboards(ctx context.Context, owner string) ([]backend.Summary, error) {
	if owner == "" {
		found, err := s.api.List(ctx, backend.KindDashboard, nil)
		return found, apperr.Annotate("list dashboards", err)
	}
	id, err := s.ResolveUserID(ctx, owner)
	if err != nil {
		return nil, err
	}
	return s.OwnedBy(ctx, backend.KindDashboard, id)
}

// UserSummary is what a user owns.
type UserSummary struct {
	Username   string
	UserID     int
	Charts     []backend.Summary
	Dashboards []backend.Summary
}

// VizTypes counts the user's charts per viz type, sorted by type.
func (u UserSummary) VizTypes() []VizCount {
	counts := make(map[string]int)
	for _, c := range u.Charts {
		counts[c.VizType]++
	}
	out := make([]VizCount, 0, len(counts))
	for t, n := range counts {
		out = append(out, VizCount{VizType: t, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VizType < out[j].VizType })
	return out
}

type VizCount struct {
	VizType string
	Count   int
}

// UserSummary lists the charts and dashboards owned by username.
func (s *Session) UserSummary(ctx context.Context, username string) (UserSummary, error) {
	id, err := s.ResolveUserID(ctx, username)
	if err != nil {
		return UserSummary{}, err
	}
	if username == "" {
		username = s.Username()
	}
	sum := UserSummary{Username: username, UserID: id}
	if sum.Charts, err = s.OwnedBy(ctx, backend.KindChart, id); err != nil {
		return UserSummary{}, err
	}
	if sum.Dashboards, err = s.OwnedBy(ctx, backend.KindDashboard, id); err != nil {
		return UserSummary{}, err
	}
	return sum, nil
}

// MatchingName lists resources of kind whose name contains pattern. The comparison
// is case-sensitive even though the server filter is not.
func (s *Session) MatchingName(ctx context.Context, kind backend.Kind, pattern string) ([]backend.Summary, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, apperr.New(apperr.Validation, "name pattern must not be empty")
	}
	found, err := s.api.List(ctx, kind, []backend.Filter{{Column: kind.NameColumn(), Operator: backend.OpContains, Value: pattern}})
	if err != nil {
		return nil, apperr.Annotate("list "+string(kind)+"s", err)
	}
	out := found[:0]
	for _, r := range found {
		if strings.Contains(r.Name, pattern) {
			out = append(out, r)
		}
	}
	return out, nil
}
