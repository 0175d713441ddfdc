// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"

	"github.com/goccy/go-json"

	apperr "supersetctl/cli/internal/errors"
)

// idList decodes the owners/dashboards arrays, which Superset returns either as
// objects carrying an id or as bare ids depending on the endpoint.
type idList []int

func (l *idList) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*l = nil
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make([]int, 0, len(raw))
	for _, r := range raw {
		var n int
		if err := json.Unmarshal(r, &n); err == nil {
			out = append(out, n)
			continue
		}
		var obj struct {
			ID int `json:"id"`
		}
		if err := json.Unmarshal(r, &obj); err != nil {
			return err
		}
		out = append(out, obj.ID)
	}
	*l = out
	return nil
}

// item is the union of the fields the toolkit reads from any resource kind.
type item struct {
	ID             int    `json:"id"`
	SliceName      string `json:"slice_name"`
	TableName      string `json:"table_name"`
	DashboardTitle string `json:"dashboard_title"`
	DatabaseName   string `json:"database_name"`
	Slug           string `json:"slug"`
	Schema         string `json:"schema"`
	VizType        string `json:"viz_type"`
	DatasourceID   int    `json:"datasource_id"`
	Database       *struct {
		ID int `json:"id"`
	} `json:"database"`
	Owners     idList `json:"owners"`
	Dashboards idList `json:"dashboards"`
	Columns    []struct {
		ColumnName string `json:"column_name"`
		IsDttm     bool   `json:"is_dttm"`
	} `json:"columns"`
	MainDttmCol string `json:"main_dttm_col"`
}

func (it item) summary(kind Kind) Summary {
	s := Summary{
		ID:                 it.ID,
		Slug:               it.Slug,
		Schema:             it.Schema,
		DatasetID:          it.DatasourceID,
		VizType:            it.VizType,
		OwnerIDs:           []int(it.Owners),
		DashboardIDs:       []int(it.Dashboards),
		MainDatetimeColumn: it.MainDttmCol,
	}
	switch kind {
	case KindChart:
		s.Name = it.SliceName
	case KindDataset:
		s.Name = it.TableName
	case KindDashboard:
		s.Name = it.DashboardTitle
	case KindDatabase:
		s.Name = it.DatabaseName
	}
	if it.Database != nil {
		s.DatabaseID = it.Database.ID
	}
	for _, c := range it.Columns {
		s.Columns = append(s.Columns, c.ColumnName)
		if c.IsDttm {
			s.TemporalColumns = append(s.TemporalColumns, c.ColumnName)
		}
	}
	return s
}

type listResponse struct {
	Count  int    `json:"count"`
	Result []item `json:"result"`
}

// List calls GET /api/v1/<kind>/ page by page until every match is read.
// Results are ordered by id.
func (h *HTTP) List(ctx context.Context, kind Kind, filters []Filter) ([]Summary, error) {
	if !kind.Valid() {
		return nil, apperr.Newf(apperr.Validation, "unknown resource kind %q", kind)
	}
	var all []Summary
	for page := 0; page < maxPages; page++ {
		q, err := listQuery(filters, page, h.pageSize)
		if err != nil {
			return nil, apperr.Wrap(apperr.Validation, "encode list query", err)
		}
		var out listResponse
		if _, err := h.do(ctx, request{
			method: http.MethodGet,
			path:   collectionPath(kind),
			query:  url.Values{"q": {q}},
			out:    &out,
		}); err != nil {
			return nil, err
		}
		for _, it := range out.Result {
			all = append(all, it.summary(kind))
		}
		if len(out.Result) == 0 || len(all) >= out.Count {
			break
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all, nil
}

// Count reads the total from a single one-row page.
func (h *HTTP) Count(ctx context.Context, kind Kind, filters []Filter) (int, error) {
	if !kind.Valid() {
		return 0, apperr.Newf(apperr.Validation, "unknown resource kind %q", kind)
	}
	q, err := listQuery(filters, 0, 1)
	if err != nil {
		return 0, apperr.Wrap(apperr.Validation, "encode list query", err)
	}
	var out listResponse
	if _, err := h.do(ctx, request{
		method: http.MethodGet,
		path:   collectionPath(kind),
		query:  url.Values{"q": {q}},
		out:    &out,
	}); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// Get calls GET /api/v1/<kind>/<id>.
func (h *HTTP) Get(ctx context.Context, kind Kind, id int) (Summary, error) {
	var out struct {
		ID     int  `json:"id"`
		Result item `json:"result"`
	}
	if _, err := h.do(ctx, request{method: http.MethodGet, path: itemPath(kind, id), out: &out}); err != nil {
		return Summary{}, err
	}
	if out.Result.ID == 0 {
		out.Result.ID = out.ID
	}
	if out.Result.ID == 0 {
		out.Result.ID = id
	}
	return out.Result.summary(kind), nil
}

// Create calls POST /api/v1/<kind>/ and returns the new id.
func (h *HTTP) Create(ctx context.Context, kind Kind, payload Payload) (int, error) {
	var out struct {
		ID int `json:"id"`
	}
	status, err := h.do(ctx, request{method: http.MethodPost, path: collectionPath(kind), body: payload, out: &out})
	if err != nil {
		return 0, err
	}
	if status != http.StatusCreated && status != http.StatusOK {
		return 0, apperr.WithStatus(apperr.Remote, status, fmt.Sprintf("create %s: unexpected status %d", kind, status))
	}
	if out.ID <= 0 {
		return 0, apperr.Newf(apperr.Remote, "create %s: response carried no id", kind)
	}
	return out.ID, nil
}

// Update calls PUT /api/v1/<kind>/<id>.
func (h *HTTP) Update(ctx context.Context, kind Kind, id int, payload Payload) error {
	_, err := h.do(ctx, request{method: http.MethodPut, path: itemPath(kind, id), body: payload})
	return err
}

// Delete calls DELETE /api/v1/<kind>/<id>.
func (h *HTTP) Delete(ctx context.Context, kind Kind, id int) error {
	_, err := h.do(ctx, request{method: http.MethodDelete, path: itemPath(kind, id)})
	return err
}

// RefreshDataset calls PUT /api/v1/dataset/<id>/refresh.
func (h *HTTP) RefreshDataset(ctx context.Context, id int) error {
	_, err := h.do(ctx, request{method: http.MethodPut, path: itemPath(KindDataset, id) + "/refresh"})
	return err
}
