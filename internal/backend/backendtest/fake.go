// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package backendtest provides an in-memory backend.API for tests.
// It stores resources per kind, evaluates the same filters the real server does,
// counts calls per operation and lets tests inject failures.
package backendtest

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/golang-jwt/jwt/v5"

	"supersetctl/cli/internal/backend"
	apperr "supersetctl/cli/internal/errors"
)

// Record is a stored resource and the last payload written to it.
type Record struct {
	Summary backend.Summary
	Payload backend.Payload
}

// Fake is a stateful in-memory Superset. The zero value is not usable; call New.
type Fake struct {
	mu      sync.Mutex
	records map[backend.Kind]map[int]*Record
	nextID  int
	calls   map[string]int

	// Users is the directory served by LookupUser.
	Users map[string]int
	// LookupErr, when set, is returned by every LookupUser call.
	LookupErr error
	// SelfID is put in the subject of the access token returned by Login.
	SelfID int
	// Fail maps an operation key ("create:chart", "update:dashboard", "list:dataset",
	// "lookup", "delete:chart") to the error it should return.
	Fail map[string]error
	// Tables maps a table name to the columns a dataset created on it reports.
	Tables map[string][]string
	// FailWhen, when set, is consulted before every mutation; a non-nil result is returned.
	FailWhen func(op string, kind backend.Kind, payload backend.Payload) error
}

// New returns an empty fake whose own user has id selfID.
func New(selfID int) *Fake {
	return &Fake{
		records: make(map[backend.Kind]map[int]*Record),
		calls:   make(map[string]int),
		Users:   make(map[string]int),
		Fail:    make(map[string]error),
		Tables:  make(map[string][]string),
		SelfID:  selfID,
		nextID:  100,
	}
}

// Token returns an access token whose subject is the given user id.
func Token(id int) string {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": strconv.Itoa(id)}).SignedString([]byte("backendtest"))
	if err != nil {
		panic(err)
	}
	return tok
}

// Calls returns how many times the operation key was invoked.
func (f *Fake) Calls(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

// TotalCalls returns the sum of calls whose key starts with prefix ("create", "list").
func (f *Fake) TotalCalls(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for k, v := range f.calls {
		if strings.HasPrefix(k, prefix) {
			n += v
		}
	}
	return n
}

// Seed stores s under kind, assigning an id when s.ID is zero, and returns the id.
func (f *Fake) Seed(kind backend.Kind, s backend.Summary) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s.ID == 0 {
		f.nextID++
		s.ID = f.nextID
	}
	f.bucket(kind)[s.ID] = &Record{Summary: s, Payload: backend.Payload{}}
	return s.ID
}

// Record returns a copy of the stored resource.
func (f *Fake) Record(kind backend.Kind, id int) (Record, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[kind][id]
	if !ok {
		return Record{}, false
	}
	return *r, true
}

// All returns every stored resource of kind ordered by id.
func (f *Fake) All(kind backend.Kind) []backend.Summary {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sorted(kind, nil)
}

func (f *Fake) bucket(kind backend.Kind) map[int]*Record {
	b, ok := f.records[kind]
	if !ok {
		b = make(map[int]*Record)
		f.records[kind] = b
	}
	return b
}

func (f *Fake) sorted(kind backend.Kind, keep func(backend.Summary) bool) []backend.Summary {
	var out []backend.Summary
	for _, r := range f.records[kind] {
		if keep == nil || keep(r.Summary) {
			out = append(out, r.Summary)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// enter counts the call and returns an injected failure, if any. f.mu must be held.
func (f *Fake) enter(key string) error {
	f.calls[key]++
	return f.Fail[key]
}

func (f *Fake) Login(ctx context.Context, username, password string) (backend.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("login"); err != nil {
		return backend.Session{}, err
	}
	return backend.Session{AccessToken: Token(f.SelfID), Username: username}, nil
}

func (f *Fake) List(ctx context.Context, kind backend.Kind, filters []backend.Filter) ([]backend.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("list:" + string(kind)); err != nil {
		return nil, err
	}
	return f.sorted(kind, func(s backend.Summary) bool { return matches(kind, s, filters) }), nil
}

func (f *Fake) Count(ctx context.Context, kind backend.Kind, filters []backend.Filter) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("count:" + string(kind)); err != nil {
		return 0, err
	}
	return len(f.sorted(kind, func(s backend.Summary) bool { return matches(kind, s, filters) })), nil
}

func (f *Fake) Get(ctx context.Context, kind backend.Kind, id int) (backend.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("get:" + string(kind)); err != nil {
		return backend.Summary{}, err
	}
	r, ok := f.records[kind][id]
	if !ok {
		return backend.Summary{}, apperr.WithStatus(apperr.NotFound, 404, fmt.Sprintf("%s %d", kind, id))
	}
	return r.Summary, nil
}

func (f *Fake) Create(ctx context.Context, kind backend.Kind, payload backend.Payload) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := "create:" + string(kind)
	if err := f.enter(key); err != nil {
		return 0, err
	}
	if f.FailWhen != nil {
		if err := f.FailWhen(key, kind, payload); err != nil {
			return 0, err
		}
	}
	f.nextID++
	r := &Record{Summary: backend.Summary{ID: f.nextID}, Payload: backend.Payload{}}
	apply(kind, r, payload)
	if kind == backend.KindDataset {
		r.Summary.Columns = append([]string(nil), f.Tables[r.Summary.Name]...)
	}
	f.bucket(kind)[r.Summary.ID] = r
	return r.Summary.ID, nil
}

func (f *Fake) Update(ctx context.Context, kind backend.Kind, id int, payload backend.Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := "update:" + string(kind)
	if err := f.enter(key); err != nil {
		return err
	}
	if f.FailWhen != nil {
		if err := f.FailWhen(key, kind, payload); err != nil {
			return err
		}
	}
	r, ok := f.records[kind][id]
	if !ok {
		return apperr.WithStatus(apperr.NotFound, 404, fmt.Sprintf("%s %d", kind, id))
	}
	apply(kind, r, payload)
	return nil
}

func (f *Fake) Delete(ctx context.Context, kind backend.Kind, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := "delete:" + string(kind)
	if err := f.enter(key); err != nil {
		return err
	}
	if f.FailWhen != nil {
		if err := f.FailWhen(key, kind, nil); err != nil {
			return err
		}
	}
	if _, ok := f.records[kind][id]; !ok {
		return apperr.WithStatus(apperr.NotFound, 404, fmt.Sprintf("%s %d", kind, id))
	}
	delete(f.records[kind], id)
	return nil
}

func (f *Fake) LookupUser(ctx context.Context, username string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("lookup"); err != nil {
		return 0, err
	}
	if f.LookupErr != nil {
		return 0, f.LookupErr
	}
	id, ok := f.Users[username]
	if !ok {
		return 0, apperr.Newf(apperr.NotFound, "user %q", username)
	}
	return id, nil
}

func (f *Fake) RefreshDataset(ctx context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("refresh:dataset"); err != nil {
		return err
	}
	if _, ok := f.records[backend.KindDataset][id]; !ok {
		return apperr.WithStatus(apperr.NotFound, 404, fmt.Sprintf("dataset %d", id))
	}
	return nil
}

// apply merges payload into r, deriving the summary fields the real server would expose.
func apply(kind backend.Kind, r *Record, payload backend.Payload) {
	for k, v := range payload {
		r.Payload[k] = v
		switch k {
		case kind.NameColumn():
			r.Summary.Name, _ = v.(string)
		case "slug":
			r.Summary.Slug, _ = v.(string)
		case "schema":
			r.Summary.Schema, _ = v.(string)
		case "database":
			r.Summary.DatabaseID = toInt(v)
		case "datasource_id":
			r.Summary.DatasetID = toInt(v)
		case "viz_type":
			r.Summary.VizType, _ = v.(string)
		case "owners":
			r.Summary.OwnerIDs = toInts(v)
		case "dashboards":
			r.Summary.DashboardIDs = toInts(v)
		case "main_dttm_col":
			r.Summary.MainDatetimeColumn, _ = v.(string)
		}
	}
}

func matches(kind backend.Kind, s backend.Summary, filters []backend.Filter) bool {
	for _, f := range filters {
		switch f.Operator {
		case backend.OpRelManyMany:
			if !s.HasOwner(toInt(f.Value)) {
				return false
			}
		case backend.OpContains:
			if !strings.Contains(strings.ToLower(s.Name), strings.ToLower(fmt.Sprint(f.Value))) {
				return false
			}
		default:
			if !equalField(kind, s, f.Column, f.Value) {
				return false
			}
		}
	}
	return true
}

func equalField(kind backend.Kind, s backend.Summary, column string, value any) bool {
	switch column {
	case kind.NameColumn():
		return s.Name == fmt.Sprint(value)
	case "slug":
		return s.Slug == fmt.Sprint(value)
	case "schema":
		return s.Schema == fmt.Sprint(value)
	case "database":
		return s.DatabaseID == toInt(value)
	case "datasource_id":
		return s.DatasetID == toInt(value)
	case "viz_type":
		return s.VizType == fmt.Sprint(value)
	}
	return false
}

func toInt(v any) int {
	switch x := v.(type) {
	case int:
		return x
	case int64:
		return int(x)
	case float64:
		return int(x)
	case string:
		n, _ := strconv.Atoi(x)
		return n
	}
	return 0
}

func toInts(v any) []int {
	switch x := v.(type) {
	case []int:
		return append([]int(nil), x...)
	case []any:
		out := make([]int, 0, len(x))
		for _, e := range x {
			out = append(out, toInt(e))
		}
		return out
	}
	return nil
}
