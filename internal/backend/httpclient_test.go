// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "supersetctl/cli/internal/errors"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// fakeSuperset serves the handful of endpoints the client touches.
func fakeSuperset(t *testing.T, token string) (*httptest.Server, *int32) {
	t.Helper()
	var creates int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/security/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["password"] != "secret" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Not authorized"})
			return
		}
		assert.Equal(t, "db", body["provider"])
		writeJSON(w, http.StatusOK, map[string]string{"access_token": token, "refresh_token": "r"})
	})
	mux.HandleFunc("/api/v1/security/csrf_token/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"result": "csrf-1"})
	})
	mux.HandleFunc("/api/v1/chart/", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			q := r.URL.Query().Get("q")
			switch q {
			case "(filters:!((col:slice_name,opr:eq,value:Revenue)),page:0,page_size:2)":
				writeJSON(w, http.StatusOK, map[string]any{"count": 3, "result": []any{
					map[string]any{"id": 9, "slice_name": "Revenue", "datasource_id": 4, "owners": []any{map[string]any{"id": 7}}},
					map[string]any{"id": 3, "slice_name": "Revenue", "datasource_id": 4, "owners": []any{}},
				}})
			case "(filters:!((col:slice_name,opr:eq,value:Revenue)),page:1,page_size:2)":
				writeJSON(w, http.StatusOK, map[string]any{"count": 3, "result": []any{
					map[string]any{"id": 5, "slice_name": "Revenue", "datasource_id": 2, "dashboards": []any{map[string]any{"id": 1}}},
				}})
			case "(page:0,page_size:1)":
				writeJSON(w, http.StatusOK, map[string]any{"count": 42, "result": []any{}})
			default:
				t.Errorf("unexpected q %q", q)
				writeJSON(w, http.StatusBadRequest, nil)
			}
		case http.MethodPost:
			assert.Equal(t, "csrf-1", r.Header.Get("X-CSRFToken"))
			assert.Equal(t, "Bearer "+token, r.Header.Get("Authorization"))
			atomic.AddInt32(&creates, 1)
			writeJSON(w, http.StatusCreated, map[string]any{"id": 11, "result": map[string]any{}})
		}
	})
	mux.HandleFunc("/api/v1/dataset/5", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": 5, "result": map[string]any{
			"table_name": "orders", "schema": "public", "database": map[string]any{"id": 2, "database_name": "analytics"},
			"owners":  []any{map[string]any{"id": 7, "first_name": "A"}},
			"columns": []any{map[string]any{"column_name": "id"}, map[string]any{"column_name": "created_at", "is_dttm": true}},
		}})
	})
	mux.HandleFunc("/api/v1/dashboard/8", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not found"})
	})
	mux.HandleFunc("/api/v1/security/users/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "Forbidden"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &creates
}

func TestHTTP_LoginAndCreate(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{"sub": "7"})
	srv, creates := fakeSuperset(t, token)
	h := New(srv.URL+"/", Options{})
	ctx := context.Background()

	sess, err := h.Login(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, token, sess.AccessToken)
	assert.Equal(t, "alice", h.Username())

	id, err := h.Create(ctx, KindChart, Payload{"slice_name": "Revenue"})
	require.NoError(t, err)
	assert.Equal(t, 11, id)
	assert.Equal(t, int32(1), atomic.LoadInt32(creates))
}

func TestHTTP_LoginRejected(t *testing.T) {
	srv, _ := fakeSuperset(t, "x")
	h := New(srv.URL, Options{})
	_, err := h.Login(context.Background(), "alice", "wrong")
	require.Error(t, err)
	assert.True(t, apperr.HasKind(err, apperr.Permission))
}

func TestHTTP_ListPaginatesAndSorts(t *testing.T) {
	srv, _ := fakeSuperset(t, "x")
	h := New(srv.URL, Options{PageSize: 2})
	got, err := h.List(context.Background(), KindChart, []Filter{Eq("slice_name", "Revenue")})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []int{3, 5, 9}, []int{got[0].ID, got[1].ID, got[2].ID})
	assert.Equal(t, "Revenue", got[2].Name)
	assert.Equal(t, 4, got[2].DatasetID)
	assert.True(t, got[2].HasOwner(7))
	assert.Equal(t, []int{1}, got[1].DashboardIDs)
}

func TestHTTP_CountAndGet(t *testing.T) {
	srv, _ := fakeSuperset(t, "x")
	h := New(srv.URL, Options{})
	ctx := context.Background()

	n, err := h.Count(ctx, KindChart, nil)
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	ds, err := h.Get(ctx, KindDataset, 5)
	require.NoError(t, err)
	assert.Equal(t, "orders", ds.Name)
	assert.Equal(t, 2, ds.DatabaseID)
	assert.Equal(t, []string{"id", "created_at"}, ds.Columns)
	assert.Equal(t, []string{"created_at"}, ds.TemporalColumns)
	assert.Equal(t, []int{7}, ds.OwnerIDs)

	_, err = h.Get(ctx, KindDashboard, 8)
	assert.True(t, apperr.HasKind(err, apperr.NotFound))
}

func TestHTTP_LookupUserForbidden(t *testing.T) {
	srv, _ := fakeSuperset(t, "x")
	h := New(srv.URL, Options{})
	_, err := h.LookupUser(context.Background(), "bob")
	require.Error(t, err)
	assert.True(t, apperr.HasKind(err, apperr.Permission))
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestHTTP_BreakerOpensOnConnectionFailures(t *testing.T) {
	var calls int32
	transport := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return nil, errors.New("dial tcp 127.0.0.1:9: connect: connection refused")
	})
	h := New("http://superset.invalid", Options{Transport: transport, BreakerFailures: 2, BreakerCooldown: time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := h.List(ctx, KindDashboard, nil)
		require.Error(t, err)
		assert.True(t, apperr.IsConnection(err))
	}
	_, err := h.List(ctx, KindDashboard, nil)
	require.Error(t, err)
	assert.True(t, apperr.IsConnection(err))
	assert.Contains(t, err.Error(), "unreachable")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestHTTP_StatusErrorsDoNotTripBreaker(t *testing.T) {
	var calls int32
	transport := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return &http.Response{StatusCode: http.StatusForbidden, Body: io.NopCloser(strings.NewReader("")), Header: http.Header{}, Request: r}, nil
	})
	h := New("http://superset.invalid", Options{Transport: transport, BreakerFailures: 1})
	for i := 0; i < 3; i++ {
		_, err := h.Count(context.Background(), KindChart, nil)
		assert.True(t, apperr.HasKind(err, apperr.Permission))
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestUserIDFromToken(t *testing.T) {
	tests := []struct {
		name    string
		claims  jwt.MapClaims
		want    int
		wantErr bool
	}{
		{name: "string sub", claims: jwt.MapClaims{"sub": "12"}, want: 12},
		{name: "numeric sub", claims: jwt.MapClaims{"sub": 3}, want: 3},
		{name: "legacy identity", claims: jwt.MapClaims{"identity": 5}, want: 5},
		{name: "non numeric", claims: jwt.MapClaims{"sub": "alice"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := UserIDFromToken(signedToken(t, tt.claims))
			if tt.wantErr {
				assert.True(t, apperr.HasKind(err, apperr.Identity))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}

	_, err := UserIDFromToken("not-a-jwt")
	assert.Error(t, err)
}
