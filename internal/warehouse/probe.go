// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package warehouse reads table metadata straight from the PostgreSQL database
// behind Superset. Dry runs use it to learn the columns of tables that have no
// Superset dataset yet.
package warehouse

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"supersetctl/cli/internal/dsn"
	apperr "supersetctl/cli/internal/errors"
)

const columnsQuery = `
	SELECT column_name
	FROM information_schema.columns
	WHERE table_schema = $1 AND table_name = $2
	ORDER BY ordinal_position`

// SQLSTATE insufficient_privilege.
const insufficientPrivilege = "42501"

// loader fetches the columns of one table.
type loader func(ctx context.Context, schema, table string) ([]string, error)

// Probe looks up table columns and caches them per table.
type Probe struct {
	pool  *pgxpool.Pool
	load  loader
	mu    sync.RWMutex
	cache map[string][]string
}

// Open connects to the warehouse at rawDSN.
func Open(ctx context.Context, rawDSN string) (*Probe, error) {
	conn, err := dsn.Normalize(rawDSN)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, conn)
	if err != nil {
		return nil, apperr.Wrap(apperr.Connection, "open warehouse pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, apperr.Wrap(apperr.Connection, "reach warehouse", err)
	}
	p := newProbe(nil)
	p.pool = pool
	p.load = p.query
	return p, nil
}

func newProbe(load loader) *Probe {
	return &Probe{load: load, cache: make(map[string][]string)}
}

// Close releases the connection pool.
func (p *Probe) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

// TableColumns returns the column names of schema.table in table order. An empty
// schema means public. A table without columns is reported as NotFound.
func (p *Probe) TableColumns(ctx context.Context, schema, table string) ([]string, error) {
	schema, table = qualify(schema, table)
	key := schema + "." + table

	p.mu.RLock()
	cols, ok := p.cache[key]
	p.mu.RUnlock()
	if ok {
		return append([]string(nil), cols...), nil
	}

	cols, err := p.load(ctx, schema, table)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, apperr.Newf(apperr.NotFound, "table %s not found in warehouse", key)
	}

	p.mu.Lock()
	p.cache[key] = cols
	p.mu.Unlock()
	return append([]string(nil), cols...), nil
}

func (p *Probe) query(ctx context.Context, schema, table string) ([]string, error) {
	rows, err := p.pool.Query(ctx, columnsQuery, schema, table)
	if err != nil {
		return nil, classify("query warehouse columns", err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, classify("read warehouse columns", err)
		}
		cols = append(cols, name)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("read warehouse columns", err)
	}
	return cols, nil
}

// classify keeps Connection for failures to reach the warehouse. Errors the
// database itself reports are Remote, or Permission for insufficient_privilege.
func classify(op string, err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return apperr.Wrap(apperr.Connection, op, err)
	}
	if pgErr.Code == insufficientPrivilege {
		return apperr.Wrap(apperr.Permission, op, err)
	}
	return apperr.Wrap(apperr.Remote, op, err)
}

// qualify splits a "schema.table" name when no schema is given and defaults the
// schema to public.
func qualify(schema, table string) (string, string) {
	if schema == "" {
		if s, t, ok := strings.Cut(table, "."); ok {
			schema, table = s, t
		}
	}
	if schema == "" {
		schema = "public"
	}
	return schema, table
}
