// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package executor carries every mutating Superset call. Business logic is written
// once against Executor; the live executor forwards to the API while the simulating
// executor only records what would have been done.
package executor

import (
	"context"
	"sync"

	"supersetctl/cli/internal/backend"
)

// Action is the kind of mutation an Op records.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Op is one mutation, performed or simulated.
type Op struct {
	Action  Action
	Kind    backend.Kind
	ID      int
	Payload backend.Payload
}

// Executor performs create, update and delete calls.
type Executor interface {
	Create(ctx context.Context, kind backend.Kind, payload backend.Payload) (int, error)
	Update(ctx context.Context, kind backend.Kind, id int, payload backend.Payload) error
	Delete(ctx context.Context, kind backend.Kind, id int) error
	// DryRun reports whether mutations are only simulated.
	DryRun() bool
}

// IsPlaceholder reports whether id was produced by a simulated create.
func IsPlaceholder(id int) bool { return id < 0 }

// Live forwards every call to the API.
type Live struct {
	api backend.API
}

// NewLive returns an executor that mutates the server through api.
func NewLive(api backend.API) *Live { return &Live{api: api} }

func (l *Live) Create(ctx context.Context, kind backend.Kind, payload backend.Payload) (int, error) {
	return l.api.Create(ctx, kind, payload)
}

func (l *Live) Update(ctx context.Context, kind backend.Kind, id int, payload backend.Payload) error {
	return l.api.Update(ctx, kind, id, payload)
}

func (l *Live) Delete(ctx context.Context, kind backend.Kind, id int) error {
	return l.api.Delete(ctx, kind, id)
}

func (l *Live) DryRun() bool { return false }

// Simulate records mutations without performing them. Creates return negative
// placeholder ids (-1, -2, ...) so later steps can reference the would-be resource.
// It is safe for concurrent use.
type Simulate struct {
	mu   sync.Mutex
	next int
	ops  []Op
}

// NewSimulate returns an empty simulating executor.
func NewSimulate() *Simulate { return &Simulate{} }

func (s *Simulate) Create(ctx context.Context, kind backend.Kind, payload backend.Payload) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next--
	s.ops = append(s.ops, Op{Action: ActionCreate, Kind: kind, ID: s.next, Payload: payload})
	return s.next, nil
}

func (s *Simulate) Update(ctx context.Context, kind backend.Kind, id int, payload backend.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, Op{Action: ActionUpdate, Kind: kind, ID: id, Payload: payload})
	return nil
}

func (s *Simulate) Delete(ctx context.Context, kind backend.Kind, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, Op{Action: ActionDelete, Kind: kind, ID: id})
	return nil
}

func (s *Simulate) DryRun() bool { return true }

// Ops returns the recorded mutations in call order.
func (s *Simulate) Ops() []Op {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Op(nil), s.ops...)
}
