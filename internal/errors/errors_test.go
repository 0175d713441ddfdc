// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasKind(t *testing.T) {
	perm := WithStatus(Permission, 403, "users endpoint")
	ident := Wrap(Identity, `cannot resolve "bob"`, perm)
	wrapped := fmt.Errorf("ensure chart: %w", ident)

	tests := []struct {
		name string
		err  error
		kind Kind
		want bool
	}{
		{name: "outer kind", err: ident, kind: Identity, want: true},
		{name: "cause kind", err: ident, kind: Permission, want: true},
		{name: "through fmt wrap", err: wrapped, kind: Permission, want: true},
		{name: "absent kind", err: ident, kind: Connection, want: false},
		{name: "plain error", err: fmt.Errorf("boom"), kind: Remote, want: false},
		{name: "nil", err: nil, kind: Remote, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasKind(tt.err, tt.kind))
		})
	}
}

func TestKindOfAndMessage(t *testing.T) {
	err := Wrap(NotFound, "database \"analytics\"", nil)
	assert.Equal(t, NotFound, KindOf(err))
	assert.Equal(t, `not_found: database "analytics"`, err.Error())
	assert.Equal(t, Kind(""), KindOf(fmt.Errorf("x")))
	assert.True(t, IsConnection(fmt.Errorf("list: %w", New(Connection, "refused"))))
}

func TestAnnotate(t *testing.T) {
	assert.Nil(t, Annotate("noop", nil))

	err := Annotate("list charts", New(NotFound, "gone"))
	assert.Equal(t, NotFound, KindOf(err))
	assert.Contains(t, err.Error(), "list charts")

	assert.Equal(t, Remote, KindOf(Annotate("decode", stderrors.New("bad json"))))

	err = Annotate("list charts", context.Canceled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Kind(""), KindOf(err))
}
