// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

package httperrors

import (
	"context"
	"errors"
	"net"
	"net/url"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"

	apperr "supersetctl/cli/internal/errors"
)

func TestFromStatus(t *testing.T) {
	tests := []struct {
		status int
		want   apperr.Kind
	}{
		{401, apperr.Permission},
		{403, apperr.Permission},
		{404, apperr.NotFound},
		{400, apperr.Remote},
		{422, apperr.Remote},
		{500, apperr.Remote},
		{502, apperr.Connection},
		{503, apperr.Connection},
	}
	for _, tt := range tests {
		err := FromStatus("GET /api/v1/chart/", tt.status, `{"message":"nope"}`)
		assert.Equal(t, tt.want, apperr.KindOf(err), "status %d", tt.status)
		var e *apperr.E
		if assert.True(t, errors.As(err, &e)) {
			assert.Equal(t, tt.status, e.Status)
		}
	}
}

func TestFromTransport(t *testing.T) {
	refused := &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}
	err := FromTransport("POST /api/v1/security/login", refused)
	assert.True(t, apperr.IsConnection(err))
	assert.Contains(t, err.Error(), "connection refused")

	assert.ErrorIs(t, FromTransport("x", context.Canceled), context.Canceled)
	assert.False(t, apperr.IsConnection(FromTransport("x", context.Canceled)))
	assert.NoError(t, FromTransport("x", nil))
}

func TestServerHost(t *testing.T) {
	refused := &url.Error{Op: "Post", URL: "https://bi.example.com:8088/api/v1/security/login", Err: &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}}
	err := FromTransport("POST /api/v1/security/login", refused)
	assert.Equal(t, "bi.example.com:8088", serverHost(err))
	assert.Equal(t, "server", serverHost(apperr.New(apperr.Connection, "breaker open")))
}

func TestExtractHostFromURL(t *testing.T) {
	assert.Equal(t, "bi.example.com:8088", ExtractHostFromURL("https://bi.example.com:8088/"))
	assert.Equal(t, "server", ExtractHostFromURL("::"))
}
