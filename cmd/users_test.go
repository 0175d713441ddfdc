// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "supersetctl/cli/internal/errors"
)

func TestTargetFlagKeepsLoginUser(t *testing.T) {
	for _, cmd := range []string{"cleanup", "summary"} {
		c, _, err := rootCmd.Find([]string{cmd})
		require.NoError(t, err)
		assert.NotNil(t, c.LocalFlags().Lookup("target"), cmd)
		assert.Nil(t, c.LocalFlags().Lookup("user"), cmd)
		user := c.InheritedFlags().Lookup("user")
		require.NotNil(t, user, cmd)
		assert.Equal(t, "u", user.Shorthand)
	}
}

func TestConfirm(t *testing.T) {
	ok, err := confirm("Delete?", func(text ...string) (bool, error) {
		assert.Equal(t, []string{"Delete?"}, text)
		return true, nil
	})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = confirm("Delete?", func(text ...string) (bool, error) {
		return false, errors.New("not a terminal")
	})
	require.Error(t, err)
	assert.False(t, ok)
	assert.True(t, apperr.HasKind(err, apperr.Validation))
	assert.Contains(t, err.Error(), "--yes")
}
