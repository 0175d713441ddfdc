package terminal

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinesFor(t *testing.T) {
	assert.Equal(t, 2, linesFor(0, 80))
	assert.Equal(t, 2, linesFor(80, 80))
	assert.Equal(t, 3, linesFor(81, 80))
	assert.Equal(t, 3, linesFor(100, 0))
}

func TestPrompt(t *testing.T) {
	got, err := Prompt(strings.NewReader("  alice \n"), "")
	require.NoError(t, err)
	assert.Equal(t, "alice", got)

	got, err = Prompt(strings.NewReader("bob"), "")
	require.NoError(t, err)
	assert.Equal(t, "bob", got)

	_, err = Prompt(strings.NewReader(""), "")
	assert.Error(t, err)
}
