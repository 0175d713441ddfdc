// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

package layout

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "supersetctl/cli/internal/errors"
)

func decode(t *testing.T, doc Document) map[string]map[string]any {
	t.Helper()
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(doc.Position, &raw))
	out := make(map[string]map[string]any)
	for k, v := range raw {
		if k == versionKey {
			continue
		}
		var n map[string]any
		require.NoError(t, json.Unmarshal(v, &n))
		out[k] = n
	}
	return out
}

func TestCompose_IsDeterministic(t *testing.T) {
	a, err := Compose([]int{1, 2, 3}, Options{Title: "Exec"})
	require.NoError(t, err)
	b, err := Compose([]int{1, 2, 3}, Options{Title: "Exec"})
	require.NoError(t, err)
	assert.Equal(t, a.Position, b.Position)
	assert.Equal(t, a.Metadata, b.Metadata)

	c, err := Compose([]int{3, 2, 1}, Options{Title: "Exec"})
	require.NoError(t, err)
	assert.NotEqual(t, a.Position, c.Position)
}

func TestCompose_TwoPerRowInInputOrder(t *testing.T) {
	doc, err := Compose([]int{11, 12, 13}, Options{Title: "Exec"})
	require.NoError(t, err)
	nodes := decode(t, doc)

	assert.Equal(t, []any{"GRID_ID"}, nodes["ROOT_ID"]["children"])
	assert.Equal(t, []any{"ROW-1", "ROW-2"}, nodes["GRID_ID"]["children"])
	assert.Equal(t, []any{"CHART-11", "CHART-12"}, nodes["ROW-1"]["children"])
	assert.Equal(t, []any{"CHART-13"}, nodes["ROW-2"]["children"])
	assert.Equal(t, "Exec", nodes["HEADER_ID"]["meta"].(map[string]any)["text"])

	meta := nodes["CHART-12"]["meta"].(map[string]any)
	assert.EqualValues(t, DefaultWidth, meta["width"])
	assert.EqualValues(t, DefaultHeight, meta["height"])
	assert.EqualValues(t, 12, meta["chartId"])
	assert.Equal(t, []any{"ROOT_ID", "GRID_ID", "ROW-1"}, nodes["CHART-12"]["parents"])

	ids, err := ChartIDs(doc.Position)
	require.NoError(t, err)
	assert.Equal(t, []int{11, 12, 13}, ids)
}

func TestCompose_OverridesAndCSS(t *testing.T) {
	doc, err := Compose([]int{4, 5}, Options{
		Overrides: map[int]Size{5: {Width: 12, Height: 80}},
		CSS:       ".dashboard { background: #fff; }",
	})
	require.NoError(t, err)
	nodes := decode(t, doc)
	meta := nodes["CHART-5"]["meta"].(map[string]any)
	assert.EqualValues(t, 12, meta["width"])
	assert.EqualValues(t, 80, meta["height"])
	assert.Equal(t, ".dashboard { background: #fff; }", doc.CSS)
}

func TestCompose_Empty(t *testing.T) {
	doc, err := Compose(nil, Options{})
	require.NoError(t, err)
	nodes := decode(t, doc)
	assert.Equal(t, []any{}, nodes["GRID_ID"]["children"])
}

func TestCompose_RejectsBadInput(t *testing.T) {
	_, err := Compose([]int{1, 2, 1}, Options{})
	assert.True(t, apperr.HasKind(err, apperr.Validation))

	_, err = Compose([]int{0}, Options{})
	assert.True(t, apperr.HasKind(err, apperr.Validation))

	_, err = Compose([]int{1}, Options{Overrides: map[int]Size{1: {Width: 13, Height: 10}}})
	assert.True(t, apperr.HasKind(err, apperr.Validation))
}

func TestCompose_PlaceholderIDs(t *testing.T) {
	doc, err := Compose([]int{-1, -2}, Options{})
	require.NoError(t, err)
	ids, err := ChartIDs(doc.Position)
	require.NoError(t, err)
	assert.Equal(t, []int{-1, -2}, ids)
}
