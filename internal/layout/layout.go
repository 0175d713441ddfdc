// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package layout builds the position document Superset uses to place charts on a
// dashboard grid.
//
// Compose is pure: the same chart ids and options always yield byte-identical
// documents. Charts fill rows left to right in input order, two per row by default.
package layout

import (
	"fmt"

	"github.com/goccy/go-json"

	apperr "supersetctl/cli/internal/errors"
)

const (
	// GridColumns is the width of the dashboard grid.
	GridColumns = 12

	DefaultWidth        = 6
	DefaultHeight       = 50
	DefaultChartsPerRow = 2

	versionKey = "DASHBOARD_VERSION_KEY"
	rootID     = "ROOT_ID"
	gridID     = "GRID_ID"
	headerID   = "HEADER_ID"
)

// Size is a chart cell in grid columns and grid rows.
type Size struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Options tunes the layout. The zero value gives two 6x50 cells per row.
type Options struct {
	// Title is shown in the dashboard header.
	Title        string
	ChartsPerRow int
	Default      Size
	// Overrides sets the cell size of individual charts by id.
	Overrides map[int]Size
	// CSS is stored with the dashboard as its custom style block.
	CSS string
	// RefreshFrequency is the auto-refresh interval in seconds, 0 to disable.
	RefreshFrequency int
}

// Document is the layout part of a dashboard create or update payload.
type Document struct {
	ChartIDs []int
	// Position is the position_json value.
	Position []byte
	// Metadata is the json_metadata value.
	Metadata []byte
	CSS      string
}

type node struct {
	Type     string   `json:"type"`
	ID       string   `json:"id"`
	Children []string `json:"children"`
	Parents  []string `json:"parents,omitempty"`
	Meta     any      `json:"meta,omitempty"`
}

type chartMeta struct {
	Width   int `json:"width"`
	Height  int `json:"height"`
	ChartID int `json:"chartId"`
}

type rowMeta struct {
	Background string `json:"background"`
}

type headerMeta struct {
	Text string `json:"text"`
}

// metadata carries the keys Superset expects in json_metadata, even when empty.
type metadata struct {
	ColorScheme         string         `json:"color_scheme"`
	RefreshFrequency    int            `json:"refresh_frequency"`
	ExpandedSlices      map[string]any `json:"expanded_slices"`
	TimedRefreshImmune  []int          `json:"timed_refresh_immune_slices"`
	DefaultFilters      string         `json:"default_filters"`
	CrossFiltersEnabled bool           `json:"cross_filters_enabled"`
	NativeFilterConfig  []any          `json:"native_filter_configuration"`
	ChartConfiguration  map[string]any `json:"chart_configuration"`
	ShowNativeFilters   bool           `json:"show_native_filters"`
	FilterScopes        map[string]any `json:"filter_scopes"`
	LabelColors         map[string]any `json:"label_colors"`
	SharedLabelColors   []string       `json:"shared_label_colors"`
	ColorSchemeDomain   []string       `json:"color_scheme_domain"`
}

// Compose lays out chartIDs. Ids must be positive, or negative placeholders from a
// dry run, and unique.
func Compose(chartIDs []int, opts Options) (Document, error) {
	perRow := opts.ChartsPerRow
	if perRow <= 0 {
		perRow = DefaultChartsPerRow
	}
	def := opts.Default
	if def.Width <= 0 {
		def.Width = DefaultWidth
	}
	if def.Height <= 0 {
		def.Height = DefaultHeight
	}

	seen := make(map[int]bool, len(chartIDs))
	for _, id := range chartIDs {
		if id == 0 {
			return Document{}, apperr.New(apperr.Validation, "layout: chart id 0 is not valid")
		}
		if seen[id] {
			return Document{}, apperr.Newf(apperr.Validation, "layout: chart %d listed twice", id)
		}
		seen[id] = true
	}
	for id, sz := range opts.Overrides {
		if sz.Width < 1 || sz.Width > GridColumns || sz.Height < 1 {
			return Document{}, apperr.Newf(apperr.Validation, "layout: invalid size %dx%d for chart %d", sz.Width, sz.Height, id)
		}
	}

	pos := map[string]any{
		versionKey: "v2",
		rootID:     node{Type: "ROOT", ID: rootID, Children: []string{gridID}},
		headerID:   node{Type: "HEADER", ID: headerID, Children: []string{}, Meta: headerMeta{Text: opts.Title}},
	}
	grid := node{Type: "GRID", ID: gridID, Children: []string{}, Parents: []string{rootID}}

	for start := 0; start < len(chartIDs); start += perRow {
		end := min(start+perRow, len(chartIDs))
		rowID := fmt.Sprintf("ROW-%d", start/perRow+1)
		row := node{
			Type:     "ROW",
			ID:       rowID,
			Children: []string{},
			Parents:  []string{rootID, gridID},
			Meta:     rowMeta{Background: "BACKGROUND_TRANSPARENT"},
		}
		for _, chartID := range chartIDs[start:end] {
			sz := def
			if o, ok := opts.Overrides[chartID]; ok {
				sz = o
			}
			cellID := chartKey(chartID)
			row.Children = append(row.Children, cellID)
			pos[cellID] = node{
				Type:     "CHART",
				ID:       cellID,
				Children: []string{},
				Parents:  []string{rootID, gridID, rowID},
				Meta:     chartMeta{Width: sz.Width, Height: sz.Height, ChartID: chartID},
			}
		}
		pos[rowID] = row
		grid.Children = append(grid.Children, rowID)
	}
	pos[gridID] = grid

	position, err := json.Marshal(pos)
	if err != nil {
		return Document{}, fmt.Errorf("layout: encode position: %w", err)
	}
	meta, err := json.Marshal(metadata{
		RefreshFrequency:   opts.RefreshFrequency,
		ExpandedSlices:     map[string]any{},
		TimedRefreshImmune: []int{},
		DefaultFilters:     "{}",
		NativeFilterConfig: []any{},
		ChartConfiguration: map[string]any{},
		FilterScopes:       map[string]any{},
		LabelColors:        map[string]any{},
		SharedLabelColors:  []string{},
		ColorSchemeDomain:  []string{},
	})
	if err != nil {
		return Document{}, fmt.Errorf("layout: encode metadata: %w", err)
	}
	return Document{
		ChartIDs: append([]int(nil), chartIDs...),
		Position: position,
		Metadata: meta,
		CSS:      opts.CSS,
	}, nil
}

// chartKey names the cell of a chart. Placeholder ids are spelled with an "N" so the
// key stays a valid identifier.
func chartKey(id int) string {
	if id < 0 {
		return fmt.Sprintf("CHART-N%d", -id)
	}
	return fmt.Sprintf("CHART-%d", id)
}

// ChartIDs extracts the chart ids referenced by a position document, in row order.
func ChartIDs(position []byte) ([]int, error) {
	var pos map[string]json.RawMessage
	if err := json.Unmarshal(position, &pos); err != nil {
		return nil, apperr.Wrap(apperr.Validation, "layout: decode position", err)
	}
	var grid node
	if raw, ok := pos[gridID]; ok {
		if err := json.Unmarshal(raw, &grid); err != nil {
			return nil, apperr.Wrap(apperr.Validation, "layout: decode grid", err)
		}
	}
	var ids []int
	for _, rowID := range grid.Children {
		var row node
		if err := json.Unmarshal(pos[rowID], &row); err != nil {
			return nil, apperr.Wrap(apperr.Validation, "layout: decode row "+rowID, err)
		}
		for _, cellID := range row.Children {
			var cell struct {
				Meta chartMeta `json:"meta"`
			}
			if err := json.Unmarshal(pos[cellID], &cell); err != nil {
				return nil, apperr.Wrap(apperr.Validation, "layout: decode cell "+cellID, err)
			}
			ids = append(ids, cell.Meta.ChartID)
		}
	}
	return ids, nil
}
