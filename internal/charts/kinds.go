// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

package charts

import "strconv"

// TableParams is a raw-mode table listing columns as they are.
type TableParams struct {
	QueryMode       string   `json:"query_mode"`
	AllColumns      []string `json:"all_columns"`
	RowLimit        int      `json:"row_limit"`
	OrderDesc       bool     `json:"order_desc"`
	IncludeSearch   bool     `json:"include_search"`
	TableFilter     bool     `json:"table_filter"`
	ServerPaginate  bool     `json:"server_pagination"`
	TimestampFormat string   `json:"table_timestamp_format"`
	AdhocFilters    []any    `json:"adhoc_filters"`
}

func (TableParams) VizType() string { return "table" }

func buildTable(s Spec, src Source) (Params, error) {
	cols := nonEmpty(s.Columns)
	if len(cols) == 0 {
		cols = nonEmpty(src.Columns)
	}
	if len(cols) == 0 && !src.Simulated {
		return nil, invalid(s, "table needs at least one column and the dataset reported none")
	}
	return TableParams{
		QueryMode:       "raw",
		AllColumns:      cols,
		RowLimit:        rowLimit(s, DefaultRowLimit),
		OrderDesc:       true,
		IncludeSearch:   s.IncludeSearch,
		TableFilter:     s.TableFilter,
		TimestampFormat: "smart_date",
		AdhocFilters:    []any{},
	}, nil
}

type PieParams struct {
	Metric       Metric   `json:"metric"`
	GroupBy      []string `json:"groupby"`
	RowLimit     int      `json:"row_limit"`
	SortByMetric bool     `json:"sort_by_metric"`
	ShowLabels   bool     `json:"show_labels"`
	ShowLegend   bool     `json:"show_legend"`
	LabelType    string   `json:"label_type"`
	Donut        bool     `json:"donut"`
	AdhocFilters []any    `json:"adhoc_filters"`
}

func (PieParams) VizType() string { return "pie" }

func buildPie(s Spec, _ Source) (Params, error) {
	groupBy := nonEmpty(s.GroupBy)
	if len(groupBy) == 0 {
		return nil, invalid(s, "pie needs a groupby column")
	}
	m, err := needMetric(s)
	if err != nil {
		return nil, invalid(s, "%v", err)
	}
	return PieParams{
		Metric:       m,
		GroupBy:      groupBy,
		RowLimit:     rowLimit(s, DefaultRowLimit),
		SortByMetric: true,
		ShowLabels:   true,
		ShowLegend:   true,
		LabelType:    "key",
		AdhocFilters: []any{},
	}, nil
}

// HistogramParams is the legacy histogram: one numeric column split into bins.
type HistogramParams struct {
	AllColumnsX []string `json:"all_columns_x"`
	// LinkLength is the number of bins; the form stores it as a string.
	LinkLength   string `json:"link_length"`
	RowLimit     int    `json:"row_limit"`
	Normalized   bool   `json:"normalized"`
	AdhocFilters []any  `json:"adhoc_filters"`
}

func (HistogramParams) VizType() string { return "histogram" }

func buildHistogram(s Spec, _ Source) (Params, error) {
	col := s.Column
	if col == "" {
		if cols := nonEmpty(s.Columns); len(cols) > 0 {
			col = cols[0]
		}
	}
	if col == "" {
		return nil, invalid(s, "histogram needs a column")
	}
	bins := s.Bins
	if bins == 0 {
		bins = DefaultBins
	}
	return HistogramParams{
		AllColumnsX:  []string{col},
		LinkLength:   strconv.Itoa(bins),
		RowLimit:     rowLimit(s, 10000),
		AdhocFilters: []any{},
	}, nil
}

type BigNumberParams struct {
	Metric       Metric `json:"metric"`
	Subheader    string `json:"subheader"`
	YAxisFormat  string `json:"y_axis_format"`
	AdhocFilters []any  `json:"adhoc_filters"`
}

func (BigNumberParams) VizType() string { return "big_number_total" }

func buildBigNumber(s Spec, _ Source) (Params, error) {
	m, err := needMetric(s)
	if err != nil {
		return nil, invalid(s, "%v", err)
	}
	return BigNumberParams{
		Metric:       m,
		Subheader:    s.Subheader,
		YAxisFormat:  "SMART_NUMBER",
		AdhocFilters: []any{},
	}, nil
}

// BarParams is a categorical bar chart.
type BarParams struct {
	Metrics      []Metric `json:"metrics"`
	GroupBy      []string `json:"groupby"`
	Columns      []string `json:"columns"`
	RowLimit     int      `json:"row_limit"`
	ShowLegend   bool     `json:"show_legend"`
	ShowBarValue bool     `json:"show_bar_value"`
	AdhocFilters []any    `json:"adhoc_filters"`
}

func (BarParams) VizType() string { return "dist_bar" }

func buildBar(s Spec, _ Source) (Params, error) {
	groupBy := nonEmpty(s.GroupBy)
	if len(groupBy) == 0 {
		return nil, invalid(s, "bar needs a groupby column")
	}
	m, err := needMetric(s)
	if err != nil {
		return nil, invalid(s, "%v", err)
	}
	return BarParams{
		Metrics:      []Metric{m},
		GroupBy:      groupBy,
		Columns:      []string{},
		RowLimit:     rowLimit(s, DefaultRowLimit),
		ShowLegend:   true,
		AdhocFilters: []any{},
	}, nil
}
