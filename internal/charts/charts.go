// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package charts turns chart definitions into Superset chart params.
//
// Every chart kind has its own params struct and a Builder registered in one table.
// Builders are pure: they never call the server. Anything they need from the dataset
// is passed in through Source.
package charts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-json"

	apperr "supersetctl/cli/internal/errors"
	"supersetctl/cli/internal/validate"
)

// Kind is the chart type as written in definitions.
type Kind string

const (
	KindTable     Kind = "table"
	KindPie       Kind = "pie"
	KindHistogram Kind = "histogram"
	KindBigNumber Kind = "big_number_total"
	KindBar       Kind = "bar"
)

const (
	DefaultRowLimit = 100
	DefaultBins     = 10
)

// Spec is one chart definition, as read from a batch file or flags.
type Spec struct {
	Name   string `yaml:"name" json:"name" validate:"required"`
	Table  string `yaml:"table" json:"table" validate:"required"`
	Schema string `yaml:"schema,omitempty" json:"schema,omitempty"`
	Type   Kind   `yaml:"type,omitempty" json:"type,omitempty" validate:"omitempty,oneof=table pie histogram big_number_total bar"`
	// Owner is a username; empty means the session's own user.
	Owner    string      `yaml:"owner,omitempty" json:"owner,omitempty"`
	Columns  []string    `yaml:"columns,omitempty" json:"columns,omitempty"`
	RowLimit int         `yaml:"row_limit,omitempty" json:"row_limit,omitempty" validate:"gte=0,lte=1000000"`
	Metric   *MetricSpec `yaml:"metric,omitempty" json:"metric,omitempty"`
	GroupBy  []string    `yaml:"groupby,omitempty" json:"groupby,omitempty"`
	// Column and Bins apply to histograms.
	Column        string `yaml:"column,omitempty" json:"column,omitempty"`
	Bins          int    `yaml:"bins,omitempty" json:"bins,omitempty" validate:"gte=0,lte=1000"`
	Subheader     string `yaml:"subheader,omitempty" json:"subheader,omitempty"`
	IncludeSearch bool   `yaml:"include_search,omitempty" json:"include_search,omitempty"`
	TableFilter   bool   `yaml:"table_filter,omitempty" json:"table_filter,omitempty"`
	// Width and Height size the chart cell when the chart is placed on a dashboard.
	Width  int `yaml:"width,omitempty" json:"width,omitempty" validate:"gte=0,lte=12"`
	Height int `yaml:"height,omitempty" json:"height,omitempty" validate:"gte=0"`
}

// KindOrDefault returns the chart kind, table when unset.
func (s Spec) KindOrDefault() Kind {
	if s.Type == "" {
		return KindTable
	}
	return s.Type
}

// Validate checks the definition without contacting the server.
func (s Spec) Validate() error {
	return validate.Struct(fmt.Sprintf("chart %q", s.Name), s)
}

// Source is what builders know about the dataset a chart reads from.
type Source struct {
	DatasetID int
	// Columns lists the dataset columns, used when a definition names none.
	Columns []string
	// Simulated marks a dataset that only exists in a dry run. Its columns may be
	// unknown, so builders accept an empty column list.
	Simulated bool
}

// Datasource returns the "<id>__table" reference used inside params.
func (s Source) Datasource() string { return fmt.Sprintf("%d__table", s.DatasetID) }

// Params is implemented by every typed params struct.
type Params interface {
	VizType() string
}

// Builder produces the typed params for one chart kind.
type Builder func(s Spec, src Source) (Params, error)

var builders = map[Kind]Builder{
	KindTable:     buildTable,
	KindPie:       buildPie,
	KindHistogram: buildHistogram,
	KindBigNumber: buildBigNumber,
	KindBar:       buildBar,
}

// Kinds returns the registered kinds in name order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(builders))
	for k := range builders {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Payload is the chart-type specific part of a chart create body.
type Payload struct {
	VizType string
	Params  map[string]any
}

// JSON returns the params encoded the way the chart endpoint stores them.
func (p Payload) JSON() (string, error) {
	b, err := json.Marshal(p.Params)
	if err != nil {
		return "", fmt.Errorf("charts: encode params: %w", err)
	}
	return string(b), nil
}

// Build validates s and runs the builder registered for its kind.
func Build(s Spec, src Source) (Payload, error) {
	if err := s.Validate(); err != nil {
		return Payload{}, err
	}
	kind := s.KindOrDefault()
	build, ok := builders[kind]
	if !ok {
		return Payload{}, apperr.Newf(apperr.Validation, "chart %q: unknown type %q", s.Name, kind)
	}
	params, err := build(s, src)
	if err != nil {
		return Payload{}, err
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return Payload{}, fmt.Errorf("charts: encode %s params: %w", kind, err)
	}
	m := make(map[string]any)
	if err := json.Unmarshal(raw, &m); err != nil {
		return Payload{}, fmt.Errorf("charts: decode %s params: %w", kind, err)
	}
	m["viz_type"] = params.VizType()
	m["datasource"] = src.Datasource()
	return Payload{VizType: params.VizType(), Params: m}, nil
}

func rowLimit(s Spec, def int) int {
	if s.RowLimit > 0 {
		return s.RowLimit
	}
	return def
}

func needMetric(s Spec) (Metric, error) {
	if s.Metric == nil {
		return CountAll(), nil
	}
	return s.Metric.Build()
}

func invalid(s Spec, format string, args ...any) error {
	return apperr.New(apperr.Validation, fmt.Sprintf("chart %q: ", s.Name)+fmt.Sprintf(format, args...))
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
