// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

package charts

import (
	"fmt"
	"strings"
)

// Aggregates accepted in simple metrics.
var aggregates = map[string]bool{
	"COUNT": true, "COUNT_DISTINCT": true, "SUM": true, "AVG": true, "MIN": true, "MAX": true,
}

// MetricSpec is the definition-file form of a metric. Either SQL or Column with an
// Aggregate must be set.
type MetricSpec struct {
	Column    string `yaml:"column,omitempty" json:"column,omitempty"`
	Type      string `yaml:"type,omitempty" json:"type,omitempty"`
	Aggregate string `yaml:"aggregate,omitempty" json:"aggregate,omitempty"`
	Label     string `yaml:"label,omitempty" json:"label,omitempty"`
	SQL       string `yaml:"sql,omitempty" json:"sql,omitempty"`
}

// Build converts the spec to the adhoc metric stored in params.
func (m MetricSpec) Build() (Metric, error) {
	if m.SQL != "" {
		label := m.Label
		if label == "" {
			label = m.SQL
		}
		return Metric{ExpressionType: "SQL", SQLExpression: m.SQL, Label: label, HasCustomLabel: m.Label != "", OptionName: optionName(label)}, nil
	}
	agg := strings.ToUpper(strings.TrimSpace(m.Aggregate))
	if m.Column == "" || !aggregates[agg] {
		return Metric{}, fmt.Errorf("metric needs a column and one of COUNT, COUNT_DISTINCT, SUM, AVG, MIN, MAX (got column=%q aggregate=%q)", m.Column, m.Aggregate)
	}
	return SimpleMetric(m.Column, m.Type, agg, m.Label), nil
}

// MetricColumn is the column reference of a simple metric.
type MetricColumn struct {
	ColumnName string `json:"column_name"`
	Type       string `json:"type,omitempty"`
}

// Metric is an adhoc metric in the form the explore view saves it.
type Metric struct {
	ExpressionType string        `json:"expressionType"`
	Column         *MetricColumn `json:"column,omitempty"`
	Aggregate      string        `json:"aggregate,omitempty"`
	SQLExpression  string        `json:"sqlExpression,omitempty"`
	Label          string        `json:"label"`
	HasCustomLabel bool          `json:"hasCustomLabel"`
	OptionName     string        `json:"optionName"`
}

// SimpleMetric aggregates one column. An empty label becomes "AGG(column)".
func SimpleMetric(column, columnType, aggregate, label string) Metric {
	custom := label != ""
	if !custom {
		label = fmt.Sprintf("%s(%s)", aggregate, column)
	}
	return Metric{
		ExpressionType: "SIMPLE",
		Column:         &MetricColumn{ColumnName: column, Type: columnType},
		Aggregate:      aggregate,
		Label:          label,
		HasCustomLabel: custom,
		OptionName:     optionName(label),
	}
}

// CountAll is the metric used when a definition names none.
func CountAll() Metric {
	return Metric{ExpressionType: "SQL", SQLExpression: "COUNT(*)", Label: "COUNT(*)", OptionName: optionName("COUNT(*)")}
}

// optionName derives a stable identifier from the label so rebuilt params compare equal.
func optionName(label string) string {
	var b strings.Builder
	b.WriteString("metric_")
	for _, r := range strings.ToLower(label) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
