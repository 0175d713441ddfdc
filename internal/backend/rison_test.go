// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeRison(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{name: "identifier string", in: "orders", want: "orders"},
		{name: "string with space", in: "Sales Overview", want: "'Sales Overview'"},
		{name: "leading digit", in: "2024_sales", want: "'2024_sales'"},
		{name: "empty string", in: "", want: "''"},
		{name: "quote and bang escaped", in: "it's!", want: "'it!'s!!'"},
		{name: "int", in: 42, want: "42"},
		{name: "bools and nil", in: []any{true, false, nil}, want: "!(!t,!f,!n)"},
		{name: "sorted object", in: map[string]any{"page_size": 100, "page": 0}, want: "(page:0,page_size:100)"},
		{name: "int list", in: []int{3, 1}, want: "!(3,1)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := encodeRison(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeRisonUnsupported(t *testing.T) {
	_, err := encodeRison(struct{}{})
	assert.Error(t, err)
}

func TestListQuery(t *testing.T) {
	q, err := listQuery([]Filter{
		Eq("slice_name", "Revenue by month"),
		{Column: "owners", Operator: OpRelManyMany, Value: 7},
	}, 2, 100)
	require.NoError(t, err)
	assert.Equal(t,
		"(filters:!((col:slice_name,opr:eq,value:'Revenue by month'),(col:owners,opr:rel_m_m,value:7)),page:2,page_size:100)",
		q)
}
