// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Superset list endpoints take their query (filters, paging) as a Rison document
// in the q parameter. Only encoding is needed.

var risonID = regexp.MustCompile(`^[^-0-9 '!:(),*@$][^ '!:(),*@$]*$`)

// encodeRison renders v in Rison notation. Map keys are sorted so output is stable.
func encodeRison(v any) (string, error) {
	var b strings.Builder
	if err := writeRison(&b, v); err != nil {
		return "", err
	}
	return b.String(), nil
}

func writeRison(b *strings.Builder, v any) error {
	switch x := v.(type) {
	case nil:
		b.WriteString("!n")
	case bool:
		if x {
			b.WriteString("!t")
		} else {
			b.WriteString("!f")
		}
	case int:
		b.WriteString(strconv.Itoa(x))
	case int64:
		b.WriteString(strconv.FormatInt(x, 10))
	case float64:
		b.WriteString(strconv.FormatFloat(x, 'f', -1, 64))
	case string:
		writeRisonString(b, x)
	case []int:
		items := make([]any, len(x))
		for i, n := range x {
			items[i] = n
		}
		return writeRison(b, items)
	case []string:
		items := make([]any, len(x))
		for i, s := range x {
			items[i] = s
		}
		return writeRison(b, items)
	case []any:
		b.WriteString("!(")
		for i, item := range x {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writeRison(b, item); err != nil {
				return err
			}
		}
		b.WriteByte(')')
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('(')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			writeRisonString(b, k)
			b.WriteByte(':')
			if err := writeRison(b, x[k]); err != nil {
				return err
			}
		}
		b.WriteByte(')')
	default:
		return fmt.Errorf("rison: unsupported type %T", v)
	}
	return nil
}

func writeRisonString(b *strings.Builder, s string) {
	if risonID.MatchString(s) {
		b.WriteString(s)
		return
	}
	b.WriteByte('\'')
	for _, r := range s {
		if r == '\'' || r == '!' {
			b.WriteByte('!')
		}
		b.WriteRune(r)
	}
	b.WriteByte('\'')
}

// listQuery builds the q document for a filtered, paged list request.
func listQuery(filters []Filter, page, pageSize int) (string, error) {
	fs := make([]any, 0, len(filters))
	for _, f := range filters {
		fs = append(fs, map[string]any{"col": f.Column, "opr": f.Operator, "value": f.Value})
	}
	q := map[string]any{"page": page, "page_size": pageSize}
	if len(fs) > 0 {
		q["filters"] = fs
	}
	return encodeRison(q)
}
