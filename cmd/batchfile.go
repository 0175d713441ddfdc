// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"supersetctl/cli/internal/batch"
	"supersetctl/cli/internal/charts"
	apperr "supersetctl/cli/internal/errors"
	"supersetctl/cli/internal/layout"
)

// chartsFile is the input of "charts batch".
type chartsFile struct {
	// Owner applies to charts that name none.
	Owner  string        `yaml:"owner"`
	Charts []charts.Spec `yaml:"charts"`
}

// dashboardFile is the input of "dashboard create".
type dashboardFile struct {
	Title            string        `yaml:"title"`
	Slug             string        `yaml:"slug"`
	Owner            string        `yaml:"owner"`
	ChartsPerRow     int           `yaml:"charts_per_row"`
	Width            int           `yaml:"width"`
	Height           int           `yaml:"height"`
	CSS              string        `yaml:"css"`
	RefreshFrequency int           `yaml:"refresh_frequency"`
	Charts           []charts.Spec `yaml:"charts"`
}

func (d dashboardFile) request() batch.DashboardRequest {
	return batch.DashboardRequest{
		Title:  d.Title,
		Slug:   d.Slug,
		Owner:  d.Owner,
		Charts: d.Charts,
		Layout: layout.Options{
			ChartsPerRow:     d.ChartsPerRow,
			Default:          layout.Size{Width: d.Width, Height: d.Height},
			CSS:              d.CSS,
			RefreshFrequency: d.RefreshFrequency,
		},
	}
}

func (d dashboardFile) existing(names []string) batch.ExistingChartsRequest {
	r := d.request()
	return batch.ExistingChartsRequest{
		Title:      r.Title,
		Slug:       r.Slug,
		Owner:      r.Owner,
		ChartNames: names,
		Layout:     r.Layout,
	}
}

// decodeYAML reads a definition strictly: unknown keys are errors.
func decodeYAML(r io.Reader, name string, v any) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil {
		if err == io.EOF {
			return apperr.Newf(apperr.Validation, "%s is empty", name)
		}
		return apperr.Wrap(apperr.Validation, "parse "+name, err)
	}
	return nil
}

// readYAML decodes the file at path, or stdin when path is "-".
func readYAML(path string, v any) error {
	if path == "" {
		return apperr.New(apperr.Validation, "a definition file is required (-f)")
	}
	if path == "-" {
		return decodeYAML(os.Stdin, "stdin", v)
	}
	f, err := os.Open(path)
	if err != nil {
		return apperr.Wrap(apperr.Validation, "open "+path, err)
	}
	defer f.Close()
	return decodeYAML(f, path, v)
}
