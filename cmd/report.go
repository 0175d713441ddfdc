// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/pterm/pterm"

	"supersetctl/cli/internal/batch"
	"supersetctl/cli/internal/logging"
	"supersetctl/cli/internal/toolkit"
	"supersetctl/cli/internal/xdg"
)

type reportItem struct {
	Index     int    `json:"index"`
	Input     string `json:"input"`
	ID        int    `json:"id,omitempty"`
	Error     string `json:"error,omitempty"`
	Simulated bool   `json:"simulated,omitempty"`
}

type runReport struct {
	RunID     string       `json:"run_id"`
	Command   string       `json:"command"`
	Finished  time.Time    `json:"finished"`
	DryRun    bool         `json:"dry_run"`
	Aborted   bool         `json:"aborted"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Items     []reportItem `json:"items"`
}

func newReport(runID, command string, res batch.Result) runReport {
	r := runReport{
		RunID:     runID,
		Command:   command,
		Finished:  time.Now().UTC(),
		DryRun:    res.Simulated,
		Aborted:   res.Aborted,
		Succeeded: res.Succeeded,
		Failed:    res.Failed,
		Items:     make([]reportItem, len(res.Items)),
	}
	for i, it := range res.Items {
		r.Items[i] = reportItem{Index: it.Index, Input: it.Input, ID: it.ID, Simulated: it.Simulated}
		if it.Err != nil {
			r.Items[i].Error = logging.Mask(it.Err.Error())
		}
	}
	return r
}

// writeReport stores the outcome of a batch run under the XDG state dir and
// returns the file path.
func writeReport(r runReport) (string, error) {
	dir, err := xdg.StateDir()
	if err != nil {
		return "", err
	}
	dir = filepath.Join(dir, "runs")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	p := filepath.Join(dir, r.RunID+".json")
	return p, os.WriteFile(p, b, 0o600)
}

// finishBatch renders res and stores its report. A report that cannot be written
// only produces a warning.
func finishBatch(a *app, s *toolkit.Session, command string, res batch.Result) {
	renderResult(command, res)
	p, err := writeReport(newReport(s.RunID(), command, res))
	if err != nil {
		a.logger.Warn("run report not written", a.logger.Args("error", err.Error()))
		return
	}
	a.logger.Debug("run report written", a.logger.Args("path", p))
	pterm.FgGray.Printf("Report: %s\n", p)
}
