// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"atomicgo.dev/cursor"
	"github.com/pterm/pterm"

	"supersetctl/cli/internal/batch"
	"supersetctl/cli/internal/logging"
	"supersetctl/cli/internal/terminal"
)

var spinnerFrames = []string{"|", "/", "-", "\\"}

// withSpinner runs fn while an area spinner shows text. Without a terminal, fn
// simply runs.
func withSpinner(text string, fn func() error) error {
	if !terminal.IsInteractive() || flagVerbose {
		return fn()
	}
	cursor.Hide()
	defer cursor.Show()
	area, err := pterm.DefaultArea.WithRemoveWhenDone(true).Start()
	if err != nil {
		return fn()
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(120 * time.Millisecond)
		defer t.Stop()
		i := 0
		for {
			select {
			case <-t.C:
				i++
				area.Update(fmt.Sprintf("%s %s", spinnerFrames[i%len(spinnerFrames)], text))
			case <-stop:
				return
			}
		}
	}()

	err = fn()
	close(stop)
	wg.Wait()
	_ = area.Stop()
	return err
}

func dryRunBanner(simulated bool) {
	if simulated {
		pterm.Info.Println("Dry run: nothing was changed on the server. Negative ids are placeholders.")
	}
}

// renderResult prints one row per item and a summary line.
func renderResult(title string, res batch.Result) {
	data := pterm.TableData{{"#", "Item", "Id", "Status"}}
	for _, it := range res.Items {
		status := pterm.FgGreen.Sprint("ok")
		if it.Simulated {
			status = pterm.FgCyan.Sprint("would apply")
		}
		if !it.OK() {
			status = pterm.FgRed.Sprint(logging.Mask(it.Err.Error()))
		}
		id := "-"
		if it.ID != 0 {
			id = strconv.Itoa(it.ID)
		}
		data = append(data, []string{strconv.Itoa(it.Index + 1), it.Input, id, status})
	}
	pterm.DefaultSection.Println(title)
	if len(res.Items) > 0 {
		_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	}
	summary := fmt.Sprintf("%d succeeded, %d failed", res.Succeeded, res.Failed)
	switch {
	case res.Aborted:
		pterm.Warning.Println(summary + "; stopped early, remaining items were not attempted")
	case res.Failed > 0:
		pterm.Warning.Println(summary)
	default:
		pterm.Success.Println(summary)
	}
	dryRunBanner(res.Simulated)
}

// failedItems turns a result with failures into an error for the exit code.
func failedItems(res batch.Result) error {
	if res.Failed == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d items failed", res.Failed, len(res.Items))
}

func renderBox(title string, lines ...string) {
	body := ""
	for i, l := range lines {
		if i > 0 {
			body += "\n"
		}
		body += l
	}
	pterm.Println(pterm.DefaultBox.WithTitle(title).WithPadding(1).Sprint(body))
}
