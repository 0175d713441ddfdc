// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"strings"

	"github.com/pterm/pterm"

	apperr "supersetctl/cli/internal/errors"
)

type explanation struct {
	title  string
	lines  []string
	action string
}

var explanations = map[apperr.Kind]explanation{
	apperr.Validation: {
		title:  "Invalid Input",
		lines:  []string{"The request was rejected before anything was sent to Superset."},
		action: "Fix the value named below and run the command again",
	},
	apperr.Identity: {
		title: "Unknown User",
		lines: []string{
			"The user could not be resolved to a Superset id.",
			"Looking up other users needs admin rights on most servers.",
		},
		action: "Pass id:<n> instead of the username, or enable best_effort_identity with default_owner_id",
	},
	apperr.NotFound: {
		title:  "Not Found",
		lines:  []string{"A referenced database, table or resource does not exist on the server."},
		action: "Check the names and the schema in your configuration",
	},
	apperr.Permission: {
		title:  "Permission Denied",
		lines:  []string{"The logged-in Superset user lacks the role needed for this operation."},
		action: "Run 'supersetctl login' again or ask an admin for access",
	},
	apperr.Connection: {
		title: "Connection Lost",
		lines: []string{
			"Superset could not be reached. Remaining items were not attempted.",
			"Nothing is retried automatically; finished items are listed above.",
		},
		action: "Check superset_url and the network, then run the command again",
	},
	apperr.Remote: {
		title:  "Request Rejected",
		lines:  []string{"Superset refused the request."},
		action: "Check the server message below",
	},
}

// Describe turns a classified error into a multi-line message for the terminal.
// The technical details are masked.
func Describe(context string, err error) string {
	if err == nil {
		return ""
	}
	ex, ok := explanations[apperr.KindOf(err)]
	if !ok {
		ex = explanation{title: "Command Failed", action: "Run with --verbose for more detail"}
	}

	var b strings.Builder
	b.WriteString(pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint(ex.title))
	if context != "" {
		b.WriteString(pterm.NewStyle(pterm.FgRed).Sprint(" while " + context))
	}
	b.WriteString("\n\n")
	for _, l := range ex.lines {
		b.WriteString(l)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(pterm.NewStyle(pterm.FgYellow).Sprint("→ " + ex.action))
	b.WriteString("\n\n")
	b.WriteString(pterm.NewStyle(pterm.FgGray).Sprint("Technical details: " + Mask(err.Error())))
	return b.String()
}
