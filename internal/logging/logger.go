// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"io"
	"os"
	"strings"

	"github.com/pterm/pterm"
)

// Options configures New.
type Options struct {
	// Level is one of debug, info, warn or error. Anything else means info.
	Level string
	// Format is "json" or "text".
	Format string
	// Writer defaults to stderr.
	Writer io.Writer
}

// ParseLevel maps a config level name to a pterm level.
func ParseLevel(level string) pterm.LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return pterm.LogLevelDebug
	case "warn", "warning":
		return pterm.LogLevelWarn
	case "error":
		return pterm.LogLevelError
	case "off", "disabled":
		return pterm.LogLevelDisabled
	}
	return pterm.LogLevelInfo
}

// New returns the structured logger passed to every layer of the CLI.
func New(opts Options) *pterm.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	l := pterm.DefaultLogger.
		WithLevel(ParseLevel(opts.Level)).
		WithWriter(w)
	if strings.EqualFold(opts.Format, "json") {
		return l.WithFormatter(pterm.LogFormatterJSON)
	}
	return l.WithFormatter(pterm.LogFormatterColorful)
}

// Discard returns a logger that writes nothing.
func Discard() *pterm.Logger {
	return pterm.DefaultLogger.WithLevel(pterm.LogLevelDisabled)
}
