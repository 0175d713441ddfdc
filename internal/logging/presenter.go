// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"fmt"

	"github.com/pterm/pterm"

	apperr "supersetctl/cli/internal/errors"
	"supersetctl/cli/internal/httperrors"
)

// PresentError formats an error for user display with masking.
func PresentError(context string, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", context, Mask(err.Error()))
}

// Present prints an explanation of err to the terminal. Transport and permission
// failures get the HTTP specific explanations, everything else goes through Describe.
func Present(context string, err error) {
	if err == nil {
		return
	}
	switch apperr.KindOf(err) {
	case apperr.Connection, apperr.Permission:
		httperrors.Present(maskedError{err}, context)
		pterm.Println(pterm.NewStyle(pterm.FgGray).Sprint("Technical details: " + Mask(err.Error())))
	default:
		pterm.Println()
		pterm.Println(Describe(context, err))
		pterm.Println()
	}
}

// maskedError keeps the chain of err for kind checks but masks its text.
type maskedError struct{ err error }

func (m maskedError) Error() string { return Mask(m.err.Error()) }
func (m maskedError) Unwrap() error { return m.err }
